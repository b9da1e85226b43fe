package mailer

import (
	"time"

	"github.com/pkg/errors"
)

var (
	TemplateNotFoundErr = errors.New("The template was not found")
	TriggerNotFoundErr  = errors.New("The trigger was not found")
)

type TemplateRepository interface {
	Get(id string) (Template, error)
	Matching(criteria TemplateCriteria) ([]Template, int, error)

	Create(template *Template) error
	Update(template *Template) error
	Delete(template *Template) error
}

type TriggerRepository interface {
	Get(id string) (Trigger, error)

	// FindForEvent returns the enabled triggers registered for a
	// (collection, event) pair, in store order.
	FindForEvent(collection string, event EventKind) ([]Trigger, error)

	Matching(criteria TriggerCriteria) ([]Trigger, int, error)

	Create(trigger *Trigger) error
	Update(trigger *Trigger) error
	Delete(trigger *Trigger) error
}

type LogRepository interface {
	Create(entry *LogEntry) error
	Matching(criteria LogCriteria) ([]LogEntry, int, error)
}

type TemplateCriteria struct {
	Name string

	Offset  int
	Limit   int
	Sorting map[string]string
}

type TriggerCriteria struct {
	Collection string
	Event      EventKind
	Enabled    *bool

	Offset  int
	Limit   int
	Sorting map[string]string
}

type LogCriteria struct {
	TriggerID  string
	TemplateID string
	Recipient  string
	Status     SendStatus

	SentAfter  time.Time
	SentBefore time.Time

	Offset  int
	Limit   int
	Sorting map[string]string
}
