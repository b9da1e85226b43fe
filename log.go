package mailer

import "time"

// SendStatus is the terminal state of a single send attempt.
type SendStatus string

const (
	StatusSent   SendStatus = "sent"
	StatusFailed SendStatus = "failed"
)

// Senders recorded in LogEntry.SentBy.
const (
	SentBySystemTrigger = "system-trigger"
	SentByAdmin         = "admin"
)

// LogEntry is the append-only record of one send attempt, written exactly
// once per attempt regardless of outcome. An empty TriggerID marks a
// manually issued send. Entries are never mutated or deleted by the engine.
type LogEntry struct {
	ID string `sql:",pk" json:"id"`

	TriggerID    string `json:"triggerId,omitempty"`
	TemplateID   string `json:"templateId"`
	TemplateName string `json:"templateName"`

	Recipient string     `sql:",notnull" json:"recipient"`
	Subject   string     `json:"subject"`
	Status    SendStatus `sql:",notnull" json:"status"`
	Error     string     `json:"error,omitempty"`

	SentAt time.Time `sql:",notnull" json:"sentAt"`
	SentBy string    `json:"sentBy"`

	DocumentID string `json:"documentId,omitempty"`
	Collection string `json:"collection,omitempty"`
}
