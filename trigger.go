package mailer

import "time"

// EventKind names the kind of document change that occurred.
type EventKind string

const (
	EventCreate EventKind = "create"
	EventUpdate EventKind = "update"
	EventDelete EventKind = "delete"
)

// Operator is a condition comparison operator. Operators outside this set
// never match; a malformed rule must not take the rest of a trigger set down.
type Operator string

const (
	OpEquals      Operator = "=="
	OpNotEquals   Operator = "!="
	OpGreaterThan Operator = ">"
	OpLessThan    Operator = "<"
	OpContains    Operator = "contains"
	OpExists      Operator = "exists"
)

// Condition is a single predicate evaluated against a changed document.
// Value is always carried as a string; each operator defines its own
// coercion rule, see condition.go.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
}

// Trigger binds a (collection, event) pair to a template, a condition list
// and a data mapping. It is the unit of automation.
//
// SendCount counts dispatch attempts, not confirmed deliveries; the log
// entry stream is the authoritative record. LastTriggered/SendCount are
// written read-modify-write without a transaction, which is accepted
// imprecision for an audit counter.
type Trigger struct {
	ID          string `sql:",pk" json:"id"`
	Name        string `sql:",notnull" json:"name"`
	Description string `json:"description"`

	Enabled    bool      `sql:",notnull" json:"enabled"`
	TemplateID string    `sql:",notnull" json:"templateId"`
	Collection string    `sql:",notnull" json:"collection"`
	Event      EventKind `sql:",notnull" json:"event"`

	Conditions []Condition `json:"conditions"`

	// RecipientField names the document field holding the destination
	// address. An empty resolved recipient skips the trigger silently.
	RecipientField string `json:"recipientField"`

	// DataMapping maps template variable names to either a document field
	// name (copied verbatim) or a {{...}} expression rendered against the
	// document first.
	DataMapping map[string]string `json:"dataMapping"`

	LastTriggered *time.Time `json:"lastTriggered"`
	SendCount     int64      `sql:",notnull" json:"sendCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
