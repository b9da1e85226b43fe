package mailer

import "time"

// TemplateVariable documents a placeholder a template expects, for the
// benefit of the admin UI. It has no effect on rendering.
type TemplateVariable struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Example     string `json:"example"`
}

// Template is a pair of parameterized strings. Subject and Body may contain
// {{path.to.field}} placeholders resolved against a render context.
type Template struct {
	ID   string `sql:",pk" json:"id"`
	Name string `sql:",notnull" json:"name"`

	Subject string `json:"subject"`
	Body    string `json:"body"`

	Variables []TemplateVariable `json:"variables"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
