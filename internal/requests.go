package internal

// Request payloads for the administrative HTTP surface. Kept free of the
// root package's types so the handler owns all conversions.

type TemplateVariablePayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Example     string `json:"example"`
}

type TemplatePayload struct {
	Name      string                    `json:"name"`
	Subject   string                    `json:"subject"`
	Body      string                    `json:"body"`
	Variables []TemplateVariablePayload `json:"variables"`
}

type ConditionPayload struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

type TriggerPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`

	TemplateID string `json:"templateId"`
	Collection string `json:"collection"`
	Event      string `json:"event"`

	Conditions     []ConditionPayload `json:"conditions"`
	RecipientField string             `json:"recipientField"`
	DataMapping    map[string]string  `json:"dataMapping"`
}

type SendEmailRequest struct {
	TemplateID string                 `json:"templateId"`
	Recipient  string                 `json:"recipient"`
	Data       map[string]interface{} `json:"data"`
}

type BulkRecipientPayload struct {
	Email string                 `json:"email"`
	Data  map[string]interface{} `json:"data"`
}

type SendBulkRequest struct {
	TemplateID string                 `json:"templateId"`
	Recipients []BulkRecipientPayload `json:"recipients"`
}

type PreviewRequest struct {
	TemplateID string                 `json:"templateId"`
	Data       map[string]interface{} `json:"data"`
}
