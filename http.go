package mailer

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/kmcoleman/bajarun-mailer/internal"
)

// maxLogPageSize caps the log listing; the admin UI reads recent entries,
// never the full history.
const maxLogPageSize = 200

type HttpHandler struct {
	app *application

	// adminToken, when set, is required as a bearer token on every route.
	adminToken string
}

// SetAdminToken requires callers to present the given bearer token. The
// engine recognises a single administrator; anything finer grained belongs
// to the surrounding platform.
func (h *HttpHandler) SetAdminToken(token string) {
	h.adminToken = token
}

// Router assembles the administrative surface plus the change-event webhook.
func (h *HttpHandler) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/templates", h.GetAllTemplates).Methods(http.MethodGet)
	r.HandleFunc("/templates", h.CreateTemplate).Methods(http.MethodPost)
	r.HandleFunc("/templates/{id}", h.GetTemplate).Methods(http.MethodGet)
	r.HandleFunc("/templates/{id}", h.UpdateTemplate).Methods(http.MethodPut)
	r.HandleFunc("/templates/{id}", h.DeleteTemplate).Methods(http.MethodDelete)

	r.HandleFunc("/triggers", h.GetAllTriggers).Methods(http.MethodGet)
	r.HandleFunc("/triggers", h.CreateTrigger).Methods(http.MethodPost)
	r.HandleFunc("/triggers/{id}", h.GetTrigger).Methods(http.MethodGet)
	r.HandleFunc("/triggers/{id}", h.UpdateTrigger).Methods(http.MethodPut)
	r.HandleFunc("/triggers/{id}", h.DeleteTrigger).Methods(http.MethodDelete)

	r.HandleFunc("/logs", h.GetLogs).Methods(http.MethodGet)

	r.HandleFunc("/send", h.SendEmail).Methods(http.MethodPost)
	r.HandleFunc("/send/bulk", h.SendBulk).Methods(http.MethodPost)
	r.HandleFunc("/send/csv", h.SendCsv).Methods(http.MethodPost)
	r.HandleFunc("/preview", h.Preview).Methods(http.MethodPost)

	r.HandleFunc("/events", h.HandleEvent).Methods(http.MethodPost)

	if h.adminToken != "" {
		r.Use(h.requireAdmin)
	}

	return r
}

func (h *HttpHandler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+h.adminToken {
			http.Error(w, "Unauthorized", 401)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJson(w http.ResponseWriter, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Failed to convert to json", 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (h *HttpHandler) GetAllTemplates(w http.ResponseWriter, r *http.Request) {
	templates, _, err := h.app.templateRepo.Matching(TemplateCriteria{})
	if err != nil {
		http.Error(w, "Failed to retrieve templates", 500)
		return
	}

	payload := struct {
		Data []Template `json:"data"`
	}{templates}

	writeJson(w, payload)
}

func (h *HttpHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := mux.Vars(r)["id"]
	if !ok {
		http.Error(w, "Route id var", 400)
		return
	}

	template, err := h.app.templateRepo.Get(id)
	if err != nil {
		if err == TemplateNotFoundErr {
			http.Error(w, "Template not found", 404)
			return
		}

		http.Error(w, "Failed to retrieve template", 500)
		return
	}

	writeJson(w, template)
}

func (h *HttpHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	body := &internal.TemplatePayload{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		http.Error(w, "Failed to parse incoming json", 400)
		return
	}

	if body.Name == "" {
		http.Error(w, "A template name is required", 400)
		return
	}

	template := &Template{
		ID:        uuid.New().String(),
		Name:      body.Name,
		Subject:   body.Subject,
		Body:      body.Body,
		Variables: templateVariablesFromPayload(body.Variables),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := h.app.templateRepo.Create(template); err != nil {
		http.Error(w, "Failed to create template", 500)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJson(w, template)
}

func (h *HttpHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := mux.Vars(r)["id"]
	if !ok {
		http.Error(w, "Route id var", 400)
		return
	}

	template, err := h.app.templateRepo.Get(id)
	if err != nil {
		if err == TemplateNotFoundErr {
			http.Error(w, "Template not found", 404)
			return
		}

		http.Error(w, "Failed to retrieve template", 500)
		return
	}

	body := &internal.TemplatePayload{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		http.Error(w, "Failed to parse incoming json", 400)
		return
	}

	template.Name = body.Name
	template.Subject = body.Subject
	template.Body = body.Body
	template.Variables = templateVariablesFromPayload(body.Variables)

	if err := h.app.templateRepo.Update(&template); err != nil {
		http.Error(w, "Failed to update template", 500)
		return
	}

	writeJson(w, template)
}

func (h *HttpHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := mux.Vars(r)["id"]
	if !ok {
		http.Error(w, "Route id var", 400)
		return
	}

	template, err := h.app.templateRepo.Get(id)
	if err != nil {
		if err == TemplateNotFoundErr {
			http.Error(w, "Template not found", 404)
			return
		}

		http.Error(w, "Failed to retrieve template", 500)
		return
	}

	if err := h.app.templateRepo.Delete(&template); err != nil {
		http.Error(w, "Failed to delete template", 500)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *HttpHandler) GetAllTriggers(w http.ResponseWriter, r *http.Request) {
	criteria := TriggerCriteria{
		Collection: r.URL.Query().Get("collection"),
		Event:      EventKind(r.URL.Query().Get("event")),
	}

	triggers, _, err := h.app.triggerRepo.Matching(criteria)
	if err != nil {
		http.Error(w, "Failed to retrieve triggers", 500)
		return
	}

	payload := struct {
		Data []Trigger `json:"data"`
	}{triggers}

	writeJson(w, payload)
}

func (h *HttpHandler) GetTrigger(w http.ResponseWriter, r *http.Request) {
	id, ok := mux.Vars(r)["id"]
	if !ok {
		http.Error(w, "Route id var", 400)
		return
	}

	trigger, err := h.app.triggerRepo.Get(id)
	if err != nil {
		if err == TriggerNotFoundErr {
			http.Error(w, "Trigger not found", 404)
			return
		}

		http.Error(w, "Failed to retrieve trigger", 500)
		return
	}

	writeJson(w, trigger)
}

func (h *HttpHandler) CreateTrigger(w http.ResponseWriter, r *http.Request) {
	body := &internal.TriggerPayload{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		http.Error(w, "Failed to parse incoming json", 400)
		return
	}

	if body.TemplateID == "" || body.Collection == "" || body.Event == "" {
		http.Error(w, "templateId, collection and event are required", 400)
		return
	}

	trigger := &Trigger{
		ID:             uuid.New().String(),
		Name:           body.Name,
		Description:    body.Description,
		Enabled:        body.Enabled,
		TemplateID:     body.TemplateID,
		Collection:     body.Collection,
		Event:          EventKind(body.Event),
		Conditions:     conditionsFromPayload(body.Conditions),
		RecipientField: body.RecipientField,
		DataMapping:    body.DataMapping,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if err := h.app.triggerRepo.Create(trigger); err != nil {
		http.Error(w, "Failed to create trigger", 500)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJson(w, trigger)
}

func (h *HttpHandler) UpdateTrigger(w http.ResponseWriter, r *http.Request) {
	id, ok := mux.Vars(r)["id"]
	if !ok {
		http.Error(w, "Route id var", 400)
		return
	}

	trigger, err := h.app.triggerRepo.Get(id)
	if err != nil {
		if err == TriggerNotFoundErr {
			http.Error(w, "Trigger not found", 404)
			return
		}

		http.Error(w, "Failed to retrieve trigger", 500)
		return
	}

	body := &internal.TriggerPayload{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		http.Error(w, "Failed to parse incoming json", 400)
		return
	}

	trigger.Name = body.Name
	trigger.Description = body.Description
	trigger.Enabled = body.Enabled
	trigger.TemplateID = body.TemplateID
	trigger.Collection = body.Collection
	trigger.Event = EventKind(body.Event)
	trigger.Conditions = conditionsFromPayload(body.Conditions)
	trigger.RecipientField = body.RecipientField
	trigger.DataMapping = body.DataMapping

	if err := h.app.triggerRepo.Update(&trigger); err != nil {
		http.Error(w, "Failed to update trigger", 500)
		return
	}

	writeJson(w, trigger)
}

func (h *HttpHandler) DeleteTrigger(w http.ResponseWriter, r *http.Request) {
	id, ok := mux.Vars(r)["id"]
	if !ok {
		http.Error(w, "Route id var", 400)
		return
	}

	trigger, err := h.app.triggerRepo.Get(id)
	if err != nil {
		if err == TriggerNotFoundErr {
			http.Error(w, "Trigger not found", 404)
			return
		}

		http.Error(w, "Failed to retrieve trigger", 500)
		return
	}

	if err := h.app.triggerRepo.Delete(&trigger); err != nil {
		http.Error(w, "Failed to delete trigger", 500)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *HttpHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	limit := maxLogPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "Invalid limit", 400)
			return
		}

		if parsed < limit {
			limit = parsed
		}
	}

	criteria := LogCriteria{
		TriggerID: r.URL.Query().Get("trigger"),
		Status:    SendStatus(r.URL.Query().Get("status")),
		Limit:     limit,
		Sorting:   map[string]string{"sent_at": "DESC"},
	}

	entries, total, err := h.app.logRepo.Matching(criteria)
	if err != nil {
		http.Error(w, "Failed to retrieve logs", 500)
		return
	}

	payload := struct {
		Data  []LogEntry `json:"data"`
		Total int        `json:"total"`
	}{entries, total}

	writeJson(w, payload)
}

func (h *HttpHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	body := &internal.SendEmailRequest{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		http.Error(w, "Failed to parse incoming json", 400)
		return
	}

	result, err := h.app.SendEmail(r.Context(), body.TemplateID, body.Recipient, body.Data)
	if err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	writeJson(w, result)
}

func (h *HttpHandler) SendBulk(w http.ResponseWriter, r *http.Request) {
	body := &internal.SendBulkRequest{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		http.Error(w, "Failed to parse incoming json", 400)
		return
	}

	recipients := make([]Recipient, 0, len(body.Recipients))
	for _, recipient := range body.Recipients {
		recipients = append(recipients, Recipient{
			Email: recipient.Email,
			Data:  recipient.Data,
		})
	}

	result, err := h.app.SendBulk(r.Context(), body.TemplateID, recipients)
	if err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	writeJson(w, result)
}

// SendCsv accepts a text/csv body with an Email column; the template id is
// taken from the "template" query parameter.
func (h *HttpHandler) SendCsv(w http.ResponseWriter, r *http.Request) {
	templateID := r.URL.Query().Get("template")
	if templateID == "" {
		http.Error(w, MissingTemplateErr.Error(), 400)
		return
	}

	recipients, err := ParseRecipients(r.Body, 0)
	if err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	result, err := h.app.SendBulk(r.Context(), templateID, recipients)
	if err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	writeJson(w, result)
}

func (h *HttpHandler) Preview(w http.ResponseWriter, r *http.Request) {
	body := &internal.PreviewRequest{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		http.Error(w, "Failed to parse incoming json", 400)
		return
	}

	preview, err := h.app.Preview(body.TemplateID, body.Data)
	if err != nil {
		if err == TemplateNotFoundErr {
			http.Error(w, "Template not found", 404)
			return
		}

		http.Error(w, err.Error(), 400)
		return
	}

	writeJson(w, preview)
}

// HandleEvent is the webhook entry point for document-change notifications.
// Delivery is acknowledged as soon as the trigger loop has run; redelivery
// of an acknowledged event will dispatch again.
func (h *HttpHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	event := ChangeEvent{}
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "Failed to parse incoming json", 400)
		return
	}

	if event.Collection == "" || event.Kind == "" {
		http.Error(w, "collection and event are required", 400)
		return
	}

	if err := h.app.HandleEvent(r.Context(), event); err != nil {
		http.Error(w, "Failed to process event", 500)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func templateVariablesFromPayload(payload []internal.TemplateVariablePayload) []TemplateVariable {
	variables := make([]TemplateVariable, 0, len(payload))
	for _, variable := range payload {
		variables = append(variables, TemplateVariable{
			Name:        variable.Name,
			Description: variable.Description,
			Example:     variable.Example,
		})
	}

	return variables
}

func conditionsFromPayload(payload []internal.ConditionPayload) []Condition {
	conditions := make([]Condition, 0, len(payload))
	for _, condition := range payload {
		conditions = append(conditions, Condition{
			Field:    condition.Field,
			Operator: Operator(condition.Operator),
			Value:    condition.Value,
		})
	}

	return conditions
}
