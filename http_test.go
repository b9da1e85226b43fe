package mailer

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*HttpHandler, *templateRepository, *triggerRepository, *logRepository, *recordingTransport) {
	t.Helper()

	templates := &templateRepository{templates: map[string]Template{}}
	triggers := &triggerRepository{}
	logs := &logRepository{}
	transport := &recordingTransport{}

	app, err := NewApplication(
		SetTemplateRepo(templates),
		SetTriggerRepo(triggers),
		SetLogRepo(logs),
		SetEmailTransport(transport),
	)
	require.NoError(t, err)

	return app.HttpHandler(), templates, triggers, logs, transport
}

func TestEventWebhookDispatches(t *testing.T) {
	handler, templates, triggers, logs, transport := newTestHandler(t)

	templates.templates["welcome"] = Template{
		ID:      "welcome",
		Name:    "Welcome",
		Subject: "Hi {{name}}",
		Body:    "Welcome!",
	}
	triggers.triggers = []Trigger{{
		ID:             "t1",
		Enabled:        true,
		TemplateID:     "welcome",
		Collection:     "registrations",
		Event:          EventCreate,
		RecipientField: "email",
		DataMapping:    map[string]string{"name": "fullName"},
	}}

	body := `{
		"collection": "registrations",
		"event": "create",
		"documentId": "doc-1",
		"document": {"email": "a@x.com", "fullName": "Ana Ruiz"}
	}`

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))

	handler.Router().ServeHTTP(w, r)

	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, transport.sent, 1)
	assert.Equal(t, "Hi Ana Ruiz", transport.sent[0].subject)
	assert.Len(t, logs.entries, 1)
}

func TestEventWebhookRejectsIncompleteEvent(t *testing.T) {
	handler, _, _, _, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"documentId":"d"}`))

	handler.Router().ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTriggerCrudRoundtrip(t *testing.T) {
	handler, _, triggers, _, _ := newTestHandler(t)
	router := handler.Router()

	payload := `{
		"name": "welcome on registration",
		"enabled": true,
		"templateId": "welcome",
		"collection": "registrations",
		"event": "create",
		"recipientField": "email",
		"conditions": [{"field": "status", "operator": "==", "value": "confirmed"}],
		"dataMapping": {"name": "fullName"}
	}`

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/triggers", strings.NewReader(payload)))

	require.Equal(t, http.StatusCreated, w.Code)

	var created Trigger
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, OpEquals, created.Conditions[0].Operator)

	require.Len(t, triggers.triggers, 1)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/triggers/"+created.ID, nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateTriggerValidatesRequiredFields(t *testing.T) {
	handler, _, _, _, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/triggers", strings.NewReader(`{"name":"incomplete"}`))

	handler.Router().ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendEndpointValidates(t *testing.T) {
	handler, _, _, _, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(`{"recipient":"a@x.com"}`))

	handler.Router().ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendCsvEndpoint(t *testing.T) {
	handler, templates, _, logs, transport := newTestHandler(t)

	templates.templates["welcome"] = Template{
		ID:      "welcome",
		Subject: "Hi {{FirstName}}",
		Body:    "Welcome!",
	}

	csv := "Email,FirstName\na@x.com,Ana\nb@x.com,Bo\n"

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/send/csv?template=welcome", bytes.NewReader([]byte(csv)))

	handler.Router().ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var result BulkResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 0, result.Failed)
	assert.Len(t, transport.sent, 2)
	assert.Len(t, logs.entries, 2)
}

func TestAdminTokenGuard(t *testing.T) {
	handler, _, _, _, _ := newTestHandler(t)
	handler.SetAdminToken("secret")
	router := handler.Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/templates", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/templates", nil)
	r.Header.Set("Authorization", "Bearer secret")
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}
