package mailer

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const UserAgent = "Bajarun/Mailer-1.0"

var (
	MissingTemplateErr  = errors.New("No template id provided")
	MissingRecipientErr = errors.New("No recipient provided")
)

// Application is the engine's entry surface: the event-driven dispatcher,
// the manual/bulk administrative send paths and the HTTP admin handler.
type Application interface {
	HttpHandler() *HttpHandler

	// HandleEvent processes one document-change notification. An error is
	// returned only when the trigger list itself cannot be loaded; failures
	// of individual triggers are isolated, logged and recorded.
	HandleEvent(ctx context.Context, event ChangeEvent) error

	SendEmail(ctx context.Context, templateID, recipient string, data map[string]interface{}) (SendResult, error)
	SendBulk(ctx context.Context, templateID string, recipients []Recipient) (BulkResult, error)
	Preview(templateID string, data map[string]interface{}) (PreviewResult, error)
}

// SendResult is the outcome of a single send attempt. Expected failure modes
// (missing template, provider error) are carried in Error rather than
// surfaced as Go errors so the audit log write is never skipped.
type SendResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type PreviewResult struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	HTML    string `json:"html"`
}

type AppOption func(a *application)

func SetLogger(logger logrus.FieldLogger) AppOption {
	return func(a *application) {
		a.logger = logger
	}
}

func SetTemplateRepo(repo TemplateRepository) AppOption {
	return func(a *application) {
		a.templateRepo = repo
	}
}

func SetTriggerRepo(repo TriggerRepository) AppOption {
	return func(a *application) {
		a.triggerRepo = repo
	}
}

func SetLogRepo(repo LogRepository) AppOption {
	return func(a *application) {
		a.logRepo = repo
	}
}

func SetEmailTransport(transport EmailTransport) AppOption {
	return func(a *application) {
		a.transport = transport
	}
}

func SetLayout(layout LayoutFunc) AppOption {
	return func(a *application) {
		a.layout = layout
	}
}

// SetSendTimeout bounds every transport call. Zero disables the bound.
func SetSendTimeout(timeout time.Duration) AppOption {
	return func(a *application) {
		a.sendTimeout = timeout
	}
}

// SetMaxTriggersPerEvent caps how many triggers one event may dispatch, for
// hosts that enforce a wall-clock execution limit. Zero means unlimited.
func SetMaxTriggersPerEvent(max int) AppOption {
	return func(a *application) {
		a.maxTriggersPerEvent = max
	}
}

func SetBulkWorkerCount(count int) AppOption {
	return func(a *application) {
		a.bulkWorkers = count
	}
}

// SetBulkRateLimit bounds bulk sends to perSecond transport calls across the
// worker pool, to respect provider rate limits.
func SetBulkRateLimit(perSecond int) AppOption {
	return func(a *application) {
		a.limiter = rate.NewLimiter(rate.Limit(perSecond), perSecond)
	}
}

type application struct {
	logger logrus.FieldLogger

	templateRepo TemplateRepository
	triggerRepo  TriggerRepository
	logRepo      LogRepository

	transport EmailTransport
	layout    LayoutFunc

	sendTimeout         time.Duration
	maxTriggersPerEvent int

	bulkWorkers int
	limiter     *rate.Limiter
}

func NewApplication(options ...AppOption) (Application, error) {
	app := &application{
		logger:      logrus.New(),
		layout:      DefaultLayout,
		bulkWorkers: 5,
	}

	for _, option := range options {
		option(app)
	}

	if err := app.ensureUsableConfiguration(); err != nil {
		return app, err
	}

	return app, nil
}

func (a *application) ensureUsableConfiguration() error {
	if a.templateRepo == nil {
		return errors.New("Missing template repository")
	}

	if a.triggerRepo == nil {
		return errors.New("Missing trigger repository")
	}

	if a.logRepo == nil {
		return errors.New("Missing log repository")
	}

	if a.transport == nil {
		return errors.New("No email transport configured")
	}

	return nil
}

func (a *application) HttpHandler() *HttpHandler {
	return &HttpHandler{
		app: a,
	}
}

func (a *application) SendEmail(ctx context.Context, templateID, recipient string, data map[string]interface{}) (SendResult, error) {
	if templateID == "" {
		return SendResult{}, MissingTemplateErr
	}

	if recipient == "" {
		return SendResult{}, MissingRecipientErr
	}

	return a.sendOne(ctx, templateID, recipient, data, sendOptions{
		SentBy: SentByAdmin,
	}), nil
}

func (a *application) Preview(templateID string, data map[string]interface{}) (PreviewResult, error) {
	if templateID == "" {
		return PreviewResult{}, MissingTemplateErr
	}

	template, err := a.templateRepo.Get(templateID)
	if err != nil {
		return PreviewResult{}, err
	}

	body := Render(template.Body, data)

	return PreviewResult{
		Subject: Render(template.Subject, data),
		Body:    body,
		HTML:    a.layout(body),
	}, nil
}
