package sendgrid

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"

	mailer "github.com/kmcoleman/bajarun-mailer"
)

const sendgridApi = "https://api.sendgrid.com/v3/mail/send"

type SendgridOption func(t *sendgridTransport)

func SetFrom(email, name string) SendgridOption {
	return func(t *sendgridTransport) {
		t.fromEmail = email
		t.fromName = name
	}
}

func SetReplyTo(replyTo string) SendgridOption {
	return func(t *sendgridTransport) {
		t.replyTo = replyTo
	}
}

// sendgridTransport delivers through the SendGrid v3 mail send API. The
// api key is carried by the constructed instance; nothing global.
type sendgridTransport struct {
	client *retryablehttp.Client

	apiKey string

	fromEmail string
	fromName  string
	replyTo   string
}

func NewSendgridTransport(apiKey string, options ...SendgridOption) mailer.EmailTransport {
	t := &sendgridTransport{
		client: retryablehttp.NewClient(),
		apiKey: apiKey,
	}

	for _, option := range options {
		option(t)
	}

	return t
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type personalization struct {
	To []address `json:"to"`
}

type sendPayload struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	ReplyTo          *address          `json:"reply_to,omitempty"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

func (t *sendgridTransport) Send(ctx context.Context, to, subject, htmlBody string) error {
	payload := sendPayload{
		Personalizations: []personalization{
			{To: []address{{Email: to}}},
		},
		From: address{
			Email: t.fromEmail,
			Name:  t.fromName,
		},
		Subject: subject,
		Content: []content{
			{Type: "text/html", Value: htmlBody},
		},
	}

	if t.replyTo != "" {
		payload.ReplyTo = &address{Email: t.replyTo}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "Failed to encode sendgrid payload")
	}

	req, err := retryablehttp.NewRequest(http.MethodPost, sendgridApi, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req = req.WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", mailer.UserAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 || resp.StatusCode <= 199 {
		return errors.Errorf("Unexpected response code %d received from sendgrid", resp.StatusCode)
	}

	return nil
}
