package smtp

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"

	mailer "github.com/kmcoleman/bajarun-mailer"
)

type SmtpOption func(t *smtpTransport)

func SetCredentials(username, password string) SmtpOption {
	return func(t *smtpTransport) {
		t.username = username
		t.password = password
	}
}

// SetMaxElapsedTime bounds how long delivery retries may take in total.
func SetMaxElapsedTime(max time.Duration) SmtpOption {
	return func(t *smtpTransport) {
		t.maxElapsed = max
	}
}

// smtpTransport delivers over plain SMTP. Transient dial/send failures are
// retried with exponential backoff inside the transport; the engine itself
// never retries.
type smtpTransport struct {
	host string
	port int
	from string

	username string
	password string

	maxElapsed time.Duration
}

func NewSmtpTransport(host string, port int, from string, options ...SmtpOption) mailer.EmailTransport {
	t := &smtpTransport{
		host:       host,
		port:       port,
		from:       from,
		maxElapsed: 10 * time.Second,
	}

	for _, option := range options {
		option(t)
	}

	return t
}

func (t *smtpTransport) Send(ctx context.Context, to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", t.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(t.host, t.port, t.username, t.password)

	operation := func() error {
		return d.DialAndSend(m)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = t.maxElapsed

	return errors.Wrap(backoff.Retry(operation, backoff.WithContext(b, ctx)), "Failed to send over smtp")
}
