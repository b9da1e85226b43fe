package provider

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"

	mailer "github.com/kmcoleman/bajarun-mailer"
)

type sesTransport struct {
	ses *ses.SES

	from    string
	charset string
}

func NewSesTransport(sess *session.Session, from string) mailer.EmailTransport {
	return &sesTransport{
		ses:     ses.New(sess),
		from:    from,
		charset: "UTF-8",
	}
}

func (transport *sesTransport) Send(ctx context.Context, to, subject, htmlBody string) error {
	input := &ses.SendEmailInput{
		Destination: &ses.Destination{
			ToAddresses: []*string{
				aws.String(to),
			},
		},
		Message: &ses.Message{
			Body: &ses.Body{
				Html: &ses.Content{
					Charset: aws.String(transport.charset),
					Data:    aws.String(htmlBody),
				},
			},
			Subject: &ses.Content{
				Charset: aws.String(transport.charset),
				Data:    aws.String(subject),
			},
		},

		Source: aws.String(transport.from),
	}

	_, err := transport.ses.SendEmailWithContext(ctx, input)
	return err
}
