package mailer

import "context"

// EmailTransport delivers a rendered message. Implementations carry their
// own provider credential and sender identity; nothing in the engine mutates
// ambient provider state.
type EmailTransport interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// LayoutFunc wraps a rendered template body in an outer HTML envelope. The
// wrapping is a static transformation applied after rendering.
type LayoutFunc func(body string) string

// DefaultLayout is the boilerplate envelope used when no custom layout is
// configured.
func DefaultLayout(body string) string {
	return `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="margin:0;padding:0;background-color:#f4f4f4;">
<table role="presentation" width="100%" cellpadding="0" cellspacing="0">
<tr><td align="center" style="padding:24px;">
<table role="presentation" width="600" cellpadding="0" cellspacing="0" style="background-color:#ffffff;border-radius:4px;">
<tr><td style="padding:32px;font-family:Helvetica,Arial,sans-serif;font-size:15px;color:#333333;">
` + body + `
</td></tr>
<tr><td style="padding:16px 32px;font-family:Helvetica,Arial,sans-serif;font-size:12px;color:#999999;border-top:1px solid #eeeeee;">
You are receiving this email because of your registration with us.
</td></tr>
</table>
</td></tr>
</table>
</body>
</html>`
}
