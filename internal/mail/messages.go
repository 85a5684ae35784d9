// AngelaMos | 2026
// messages.go

package mail

import (
	"context"
	"fmt"
	"net/url"
)

// Mailer composes the account lifecycle emails and hands them to a Sender.
type Mailer struct {
	sender      Sender
	frontendURL string
}

func NewMailer(sender Sender, frontendURL string) *Mailer {
	return &Mailer{sender: sender, frontendURL: frontendURL}
}

func (m *Mailer) SendVerificationEmail(
	ctx context.Context,
	to, token string,
) error {
	link := m.link("/verify-email", token)
	body := fmt.Sprintf(
		`<p>Welcome! Click <a href="%s">here</a> to verify your email.</p>`+
			`<p>This link expires in one hour.</p>`,
		link,
	)

	return m.sender.Send(ctx, to, "Verify Your Email", body)
}

func (m *Mailer) SendPasswordResetEmail(
	ctx context.Context,
	to, token string,
) error {
	link := m.link("/reset-password", token)
	body := fmt.Sprintf(
		`<p>Click <a href="%s">here</a> to reset your password.</p>`+
			`<p>This link expires in one hour. If you did not request a `+
			`reset, you can ignore this email.</p>`,
		link,
	)

	return m.sender.Send(ctx, to, "Reset Your Password", body)
}

func (m *Mailer) link(path, token string) string {
	return m.frontendURL + path + "?token=" + url.QueryEscape(token)
}
