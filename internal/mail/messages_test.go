// AngelaMos | 2026
// messages_test.go

package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	to      string
	subject string
	body    string
}

func (r *recordingSender) Send(
	_ context.Context,
	to, subject, htmlBody string,
) error {
	r.to = to
	r.subject = subject
	r.body = htmlBody
	return nil
}

func TestSendVerificationEmail(t *testing.T) {
	sender := &recordingSender{}
	mailer := NewMailer(sender, "https://app.example.com")

	err := mailer.SendVerificationEmail(
		context.Background(),
		"new@example.com",
		"tok123",
	)
	require.NoError(t, err)

	assert.Equal(t, "new@example.com", sender.to)
	assert.Equal(t, "Verify Your Email", sender.subject)
	assert.Contains(
		t,
		sender.body,
		"https://app.example.com/verify-email?token=tok123",
	)
}

func TestSendPasswordResetEmail(t *testing.T) {
	sender := &recordingSender{}
	mailer := NewMailer(sender, "https://app.example.com")

	err := mailer.SendPasswordResetEmail(
		context.Background(),
		"forgot@example.com",
		"tok456",
	)
	require.NoError(t, err)

	assert.Equal(t, "forgot@example.com", sender.to)
	assert.Equal(t, "Reset Your Password", sender.subject)
	assert.Contains(
		t,
		sender.body,
		"https://app.example.com/reset-password?token=tok456",
	)
}

// Token plaintext is base64url and can carry characters that need escaping
// in a query string.
func TestLinkEscapesToken(t *testing.T) {
	sender := &recordingSender{}
	mailer := NewMailer(sender, "https://app.example.com")

	err := mailer.SendVerificationEmail(
		context.Background(),
		"x@example.com",
		"a+b=c",
	)
	require.NoError(t, err)

	assert.Contains(t, sender.body, "token=a%2Bb%3Dc")
}

func TestBuildMessageHeaders(t *testing.T) {
	msg := string(buildMessage(
		"noreply@example.com",
		"user@example.com",
		"Subject Line",
		"<p>Hi</p>",
	))

	assert.Contains(t, msg, "From: noreply@example.com\r\n")
	assert.Contains(t, msg, "To: user@example.com\r\n")
	assert.Contains(t, msg, "Subject: Subject Line\r\n")
	assert.Contains(t, msg, "Content-Type: text/html; charset=UTF-8\r\n")
	assert.Contains(t, msg, "<p>Hi</p>")
}
