package jobs

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Mailer enqueues account and alert emails through the job queue. It
// satisfies the mailer ports of the auth and notifications modules.
type Mailer struct {
	client  *Client
	baseURL string
	from    string
}

// NewMailer builds a queue-backed mailer. baseURL is the public site root
// used in links.
func NewMailer(client *Client, baseURL, from string) *Mailer {
	return &Mailer{client: client, baseURL: strings.TrimRight(baseURL, "/"), from: from}
}

// SendMail enqueues a plain email.
func (m *Mailer) SendMail(ctx context.Context, to, subject, body string) error {
	_, err := m.client.EnqueueSendEmail(ctx, SendEmailPayload{To: to, Subject: subject, Body: body})
	return err
}

// SendVerificationEmail enqueues the account verification email.
func (m *Mailer) SendVerificationEmail(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/auth/verify?token=%s", m.baseURL, url.QueryEscape(token))
	body := fmt.Sprintf("Welcome to Atrium Realty.\n\nConfirm your email address by opening this link:\n%s\n\nThe link expires in 48 hours.", link)
	return m.SendMail(ctx, to, "Confirm your email address", body)
}

// SendPasswordResetEmail enqueues the password reset email.
func (m *Mailer) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/auth/password/reset?token=%s", m.baseURL, url.QueryEscape(token))
	body := fmt.Sprintf("A password reset was requested for your account.\n\nChoose a new password here:\n%s\n\nThe link expires in one hour. If you did not request this, ignore this email.", link)
	return m.SendMail(ctx, to, "Reset your password", body)
}
