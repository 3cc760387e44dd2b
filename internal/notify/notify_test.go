package notify

import (
	"errors"
	"testing"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNotifyFatalSendsComposedMessage(t *testing.T) {
	t.Parallel()

	mailer := NewMailer(Config{
		Host:     "smtp.example.com",
		Port:     465,
		Username: "alerts@example.com",
		Password: "secret",
		FromName: "Scraper",
		To:       "ops@example.com",
		UseSSL:   true,
	}, zap.NewNop())

	var sent *email.Email
	mailer.send = func(msg *email.Email) error {
		sent = msg
		return nil
	}

	mailer.NotifyFatal("Scraper stopped", "fatal: browser crashed")

	require.NotNil(t, sent)
	require.Equal(t, "Scraper <alerts@example.com>", sent.From)
	require.Equal(t, []string{"ops@example.com"}, sent.To)
	require.Equal(t, "Scraper stopped", sent.Subject)
	require.Equal(t, "fatal: browser crashed", string(sent.Text))
}

func TestNotifyFatalSkipsWithoutCredentials(t *testing.T) {
	t.Parallel()

	mailer := NewMailer(Config{Host: "smtp.example.com", Port: 465}, zap.NewNop())

	called := false
	mailer.send = func(*email.Email) error {
		called = true
		return nil
	}

	mailer.NotifyFatal("subject", "body")
	require.False(t, called, "send must be skipped when credentials are incomplete")
}

func TestNotifyFatalSwallowsSendErrors(t *testing.T) {
	t.Parallel()

	mailer := NewMailer(Config{
		Username: "alerts@example.com",
		Password: "secret",
		To:       "ops@example.com",
	}, zap.NewNop())
	mailer.send = func(*email.Email) error {
		return errors.New("connection refused")
	}

	// Must not panic or escalate; the original error being diagnosed wins.
	mailer.NotifyFatal("subject", "body")
}

func TestFromAddressFallsBackToUsername(t *testing.T) {
	t.Parallel()

	m := NewMailer(Config{Username: "alerts@example.com"}, zap.NewNop())
	require.Equal(t, "alerts@example.com", m.fromAddress())

	m = NewMailer(Config{Username: "alerts@example.com", From: "noreply@example.com"}, zap.NewNop())
	require.Equal(t, "noreply@example.com", m.fromAddress())
}
