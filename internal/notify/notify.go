// Package notify sends the fatal-run alert email.
package notify

import (
	"crypto/tls"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"go.uber.org/zap"
)

// Config holds the SMTP transport settings for alert mail.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	To       string
	UseSSL   bool
}

// Mailer sends a single alert email when a run aborts. Sending is
// best-effort: missing credentials skip the send with a warning, and
// transport failures are logged, never escalated.
type Mailer struct {
	cfg    Config
	logger *zap.Logger

	// send is swappable in tests.
	send func(msg *email.Email) error
}

// NewMailer builds a mailer from config.
func NewMailer(cfg Config, logger *zap.Logger) *Mailer {
	m := &Mailer{cfg: cfg, logger: logger}
	m.send = m.sendSMTP
	return m
}

// NotifyFatal sends one alert email describing the run-level failure.
func (m *Mailer) NotifyFatal(subject, body string) {
	if m.cfg.Username == "" || m.cfg.Password == "" || m.cfg.To == "" {
		m.logger.Warn("Mail settings incomplete; skipping alert email")
		return
	}

	msg := email.NewEmail()
	msg.From = fmt.Sprintf("%s <%s>", m.cfg.FromName, m.fromAddress())
	msg.To = []string{m.cfg.To}
	msg.Subject = subject
	msg.Text = []byte(body)

	if err := m.send(msg); err != nil {
		m.logger.Error("Failed to send alert email", zap.Error(err))
		return
	}
	m.logger.Info("Alert email sent", zap.String("to", m.cfg.To))
}

func (m *Mailer) sendSMTP(msg *email.Email) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	tlsCfg := &tls.Config{ServerName: m.cfg.Host}
	if m.cfg.UseSSL {
		return msg.SendWithTLS(addr, auth, tlsCfg)
	}
	return msg.SendWithStartTLS(addr, auth, tlsCfg)
}

func (m *Mailer) fromAddress() string {
	if m.cfg.From != "" {
		return m.cfg.From
	}
	return m.cfg.Username
}
