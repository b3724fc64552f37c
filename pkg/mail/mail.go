// Package mail sends transactional email over SMTP.
//
//	msg := mail.To("ada@example.com").
//	    Subject("Your order").
//	    Template(receiptTmpl, data)
//	err := sender.Send(ctx, msg)
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/pkg/logger"
)

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, m *Message) error
}

// SMTPConfig holds connection credentials.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// FromEnv reads the MAIL_* settings.
func FromEnv() SMTPConfig {
	return SMTPConfig{
		Host:     config.MailHost(),
		Port:     config.MailPort(),
		Username: config.MailUsername(),
		Password: config.MailPassword(),
		From:     config.MailFrom(),
		FromName: config.MailFromName(),
	}
}

// NewSender returns an SMTP sender, or a LogSender when no host is set.
func NewSender(cfg SMTPConfig) Sender {
	if cfg.Host == "" {
		return LogSender{}
	}
	return &SMTP{cfg: cfg}
}

// Message is a fluent builder for an email.
type Message struct {
	to      []string
	subject string
	body    string
	isHTML  bool
	err     error
}

// To starts a message to addresses.
func To(addresses ...string) *Message {
	return &Message{to: addresses}
}

func (m *Message) Subject(s string) *Message {
	m.subject = s
	return m
}

// Text sets a plain text body.
func (m *Message) Text(text string) *Message {
	m.body = text
	m.isHTML = false
	return m
}

// Template renders t with data as the HTML body. A render error is
// reported by Send.
func (m *Message) Template(t *template.Template, data any) *Message {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		m.err = fmt.Errorf("mail: render %s: %w", t.Name(), err)
		return m
	}
	m.body = buf.String()
	m.isHTML = true
	return m
}

func (m *Message) Recipients() []string { return m.to }
func (m *Message) SubjectLine() string  { return m.subject }
func (m *Message) BodyText() string     { return m.body }

// Err returns the first error recorded while building the message.
func (m *Message) Err() error {
	if m.err != nil {
		return m.err
	}
	if len(m.to) == 0 {
		return errors.New("mail: no recipients")
	}
	return nil
}

// SMTP sends through a relay. Port 465 uses implicit TLS; other ports use
// STARTTLS when the server offers it.
type SMTP struct {
	cfg SMTPConfig
}

func (s *SMTP) Send(ctx context.Context, m *Message) error {
	if err := m.Err(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := s.cfg
	raw := m.build(fmt.Sprintf("%s <%s>", cfg.FromName, cfg.From))
	addr := cfg.Host + ":" + cfg.Port

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	if cfg.Port == "465" {
		return sendTLS(addr, cfg.Host, auth, cfg.From, m.to, raw)
	}
	return smtp.SendMail(addr, auth, cfg.From, m.to, raw)
}

func sendTLS(addr, host string, auth smtp.Auth, from string, to []string, raw []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return fmt.Errorf("mail: tls dial: %w", err)
	}
	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer client.Quit()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}
	return w.Close()
}

func (m *Message) build(from string) []byte {
	contentType := "text/plain"
	if m.isHTML {
		contentType = "text/html"
	}

	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(m.to, ", ") + "\r\n")
	b.WriteString("Subject: " + m.subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: %s; charset=\"UTF-8\"\r\n", contentType)
	b.WriteString("\r\n")
	b.WriteString(m.body)
	return []byte(b.String())
}

// LogSender writes a line per message instead of sending it.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, m *Message) error {
	if err := m.Err(); err != nil {
		return err
	}
	logger.WithCtx(ctx).Info("mail: not sent, no MAIL_HOST", "to", m.to, "subject", m.subject)
	return nil
}
