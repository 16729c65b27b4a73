// Package email sends planner mail over SMTP.
package email

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/smtp"
	"strings"
)

// Config carries the SMTP settings for outgoing mail.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Sender delivers mail through a single SMTP account.
type Sender struct {
	config Config
	auth   smtp.Auth
}

func NewSender(cfg Config) *Sender {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &Sender{config: cfg, auth: auth}
}

// Send delivers a message with both a text and an HTML part.
func (s *Sender) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.config.Host == "" || s.config.From == "" {
		return fmt.Errorf("smtp not configured")
	}

	message := buildMIMEMessage(s.config.From, to, subject, textBody, htmlBody, generateBoundary())

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	if err := smtp.SendMail(addr, s.auth, s.config.From, []string{to}, message); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// buildMIMEMessage assembles a multipart/alternative message.
func buildMIMEMessage(from, to, subject, textBody, htmlBody, boundary string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(textBody)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}

func generateBoundary() string {
	buf := make([]byte, 16)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
