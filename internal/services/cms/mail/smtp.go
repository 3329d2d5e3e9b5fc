package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/louisbranch/folio/internal/platform/timeouts"
)

// SMTPTransport delivers mail through an SMTP relay, upgrading to STARTTLS
// when offered and authenticating with PLAIN when a username is set.
type SMTPTransport struct {
	Addr     string
	Username string
	Password string
	// DialTimeout defaults to timeouts.SMTPDial.
	DialTimeout time.Duration
}

// Open dials the relay and completes the greeting, TLS and auth steps.
func (t SMTPTransport) Open(ctx context.Context) (Connection, error) {
	addr := strings.TrimSpace(t.Addr)
	if addr == "" {
		return nil, fmt.Errorf("smtp address is required")
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("parse smtp address: %w", err)
	}
	timeout := t.DialTimeout
	if timeout <= 0 {
		timeout = timeouts.SMTPDial
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial smtp: %w", err)
	}
	client, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("smtp greeting: %w", err)
	}
	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if t.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", t.Username, t.Password, host)); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("smtp auth: %w", err)
		}
	}
	return &smtpConnection{client: client}, nil
}

type smtpConnection struct {
	client *smtp.Client
}

func (c *smtpConnection) Send(ctx context.Context, from string, to []string, raw []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.client.Mail(from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := c.client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", rcpt, err)
		}
	}
	w, err := c.client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp end data: %w", err)
	}
	return nil
}

func (c *smtpConnection) Close() error {
	if err := c.client.Quit(); err != nil {
		_ = c.client.Close()
		return err
	}
	return nil
}
