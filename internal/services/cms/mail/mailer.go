// Package mail composes and delivers notification email.
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/folio/internal/platform/logging"
	"go.uber.org/zap"
)

// HeaderAutoSubmitted marks mail as machine-generated (RFC 3834).
const (
	HeaderAutoSubmitted = "Auto-Submitted"
	autoGenerated       = "auto-generated"
)

// ErrNoRecipients is returned when a message has no To addresses.
var ErrNoRecipients = errors.New("message has no recipients")

// Message is one email before composition.
type Message struct {
	Subject string
	Text    string
	// HTML is optional; when set the message is multipart/alternative.
	HTML string
	// From defaults to the mailer's default sender.
	From string
	To   []string
}

// Transport opens delivery connections.
type Transport interface {
	Open(ctx context.Context) (Connection, error)
}

// Connection delivers composed messages until closed.
type Connection interface {
	Send(ctx context.Context, from string, to []string, raw []byte) error
	Close() error
}

// Mailer composes messages and delivers them through a Transport.
type Mailer struct {
	transport   Transport
	defaultFrom string
	logger      *zap.Logger
	clock       func() time.Time
}

// Option configures a Mailer.
type Option func(*Mailer)

// WithLogger sets the mailer logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Mailer) { m.logger = logging.OrNop(logger) }
}

// WithClock sets the clock used for the Date header.
func WithClock(clock func() time.Time) Option {
	return func(m *Mailer) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// New returns a mailer that sends from defaultFrom unless a message sets its
// own sender.
func New(transport Transport, defaultFrom string, opts ...Option) *Mailer {
	m := &Mailer{
		transport:   transport,
		defaultFrom: strings.TrimSpace(defaultFrom),
		logger:      zap.NewNop(),
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Send composes and delivers messages over a single connection, which is
// closed before Send returns. Delivery stops at the first failure.
func (m *Mailer) Send(ctx context.Context, messages ...Message) error {
	if m == nil || m.transport == nil {
		return fmt.Errorf("mail transport is not configured")
	}
	if len(messages) == 0 {
		return nil
	}

	type envelope struct {
		from string
		to   []string
		raw  []byte
	}
	envelopes := make([]envelope, 0, len(messages))
	for _, msg := range messages {
		if strings.TrimSpace(msg.From) == "" {
			msg.From = m.defaultFrom
		}
		composed, err := Compose(msg, m.clock())
		if err != nil {
			return err
		}
		envelopes = append(envelopes, envelope{from: composed.From, to: composed.To, raw: composed.Raw})
	}

	conn, err := m.transport.Open(ctx)
	if err != nil {
		return fmt.Errorf("open mail connection: %w", err)
	}
	var sendErr error
	for i, env := range envelopes {
		if err := conn.Send(ctx, env.from, env.to, env.raw); err != nil {
			sendErr = fmt.Errorf("send message %d: %w", i, err)
			break
		}
		m.logger.Debug("mail sent",
			zap.String("subject", messages[i].Subject),
			zap.Int("recipients", len(env.to)),
		)
	}
	if err := conn.Close(); err != nil && sendErr == nil {
		sendErr = fmt.Errorf("close mail connection: %w", err)
	}
	return sendErr
}
