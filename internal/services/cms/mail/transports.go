package mail

import (
	"bytes"
	"context"
	"sync"

	"github.com/louisbranch/folio/internal/platform/logging"
	"go.uber.org/zap"
)

// LogTransport writes each message to a logger instead of delivering it.
type LogTransport struct {
	Logger *zap.Logger
}

// Open returns a connection that logs messages at info level.
func (t LogTransport) Open(context.Context) (Connection, error) {
	return logConnection{logger: logging.OrNop(t.Logger)}, nil
}

type logConnection struct {
	logger *zap.Logger
}

func (c logConnection) Send(_ context.Context, from string, to []string, raw []byte) error {
	c.logger.Info("mail not delivered: no smtp relay configured",
		zap.String("from", from),
		zap.Strings("to", to),
		zap.Int("bytes", len(raw)),
		zap.ByteString("message", raw),
	)
	return nil
}

func (logConnection) Close() error { return nil }

// Envelope is one message captured by an Outbox.
type Envelope struct {
	From string
	To   []string
	Raw  []byte
}

// Outbox keeps delivered messages in memory.
type Outbox struct {
	// OpenErr and SendErr, when set, fail the matching call.
	OpenErr error
	SendErr error

	mu     sync.Mutex
	sent   []Envelope
	opened int
	closed int
}

// Open starts a batch.
func (o *Outbox) Open(context.Context) (Connection, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.OpenErr != nil {
		return nil, o.OpenErr
	}
	o.opened++
	return outboxConnection{outbox: o}, nil
}

// Messages returns a copy of every captured envelope.
func (o *Outbox) Messages() []Envelope {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Envelope(nil), o.sent...)
}

// Connections returns how many connections were opened and closed.
func (o *Outbox) Connections() (opened, closed int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opened, o.closed
}

// Reset drops captured messages.
func (o *Outbox) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = nil
}

type outboxConnection struct {
	outbox *Outbox
}

func (c outboxConnection) Send(_ context.Context, from string, to []string, raw []byte) error {
	c.outbox.mu.Lock()
	defer c.outbox.mu.Unlock()
	if c.outbox.SendErr != nil {
		return c.outbox.SendErr
	}
	c.outbox.sent = append(c.outbox.sent, Envelope{
		From: from,
		To:   append([]string(nil), to...),
		Raw:  bytes.Clone(raw),
	})
	return nil
}

func (c outboxConnection) Close() error {
	c.outbox.mu.Lock()
	defer c.outbox.mu.Unlock()
	c.outbox.closed++
	return nil
}
