// Package signals dispatches domain events to connected receivers.
package signals

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/louisbranch/folio/internal/services/cms/domain"
)

// Receiver handles one signal.
type Receiver func(ctx context.Context, signal domain.Signal) error

// Bus is a synchronous signal dispatcher. The zero value is ready to use.
type Bus struct {
	mu        sync.RWMutex
	receivers map[domain.SignalKind][]Receiver
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{}
}

// Connect registers receiver for kind. Receivers run in connection order.
func (b *Bus) Connect(kind domain.SignalKind, receiver Receiver) {
	if receiver == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.receivers == nil {
		b.receivers = make(map[domain.SignalKind][]Receiver)
	}
	b.receivers[kind] = append(b.receivers[kind], receiver)
}

// Receivers returns the number of receivers connected to kind.
func (b *Bus) Receivers(kind domain.SignalKind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.receivers[kind])
}

// Send calls every receiver of signal.Kind, even after one fails, and
// returns their joined errors.
func (b *Bus) Send(ctx context.Context, signal domain.Signal) error {
	b.mu.RLock()
	receivers := append([]Receiver(nil), b.receivers[signal.Kind]...)
	b.mu.RUnlock()

	var errs []error
	for i, receive := range receivers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := receive(ctx, signal); err != nil {
			errs = append(errs, fmt.Errorf("%s receiver %d: %w", signal.Kind, i, err))
		}
	}
	return errors.Join(errs...)
}

var _ domain.SignalSender = (*Bus)(nil)
