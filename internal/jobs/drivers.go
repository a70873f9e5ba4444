package jobs

import (
	"context"
	"time"

	"github.com/GerGh0stface/GhostyPlaytime/internal/persistence"

	"github.com/google/uuid"
)

// TickInterval is how often every active identity earns one second
const TickInterval = time.Second

// Ticker is the ledger side of the tick driver
type Ticker interface {
	Tick(active []uuid.UUID)
}

// ActiveSet reports who is currently in a session
type ActiveSet interface {
	Active() []uuid.UUID
}

// Flusher persists a snapshot of src
type Flusher interface {
	Flush(ctx context.Context, src persistence.Source) error
}

// NewTickDriver credits one second per TickInterval to every active identity
func NewTickDriver(ledger Ticker, sessions ActiveSet) *Periodic {
	return NewPeriodic("Tick driver", TickInterval, func(ctx context.Context) error {
		ledger.Tick(sessions.Active())
		return nil
	})
}

// NewAutoSave flushes the ledger on every interval
func NewAutoSave(adapter Flusher, ledger persistence.Source, interval time.Duration) *Periodic {
	return NewPeriodic("Auto-save", interval, func(ctx context.Context) error {
		return adapter.Flush(ctx, ledger)
	})
}
