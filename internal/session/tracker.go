package session

import (
	"log"
	"sync"

	"github.com/GerGh0stface/GhostyPlaytime/internal/worker"

	"github.com/google/uuid"
)

// Ledger is the part of the ledger a session touches
type Ledger interface {
	Touch(id uuid.UUID)
}

// NameRecorder remembers display names reported at session start
type NameRecorder interface {
	Remember(id uuid.UUID, name string)
}

// SaveQueue accepts out-of-band save requests
type SaveQueue interface {
	Submit(task worker.SaveTask) error
}

// Tracker holds the active set: identities with a session in progress.
// It is the hook the host calls on join and quit.
type Tracker struct {
	mu     sync.RWMutex
	active map[uuid.UUID]struct{}

	ledger Ledger
	names  NameRecorder
	saves  SaveQueue
}

// NewTracker creates a tracker. names and saves may be nil.
func NewTracker(ledger Ledger, names NameRecorder, saves SaveQueue) *Tracker {
	return &Tracker{
		active: make(map[uuid.UUID]struct{}),
		ledger: ledger,
		names:  names,
		saves:  saves,
	}
}

// OnSessionStart marks id active and makes sure it has a ledger record.
// Reports whether the session was new.
func (t *Tracker) OnSessionStart(id uuid.UUID, name string) bool {
	if t.names != nil {
		t.names.Remember(id, name)
	}
	t.ledger.Touch(id)

	t.mu.Lock()
	_, already := t.active[id]
	t.active[id] = struct{}{}
	t.mu.Unlock()

	return !already
}

// OnSessionEnd removes id from the active set and queues an asynchronous
// save. Reports whether a session was in progress.
func (t *Tracker) OnSessionEnd(id uuid.UUID) bool {
	t.mu.Lock()
	_, ok := t.active[id]
	delete(t.active, id)
	t.mu.Unlock()

	if !ok {
		return false
	}

	if t.saves != nil {
		if err := t.saves.Submit(worker.SaveTask{Reason: "session end " + id.String()}); err != nil {
			log.Printf("⚠️  Session end save not queued for %s: %v", id, err)
		}
	}
	return true
}

// Active returns a copy of the active set
func (t *Tracker) Active() []uuid.UUID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]uuid.UUID, 0, len(t.active))
	for id := range t.active {
		out = append(out, id)
	}
	return out
}

// IsActive reports whether id has a session in progress
func (t *Tracker) IsActive(id uuid.UUID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.active[id]
	return ok
}

// Count returns the number of active sessions
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.active)
}
