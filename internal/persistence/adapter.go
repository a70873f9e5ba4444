package persistence

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Backend is a durable store for whole-ledger snapshots keyed by the string
// form of a player's UUID.
type Backend interface {
	Name() string
	Load(ctx context.Context) (map[string]int64, error)
	Save(ctx context.Context, snapshot map[string]int64) error
	Ping(ctx context.Context) error
	Close() error
}

// NameStore is implemented by backends that also keep display names.
// SaveNames upserts: names missing from the map stay stored.
type NameStore interface {
	LoadNames(ctx context.Context) (map[string]string, error)
	SaveNames(ctx context.Context, names map[string]string) error
}

// Source provides a consistent copy of the ledger
type Source interface {
	Snapshot() map[uuid.UUID]int64
}

// NameSource provides the display names written alongside each flush
type NameSource interface {
	Names() map[uuid.UUID]string
}

// Adapter bridges the in-memory ledger and a Backend. Storage errors stop
// here: they are logged and never reach the command layer.
type Adapter struct {
	backend Backend
	timeout time.Duration
	names   NameSource

	// saveMu serializes writes so snapshots reach the backend in the order
	// they were taken.
	saveMu sync.Mutex

	metrics *Metrics
}

// Metrics tracks save activity
type Metrics struct {
	mu           sync.RWMutex
	saves        int64
	failures     int64
	lastDuration time.Duration
	lastSuccess  time.Time
	lastEntries  int
}

// NewAdapter creates an adapter. timeout bounds each individual load or save;
// zero disables it.
func NewAdapter(backend Backend, timeout time.Duration) *Adapter {
	return &Adapter{
		backend: backend,
		timeout: timeout,
		metrics: &Metrics{},
	}
}

// Backend returns the wrapped backend
func (a *Adapter) Backend() Backend {
	return a.backend
}

// TrackNames makes every Flush also persist the names in src, when the
// backend supports it
func (a *Adapter) TrackNames(src NameSource) {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()
	a.names = src
}

// LoadNames reads stored display names. Like Load it never fails: backends
// without name storage, read errors and malformed ids all yield fewer names.
func (a *Adapter) LoadNames(ctx context.Context) map[uuid.UUID]string {
	store, ok := a.backend.(NameStore)
	if !ok {
		return map[uuid.UUID]string{}
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	raw, err := store.LoadNames(ctx)
	if err != nil {
		log.Printf("⚠️  Could not load player names from %s: %v", a.backend.Name(), err)
		return map[uuid.UUID]string{}
	}

	out := make(map[uuid.UUID]string, len(raw))
	for key, name := range raw {
		id, err := uuid.Parse(key)
		if err != nil || name == "" {
			continue
		}
		out[id] = name
	}

	log.Printf("✓ Loaded %d player names from %s", len(out), a.backend.Name())
	return out
}

// Load reads the stored snapshot. Keys that are not valid UUIDs are skipped
// and a failing backend yields an empty map, so startup always proceeds.
func (a *Adapter) Load(ctx context.Context) map[uuid.UUID]int64 {
	out, err := a.LoadStrict(ctx)
	if err != nil {
		log.Printf("⚠️  Could not load playtime data from %s, starting empty: %v", a.backend.Name(), err)
		return map[uuid.UUID]int64{}
	}
	return out
}

// LoadStrict is Load without the fallback: a backend error is returned.
// Offline tools use it so a failed read is never followed by a save.
func (a *Adapter) LoadStrict(ctx context.Context) (map[uuid.UUID]int64, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	raw, err := a.backend.Load(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID]int64, len(raw))
	skipped := 0
	for key, secs := range raw {
		id, err := uuid.Parse(key)
		if err != nil {
			skipped++
			log.Printf("⚠️  Skipping malformed player id %q: %v", key, err)
			continue
		}
		if secs < 0 {
			secs = 0
		}
		out[id] = secs
	}

	log.Printf("✓ Loaded playtime data for %d players from %s (%d skipped)", len(out), a.backend.Name(), skipped)
	return out, nil
}

// Save writes snapshot to the backend, replacing what was stored before.
// A failure is logged and returned; it never panics and leaves the previous
// durable state in place.
func (a *Adapter) Save(ctx context.Context, snapshot map[uuid.UUID]int64) error {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()
	return a.save(ctx, snapshot)
}

// Flush snapshots src and saves it. The snapshot is taken while holding the
// save lock so a slower concurrent flush cannot overwrite newer data.
// Tracked names are written after the playtime; a failed name write is
// only logged.
func (a *Adapter) Flush(ctx context.Context, src Source) error {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	if err := a.save(ctx, src.Snapshot()); err != nil {
		return err
	}
	a.saveNames(ctx)
	return nil
}

// CopyNames writes names to the backend, if it keeps names
func (a *Adapter) CopyNames(ctx context.Context, names map[uuid.UUID]string) error {
	store, ok := a.backend.(NameStore)
	if !ok || len(names) == 0 {
		return nil
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return store.SaveNames(ctx, encodeNames(names))
}

func (a *Adapter) saveNames(ctx context.Context) {
	if a.names == nil {
		return
	}
	store, ok := a.backend.(NameStore)
	if !ok {
		return
	}

	names := a.names.Names()
	if len(names) == 0 {
		return
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := store.SaveNames(ctx, encodeNames(names)); err != nil {
		log.Printf("⚠️  Could not save player names to %s: %v", a.backend.Name(), err)
	}
}

func encodeNames(names map[uuid.UUID]string) map[string]string {
	out := make(map[string]string, len(names))
	for id, name := range names {
		out[id.String()] = name
	}
	return out
}

func (a *Adapter) save(ctx context.Context, snapshot map[uuid.UUID]int64) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	encoded := make(map[string]int64, len(snapshot))
	for id, secs := range snapshot {
		encoded[id.String()] = secs
	}

	start := time.Now()
	err := a.backend.Save(ctx, encoded)
	took := time.Since(start)

	if err != nil {
		log.Printf("⚠️  Could not save playtime data to %s (took %v): %v", a.backend.Name(), took, err)
		a.metrics.recordFailure()
		return err
	}

	a.metrics.recordSuccess(took, len(encoded))
	return nil
}

// Ping checks the backend
func (a *Adapter) Ping(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.backend.Ping(ctx)
}

// Close releases the backend
func (a *Adapter) Close() error {
	return a.backend.Close()
}

// GetMetrics returns a snapshot of the save metrics
func (a *Adapter) GetMetrics() map[string]interface{} {
	a.metrics.mu.RLock()
	defer a.metrics.mu.RUnlock()

	lastSuccess := ""
	if !a.metrics.lastSuccess.IsZero() {
		lastSuccess = a.metrics.lastSuccess.Format(time.RFC3339)
	}

	return map[string]interface{}{
		"backend":       a.backend.Name(),
		"saves":         a.metrics.saves,
		"failures":      a.metrics.failures,
		"last_duration": a.metrics.lastDuration.String(),
		"last_success":  lastSuccess,
		"last_entries":  a.metrics.lastEntries,
	}
}

func (a *Adapter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

func (m *Metrics) recordSuccess(took time.Duration, entries int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.lastDuration = took
	m.lastSuccess = time.Now()
	m.lastEntries = entries
}

func (m *Metrics) recordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}
