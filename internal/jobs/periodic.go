package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Task is the work a Periodic runs on every tick. The context is cancelled
// when the job stops.
type Task func(ctx context.Context) error

// Periodic runs a Task on a fixed interval in its own goroutine.
// It replaces the host scheduler's repeating tasks (tick and auto-save).
type Periodic struct {
	name     string
	interval time.Duration
	task     Task

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool

	// Metrics
	runs      atomic.Int64
	errors    atomic.Int64
	lastRunNs atomic.Int64
	startTime time.Time
}

// NewPeriodic creates a periodic job. It does nothing until Start.
func NewPeriodic(name string, interval time.Duration, task Task) *Periodic {
	return &Periodic{
		name:     name,
		interval: interval,
		task:     task,
		stopCh:   make(chan struct{}),
	}
}

// Name returns the job name used in logs
func (p *Periodic) Name() string {
	return p.name
}

// Start begins the loop. A Periodic can only be started once.
func (p *Periodic) Start(ctx context.Context) error {
	if p.interval <= 0 {
		return fmt.Errorf("%s: interval must be positive, got %v", p.name, p.interval)
	}
	if !p.running.CompareAndSwap(false, true) {
		return fmt.Errorf("%s already running", p.name)
	}

	p.startTime = time.Now()
	log.Printf("🚀 %s started (every %v)", p.name, p.interval)

	p.wg.Add(1)
	go p.loop(ctx)

	return nil
}

// Stop ends the loop and waits for an in-flight run to finish
func (p *Periodic) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}

	close(p.stopCh)
	p.wg.Wait()

	log.Printf("⏹️ %s stopped after %d runs (%d errors)", p.name, p.runs.Load(), p.errors.Load())
}

// IsRunning returns whether the loop is active
func (p *Periodic) IsRunning() bool {
	return p.running.Load()
}

// GetMetrics returns current job metrics
func (p *Periodic) GetMetrics() map[string]interface{} {
	uptime := time.Duration(0)
	if !p.startTime.IsZero() {
		uptime = time.Since(p.startTime)
	}

	return map[string]interface{}{
		"name":     p.name,
		"running":  p.running.Load(),
		"interval": p.interval.String(),
		"runs":     p.runs.Load(),
		"errors":   p.errors.Load(),
		"last_run": time.Duration(p.lastRunNs.Load()).String(),
		"uptime":   uptime.Round(time.Second).String(),
	}
}

func (p *Periodic) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			p.running.Store(false)
			log.Printf("🛑 %s context cancelled", p.name)
			return

		case <-p.stopCh:
			return

		case <-ticker.C:
			p.run(runCtx)
		}
	}
}

func (p *Periodic) run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.errors.Add(1)
			log.Printf("⚠️  %s PANIC recovered: %v", p.name, r)
		}
	}()

	started := time.Now()
	p.runs.Add(1)
	err := p.task(ctx)
	p.lastRunNs.Store(int64(time.Since(started)))

	if err != nil {
		// log the first failure and then every hundredth, the tick job runs every second
		if n := p.errors.Add(1); n%100 == 1 {
			log.Printf("⚠️  %s failed (total errors: %d): %v", p.name, n, err)
		}
	}
}
