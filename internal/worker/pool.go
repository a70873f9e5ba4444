package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/GerGh0stface/GhostyPlaytime/internal/persistence"
)

var (
	// ErrQueueFull is returned by Submit when the queue is saturated
	ErrQueueFull = errors.New("save queue full (backpressure)")

	// ErrPoolClosed is returned by Submit after Shutdown
	ErrPoolClosed = errors.New("save pool closed")
)

// SaveTask asks for an out-of-band snapshot save
type SaveTask struct {
	Reason string
}

// Flusher writes a snapshot of src to storage
type Flusher interface {
	Flush(ctx context.Context, src persistence.Source) error
}

// SavePool runs snapshot saves off the caller's goroutine, so session end
// and admin commands never wait on storage.
type SavePool struct {
	jobs        chan SaveTask
	workerCount int
	flusher     Flusher
	source      persistence.Source
	timeout     time.Duration

	mu     sync.RWMutex
	closed bool

	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	metrics *PoolMetrics
}

// PoolMetrics tracks worker pool performance
type PoolMetrics struct {
	mu              sync.RWMutex
	processed       int64
	failed          int64
	backpressure    int64
	totalProcessing time.Duration
}

// NewSavePool creates a pool. timeout bounds each save.
func NewSavePool(workerCount, queueSize int, flusher Flusher, source persistence.Source, timeout time.Duration) *SavePool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &SavePool{
		jobs:        make(chan SaveTask, queueSize),
		workerCount: workerCount,
		flusher:     flusher,
		source:      source,
		timeout:     timeout,
		ctx:         ctx,
		cancel:      cancel,
		metrics:     &PoolMetrics{},
	}
}

// Start launches the worker goroutines
func (p *SavePool) Start() {
	log.Printf("🚀 Starting save pool with %d workers and queue size %d", p.workerCount, cap(p.jobs))

	for i := 1; i <= p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *SavePool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return

		case task, ok := <-p.jobs:
			if !ok {
				return
			}
			p.processTask(id, task)
		}
	}
}

func (p *SavePool) processTask(workerID int, task SaveTask) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("⚠️  Save worker #%d PANIC recovered: %v (reason: %s)", workerID, r, task.Reason)
			p.metrics.incrementFailed()
		}
	}()

	startTime := time.Now()

	ctx := p.ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(p.ctx, p.timeout)
		defer cancel()
	}

	err := p.flusher.Flush(ctx, p.source)
	took := time.Since(startTime)

	if err != nil {
		log.Printf("❌ Save worker #%d failed (%s): %v (took %v)", workerID, task.Reason, err, took)
		p.metrics.incrementFailed()
		return
	}

	p.metrics.recordSuccess(took)
}

// Submit queues a save without blocking. A full queue drops the task; the
// save already queued will capture the same or newer state.
func (p *SavePool) Submit(task SaveTask) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.jobs <- task:
		return nil
	default:
		log.Printf("⚠️  BACKPRESSURE WARNING: save queue full, dropping save (%s)", task.Reason)
		p.metrics.incrementBackpressure()
		return ErrQueueFull
	}
}

// Shutdown stops accepting tasks and waits for queued saves to finish
func (p *SavePool) Shutdown(timeout time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	log.Printf("🛑 Draining save pool...")

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.printMetrics()
		return nil

	case <-time.After(timeout):
		p.cancel()
		log.Printf("⚠️  Save pool shutdown timed out after %v", timeout)
		return fmt.Errorf("save pool shutdown timeout exceeded")
	}
}

// GetMetrics returns a snapshot of the pool metrics
func (p *SavePool) GetMetrics() map[string]interface{} {
	p.metrics.mu.RLock()
	defer p.metrics.mu.RUnlock()

	avgProcessing := time.Duration(0)
	if p.metrics.processed > 0 {
		avgProcessing = p.metrics.totalProcessing / time.Duration(p.metrics.processed)
	}

	return map[string]interface{}{
		"processed":           p.metrics.processed,
		"failed":              p.metrics.failed,
		"backpressure_events": p.metrics.backpressure,
		"avg_processing_time": avgProcessing.String(),
		"queue_utilization":   fmt.Sprintf("%d/%d", len(p.jobs), cap(p.jobs)),
	}
}

func (p *SavePool) printMetrics() {
	metrics := p.GetMetrics()
	log.Printf("📊 Save Pool Metrics:")
	log.Printf("   - Processed: %v", metrics["processed"])
	log.Printf("   - Failed: %v", metrics["failed"])
	log.Printf("   - Backpressure Events: %v", metrics["backpressure_events"])
	log.Printf("   - Avg Processing Time: %v", metrics["avg_processing_time"])
}

func (pm *PoolMetrics) recordSuccess(duration time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.processed++
	pm.totalProcessing += duration
}

func (pm *PoolMetrics) incrementFailed() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.failed++
}

func (pm *PoolMetrics) incrementBackpressure() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.backpressure++
}
