// Package queue implements the background memory worker (C10, spec §5/§4.5.6):
// an in-process bounded MPSC queue of memory jobs, drained sequentially by a
// single goroutine that runs pkg/memory.Pipeline per job. Grounded on the
// teacher's pkg/queue.Worker lifecycle idiom (status tracking, stopCh/
// stopOnce/wg graceful shutdown) with the DB-polling SessionExecutor
// replaced by an in-memory channel, since spec's C10 is explicitly an
// in-process queue, not a durable work table.
package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roleplay/memoryruntime/pkg/config"
	"github.com/roleplay/memoryruntime/pkg/memory"
	"github.com/roleplay/memoryruntime/pkg/roleplay"
	"github.com/roleplay/memoryruntime/pkg/vectorstore"
)

// Status is the current state of the worker.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusWorking Status = "working"
	StatusStopped Status = "stopped"
)

// Pipeline is the subset of pkg/memory.Pipeline the worker depends on.
type Pipeline interface {
	Run(ctx context.Context, userMessageID, userMsg, assistantMsg string, filter vectorstore.Filter) (memory.Summary, error)
}

// Worker consumes roleplay.MemoryJob values from a bounded channel and runs
// the hybrid memory pipeline for each, one at a time. It implements
// roleplay.Enqueuer.
type Worker struct {
	jobs     chan roleplay.MemoryJob
	pipeline Pipeline
	timeout  time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu            sync.RWMutex
	status        Status
	jobsProcessed int
	jobsDropped   int
	lastActivity  time.Time
}

// NewWorker builds a Worker with the given queue capacity and per-job
// timeout (spec §5: capacity 100, drop-oldest-unstarted backpressure).
func NewWorker(pipeline Pipeline, cfg *config.MemoryQueueConfig) *Worker {
	return &Worker{
		jobs:     make(chan roleplay.MemoryJob, cfg.Capacity),
		pipeline: pipeline,
		timeout:  cfg.JobTimeout,
		stopCh:   make(chan struct{}),
		status:   StatusIdle,
	}
}

// Enqueue adds a job to the queue. When the queue is full, it drops the
// oldest unstarted job to make room (spec §5 backpressure: at-most-once,
// tolerant of loss since future turns keep accumulating memory). Returns
// false when a job had to be dropped to enqueue this one.
func (w *Worker) Enqueue(job roleplay.MemoryJob) bool {
	select {
	case w.jobs <- job:
		return true
	default:
	}
	select {
	case dropped := <-w.jobs:
		_ = dropped
		w.mu.Lock()
		w.jobsDropped++
		w.mu.Unlock()
		slog.Warn("queue: dropped oldest unstarted memory job under backpressure")
	default:
	}
	select {
	case w.jobs <- job:
		return false
	default:
		// Another producer raced us for the freed slot; drop this job too
		// rather than block the caller's turn on a background queue.
		w.mu.Lock()
		w.jobsDropped++
		w.mu.Unlock()
		return false
	}
}

// Run drains the queue sequentially until ctx is cancelled or Stop is
// called. Each job's vector/graph branches run concurrently within
// pkg/memory.Pipeline.Run; jobs themselves are processed one at a time, as
// spec §5 describes.
func (w *Worker) Run(ctx context.Context) {
	w.wg.Add(1)
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			w.setStatus(StatusStopped)
			return
		case <-w.stopCh:
			w.setStatus(StatusStopped)
			return
		case job := <-w.jobs:
			w.process(ctx, job)
		}
	}
}

func (w *Worker) process(ctx context.Context, job roleplay.MemoryJob) {
	w.setStatus(StatusWorking)
	jobCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	_, err := w.pipeline.Run(jobCtx, job.UserMessageID, job.UserMsg, job.AssistantMsg, job.Filter)
	if err != nil {
		slog.Error("queue: memory job failed, will be retried by a future turn's fresh material", "error", err)
	}

	w.mu.Lock()
	w.jobsProcessed++
	w.lastActivity = time.Now()
	w.mu.Unlock()
	w.setStatus(StatusIdle)
}

func (w *Worker) setStatus(s Status) {
	w.mu.Lock()
	w.status = s
	w.mu.Unlock()
}

// Stop signals Run to exit after its current job, and waits for it to
// return.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Stats reports the worker's current health, mirroring the teacher's
// per-worker health snapshot.
type Stats struct {
	Status        Status
	JobsProcessed int
	JobsDropped   int
	LastActivity  time.Time
	QueueDepth    int
}

// Stats returns a point-in-time snapshot.
func (w *Worker) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return Stats{
		Status:        w.status,
		JobsProcessed: w.jobsProcessed,
		JobsDropped:   w.jobsDropped,
		LastActivity:  w.lastActivity,
		QueueDepth:    len(w.jobs),
	}
}
