package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roleplay/memoryruntime/pkg/config"
	"github.com/roleplay/memoryruntime/pkg/memory"
	"github.com/roleplay/memoryruntime/pkg/roleplay"
	"github.com/roleplay/memoryruntime/pkg/vectorstore"
)

// blockingPipeline blocks Run until the test releases it, so the queue can
// be driven to capacity deterministically before the worker drains it.
type blockingPipeline struct {
	mu      sync.Mutex
	release chan struct{}
	ran     []string
}

func newBlockingPipeline() *blockingPipeline {
	return &blockingPipeline{release: make(chan struct{})}
}

func (p *blockingPipeline) Run(ctx context.Context, userMessageID, userMsg, assistantMsg string, filter vectorstore.Filter) (memory.Summary, error) {
	<-p.release
	p.mu.Lock()
	p.ran = append(p.ran, userMsg)
	p.mu.Unlock()
	return memory.Summary{}, nil
}

func testQueueConfig(capacity int) *config.MemoryQueueConfig {
	return &config.MemoryQueueConfig{
		Capacity:        capacity,
		JobTimeout:      time.Second,
		ShutdownTimeout: time.Second,
	}
}

func TestEnqueueSucceedsUnderCapacity(t *testing.T) {
	w := NewWorker(newBlockingPipeline(), testQueueConfig(2))
	ok := w.Enqueue(roleplay.MemoryJob{UserMsg: "first"})
	assert.True(t, ok)
	assert.Equal(t, 1, w.Stats().QueueDepth)
}

func TestEnqueueDropsOldestUnstartedWhenFull(t *testing.T) {
	w := NewWorker(newBlockingPipeline(), testQueueConfig(1))

	ok := w.Enqueue(roleplay.MemoryJob{UserMsg: "oldest"})
	require.True(t, ok)

	ok = w.Enqueue(roleplay.MemoryJob{UserMsg: "newest"})
	assert.False(t, ok, "enqueuing into a full queue should report a drop")

	stats := w.Stats()
	assert.Equal(t, 1, stats.QueueDepth)
	assert.Equal(t, 1, stats.JobsDropped)

	job := <-w.jobs
	assert.Equal(t, "newest", job.UserMsg, "the oldest unstarted job should have been evicted")
}

func TestWorkerProcessesEnqueuedJobsSequentially(t *testing.T) {
	pipeline := newBlockingPipeline()
	w := NewWorker(pipeline, testQueueConfig(10))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.True(t, w.Enqueue(roleplay.MemoryJob{UserMsg: "turn-1"}))
	close(pipeline.release)

	require.Eventually(t, func() bool {
		return w.Stats().JobsProcessed == 1
	}, time.Second, 5*time.Millisecond)

	w.Stop()
	assert.Equal(t, StatusStopped, w.Stats().Status)
}
