package workflow

import (
	"context"
	"log"
	"sync"
)

// Task is a persistence side effect whose failure must never block the
// workflow.
type Task func(ctx context.Context) error

// BestEffort runs tasks one at a time in submission order. Failures are
// logged and dropped. Ordering keeps a late per-answer save from
// overwriting a later checkpoint.
type BestEffort struct {
	mu   sync.Mutex
	tail chan struct{}
	wg   sync.WaitGroup
}

func NewBestEffort() *BestEffort {
	return &BestEffort{}
}

// Go queues task and returns immediately. The task outlives ctx's
// cancellation.
func (b *BestEffort) Go(ctx context.Context, name string, task Task) {
	b.enqueue(context.WithoutCancel(ctx), name, task)
}

// Run queues task and waits for it, still swallowing its error.
func (b *BestEffort) Run(ctx context.Context, name string, task Task) {
	<-b.enqueue(ctx, name, task)
}

// Wait blocks until every queued task has finished.
func (b *BestEffort) Wait() {
	b.wg.Wait()
}

func (b *BestEffort) enqueue(ctx context.Context, name string, task Task) <-chan struct{} {
	done := make(chan struct{})

	b.mu.Lock()
	prev := b.tail
	b.tail = done
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		defer close(done)
		if prev != nil {
			<-prev
		}
		if err := task(ctx); err != nil {
			log.Printf("⚠️ %s failed: %v", name, err)
		}
	}()

	return done
}
