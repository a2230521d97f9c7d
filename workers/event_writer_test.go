package workers

import (
	"context"
	"sync"
	"testing"
	"time"

	"sitepulse/api/models"
	"sitepulse/api/store"
)

type recordingStore struct {
	store.EventStore

	mu     sync.Mutex
	events []models.Event
}

func (r *recordingStore) Insert(ctx context.Context, events []models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *recordingStore) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestEventWriterDrainsOnShutdown(t *testing.T) {
	rec := &recordingStore{}
	writer := NewEventWriter(rec)

	ctx, cancel := context.WithCancel(context.Background())
	writer.Start(ctx)

	for i := 0; i < 250; i++ {
		if !writer.Enqueue(models.Event{EventID: "e", ProjectID: "p"}) {
			t.Fatalf("enqueue %d rejected with an empty queue", i)
		}
	}

	cancel()
	writer.Wait()

	if got := rec.count(); got != 250 {
		t.Fatalf("expected 250 events written after drain, got %d", got)
	}
}

func TestEventWriterFlushesFullBatches(t *testing.T) {
	rec := &recordingStore{}
	writer := NewEventWriter(rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	writer.Start(ctx)

	for i := 0; i < batchSize; i++ {
		writer.Enqueue(models.Event{EventID: "e", ProjectID: "p"})
	}

	deadline := time.After(2 * time.Second)
	for rec.count() < batchSize {
		select {
		case <-deadline:
			t.Fatalf("batch not flushed, %d of %d written", rec.count(), batchSize)
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	writer.Wait()
}
