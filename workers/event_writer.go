package workers

import (
	"context"
	"log"
	"sync"
	"time"

	"sitepulse/api/metrics"
	"sitepulse/api/models"
	"sitepulse/api/store"
)

const (
	queueCapacity = 4096
	batchSize     = 100
	flushInterval = 5 * time.Second
)

// EventWriter buffers accepted events in a channel and writes them to the
// event store in batches, flushing on size or on a timer. Enqueue never
// blocks the ingestion path; a full queue drops the event instead.
type EventWriter struct {
	events chan models.Event
	store  store.EventStore
	wg     sync.WaitGroup
}

func NewEventWriter(eventStore store.EventStore) *EventWriter {
	return &EventWriter{
		events: make(chan models.Event, queueCapacity),
		store:  eventStore,
	}
}

// Enqueue hands an event to the writer. It reports false when the queue is
// full and the event was dropped.
func (w *EventWriter) Enqueue(event models.Event) bool {
	select {
	case w.events <- event:
		return true
	default:
		metrics.EventsDropped.Inc()
		return false
	}
}

// Start launches the batching loop. It runs until ctx is cancelled, then
// drains whatever is still queued before returning.
func (w *EventWriter) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Wait blocks until the writer has drained and exited.
func (w *EventWriter) Wait() {
	w.wg.Wait()
}

func (w *EventWriter) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]models.Event, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := w.store.Insert(writeCtx, batch); err != nil {
			log.Printf("Error writing event batch of %d: %v", len(batch), err)
		} else {
			metrics.BatchesWritten.Inc()
		}
		batch = batch[:0]
	}

	for {
		select {
		case event := <-w.events:
			batch = append(batch, event)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			for {
				select {
				case event := <-w.events:
					batch = append(batch, event)
					if len(batch) >= batchSize {
						flush()
					}
				default:
					flush()
					log.Println("Event writer drained and stopped.")
					return
				}
			}
		}
	}
}
