package eventlog

import (
	"context"
	"log/slog"
	"sync"
)

// Worker drains a buffered channel of events into a Sink. Events recorded
// while the buffer is full are dropped with a warning; the trail is an audit
// aid, not a source of truth.
type Worker struct {
	eventCh chan Event
	sink    Sink
	log     *slog.Logger
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewWorker builds a worker with the given buffer size.
func NewWorker(sink Sink, log *slog.Logger, bufferSize int) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		eventCh: make(chan Event, bufferSize),
		sink:    sink,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the drain loop.
func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.ctx.Done():
				w.log.Info("draining events before shutdown", "remaining", len(w.eventCh))
				for {
					select {
					case e := <-w.eventCh:
						w.save(e)
					default:
						return
					}
				}
			case e := <-w.eventCh:
				w.save(e)
			}
		}
	}()
}

// Stop signals shutdown and waits for the remaining buffer to flush.
func (w *Worker) Stop() {
	w.cancel()
	w.wg.Wait()
}

// Record implements Recorder without blocking the caller.
func (w *Worker) Record(e Event) {
	select {
	case w.eventCh <- e:
	default:
		w.log.Warn("event buffer full, dropping event", "type", e.Type, "id", e.ID.String())
	}
}

func (w *Worker) save(e Event) {
	if err := w.sink.SaveEvent(context.Background(), e); err != nil {
		w.log.Error("failed to save event", "type", e.Type, "id", e.ID.String(), "err", err)
	}
}
