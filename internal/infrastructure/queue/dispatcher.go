package queue

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/99minutos/trading-simulator/internal/api/metrics"
	"github.com/99minutos/trading-simulator/internal/core/domain"
	"github.com/99minutos/trading-simulator/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

var _ ports.ActivityRecorder = (*Dispatcher)(nil)

// Dispatcher routes activity entries to a fixed set of workers sharded by
// user id, so each user's trail is written in the order it happened.
type Dispatcher struct {
	workers []chan domain.Activity
	repo    ports.ActivityRepository
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, repo ports.ActivityRepository, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.Activity, numWorkers),
		repo:    repo,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.Activity, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Record hands an entry to its user's worker. It never blocks: when the
// worker's buffer is full the entry is dropped and counted.
func (d *Dispatcher) Record(a domain.Activity) {
	idx := d.shardIndex(a.UserID)
	select {
	case d.workers[idx] <- a:
		metrics.ActivityQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
	default:
		metrics.ActivityDroppedTotal.Inc()
		d.log.Warn().
			Int64("user_id", a.UserID).
			Str("kind", string(a.Kind)).
			Int("worker_id", idx).
			Msg("activity queue full, entry dropped")
	}
}

// shardIndex maps a user id deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID int64) int {
	n := userID % int64(len(d.workers))
	if n < 0 {
		n = -n
	}
	return int(n)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.Activity) {
	depth := metrics.ActivityQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-ch:
			if !ok {
				return
			}
			depth.Dec()
			if err := d.repo.Insert(ctx, &entry); err != nil {
				d.log.Error().Err(err).
					Int64("user_id", entry.UserID).
					Str("kind", string(entry.Kind)).
					Int("worker_id", id).
					Msg("activity write failed")
			}
		}
	}
}
