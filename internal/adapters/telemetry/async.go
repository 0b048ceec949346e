package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dkeye/roomrelay/internal/core"
	"github.com/dkeye/roomrelay/internal/metrics"
	"github.com/rs/zerolog/log"
)

const publishTimeout = 5 * time.Second

// Async is the core.AbuseSink handed to the relay. Report only enqueues;
// Run publishes in the background. A full queue drops the notice.
type Async struct {
	pub     Publisher
	queue   chan core.Notice
	dropped atomic.Int64
}

func NewAsync(pub Publisher, buffer int) *Async {
	if buffer <= 0 {
		buffer = 1
	}
	return &Async{pub: pub, queue: make(chan core.Notice, buffer)}
}

func (a *Async) Report(n core.Notice) {
	metrics.AbuseNotices.WithLabelValues(n.Reason).Inc()
	select {
	case a.queue <- n:
	default:
		a.dropped.Add(1)
		metrics.AbuseDropped.Inc()
	}
}

// Dropped is the number of notices lost to a full queue.
func (a *Async) Dropped() int64 { return a.dropped.Load() }

// Run publishes queued notices until ctx is done, then flushes what is left.
func (a *Async) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			a.flush()
			return nil
		case n := <-a.queue:
			a.publish(context.Background(), n)
		}
	}
}

func (a *Async) flush() {
	for {
		select {
		case n := <-a.queue:
			a.publish(context.Background(), n)
		default:
			return
		}
	}
}

func (a *Async) publish(parent context.Context, n core.Notice) {
	ctx, cancel := context.WithTimeout(parent, publishTimeout)
	defer cancel()
	if err := a.pub.Publish(ctx, n); err != nil {
		log.Error().Err(err).Str("module", "adapters.telemetry").Str("reason", n.Reason).Msg("publish abuse notice")
	}
}
