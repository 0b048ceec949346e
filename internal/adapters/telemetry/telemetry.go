// Package telemetry ships abuse notices to the operator's sinks without
// holding up the signaling path.
package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dkeye/roomrelay/internal/core"
	"github.com/rs/zerolog/log"
)

const (
	publishMaxRetries     = 3
	publishInitialBackoff = 100 * time.Millisecond
	publishMaxBackoff     = 2 * time.Second
)

// Publisher delivers a notice to one destination. Publish may block; Async
// keeps it off the caller's path.
type Publisher interface {
	Publish(ctx context.Context, n core.Notice) error
}

// Fanout publishes to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, n core.Notice) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// retry runs op with capped exponential backoff bound to ctx.
func retry(ctx context.Context, sink string, op func() error) error {
	strategy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(publishInitialBackoff),
				backoff.WithMaxInterval(publishMaxBackoff),
			),
			publishMaxRetries,
		),
		ctx,
	)
	return backoff.RetryNotify(op, strategy, func(err error, d time.Duration) {
		log.Warn().Err(err).Str("module", "adapters.telemetry").Str("sink", sink).Dur("next", d).Msg("retrying publish")
	})
}
