package worker

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// OperationMaintainer settles abandoned gift operations and frees expired idempotency keys
type OperationMaintainer interface {
	RecoverStuckOperations(ctx context.Context) (int, error)
	ReleaseExpiredIdempotencyKeys(ctx context.Context) (int64, error)
}

// OperationSweeper periodically refunds or closes gift operations left behind by a
// crashed request, then releases idempotency keys past their retention window
type OperationSweeper struct {
	maintainer OperationMaintainer
	interval   time.Duration
}

// NewOperationSweeper creates a sweeper running every interval
func NewOperationSweeper(maintainer OperationMaintainer, interval time.Duration) *OperationSweeper {
	return &OperationSweeper{maintainer: maintainer, interval: interval}
}

// Start runs one sweep immediately and then one per interval. The returned
// function stops the worker and waits for an in-progress sweep to finish.
func (s *OperationSweeper) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		log.WithField("interval", s.interval).Info("Gift operation sweeper started")

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			s.sweep(ctx)

			select {
			case <-ctx.Done():
				log.Info("Gift operation sweeper shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Gift operation sweeper shutting down (stop requested)...")
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		close(stopChan)
		<-done
	}
}

// sweep recovers stuck operations before releasing keys, so a recovered operation's
// key only becomes reusable once it is finished
func (s *OperationSweeper) sweep(ctx context.Context) {
	recovered, err := s.maintainer.RecoverStuckOperations(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.WithError(err).Error("Failed to recover stuck gift operations")
		}
	} else if recovered > 0 {
		log.WithField("recovered", recovered).Warn("Recovered stuck gift operations")
	}

	released, err := s.maintainer.ReleaseExpiredIdempotencyKeys(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.WithError(err).Error("Failed to release expired idempotency keys")
		}
		return
	}
	if released > 0 {
		log.WithField("released", released).Info("Released expired idempotency keys")
	}
}
