package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"authgate/internal/repository"
)

// StartTokenCleanup deletes expired verifications and sessions every interval
// until ctx is done. The returned channel is closed once the loop has exited.
func StartTokenCleanup(ctx context.Context, store *repository.Store, interval time.Duration) <-chan struct{} {
	if interval <= 0 {
		interval = time.Hour
	}
	done := make(chan struct{})
	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := SweepExpired(ctx, store, time.Now().UTC()); err != nil && ctx.Err() == nil {
					zap.L().Error("Token cleanup failed", zap.Error(err))
				}
			}
		}
	}()
	return done
}

func SweepExpired(ctx context.Context, store *repository.Store, now time.Time) error {
	tokens, err := store.Verifications.DeleteExpired(ctx, now)
	if err != nil {
		return err
	}
	sessions, err := store.Sessions.DeleteExpired(ctx, now)
	if err != nil {
		return err
	}
	if tokens > 0 || sessions > 0 {
		zap.L().Info("Removed expired tokens",
			zap.Int64("verifications", tokens),
			zap.Int64("sessions", sessions),
		)
	}
	return nil
}
