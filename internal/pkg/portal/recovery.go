package portal

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunRecovery is the dedicated recovery task. It consumes the signals
// raised for unrecoverable fetch/parse failures and, per signal,
// re-authenticates and reseeds the cache, retrying every retryDelay
// until it succeeds. There is no retry cap: a portal that stays down
// looks exactly like a device that is offline.
func (s *service) RunRecovery(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.recoverCh:
			s.recover(ctx)
		}
	}
}

func (s *service) recover(ctx context.Context) {
	for attempt := 1; ; attempt++ {
		err := s.attemptRecovery(ctx)
		if err == nil {
			s.logger.Info("recovery succeeded", zap.Int("attempt", attempt))
			return
		}
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("recovery attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.retryDelay):
		}
	}
}

// Reauthenticate runs one full login, fetch and reseed cycle. Callers
// that re-login on a schedule use it instead of Login so the cache is
// repopulated immediately instead of sitting absent until something
// else notices.
func (s *service) Reauthenticate(ctx context.Context) error {
	return s.attemptRecovery(ctx)
}

// attemptRecovery is one full cycle: fresh login, one fetch, reseed.
func (s *service) attemptRecovery(ctx context.Context) error {
	if err := s.Login(ctx); err != nil {
		return err
	}
	state, err := s.fetchState(ctx)
	if err != nil {
		return err
	}
	s.cache.Set(state, 0)
	return nil
}
