package portal

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Adrxx/adt-smart-security/internal/pkg/model"
)

// SetState requests an arming mode change. The first return value is
// false for a no-op (the system already reports the requested state).
// Validation failures (ErrNotReady, ErrUnsupportedMode) return before
// anything is mutated; once the command is accepted the pending target
// is recorded, the cache entry is deleted for the duration of the
// command, and exactly one fetch reseeds it afterwards with a short
// TTL.
//
// Two concurrent SetState calls race last-write-wins on the pending
// target: the later call's watchdog supersedes the earlier one.
func (s *service) SetState(ctx context.Context, requested model.ArmingState) (bool, error) {
	if !requested.Valid() {
		return false, fmt.Errorf("%w: %q", model.ErrUnsupportedMode, requested)
	}

	current, ok := s.cache.Get()
	if !ok {
		// mid-command, pre-init or mid-recovery: take one fresh
		// snapshot so validation and action tokens have something
		// current to work from
		var err error
		if current, err = s.fetchState(ctx); err != nil {
			return false, err
		}
	}

	if current.ArmingState == requested {
		s.logger.Info("system already in requested state, nothing to do",
			zap.String("requested", requested.String()))
		return false, nil
	}

	arming := requested == model.Home || requested == model.Away
	bypasses, err := s.bypassPlan(current, arming)
	if err != nil {
		return false, err
	}

	gen := s.recordPending(requested)
	s.cache.Invalidate()

	err = s.execute(ctx, current, requested, bypasses)
	if err != nil {
		s.clearPending(gen)
		s.logger.Error("command submission failed",
			zap.String("requested", requested.String()), zap.Error(err))
	} else {
		s.startWatchdog(gen, requested)
	}

	s.reseedAfterCommand(ctx)
	if err != nil {
		return false, err
	}
	return true, nil
}

// bypassPlan returns the bypass actions to submit before arming:
// every currently open, not-ready sensor must be on the allow-list
// and must have a decoded bypass action, otherwise arming is refused
// outright.
func (s *service) bypassPlan(current *model.DeviceState, arming bool) (map[string]string, error) {
	if !arming || current.Ready() {
		return nil, nil
	}
	open := current.OpenSensors()
	plan := make(map[string]string, len(open))
	for _, sensor := range open {
		if !lo.Contains(s.cfg.BypassSensors, sensor.Name) {
			return nil, fmt.Errorf("%w: sensor %q not on bypass allow-list", model.ErrNotReady, sensor.Name)
		}
		action, found := current.Tokens.BypassActions[sensor.Name]
		if !found {
			return nil, fmt.Errorf("%w: no bypass action for sensor %q", model.ErrNotReady, sensor.Name)
		}
		plan[sensor.Name] = action
	}
	return plan, nil
}

// execute runs the web actions in order: all bypasses concurrently,
// a settle delay so the device registers them server-side, then the
// single arm/disarm action.
func (s *service) execute(ctx context.Context, current *model.DeviceState, requested model.ArmingState, bypasses map[string]string) error {
	if len(bypasses) > 0 {
		eg, egCtx := errgroup.WithContext(ctx)
		for name, action := range bypasses {
			eg.Go(func() error {
				s.logger.Debug("bypassing sensor", zap.String("sensor", name))
				return s.submitAction(egCtx, current.Tokens.ViewState, action)
			})
		}
		if err := eg.Wait(); err != nil {
			return fmt.Errorf("bypass sub-flow: %w", err)
		}
		select {
		case <-time.After(s.settleDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	action, err := armAction(current.Tokens, requested)
	if err != nil {
		return err
	}
	return s.submitAction(ctx, current.Tokens.ViewState, action)
}

func armAction(tokens model.ActionTokens, requested model.ArmingState) (string, error) {
	var action string
	switch requested {
	case model.Home:
		action = tokens.ArmHome
	case model.Away:
		action = tokens.ArmAway
	case model.Disarmed:
		action = tokens.Disarm
	}
	if action == "" {
		return "", fmt.Errorf("action id for %q not found: %w", requested, model.ErrUnexpectedResponse)
	}
	return action, nil
}

// submitAction posts one web action using page-scoped tokens. The
// portal is a postback machine: the view-state token plus an event
// target identify the button being "clicked".
func (s *service) submitAction(ctx context.Context, viewState, action string) error {
	client := s.transportClient()
	if client == nil {
		return errNotStarted
	}
	form := url.Values{
		"__VIEWSTATE":   {viewState},
		"__EVENTTARGET": {action},
	}
	if _, err := client.PostForm(ctx, actionPath, form); err != nil {
		return model.NewNetworkError("submit action", err)
	}
	return nil
}

// reseedAfterCommand issues the single post-command fetch and reseeds
// with the short TTL, regardless of how the command went. Failures
// here are background failures: logged and handed to recovery, never
// returned to the SetState caller.
func (s *service) reseedAfterCommand(ctx context.Context) {
	state, err := s.fetchState(ctx)
	if err != nil {
		s.raiseError(err)
		return
	}
	s.cache.Set(state, s.seedTTL)
}

// recordPending stores the in-flight target last-write-wins and
// invalidates any watchdog armed by a superseded command.
func (s *service) recordPending(requested model.ArmingState) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	target := requested
	s.pending = &target
	s.pendingGen++
	if s.watchdog != nil {
		s.watchdog.Stop()
		s.watchdog = nil
	}
	return s.pendingGen
}

// startWatchdog arms the timer that clears a pending command whose
// effect was never observed in time. Expired intent, not an error.
func (s *service) startWatchdog(gen int, requested model.ArmingState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchdog = time.AfterFunc(s.watchdogTimeout, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.pendingGen == gen && s.pending != nil && *s.pending == requested {
			s.pending = nil
			s.logger.Warn("pending command expired unobserved",
				zap.String("requested", requested.String()))
		}
	})
}

// clearPending drops the pending target if it still belongs to the
// given command generation.
func (s *service) clearPending(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingGen == gen {
		s.clearPendingLocked()
	}
}

func (s *service) clearPendingLocked() {
	s.pending = nil
	if s.watchdog != nil {
		s.watchdog.Stop()
		s.watchdog = nil
	}
}
