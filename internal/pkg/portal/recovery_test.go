package portal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adrxx/adt-smart-security/internal/pkg/model"
)

func TestRecovery_ReauthenticatesAndReseeds(t *testing.T) {
	p := newFakePortal(t)
	s := newTestService(t, p)
	require.NoError(t, s.Start(context.Background()))
	loginsAfterStart := p.logins()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.RunRecovery(ctx) }()

	s.cache.Invalidate()
	s.raiseError(model.ErrUnexpectedResponse)

	waitFor(t, 2*time.Second, func() bool {
		_, ok := s.GetState()
		return ok
	})
	assert.Equal(t, loginsAfterStart+1, p.logins(), "recovery performs one fresh login")
}

func TestRecovery_RetriesIndefinitelyWithBackoff(t *testing.T) {
	p := newFakePortal(t)
	s := newTestService(t, p)
	require.NoError(t, s.Start(context.Background()))

	p.mu.Lock()
	p.failDashboard = true // login works, the fetch that follows does not
	p.mu.Unlock()
	loginsBefore := p.logins()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.RunRecovery(ctx) }()
	s.raiseError(model.ErrUnexpectedResponse)

	// each failed attempt is one login + one fetch, spaced by the
	// retry delay
	waitFor(t, 2*time.Second, func() bool {
		return p.logins() >= loginsBefore+3
	})
	p.mu.Lock()
	gap := p.loginTimes[len(p.loginTimes)-1].Sub(p.loginTimes[len(p.loginTimes)-2])
	p.mu.Unlock()
	assert.GreaterOrEqual(t, gap, s.retryDelay)

	_, ok := s.GetState()
	assert.False(t, ok, "cache stays absent while the portal is unreadable")

	// the portal comes back, the next attempt reseeds
	p.mu.Lock()
	p.failDashboard = false
	p.mu.Unlock()
	waitFor(t, 2*time.Second, func() bool {
		_, ok := s.GetState()
		return ok
	})
}

func TestRaiseError_CallerInputErrorsSkipRecovery(t *testing.T) {
	p := newFakePortal(t)
	s := newTestService(t, p)

	s.raiseError(model.ErrNotReady)
	select {
	case <-s.recoverCh:
		t.Fatal("caller input errors must not trigger recovery")
	default:
	}

	s.raiseError(model.ErrUnexpectedResponse)
	select {
	case <-s.recoverCh:
	default:
		t.Fatal("session-loss errors must trigger recovery")
	}
}

func TestRecovery_EmitsErrorEvent(t *testing.T) {
	p := newFakePortal(t)
	s := newTestService(t, p)
	sub := s.Subscribe()

	s.raiseError(model.ErrUnexpectedResponse)

	select {
	case ev := <-sub:
		assert.Equal(t, model.EventError, ev.Type)
		assert.ErrorIs(t, ev.Err, model.ErrUnexpectedResponse)
	case <-time.After(time.Second):
		t.Fatal("no error event emitted")
	}
}
