package portal

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Adrxx/adt-smart-security/internal/pkg/model"
)

// statusCache holds the single current DeviceState with a TTL. On
// expiry it asks the service for a fresh fetch; commands invalidate it
// before acting, which stops the TTL clock and bumps the generation so
// an expiry refresh already in flight cannot reseed a stale snapshot
// over the command's own reseed.
type statusCache struct {
	defaultTTL time.Duration

	lock     sync.Mutex
	state    *model.DeviceState
	gen      int
	timer    *time.Timer
	onExpire func(gen int)
	onSet    func(*model.DeviceState)
}

func newStatusCache(ttl time.Duration, onExpire func(int), onSet func(*model.DeviceState)) *statusCache {
	return &statusCache{
		defaultTTL: ttl,
		onExpire:   onExpire,
		onSet:      onSet,
	}
}

// Get returns the current snapshot, or false while the slot is absent.
func (c *statusCache) Get() (*model.DeviceState, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.state == nil {
		return nil, false
	}
	return c.state, true
}

// Set stores a snapshot and restarts the TTL clock. ttl == 0 means the
// default TTL; commands reseed with a short one-shot TTL so a UI can
// observe the transitioning state quickly.
func (c *statusCache) Set(state *model.DeviceState, ttl time.Duration) {
	c.lock.Lock()
	c.storeLocked(state, ttl)
	c.lock.Unlock()
	c.notify(state)
}

// setIfCurrent stores a snapshot only when gen still matches the
// generation the caller's expiry timer was armed with. Returns false
// when an Invalidate or Set moved the cache on in the meantime.
func (c *statusCache) setIfCurrent(state *model.DeviceState, ttl time.Duration, gen int) bool {
	c.lock.Lock()
	if c.gen != gen {
		c.lock.Unlock()
		return false
	}
	c.storeLocked(state, ttl)
	c.lock.Unlock()
	c.notify(state)
	return true
}

// Invalidate clears the slot and stops the TTL clock. Absence is
// explicit: callers see "no state", never a stale value.
func (c *statusCache) Invalidate() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.clearLocked()
}

// invalidateIfCurrent clears the slot only when gen is still current,
// so a failed stale refresh cannot blow away a value seeded after it
// started.
func (c *statusCache) invalidateIfCurrent(gen int) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.gen != gen {
		return false
	}
	c.clearLocked()
	return true
}

func (c *statusCache) storeLocked(state *model.DeviceState, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.state = state
	c.gen++
	gen := c.gen
	c.stopTimerLocked()
	c.timer = time.AfterFunc(ttl, func() { c.onExpire(gen) })
}

func (c *statusCache) clearLocked() {
	c.state = nil
	c.gen++
	c.stopTimerLocked()
}

func (c *statusCache) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *statusCache) notify(state *model.DeviceState) {
	if c.onSet != nil && state != nil && state.ArmingState != "" {
		c.onSet(state)
	}
}

// onCacheExpired is the TTL refresh path: one fetch, reseed on
// success, explicit absence plus a recovery signal on failure. The
// cache never retries on its own, and a refresh that lost a race with
// a command or login is discarded.
func (s *service) onCacheExpired(gen int) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	state, err := s.fetchState(ctx)
	if err != nil {
		if s.cache.invalidateIfCurrent(gen) {
			s.raiseError(err)
		}
		return
	}
	if !s.cache.setIfCurrent(state, 0, gen) {
		s.logger.Debug("discarding stale cache refresh")
		return
	}
	s.logger.Debug("cache refreshed on expiry", zap.String("arming_state", state.ArmingState.String()))
}
