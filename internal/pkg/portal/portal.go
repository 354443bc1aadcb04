// Package portal drives the alarm-system web portal: it owns the
// authenticated session, keeps the last known device state in a
// TTL-bound cache, translates arm/disarm requests into the portal's
// multi-step web actions and recovers when the session silently
// expires.
package portal

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Adrxx/adt-smart-security/internal/pkg/config"
	"github.com/Adrxx/adt-smart-security/internal/pkg/decoder"
	"github.com/Adrxx/adt-smart-security/internal/pkg/model"
	"github.com/Adrxx/adt-smart-security/internal/pkg/transport"
)

const (
	rootPath      = "/"
	loginPath     = "/Account/Login"
	dashboardPath = "/Default.aspx"
	actionPath    = "/Default.aspx"

	defaultWatchdogTimeout = 20 * time.Second
	defaultSettleDelay     = time.Second
	defaultRetryDelay      = 3 * time.Second
	commandSeedTTL         = time.Second
)

type service struct {
	cfg     *config.PortalConfig
	dec     decoder.PageDecoder
	errChan chan error
	logger  *zap.Logger

	mu         sync.Mutex
	client     *transport.Client
	session    *model.Session
	pending    *model.ArmingState
	pendingGen int
	watchdog   *time.Timer

	cache     *statusCache
	initOnce  sync.Once
	recoverCh chan struct{}

	subsMu sync.Mutex
	subs   []chan model.Event

	// timing knobs, fixed in production, shortened in tests
	watchdogTimeout time.Duration
	settleDelay     time.Duration
	retryDelay      time.Duration
	seedTTL         time.Duration
}

func New(cfg *config.PortalConfig, dec decoder.PageDecoder, errChan chan error) *service {
	s := &service{
		cfg:             cfg,
		dec:             dec,
		errChan:         errChan,
		logger:          zap.L(), // returns the global logger.
		recoverCh:       make(chan struct{}, 16),
		watchdogTimeout: defaultWatchdogTimeout,
		settleDelay:     defaultSettleDelay,
		retryDelay:      defaultRetryDelay,
		seedTTL:         commandSeedTTL,
	}
	s.cache = newStatusCache(cfg.CacheTTL, s.onCacheExpired, s.onCacheSet)
	return s
}

// Start authenticates and performs the initial fetch. Errors here
// surface directly to the caller; only background failures go through
// the recovery loop.
func (s *service) Start(ctx context.Context) error {
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

// GetState returns the cached device state, or false while the cache
// is absent (before first fetch, mid-command, or during recovery).
func (s *service) GetState() (*model.DeviceState, bool) {
	return s.cache.Get()
}

// Subscribe returns a channel of portal events. Slow consumers lose
// events rather than block the portal. Callers that go away must
// Unsubscribe or the channel is retained for the process lifetime.
func (s *service) Subscribe() <-chan model.Event {
	ch := make(chan model.Event, 16)
	s.subsMu.Lock()
	s.subs = append(s.subs, ch)
	s.subsMu.Unlock()
	return ch
}

// Unsubscribe removes a channel handed out by Subscribe and closes it.
func (s *service) Unsubscribe(sub <-chan model.Event) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for i, ch := range s.subs {
		if ch == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

func (s *service) emit(ev model.Event) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.logger.Warn("event subscriber full, dropping event", zap.String("event", ev.Type.String()))
		}
	}
}

// onCacheSet runs on every reseed carrying alarm data: init once,
// then state-changed for every snapshot.
func (s *service) onCacheSet(state *model.DeviceState) {
	initial := false
	s.initOnce.Do(func() { initial = true })
	if initial {
		s.emit(model.Event{Type: model.EventInit, State: state})
	}
	s.emit(model.Event{Type: model.EventStateChanged, State: state})
}

// raiseError reports a background fetch/parse failure: logged,
// surfaced on the error channel and to subscribers. Errors that point
// at session loss additionally schedule exactly one recovery attempt;
// caller input errors never do.
func (s *service) raiseError(err error) {
	s.logger.Error("portal failure", zap.Error(err))
	s.sendIfErr(err)
	s.emit(model.Event{Type: model.EventError, Err: err})
	if !model.Recoverable(err) {
		return
	}
	select {
	case s.recoverCh <- struct{}{}:
	default:
		// a recovery signal is already queued
	}
}

func (s *service) sendIfErr(err error) {
	if err == nil {
		return
	}
	select {
	case s.errChan <- err:
	default:
	}
}

func (s *service) transportClient() *transport.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}
