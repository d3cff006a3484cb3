package sensor

import (
	"log/slog"
	"sync"
	"time"

	"github.com/zonehunt/zonehunt-server/internal/geo"
)

// State is the sampler lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRequestingPermission
	StateWatching
	StateError
)

func (s State) String() string {
	switch s {
	case StateRequestingPermission:
		return "requesting-permission"
	case StateWatching:
		return "watching"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// Config tunes the sampler's retry behavior.
type Config struct {
	// BaseTimeout is the initial sample timeout window.
	BaseTimeout time.Duration
	// MaxTimeout caps the exponential timeout growth.
	MaxTimeout time.Duration
	// BackoffFactor grows the timeout window after each timeout error.
	BackoffFactor float64
	// RestartDelay is the pause before restarting after a timeout.
	RestartDelay time.Duration
	// RetryDelay is the pause before retrying after position-unavailable.
	RetryDelay time.Duration
	// WatchdogInterval is how often the liveness check runs.
	WatchdogInterval time.Duration
}

// DefaultConfig returns the standard sampler tuning.
func DefaultConfig() Config {
	return Config{
		BaseTimeout:      5 * time.Second,
		MaxTimeout:       30 * time.Second,
		BackoffFactor:    1.5,
		RestartDelay:     time.Second,
		RetryDelay:       5 * time.Second,
		WatchdogInterval: 10 * time.Second,
	}
}

// ConservativeConfig returns the tuning for clients whose sensors are
// known to be slow to produce a first fix.
func ConservativeConfig() Config {
	cfg := DefaultConfig()
	cfg.BaseTimeout = 10 * time.Second
	return cfg
}

// Sampler drives a Source through the
// Idle → RequestingPermission → Watching → (Error | Watching) lifecycle.
// Timeouts widen the sampling window exponentially up to MaxTimeout,
// transient failures retry after a fixed delay, and a watchdog restarts
// the watch if the sensor dies silently. Permission denial is terminal
// for the session.
//
// OnPosition receives every successful sample. OnError receives only the
// failures that should surface to the user: permission errors always,
// anything else only while no position has ever been obtained.
type Sampler struct {
	src Source
	cfg Config

	OnPosition func(geo.Position)
	OnError    func(error)

	mu         sync.Mutex
	state      State
	handle     Handle
	curTimeout time.Duration
	hasFix     bool
	retry      *time.Timer
	stopWatch  chan struct{}
}

// NewSampler creates a sampler over src. Callbacks must be set before
// Start.
func NewSampler(src Source, cfg Config) *Sampler {
	return &Sampler{src: src, cfg: cfg, state: StateIdle}
}

// State returns the current lifecycle state.
func (s *Sampler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// HasFix reports whether any position has been obtained since Start.
func (s *Sampler) HasFix() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasFix
}

// CurrentTimeout returns the active sampling timeout window.
func (s *Sampler) CurrentTimeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.curTimeout
}

// Start begins sampling: it probes the sensor once to resolve the
// permission prompt, then starts the continuous watch. Re-entrant calls
// release the previous watch first so two samplers never run at once.
func (s *Sampler) Start() {
	s.mu.Lock()
	s.releaseLocked()
	s.state = StateRequestingPermission
	s.curTimeout = s.cfg.BaseTimeout
	s.hasFix = false
	s.stopWatch = make(chan struct{})
	stop := s.stopWatch
	s.mu.Unlock()

	go s.requestPermission(stop)
	go s.watchdog(stop)
}

// Stop releases the watch and every pending timer so nothing samples or
// retries after the session ends.
func (s *Sampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
	s.state = StateIdle
}

func (s *Sampler) requestPermission(stop chan struct{}) {
	_, err := s.src.GetSample(WatchOptions{HighAccuracy: true, Timeout: s.cfg.BaseTimeout})

	s.mu.Lock()
	if s.stopWatch != stop {
		s.mu.Unlock()
		return
	}
	if err != nil && KindOf(err) == KindPermissionDenied {
		s.state = StateError
		s.releaseLocked()
		s.mu.Unlock()
		slog.Warn("sensor permission denied")
		s.surface(err)
		return
	}
	// Any other probe outcome means the prompt is resolved; the watch
	// loop owns retries from here.
	s.state = StateWatching
	s.mu.Unlock()

	if err != nil {
		s.handleWatchError(stop, err)
		return
	}
	s.startWatch(stop)
}

// startWatch opens (or reopens) the continuous watch with the current
// timeout window.
func (s *Sampler) startWatch(stop chan struct{}) {
	s.mu.Lock()
	if s.stopWatch != stop || s.state != StateWatching {
		s.mu.Unlock()
		return
	}
	if s.handle != 0 {
		s.src.Cancel(s.handle)
		s.handle = 0
	}
	opts := WatchOptions{HighAccuracy: true, Timeout: s.curTimeout}
	s.mu.Unlock()

	h := s.src.Watch(
		func(p geo.Position) { s.handleSample(stop, p) },
		func(err error) { s.handleWatchError(stop, err) },
		opts,
	)

	s.mu.Lock()
	if s.stopWatch != stop {
		// Stopped while the watch was being opened.
		s.mu.Unlock()
		s.src.Cancel(h)
		return
	}
	s.handle = h
	s.mu.Unlock()
}

func (s *Sampler) handleSample(stop chan struct{}, p geo.Position) {
	if !p.Valid() {
		s.handleWatchError(stop, Errf(KindMalformed, "coordinates out of range: %v,%v", p.Lat, p.Lng))
		return
	}

	s.mu.Lock()
	if s.stopWatch != stop {
		s.mu.Unlock()
		return
	}
	s.hasFix = true
	s.curTimeout = s.cfg.BaseTimeout
	cb := s.OnPosition
	s.mu.Unlock()

	if cb != nil {
		cb(p)
	}
}

func (s *Sampler) handleWatchError(stop chan struct{}, err error) {
	kind := KindOf(err)

	s.mu.Lock()
	if s.stopWatch != stop {
		s.mu.Unlock()
		return
	}

	switch kind {
	case KindPermissionDenied:
		s.state = StateError
		s.releaseLocked()
		s.mu.Unlock()
		slog.Warn("sensor permission denied", "error", err)
		s.surface(err)
		return

	case KindTimeout:
		next := time.Duration(float64(s.curTimeout) * s.cfg.BackoffFactor)
		if next > s.cfg.MaxTimeout {
			next = s.cfg.MaxTimeout
		}
		s.curTimeout = next
		hasFix := s.hasFix
		s.scheduleRestartLocked(stop, s.cfg.RestartDelay)
		s.mu.Unlock()
		slog.Debug("sensor timeout, widening window", "timeout", next)
		if !hasFix {
			s.surface(err)
		}
		return

	default: // position-unavailable, including coerced malformed payloads
		hasFix := s.hasFix
		s.scheduleRestartLocked(stop, s.cfg.RetryDelay)
		s.mu.Unlock()
		slog.Debug("sensor unavailable, retrying", "delay", s.cfg.RetryDelay, "error", err)
		if !hasFix {
			s.surface(err)
		}
	}
}

// scheduleRestartLocked clears the watch handle and arms a one-shot
// restart. Caller must hold s.mu.
func (s *Sampler) scheduleRestartLocked(stop chan struct{}, delay time.Duration) {
	if s.handle != 0 {
		s.src.Cancel(s.handle)
		s.handle = 0
	}
	if s.retry != nil {
		s.retry.Stop()
	}
	s.retry = time.AfterFunc(delay, func() {
		s.mu.Lock()
		s.retry = nil
		s.mu.Unlock()
		s.startWatch(stop)
	})
}

// watchdog restarts the watch if the handle has gone stale: cleared but
// with no retry pending, which means a restart was lost.
func (s *Sampler) watchdog(stop chan struct{}) {
	ticker := time.NewTicker(s.cfg.WatchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			stale := s.state == StateWatching && s.handle == 0 && s.retry == nil
			s.mu.Unlock()
			if stale {
				slog.Warn("sensor watch went stale, restarting")
				s.startWatch(stop)
			}
		}
	}
}

// releaseLocked cancels the watch, pending retry, and watchdog. Caller
// must hold s.mu.
func (s *Sampler) releaseLocked() {
	if s.handle != 0 {
		s.src.Cancel(s.handle)
		s.handle = 0
	}
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
	if s.stopWatch != nil {
		close(s.stopWatch)
		s.stopWatch = nil
	}
}

func (s *Sampler) surface(err error) {
	if s.OnError != nil {
		s.OnError(err)
	}
}
