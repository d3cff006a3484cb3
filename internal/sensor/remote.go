package sensor

import (
	"sync"
	"time"

	"github.com/zonehunt/zonehunt-server/internal/geo"
)

// KindFromCode maps a client-reported geolocation error code to an
// ErrorKind. Codes follow the browser convention: 1 permission denied,
// 2 position unavailable, 3 timeout.
func KindFromCode(code int) ErrorKind {
	switch code {
	case 1:
		return KindPermissionDenied
	case 2:
		return KindPositionUnavailable
	case 3:
		return KindTimeout
	default:
		return KindMalformed
	}
}

type remoteReport struct {
	pos geo.Position
	err error
}

type remoteWatch struct {
	onSample func(geo.Position)
	onError  func(error)
}

// RemoteSource is a location source fed by a connected client's own
// sensor reports. The session's sampler runs over it exactly as it does
// over a local source.
type RemoteSource struct {
	mu      sync.Mutex
	last    *geo.Position
	waiters []chan remoteReport
	watches map[Handle]remoteWatch
	nextID  Handle
}

// NewRemoteSource creates a source with no position reported yet.
func NewRemoteSource() *RemoteSource {
	return &RemoteSource{watches: make(map[Handle]remoteWatch)}
}

// ReportSample feeds one client-reported position to every active watch
// and to any blocked GetSample call.
func (s *RemoteSource) ReportSample(p geo.Position) {
	s.mu.Lock()
	pos := p
	s.last = &pos
	waiters := s.waiters
	s.waiters = nil
	callbacks := make([]func(geo.Position), 0, len(s.watches))
	for _, w := range s.watches {
		callbacks = append(callbacks, w.onSample)
	}
	s.mu.Unlock()

	for _, ch := range waiters {
		ch <- remoteReport{pos: p}
	}
	for _, cb := range callbacks {
		cb(p)
	}
}

// ReportError feeds one client-reported sensor failure.
func (s *RemoteSource) ReportError(code int, message string) {
	err := Errf(KindFromCode(code), "%s", message)

	s.mu.Lock()
	waiters := s.waiters
	s.waiters = nil
	callbacks := make([]func(error), 0, len(s.watches))
	for _, w := range s.watches {
		callbacks = append(callbacks, w.onError)
	}
	s.mu.Unlock()

	for _, ch := range waiters {
		ch <- remoteReport{err: err}
	}
	for _, cb := range callbacks {
		cb(err)
	}
}

// GetSample returns the last reported position, or blocks until the
// client reports one. Waiting longer than opts.Timeout is a timeout
// error.
func (s *RemoteSource) GetSample(opts WatchOptions) (geo.Position, error) {
	s.mu.Lock()
	if s.last != nil {
		p := *s.last
		s.mu.Unlock()
		return p, nil
	}
	ch := make(chan remoteReport, 1)
	s.waiters = append(s.waiters, ch)
	s.mu.Unlock()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	select {
	case r := <-ch:
		if r.err != nil {
			return geo.Position{}, r.err
		}
		return r.pos, nil
	case <-time.After(timeout):
		s.dropWaiter(ch)
		return geo.Position{}, Errf(KindTimeout, "no report within %s", timeout)
	}
}

func (s *RemoteSource) dropWaiter(ch chan remoteReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, w := range s.waiters {
		if w == ch {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			return
		}
	}
}

// Watch registers callbacks for future reports. The last known position,
// if any, is delivered immediately.
func (s *RemoteSource) Watch(onSample func(geo.Position), onError func(error), _ WatchOptions) Handle {
	s.mu.Lock()
	s.nextID++
	h := s.nextID
	s.watches[h] = remoteWatch{onSample: onSample, onError: onError}
	last := s.last
	s.mu.Unlock()

	if last != nil {
		onSample(*last)
	}
	return h
}

// Cancel releases a watch.
func (s *RemoteSource) Cancel(h Handle) {
	s.mu.Lock()
	delete(s.watches, h)
	s.mu.Unlock()
}
