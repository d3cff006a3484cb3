package sensor

import (
	"sync"

	"github.com/zonehunt/zonehunt-server/internal/geo"
)

// SimStep is the coordinate delta of one simulator move, roughly 11
// meters of latitude.
const SimStep = 0.0001

// SimulatedSource is a manually driven location source: the player (or a
// test) sets the position and every active watch observes it. It stands
// in for the real sensor when a session runs in simulator mode.
type SimulatedSource struct {
	mu      sync.Mutex
	pos     geo.Position
	hasPos  bool
	watches map[Handle]func(geo.Position)
	nextID  Handle
}

// NewSimulatedSource creates a simulator with no position set.
func NewSimulatedSource() *SimulatedSource {
	return &SimulatedSource{watches: make(map[Handle]func(geo.Position))}
}

// Set places the simulated player at p and notifies all watches.
func (s *SimulatedSource) Set(p geo.Position) {
	s.mu.Lock()
	s.pos = p
	s.hasPos = true
	callbacks := make([]func(geo.Position), 0, len(s.watches))
	for _, cb := range s.watches {
		callbacks = append(callbacks, cb)
	}
	s.mu.Unlock()

	for _, cb := range callbacks {
		cb(p)
	}
}

// Move shifts the position one step in the given compass direction
// ("north", "south", "east", "west") and returns the new position.
func (s *SimulatedSource) Move(direction string) geo.Position {
	s.mu.Lock()
	p := s.pos
	s.mu.Unlock()

	switch direction {
	case "north":
		p.Lat += SimStep
	case "south":
		p.Lat -= SimStep
	case "east":
		p.Lng += SimStep
	case "west":
		p.Lng -= SimStep
	}
	s.Set(p)
	return p
}

// GetSample returns the current simulated position.
func (s *SimulatedSource) GetSample(_ WatchOptions) (geo.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasPos {
		return geo.Position{}, Errf(KindPositionUnavailable, "no simulated position set")
	}
	return s.pos, nil
}

// Watch registers a callback for future Set calls. If a position is
// already set it is delivered immediately.
func (s *SimulatedSource) Watch(onSample func(geo.Position), _ func(error), _ WatchOptions) Handle {
	s.mu.Lock()
	s.nextID++
	h := s.nextID
	s.watches[h] = onSample
	hasPos, pos := s.hasPos, s.pos
	s.mu.Unlock()

	if hasPos {
		onSample(pos)
	}
	return h
}

// Cancel releases a watch.
func (s *SimulatedSource) Cancel(h Handle) {
	s.mu.Lock()
	delete(s.watches, h)
	s.mu.Unlock()
}
