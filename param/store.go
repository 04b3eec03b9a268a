package param

import (
	"sync"
	"sync/atomic"
)

// Change describes one applied parameter update.
type Change struct {
	// Name is the parameter that changed.
	Name string

	// Params is the full set after the change.
	Params Params
}

// Store publishes parameter snapshots. Readers never block; writers are
// serialized and replace the snapshot wholesale.
type Store struct {
	cur atomic.Pointer[Params]

	mu   sync.Mutex
	subs []func(Change)
}

// NewStore creates a store holding p. p is not validated.
func NewStore(p Params) *Store {
	s := &Store{}
	s.cur.Store(&p)
	return s
}

// Load returns the current snapshot.
func (s *Store) Load() Params {
	return *s.cur.Load()
}

// Set validates and applies one named parameter. Subscribers are notified
// when the value actually changes.
func (s *Store) Set(name string, value any) error {
	_, err := s.update(name, func(p *Params) error { return p.set(name, value) })
	return err
}

// update runs fn on a copy of the snapshot and publishes the copy if the
// named parameter changed. Reading, modifying and publishing happen under
// one lock so concurrent updates never work from the same snapshot.
func (s *Store) update(name string, fn func(*Params) error) (Params, error) {
	s.mu.Lock()
	next := *s.cur.Load()
	before := next.get(name)
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return next, err
	}
	changed := before != next.get(name)
	if changed {
		s.cur.Store(&next)
	}
	subs := s.subs
	s.mu.Unlock()

	if changed {
		notify(subs, Change{Name: name, Params: next})
	}
	return next, nil
}

// Apply validates p as a whole and replaces the snapshot. Subscribers get
// one Change per differing parameter.
func (s *Store) Apply(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	prev := *s.cur.Load()
	s.cur.Store(&p)
	subs := s.subs
	s.mu.Unlock()

	for _, name := range Names() {
		if prev.get(name) != p.get(name) {
			notify(subs, Change{Name: name, Params: p})
		}
	}
	return nil
}

// ToggleMode flips between 2D and 3D display and returns the new mode.
func (s *Store) ToggleMode() Mode {
	p, _ := s.update("mode", func(p *Params) error {
		if p.Mode == Mode2D {
			p.Mode = Mode3D
		} else {
			p.Mode = Mode2D
		}
		return nil
	})
	return p.Mode
}

// OnChange registers fn for every applied change. fn runs on the writer's
// goroutine.
func (s *Store) OnChange(fn func(Change)) {
	s.mu.Lock()
	s.subs = append(s.subs[:len(s.subs):len(s.subs)], fn)
	s.mu.Unlock()
}

func notify(subs []func(Change), c Change) {
	for _, fn := range subs {
		fn(c)
	}
}
