package visibility

import "sync"

// Surface is an in-process Document whose hidden flag is driven by the
// host, e.g. from terminal focus reports. Only the flag named at
// construction is exposed, so DetectAPI picks the matching API.
type Surface struct {
	mu        sync.Mutex
	api       API
	hidden    bool
	nextID    int
	listeners map[int]func()
}

// NewSurface exposes the flag and event of api. An unsupported api yields a
// surface that exposes no flag.
func NewSurface(api API) *Surface {
	return &Surface{api: api, listeners: make(map[int]func())}
}

func (s *Surface) Flag(name string) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.api.Supported || name != s.api.HiddenFlag {
		return false, false
	}
	return s.hidden, true
}

func (s *Surface) Subscribe(event string, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn == nil || event != s.api.EventName {
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// SetHidden updates the flag and notifies listeners when it changed.
func (s *Surface) SetHidden(hidden bool) {
	s.mu.Lock()
	if !s.api.Supported || s.hidden == hidden {
		s.mu.Unlock()
		return
	}
	s.hidden = hidden
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Listeners returns the number of live subscriptions.
func (s *Surface) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

func (s *Surface) Hidden() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hidden
}
