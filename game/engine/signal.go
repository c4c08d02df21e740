package engine

// Signal is an ordered list of listeners for one notification type.
// It is not safe for concurrent use; callers serialize access the same way
// they serialize access to the engine.
type Signal[T any] struct {
	nextID    int
	listeners []listener[T]
}

type listener[T any] struct {
	id int
	fn func(T)
}

// Subscribe registers fn and returns a function that removes it again
func (s *Signal[T]) Subscribe(fn func(T)) func() {
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listener[T]{id: id, fn: fn})
	return func() {
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// Emit calls every listener in subscription order
func (s *Signal[T]) Emit(v T) {
	// Listeners may unsubscribe while we iterate
	snapshot := append([]listener[T](nil), s.listeners...)
	for _, l := range snapshot {
		l.fn(v)
	}
}

// Len returns the number of registered listeners
func (s *Signal[T]) Len() int {
	return len(s.listeners)
}
