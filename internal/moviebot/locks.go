package moviebot

import "sync"

// sessionLocks serializes turns per session. An entry lives only while some
// turn holds or waits for it.
type sessionLocks struct {
	mu   sync.Mutex
	held map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{held: make(map[string]*sessionLock)}
}

// lock blocks until id is free and returns the unlock function.
func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	sl, ok := l.held[id]
	if !ok {
		sl = &sessionLock{}
		l.held[id] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()
		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.held, id)
		}
		l.mu.Unlock()
	}
}

// Len reports how many sessions currently have a turn in flight or waiting.
func (l *sessionLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}
