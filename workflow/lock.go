package workflow

import "sync"

// refLocks is a mutex per reference. Entries are removed when nobody holds or waits for them.
type refLocks struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	users int
}

// lock blocks until the key is free and returns the unlock func.
func (l *refLocks) lock(key string) func() {

	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*refLock)
	}
	var rl = l.locks[key]
	if rl == nil {
		rl = &refLock{}
		l.locks[key] = rl
	}
	rl.users++
	l.mu.Unlock()

	rl.Lock()

	return func() {
		rl.Unlock()
		l.mu.Lock()
		rl.users--
		if rl.users == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
