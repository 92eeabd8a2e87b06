package fill

import "sync"

// symbolLocks hands out one mutex per symbol. Entries are never removed; the
// table is bounded by the number of symbols ever traded.
type symbolLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *symbolLocks) get(symbol string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.m == nil {
		l.m = make(map[string]*sync.Mutex)
	}
	lock, ok := l.m[symbol]
	if !ok {
		lock = &sync.Mutex{}
		l.m[symbol] = lock
	}
	return lock
}
