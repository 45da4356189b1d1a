package orchestrator

import (
	"sync"

	"github.com/dmitrijs2005/gdcfetch/internal/models"
)

// keyLocks serialises work on the same key. Entries are dropped once no
// goroutine holds or waits for them.
type keyLocks struct {
	mu    sync.Mutex
	locks map[models.Key]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[models.Key]*keyLock)}
}

// lock blocks until k is free and returns the matching unlock.
func (kl *keyLocks) lock(k models.Key) func() {
	kl.mu.Lock()
	l, ok := kl.locks[k]
	if !ok {
		l = &keyLock{}
		kl.locks[k] = l
	}
	l.refs++
	kl.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		kl.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(kl.locks, k)
		}
		kl.mu.Unlock()
	}
}

func (kl *keyLocks) len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.locks)
}
