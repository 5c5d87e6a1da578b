package models

import (
	"fmt"
	"sync"
)

// KeyedMutex serializes writers per string key. The journey tracker
// uses it to make read-modify-write of a contact's current stage
// atomic across goroutines within this process; persistence itself
// still runs inside a database transaction.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*entry)}
}

// Lock acquires the mutex for key and returns its unlock function.
// Entries are reference-counted and removed once unused, so the map
// does not grow with the number of contacts ever seen.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// contactLocks guards per-contact stage state for the whole process.
var contactLocks = NewKeyedMutex()

func contactKey(businessID, contactID uint) string {
	return fmt.Sprintf("%d:%d", businessID, contactID)
}
