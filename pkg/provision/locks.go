package provision

import "sync"

// uidLocks hands out one mutex per uid so that create/apply sequences for
// the same user never interleave. Entries are never removed; the map is
// bounded by the number of distinct uids seen by this process.
type uidLocks struct {
	locks sync.Map
}

func (l *uidLocks) lock(uid string) func() {
	entry, _ := l.locks.LoadOrStore(uid, &sync.Mutex{})
	mu := entry.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
