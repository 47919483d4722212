package workflow

import "sync"

// tenantLocks provides exclusive, tenant-scoped locking. Operations on
// different tenants proceed in parallel; two operations on the same name
// serialize. Entries are refcounted so the map does not grow unbounded.
type tenantLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newTenantLocks() *tenantLocks {
	return &tenantLocks{entries: make(map[string]*lockEntry)}
}

// Acquire blocks until the tenant's lock is held and returns the release func.
func (l *tenantLocks) Acquire(name string) func() {
	l.mu.Lock()
	entry, ok := l.entries[name]
	if !ok {
		entry = &lockEntry{}
		l.entries[name] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, name)
		}
		l.mu.Unlock()
	}
}
