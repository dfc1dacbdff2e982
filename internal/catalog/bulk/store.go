package bulk

import (
	"errors"
	"sync"
	"time"
)

const (
	// DefaultRetention is how long completed batches stay pollable.
	DefaultRetention = 30 * time.Minute

	sweepInterval = 5 * time.Minute
)

var (
	// ErrKeyExists is returned when a progress key is inserted twice.
	ErrKeyExists = errors.New("progress key already exists")

	// ErrNotFound is returned for unknown or expired progress keys. Clients
	// treat it as "job expired or invalid key", not as retryable.
	ErrNotFound = errors.New("progress key not found")
)

// Store holds per-batch JobState in memory, keyed by progress key. All
// access goes through the store's lock; Get hands out copies so readers
// never share memory with the writing worker. State is volatile: a restart
// drops every entry.
type Store struct {
	mu        sync.RWMutex
	jobs      map[Key]*JobState
	retention time.Duration

	stopOnce sync.Once
	stop     chan struct{}
}

// NewStore creates a progress store and starts its background sweeper.
// A retention of 0 falls back to DefaultRetention.
func NewStore(retention time.Duration) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	s := &Store{
		jobs:      make(map[Key]*JobState),
		retention: retention,
		stop:      make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Put inserts a new job. Keys are coordinator-generated and must be unique.
func (s *Store) Put(key Key, state JobState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[key]; ok {
		return ErrKeyExists
	}
	s.jobs[key] = &state
	return nil
}

// Get returns a snapshot of the job's current state. The copy is taken
// under the lock, so counters are never torn.
func (s *Store) Get(key Key) (JobState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[key]
	if !ok {
		return JobState{}, false
	}
	return job.Clone(), true
}

// Update applies fn to the job's state under the store lock. Only the
// worker driving the batch calls this.
func (s *Store) Update(key Key, fn func(*JobState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[key]
	if !ok {
		return ErrNotFound
	}
	fn(job)
	return nil
}

// Len returns the number of tracked batches.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Sweep removes completed entries older than the retention window.
func (s *Store) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-s.retention)
	for key, job := range s.jobs {
		if job.Terminal() && job.CompletedAt.Before(cutoff) {
			delete(s.jobs, key)
		}
	}
}

// Close stops the background sweeper. Idempotent.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stop:
			return
		}
	}
}
