// Package convo manages conversation threads: persistent message history
// per thread, per-thread write serialization, and the bounded message
// window submitted to the reasoning engine.
package convo

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/aerochat/aerochat/pkg/types"
)

// Store persists per-thread message history. Implementations must be safe
// for concurrent use across threads; callers serialize writes within a
// single thread (see [Locks]).
type Store interface {
	// Append adds messages to the end of the thread's history, creating
	// the thread if it does not exist yet.
	Append(ctx context.Context, threadID string, msgs ...types.Message) error

	// History returns the thread's full message history in append order.
	// An unknown thread yields an empty history, not an error.
	History(ctx context.Context, threadID string) ([]types.Message, error)
}

// NewThreadID mints an opaque thread identifier.
func NewThreadID() string {
	return uuid.NewString()
}

// Locks hands out one mutex per thread id so callers can serialize whole
// turns. Mutexes are never evicted; thread cardinality is expected to be
// modest within one process lifetime.
type Locks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

// NewLocks creates an empty lock table.
func NewLocks() *Locks {
	return &Locks{m: make(map[string]*sync.Mutex)}
}

func (l *Locks) get(threadID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	mu, ok := l.m[threadID]
	if !ok {
		mu = &sync.Mutex{}
		l.m[threadID] = mu
	}
	return mu
}

// Lock acquires the thread's mutex, blocking until any in-flight turn on
// the same thread finishes.
func (l *Locks) Lock(threadID string) {
	l.get(threadID).Lock()
}

// Unlock releases the thread's mutex.
func (l *Locks) Unlock(threadID string) {
	l.get(threadID).Unlock()
}
