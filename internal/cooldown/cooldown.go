// Package cooldown tracks when each client last submitted a form and refuses
// new submissions until the window has elapsed.
package cooldown

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/diagnosis/formrelay/pkg/logger"
)

// Store persists the last successful submission time per key.
type Store interface {
	// Last returns the recorded time for key and whether one exists.
	Last(ctx context.Context, key string) (time.Time, bool, error)
	// Touch records at as the last submission time for key. ttl is how long
	// the record is still meaningful; stores may expire it afterwards.
	Touch(ctx context.Context, key string, at time.Time, ttl time.Duration) error
}

type Limiter struct {
	store  Store
	window time.Duration
	now    func() time.Time
}

// New returns a limiter over store. A nil clock means time.Now.
func New(store Store, window time.Duration, clock func() time.Time) *Limiter {
	if clock == nil {
		clock = time.Now
	}
	return &Limiter{store: store, window: window, now: clock}
}

func (l *Limiter) Window() time.Duration { return l.window }

// Allow reports whether key may submit now: true when nothing is recorded or
// at least the window has elapsed since the last record. Store errors allow
// the request (fail open).
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	last, ok, err := l.store.Last(ctx, hashKey(key))
	if err != nil {
		logger.WarnContext(ctx, "Cooldown lookup failed, allowing", "error", err)
		return true
	}
	if !ok {
		return true
	}
	return l.now().Sub(last) >= l.window
}

// Record marks now as key's last successful submission.
func (l *Limiter) Record(ctx context.Context, key string) {
	if err := l.store.Touch(ctx, hashKey(key), l.now(), l.window); err != nil {
		logger.WarnContext(ctx, "Cooldown record failed", "error", err)
	}
}

// hashKey keeps client addresses out of shared stores.
func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", sum)
}

// MemoryStore is a process-local Store. Restarting the process clears it.
type MemoryStore struct {
	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

func NewMemoryStore(clock func() time.Time) *MemoryStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryStore{last: make(map[string]time.Time), now: clock}
}

func (m *MemoryStore) Last(_ context.Context, key string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.last[key]
	return at, ok, nil
}

func (m *MemoryStore) Touch(_ context.Context, key string, at time.Time, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last[key] = at
	m.sweep(ttl)
	return nil
}

// sweep drops records older than ttl so the map stays bounded by recent clients.
func (m *MemoryStore) sweep(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	cutoff := m.now().Add(-ttl)
	for k, at := range m.last {
		if at.Before(cutoff) {
			delete(m.last, k)
		}
	}
}

// Len is the number of tracked keys.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.last)
}

var _ Store = (*MemoryStore)(nil)
