// Package lock provides per-auction locking to cut database lock
// contention when many requests hit the same auction at once. The
// database row lock remains the correctness mechanism; this only
// serializes operations from the local process before they queue on
// the row lock.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// keyedMutex wraps a mutex with reference counting for cleanup.
type keyedMutex struct {
	mu       sync.Mutex
	refCount int
}

// KeyedLock provides per-key locking for auction operations.
type KeyedLock struct {
	locks sync.Map // map[uuid.UUID]*keyedMutex
	pool  sync.Pool
}

// NewKeyedLock creates a new KeyedLock instance.
func NewKeyedLock() *KeyedLock {
	return &KeyedLock{
		pool: sync.Pool{
			New: func() any {
				return &keyedMutex{}
			},
		},
	}
}

// getLock retrieves or creates a mutex for the given key.
func (kl *KeyedLock) getLock(key uuid.UUID) *keyedMutex {
	// Try to load existing lock
	if v, ok := kl.locks.Load(key); ok {
		return v.(*keyedMutex)
	}

	// Create new lock from pool
	newLock := kl.pool.Get().(*keyedMutex)
	newLock.refCount = 0

	// Store or load existing (handles race condition)
	actual, loaded := kl.locks.LoadOrStore(key, newLock)
	if loaded {
		// Another goroutine created the lock first, return ours to pool
		kl.pool.Put(newLock)
	}
	return actual.(*keyedMutex)
}

// Lock acquires the lock for a key.
func (kl *KeyedLock) Lock(key uuid.UUID) {
	lock := kl.getLock(key)
	lock.mu.Lock()
	lock.refCount++
}

// Unlock releases the lock for a key.
func (kl *KeyedLock) Unlock(key uuid.UUID) {
	if v, ok := kl.locks.Load(key); ok {
		lock := v.(*keyedMutex)
		lock.refCount--
		lock.mu.Unlock()
	}
}

// LockWithTimeout attempts to acquire the lock with a timeout.
// Returns true if the lock was acquired, false if timeout occurred.
func (kl *KeyedLock) LockWithTimeout(ctx context.Context, key uuid.UUID, timeout time.Duration) bool {
	lock := kl.getLock(key)

	done := make(chan struct{})

	go func() {
		lock.mu.Lock()
		close(done)
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-done:
		lock.refCount++
		return true
	case <-timeoutCtx.Done():
		// The waiting goroutine will eventually acquire the mutex;
		// make sure it is released again.
		go func() {
			<-done
			lock.mu.Unlock()
		}()
		return false
	}
}

// WithLock executes a function while holding the key's lock.
// This is a convenience method that ensures proper lock/unlock.
func (kl *KeyedLock) WithLock(key uuid.UUID, fn func() error) error {
	kl.Lock(key)
	defer kl.Unlock(key)
	return fn()
}

// WithLockContext executes a function while holding the key's lock,
// with context support for cancellation.
func (kl *KeyedLock) WithLockContext(ctx context.Context, key uuid.UUID, timeout time.Duration, fn func() error) error {
	if !kl.LockWithTimeout(ctx, key, timeout) {
		return ErrLockTimeout
	}
	defer kl.Unlock(key)

	// Check if context was cancelled while waiting for lock
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fn()
	}
}
