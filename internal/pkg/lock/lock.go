// Package lock provides per-key locking for read-modify-write sequences
// such as wallet purchases and match handshake updates.
package lock

import (
	"context"
	"sync"
	"time"
)

// keyMutex is a one-slot semaphore so that waiting can be abandoned.
type keyMutex struct {
	slot chan struct{}
	// refCount counts holders and waiters; the entry is dropped when it reaches zero.
	refCount int
}

// KeyLock serializes work per string key. Different keys never block each other.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*keyMutex
}

// NewKeyLock creates a new KeyLock instance.
func NewKeyLock() *KeyLock {
	return &KeyLock{locks: make(map[string]*keyMutex)}
}

// ref retrieves or creates the mutex for key and registers the caller on it.
func (kl *KeyLock) ref(key string) *keyMutex {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	l, ok := kl.locks[key]
	if !ok {
		l = &keyMutex{slot: make(chan struct{}, 1)}
		kl.locks[key] = l
	}
	l.refCount++
	return l
}

func (kl *KeyLock) unref(key string, l *keyMutex) {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	l.refCount--
	if l.refCount == 0 {
		delete(kl.locks, key)
	}
}

// Lock acquires the lock for key, giving up when ctx is done.
func (kl *KeyLock) Lock(ctx context.Context, key string) error {
	l := kl.ref(key)
	select {
	case l.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		kl.unref(key, l)
		return ctx.Err()
	}
}

// Unlock releases the lock for key.
func (kl *KeyLock) Unlock(key string) {
	kl.mu.Lock()
	l, ok := kl.locks[key]
	kl.mu.Unlock()
	if !ok {
		return
	}
	<-l.slot
	kl.unref(key, l)
}

// WithLockContext executes fn while holding the lock for key. It returns ctx's error
// when the caller is cancelled while waiting, and ErrLockTimeout after timeout.
// A non-positive timeout waits as long as ctx allows.
func (kl *KeyLock) WithLockContext(ctx context.Context, key string, timeout time.Duration, fn func() error) error {
	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := kl.Lock(waitCtx, key); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return ErrLockTimeout
	}
	defer kl.Unlock(key)
	return fn()
}

// WalletKey is the lock key guarding a user's balance.
func WalletKey(userID string) string {
	return "wallet:" + userID
}

// MatchKey is the lock key guarding a match's connection handshake.
func MatchKey(matchID string) string {
	return "match:" + matchID
}
