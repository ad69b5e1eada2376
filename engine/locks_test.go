package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedLocks_ReleasedKeysAreReaped(t *testing.T) {
	k := keyedLocks{locks: make(map[string]*keyLock)}

	unlock := k.lock("alice|2025-03-10")
	unlock()

	k.mu.Lock()
	defer k.mu.Unlock()
	assert.Empty(t, k.locks)
}

func TestKeyedLocks_ContendedKeyReapedAfterLastHolder(t *testing.T) {
	k := keyedLocks{locks: make(map[string]*keyLock)}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.lock("alice|2025-03-10")
			unlock()
		}()
	}
	wg.Wait()

	k.mu.Lock()
	defer k.mu.Unlock()
	assert.Empty(t, k.locks)
}

func TestKeyedLocks_IndependentKeysDoNotBlock(t *testing.T) {
	k := keyedLocks{locks: make(map[string]*keyLock)}

	unlockA := k.lock("alice|2025-03-10")
	unlockB := k.lock("bob|2025-03-10")

	k.mu.Lock()
	assert.Len(t, k.locks, 2)
	k.mu.Unlock()

	unlockB()
	unlockA()

	k.mu.Lock()
	defer k.mu.Unlock()
	assert.Empty(t, k.locks)
}
