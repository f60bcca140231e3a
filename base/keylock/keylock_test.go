package keylock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockSerializesSameKey(t *testing.T) {
	kl := New()

	counter := 0
	wg := sync.WaitGroup{}
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kl.Lock("auction-1")
			defer kl.Unlock("auction-1")
			counter++
		}()
	}
	wg.Wait()

	require.Equal(t, 100, counter)
}

func TestDifferentKeysDoNotBlock(t *testing.T) {
	kl := New()

	kl.Lock("a")
	done := make(chan struct{})
	go func() {
		kl.Lock("b")
		kl.Unlock("b")
		close(done)
	}()
	<-done
	kl.Unlock("a")
}

func TestEntriesReleased(t *testing.T) {
	kl := New()

	kl.Lock("a")
	kl.Unlock("a")

	kl.mu.Lock()
	defer kl.mu.Unlock()
	require.Empty(t, kl.entries)
}
