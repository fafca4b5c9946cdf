package graph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLocker_SameKeyBlocks(t *testing.T) {
	l := newKeyedLocker()
	unlock, err := l.Lock(context.Background(), "P")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		release, err := l.Lock(context.Background(), "P")
		if err == nil {
			close(acquired)
			release()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first was held")
	case <-time.After(30 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}

	assert.Eventually(t, func() bool { return l.size() == 0 }, time.Second, 5*time.Millisecond)
}

func TestKeyedLocker_DifferentKeysIndependent(t *testing.T) {
	l := newKeyedLocker()
	unlockA, err := l.Lock(context.Background(), "A")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := l.Lock(ctx, "B")
	require.NoError(t, err)
	unlockB()

	assert.Equal(t, 1, l.size())
}

func TestKeyedLocker_ContextCancelled(t *testing.T) {
	l := newKeyedLocker()
	unlock, err := l.Lock(context.Background(), "P")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "P")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()
	assert.Equal(t, 0, l.size())
}
