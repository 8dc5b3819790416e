package latest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_CommitsResult(t *testing.T) {
	l := New[string, int]()

	v, err := l.Load(context.Background(), "order-1", func(context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	got, ok := l.Latest("order-1")
	assert.True(t, ok)
	assert.Equal(t, 42, got)
	assert.Equal(t, uint64(1), l.Generation("order-1"))
}

func TestLoader_NewerLoadSupersedesOlder(t *testing.T) {
	l := New[string, string]()
	started := make(chan struct{})
	oldErr := make(chan error, 1)

	go func() {
		_, err := l.Load(context.Background(), "k", func(ctx context.Context) (string, error) {
			close(started)
			<-ctx.Done()
			return "old", nil
		})
		oldErr <- err
	}()
	<-started

	v, err := l.Load(context.Background(), "k", func(context.Context) (string, error) { return "new", nil })
	require.NoError(t, err)
	assert.Equal(t, "new", v)

	select {
	case err := <-oldErr:
		assert.ErrorIs(t, err, ErrStale)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded load was not cancelled")
	}

	latest, _ := l.Latest("k")
	assert.Equal(t, "new", latest, "stale result must never be committed")
}

func TestLoader_CancelDiscardsResult(t *testing.T) {
	l := New[int, string]()
	started := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		_, err := l.Load(context.Background(), 7, func(ctx context.Context) (string, error) {
			close(started)
			<-ctx.Done()
			return "late", nil
		})
		done <- err
	}()
	<-started
	l.Cancel(7)

	assert.ErrorIs(t, <-done, ErrStale)
	_, ok := l.Latest(7)
	assert.False(t, ok)
}

func TestLoader_ErrorIsNotCommitted(t *testing.T) {
	l := New[string, int]()
	_, _ = l.Load(context.Background(), "k", func(context.Context) (int, error) { return 1, nil })

	boom := errors.New("boom")
	_, err := l.Load(context.Background(), "k", func(context.Context) (int, error) { return 2, boom })
	assert.ErrorIs(t, err, boom)

	v, _ := l.Latest("k")
	assert.Equal(t, 1, v)
}

func TestLoader_KeysAreIndependent(t *testing.T) {
	l := New[string, int]()
	a, err := l.Load(context.Background(), "a", func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	b, err := l.Load(context.Background(), "b", func(context.Context) (int, error) { return 2, nil })
	require.NoError(t, err)
	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)

	l.Forget("a")
	_, ok := l.Latest("a")
	assert.False(t, ok)
	assert.Equal(t, uint64(0), l.Generation("a"))
}
