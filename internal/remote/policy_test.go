package remote

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transient() error {
	return NewError("get", "b", "k", ErrTransient, io.ErrUnexpectedEOF)
}

func TestPolicy_RetriesTransientUntilSuccess(t *testing.T) {
	var retried []int
	p := Policy{MaxAttempts: 4, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond,
		OnRetry: func(attempt int, err error) { retried = append(retried, attempt) }}

	n, err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		if attempt < 3 {
			return transient()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestPolicy_ExhaustsAttempts(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

	n, err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		return transient()
	})
	require.Error(t, err)
	assert.Equal(t, 3, n)
	assert.True(t, IsTransient(err))
}

func TestPolicy_PermanentErrorStopsImmediately(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: time.Millisecond}

	n, err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		return NewError("get", "b", "k", ErrNotFound, errors.New("404"))
	})
	assert.Equal(t, 1, n)
	assert.True(t, IsNotFound(err))
}

func TestPolicy_SingleAttempt(t *testing.T) {
	n, err := Policy{}.Do(context.Background(), func(ctx context.Context, attempt int) error {
		return transient()
	})
	assert.Equal(t, 1, n)
	assert.True(t, IsTransient(err))
}

func TestPolicy_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 10, BaseDelay: time.Hour, MaxDelay: time.Hour}

	done := make(chan struct{})
	var n int
	var err error
	go func() {
		defer close(done)
		n, err = p.Do(ctx, func(ctx context.Context, attempt int) error {
			return transient()
		})
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancel")
	}
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, err, context.Canceled)
}
