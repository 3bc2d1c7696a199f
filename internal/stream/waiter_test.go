package stream

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerWaiter(t *testing.T) {
	start := time.Now()
	require.NoError(t, TimerWaiter{}.Wait(context.Background(), 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestTimerWaiter_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := TimerWaiter{}.Wait(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNotifyWaiter_WakesOnMatchingWrite(t *testing.T) {
	dir := t.TempDir()
	waiter, err := NewNotifyWaiter(dir, testPrefix)
	require.NoError(t, err)
	defer waiter.Close()

	go func() {
		time.Sleep(50 * time.Millisecond)
		os.WriteFile(filepath.Join(dir, testPrefix+"2026-10-14"), []byte("1.2.3.4 x\n"), 0o644)
	}()

	start := time.Now()
	require.NoError(t, waiter.Wait(context.Background(), 10*time.Second))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNotifyWaiter_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	waiter, err := NewNotifyWaiter(dir, testPrefix)
	require.NoError(t, err)
	defer waiter.Close()

	go func() {
		os.WriteFile(filepath.Join(dir, "error_log"), []byte("noise\n"), 0o644)
	}()

	start := time.Now()
	require.NoError(t, waiter.Wait(context.Background(), 200*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}

func TestNotifyWaiter_Cancelled(t *testing.T) {
	waiter, err := NewNotifyWaiter(t.TempDir(), testPrefix)
	require.NoError(t, err)
	defer waiter.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, waiter.Wait(ctx, time.Minute), context.DeadlineExceeded)
}

func TestNewNotifyWaiter_MissingDirectory(t *testing.T) {
	_, err := NewNotifyWaiter(filepath.Join(t.TempDir(), "absent"), testPrefix)
	assert.Error(t, err)
}
