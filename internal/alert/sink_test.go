package alert

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justin4957/logflow-ipwatch/internal/config"
	"github.com/justin4957/logflow-ipwatch/internal/metrics"
)

type call struct {
	name        string
	args        []string
	hasDeadline bool
}

func TestLoggerSink_InvokesCommand(t *testing.T) {
	var calls []call
	sink := NewLoggerSink(config.DefaultConfig().AlertConfig, nil).WithRunner(
		func(ctx context.Context, name string, args ...string) error {
			_, ok := ctx.Deadline()
			calls = append(calls, call{name: name, args: args, hasDeadline: ok})
			return nil
		})

	sink.Send(context.Background(), "[ERROR] SUSPICIOUS ACTIVITY: IP 1.2.3.4 accessed today_download 10 times in 10 minutes")

	require.Len(t, calls, 1)
	assert.Equal(t, "logger", calls[0].name)
	assert.Equal(t, []string{
		"-p", "user.error",
		"-t", "WebAppMonitor",
		"[ERROR] SUSPICIOUS ACTIVITY: IP 1.2.3.4 accessed today_download 10 times in 10 minutes",
	}, calls[0].args)
	assert.True(t, calls[0].hasDeadline)
}

func TestLoggerSink_FailureIsSwallowed(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	sink := NewLoggerSink(config.DefaultConfig().AlertConfig, m).WithRunner(
		func(context.Context, string, ...string) error {
			return errors.New("exit status 1")
		})

	assert.NotPanics(t, func() {
		sink.Send(context.Background(), "message")
	})
}

func TestLoggerSink_TimeoutBoundsHungNotifier(t *testing.T) {
	cfg := config.DefaultConfig().AlertConfig
	cfg.TimeoutSeconds = 1

	sink := NewLoggerSink(cfg, nil).WithRunner(
		func(ctx context.Context, _ string, _ ...string) error {
			<-ctx.Done()
			return ctx.Err()
		})

	start := time.Now()
	sink.Send(context.Background(), "message")
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, time.Second)
	assert.Less(t, elapsed, 5*time.Second)
}

func TestExecRunner(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	ctx := context.Background()

	assert.NoError(t, ExecRunner(ctx, "sh", "-c", "exit 0"))

	err := ExecRunner(ctx, "sh", "-c", "echo broken >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")

	assert.Error(t, ExecRunner(ctx, "ipwatch-no-such-command"))
}

func TestExecRunner_Timeout(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := ExecRunner(ctx, "sleep", "10")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	r.Send(context.Background(), "a")
	r.Send(context.Background(), "b")

	messages := r.Messages()
	assert.Equal(t, []string{"a", "b"}, messages)

	messages[0] = "mutated"
	assert.Equal(t, "a", r.Messages()[0])
}
