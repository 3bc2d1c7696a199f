// Package alert delivers alert messages to the operating system's
// notification facility.
package alert

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/justin4957/logflow-ipwatch/internal/config"
	"github.com/justin4957/logflow-ipwatch/internal/metrics"
)

// Sink receives formatted alert messages. Send is fire-and-forget:
// implementations report their own failures and never surface them.
type Sink interface {
	Send(ctx context.Context, message string)
}

// Runner executes an external command
type Runner func(ctx context.Context, name string, args ...string) error

// LoggerSink hands alerts to logger(1) as `logger -p <facility> -t <tag> <message>`
// and mirrors them to the diagnostic log
type LoggerSink struct {
	config  config.AlertConfig
	run     Runner
	metrics *metrics.Metrics
}

// NewLoggerSink creates a sink that runs the configured command
func NewLoggerSink(cfg config.AlertConfig, m *metrics.Metrics) *LoggerSink {
	return &LoggerSink{
		config:  cfg,
		run:     ExecRunner,
		metrics: m,
	}
}

// WithRunner replaces the command runner
func (s *LoggerSink) WithRunner(run Runner) *LoggerSink {
	s.run = run
	return s
}

// Send mirrors message to stderr and invokes the notifier, bounded by the
// configured timeout. Failures are logged and dropped.
func (s *LoggerSink) Send(ctx context.Context, message string) {
	log.Error().Msgf("ALERT: %s", message)

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout())
	defer cancel()

	start := time.Now()
	err := s.run(ctx, s.config.Command, "-p", s.config.Facility, "-t", s.config.Tag, message)
	s.metrics.ObserveSink(time.Since(start), err)

	if err != nil {
		log.Error().
			Err(err).
			Str("command", s.config.Command).
			Dur("timeout", s.config.Timeout()).
			Msg("Error calling notifier")
	}
}

// ExecRunner runs name with args and includes its output in any error
func ExecRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	// Don't wait forever on pipes held open by a killed child's descendants
	cmd.WaitDelay = time.Second

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", name, ctx.Err())
		}
		if out := strings.TrimSpace(output.String()); out != "" {
			return fmt.Errorf("%s: %w: %s", name, err, out)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Recorder is an in-memory Sink that keeps every message
type Recorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *Recorder) Send(_ context.Context, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

// Messages returns a copy of everything sent so far
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	messages := make([]string, len(r.messages))
	copy(messages, r.messages)
	return messages
}
