package stream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/justin4957/logflow-ipwatch/internal/clock"
	"github.com/justin4957/logflow-ipwatch/internal/config"
)

// EventKind distinguishes lines from file switches
type EventKind int

const (
	// EventLine carries one complete, newline-stripped log line
	EventLine EventKind = iota
	// EventRotated is emitted each time a new day's file is opened.
	// Per-day state downstream must be discarded.
	EventRotated
)

func (k EventKind) String() string {
	switch k {
	case EventLine:
		return "line"
	case EventRotated:
		return "rotated"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one element of the follower's output sequence
type Event struct {
	Kind EventKind
	Line string
	Path string
}

// Follower tails a daily-rotating log named {dir}/{prefix}{date}. It is a
// polling state machine: it resolves today's path, waits for it to exist,
// follows it from EOF, and switches files when the date changes.
//
// A Follower is not safe for concurrent use; Next and Close must be called
// from one goroutine (Start does this for you).
type Follower struct {
	dir      string
	prefix   string
	layout   string
	interval time.Duration
	clock    clock.Clock
	waiter   Waiter

	file       *os.File
	reader     *bufio.Reader
	current    string
	offset     int64  // bytes consumed from file, including incomplete
	incomplete string // buffer for a line whose newline has not arrived yet
	waitingFor string // path the last "waiting" message was logged for
}

// NewFollower creates a follower for the configured log directory
func NewFollower(cfg *config.Config, clk clock.Clock, waiter Waiter) *Follower {
	if clk == nil {
		clk = clock.Real{}
	}
	if waiter == nil {
		waiter = TimerWaiter{}
	}
	return &Follower{
		dir:      cfg.LogDir,
		prefix:   cfg.LogPrefix,
		layout:   cfg.FollowerConfig.DateLayout,
		interval: cfg.FollowerConfig.CheckInterval(),
		clock:    clk,
		waiter:   waiter,
	}
}

// TodayPath returns the file expected for the current local date
func (f *Follower) TodayPath() string {
	return filepath.Join(f.dir, f.prefix+f.clock.Now().Format(f.layout))
}

// Current returns the path of the open file, or "" while waiting
func (f *Follower) Current() string {
	if f.file == nil {
		return ""
	}
	return f.current
}

// Next blocks until the next event is available. It only returns an error
// when ctx is done or the open file can no longer be read.
func (f *Follower) Next(ctx context.Context) (Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Event{}, err
		}

		today := f.TodayPath()

		if f.file != nil && today != f.current {
			// Drain what was already written to the old day before leaving it
			line, ok, err := f.readLine()
			if err != nil {
				return Event{}, err
			}
			if ok {
				return Event{Kind: EventLine, Line: line, Path: f.current}, nil
			}
			log.Info().Str("from", f.current).Str("to", today).Msg("Log date changed, rotating")
			f.closeFile()
		}

		if f.file == nil {
			if f.open(today) {
				return Event{Kind: EventRotated, Path: today}, nil
			}
			if err := f.waiter.Wait(ctx, f.interval); err != nil {
				return Event{}, err
			}
			continue
		}

		line, ok, err := f.readLine()
		if err != nil {
			return Event{}, err
		}
		if ok {
			return Event{Kind: EventLine, Line: line, Path: f.current}, nil
		}

		// No new data
		if err := f.waiter.Wait(ctx, f.interval); err != nil {
			return Event{}, err
		}
	}
}

// Start runs Next on its own goroutine and delivers events in order. The
// event channel is closed when the follower stops; a fatal error, if any, is
// sent on the error channel first. Cancellation is not reported as an error.
func (f *Follower) Start(ctx context.Context, bufferSize int) (<-chan Event, <-chan error) {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	events := make(chan Event, bufferSize)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(events)
		defer f.Close()

		for {
			ev, err := f.Next(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
					errs <- err
				}
				return
			}

			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, errs
}

// Close releases the open file handle
func (f *Follower) Close() error {
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	f.reader = nil
	if err != nil {
		return fmt.Errorf("failed to close %s: %w", f.current, err)
	}
	return nil
}

func (f *Follower) closeFile() {
	if err := f.Close(); err != nil {
		log.Warn().Err(err).Msg("Error closing log file")
	}
}

// open tries to start following path at EOF. Failures are logged and
// reported as false so the caller backs off and retries.
func (f *Follower) open(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if f.waitingFor != path {
				log.Info().Str("file", path).Msg("Waiting for log file")
				f.waitingFor = path
			}
			return false
		}
		log.Error().Err(err).Str("file", path).Msg("Error checking log file")
		return false
	}
	if !info.Mode().IsRegular() {
		log.Error().Str("file", path).Str("mode", info.Mode().String()).Msg("Log path is not a regular file")
		return false
	}

	file, err := os.Open(path)
	if err != nil {
		log.Error().Err(err).Str("file", path).Msg("Error opening log file")
		return false
	}

	// Seek to end of file to start tailing new content
	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		file.Close()
		log.Error().Err(err).Str("file", path).Msg("Error seeking log file")
		return false
	}

	f.file = file
	f.reader = bufio.NewReader(file)
	f.current = path
	f.offset = offset
	f.incomplete = ""
	f.waitingFor = ""

	log.Info().Str("file", path).Int64("offset", offset).Msg("Monitoring started")
	return true
}

// readLine returns the next complete line, or false when none is available
func (f *Follower) readLine() (string, bool, error) {
	for {
		chunk, err := f.reader.ReadString('\n')
		f.offset += int64(len(chunk))

		if err == nil {
			line := strings.TrimRight(f.incomplete+chunk, "\r\n")
			f.incomplete = ""
			if line == "" {
				continue
			}
			return line, true, nil
		}

		if !errors.Is(err, io.EOF) {
			return "", false, fmt.Errorf("failed to read %s: %w", f.current, err)
		}

		// Save incomplete line for next read
		f.incomplete += chunk

		truncated, err := f.checkTruncated()
		if err != nil {
			return "", false, err
		}
		if !truncated {
			return "", false, nil
		}
	}
}

// checkTruncated rewinds to the start if the file shrank below what was
// already consumed (copytruncate rotation)
func (f *Follower) checkTruncated() (bool, error) {
	info, err := f.file.Stat()
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", f.current, err)
	}
	if info.Size() >= f.offset {
		return false, nil
	}

	log.Warn().
		Str("file", f.current).
		Int64("size", info.Size()).
		Int64("offset", f.offset).
		Msg("File truncated, resetting to beginning")

	if _, err := f.file.Seek(0, io.SeekStart); err != nil {
		return false, fmt.Errorf("failed to rewind %s: %w", f.current, err)
	}
	f.reader.Reset(f.file)
	f.offset = 0
	f.incomplete = ""
	return true, nil
}
