package stream

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Waiter suspends the follower between polls
type Waiter interface {
	Wait(ctx context.Context, d time.Duration) error
}

// TimerWaiter sleeps for the full interval
type TimerWaiter struct{}

func (TimerWaiter) Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NotifyWaiter sleeps like TimerWaiter but wakes early when a file matching
// the log prefix is written or created in the watched directory. The poll
// interval stays as the fallback if fsnotify misses events.
type NotifyWaiter struct {
	watcher *fsnotify.Watcher
	dir     string
	prefix  string
}

// NewNotifyWaiter watches dir for changes to files starting with prefix
func NewNotifyWaiter(dir, prefix string) (*NotifyWaiter, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	log.Debug().Str("dir", dir).Str("prefix", prefix).Msg("Watching log directory")

	return &NotifyWaiter{
		watcher: watcher,
		dir:     dir,
		prefix:  prefix,
	}, nil
}

func (n *NotifyWaiter) Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	events := n.watcher.Events
	errs := n.watcher.Errors

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-timer.C:
			return nil

		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if n.relevant(event) {
				return nil
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Warn().Err(err).Str("dir", n.dir).Msg("Watcher error")
		}
	}
}

func (n *NotifyWaiter) relevant(event fsnotify.Event) bool {
	if !strings.HasPrefix(filepath.Base(event.Name), n.prefix) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create) != 0
}

// Close stops watching the directory
func (n *NotifyWaiter) Close() error {
	return n.watcher.Close()
}
