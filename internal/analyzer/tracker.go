package analyzer

import (
	"sort"
	"time"

	"github.com/justin4957/logflow-ipwatch/internal/config"
	"github.com/justin4957/logflow-ipwatch/pkg/models"
)

// Tracker keeps per-IP marker hit history over a sliding window and the
// time each IP was last alerted. It is owned by a single goroutine and does
// no locking.
type Tracker struct {
	window          time.Duration
	threshold       int
	cleanupInterval time.Duration

	history     map[string][]time.Time // chronological per IP, pruned from the front
	alerted     map[string]time.Time
	lastCleanup time.Time
}

// NewTracker creates an empty tracker
func NewTracker(cfg config.DetectorConfig) *Tracker {
	return &Tracker{
		window:          cfg.TimeWindow(),
		threshold:       cfg.ThresholdCount,
		cleanupInterval: cfg.CleanupInterval(),
		history:         make(map[string][]time.Time, 100),
		alerted:         make(map[string]time.Time),
	}
}

// Record appends an access for ip at now
func (t *Tracker) Record(ip string, now time.Time) {
	t.history[ip] = append(t.history[ip], now)
}

// Prune drops timestamps at or before now-window, removes IPs left empty,
// and forgets alerts issued at or before now-window
func (t *Tracker) Prune(now time.Time) {
	cutoff := now.Add(-t.window)

	for ip, times := range t.history {
		keep := 0
		for keep < len(times) && !times[keep].After(cutoff) {
			keep++
		}
		if keep == len(times) {
			delete(t.history, ip)
			continue
		}
		if keep > 0 {
			n := copy(times, times[keep:])
			t.history[ip] = times[:n]
		}
	}

	for ip, last := range t.alerted {
		if !last.After(cutoff) {
			delete(t.alerted, ip)
		}
	}

	t.lastCleanup = now
}

// MaybePrune runs Prune if at least one cleanup interval has passed since
// the last sweep. It reports whether a sweep ran.
func (t *Tracker) MaybePrune(now time.Time) bool {
	if !t.lastCleanup.IsZero() && now.Sub(t.lastCleanup) < t.cleanupInterval {
		return false
	}
	t.Prune(now)
	return true
}

// RecentCount counts ip's accesses strictly inside (now-window, now]
func (t *Tracker) RecentCount(ip string, now time.Time) int {
	cutoff := now.Add(-t.window)
	count := 0
	for _, ts := range t.history[ip] {
		if ts.After(cutoff) {
			count++
		}
	}
	return count
}

// ShouldAlert reports whether ip is at or over the threshold and has not
// been alerted within the last window. The count is recomputed here, so the
// answer never depends on when Prune last ran.
func (t *Tracker) ShouldAlert(ip string, now time.Time) (bool, int) {
	count := t.RecentCount(ip, now)
	if count < t.threshold {
		return false, count
	}
	if last, ok := t.alerted[ip]; ok && now.Sub(last) < t.window {
		return false, count
	}
	return true, count
}

// MarkAlerted records that an alert for ip was emitted at now
func (t *Tracker) MarkAlerted(ip string, now time.Time) {
	t.alerted[ip] = now
}

// Reset forgets all history and alert state
func (t *Tracker) Reset() {
	t.history = make(map[string][]time.Time, 100)
	t.alerted = make(map[string]time.Time)
}

// Len returns the number of IPs with retained history
func (t *Tracker) Len() int {
	return len(t.history)
}

// AlertedLen returns the number of IPs in alert state
func (t *Tracker) AlertedLen() int {
	return len(t.alerted)
}

// TopIPs returns up to limit IPs ordered by recent count, highest first
func (t *Tracker) TopIPs(now time.Time, limit int) []models.IPCount {
	if len(t.history) == 0 || limit <= 0 {
		return nil
	}

	// Pre-allocate slice with exact capacity needed
	sorted := make([]models.IPCount, 0, len(t.history))
	for ip := range t.history {
		if count := t.RecentCount(ip, now); count > 0 {
			sorted = append(sorted, models.IPCount{IP: ip, Count: count})
		}
	}

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Count != sorted[j].Count {
			return sorted[i].Count > sorted[j].Count
		}
		return sorted[i].IP < sorted[j].IP
	})

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}
