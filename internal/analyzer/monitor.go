package analyzer

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/justin4957/logflow-ipwatch/internal/alert"
	"github.com/justin4957/logflow-ipwatch/internal/clock"
	"github.com/justin4957/logflow-ipwatch/internal/config"
	"github.com/justin4957/logflow-ipwatch/internal/metrics"
	"github.com/justin4957/logflow-ipwatch/internal/parser"
	"github.com/justin4957/logflow-ipwatch/internal/stream"
	"github.com/justin4957/logflow-ipwatch/pkg/models"
)

// Monitor filters followed lines for the marker, feeds the tracker and
// raises alerts. All of its state is confined to the goroutine calling
// HandleEvent/Run.
type Monitor struct {
	marker          string
	unattributedKey string
	window          time.Duration
	topN            int
	refresh         time.Duration

	extractor parser.IPExtractor
	tracker   *Tracker
	sink      alert.Sink
	clock     clock.Clock
	metrics   *metrics.Metrics
	board     *StatusBoard

	startedAt         time.Time
	currentFile       string
	rotations         int
	linesSeen         int64
	markerLines       int64
	unattributedLines int64
	alertsSent        int64
	lastAlert         *models.Alert
}

// NewMonitor creates a monitor. m may be nil.
func NewMonitor(cfg *config.Config, sink alert.Sink, clk clock.Clock, m *metrics.Metrics) *Monitor {
	if clk == nil {
		clk = clock.Real{}
	}

	refresh := cfg.DashboardConfig.Refresh()
	if refresh <= 0 {
		refresh = time.Second
	}

	return &Monitor{
		marker:          cfg.Marker,
		unattributedKey: cfg.DetectorConfig.UnattributedKey,
		window:          cfg.DetectorConfig.TimeWindow(),
		topN:            cfg.DashboardConfig.TopIPs,
		refresh:         refresh,
		extractor:       parser.NewExtractor(cfg.DetectorConfig.StrictIP),
		tracker:         NewTracker(cfg.DetectorConfig),
		sink:            sink,
		clock:           clk,
		metrics:         m,
		board:           NewStatusBoard(),
		startedAt:       clk.Now(),
	}
}

// Status returns the board the monitor publishes to
func (m *Monitor) Status() *StatusBoard {
	return m.board
}

// Tracker exposes the underlying tracker
func (m *Monitor) Tracker() *Tracker {
	return m.tracker
}

// Run consumes events until ctx is done or the event channel closes. A
// fatal follower error received on errs is returned; cancellation is not an
// error.
func (m *Monitor) Run(ctx context.Context, events <-chan stream.Event, errs <-chan error) error {
	ticker := time.NewTicker(m.refresh)
	defer ticker.Stop()

	m.publish()
	defer m.publish()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				if errs == nil {
					return nil
				}
				return <-errs
			}
			m.HandleEvent(ctx, ev)

		case <-ticker.C:
			m.publish()
		}
	}
}

// HandleEvent applies a single follower event
func (m *Monitor) HandleEvent(ctx context.Context, ev stream.Event) {
	switch ev.Kind {
	case stream.EventRotated:
		m.tracker.Reset()
		m.currentFile = ev.Path
		m.rotations++
		m.metrics.Rotation()
		log.Info().Str("file", ev.Path).Msg("Tracking state reset for new log file")
		m.publish()

	case stream.EventLine:
		m.HandleLine(ctx, ev.Line)
	}
}

// HandleLine processes one log line and reports whether it raised an alert
func (m *Monitor) HandleLine(ctx context.Context, line string) bool {
	m.linesSeen++
	m.metrics.LineRead()

	// Cheap rejection before any timestamp or IP work
	if !parser.ContainsMarker(line, m.marker) {
		return false
	}
	m.markerLines++
	m.metrics.MarkerLine()

	ip, ok := m.extractor.Extract(line)
	if !ok {
		m.unattributedLines++
		m.metrics.Unattributed()
		if m.unattributedKey == "" {
			log.Debug().Str("line", line).Msg("Marker line without leading IP")
			return false
		}
		ip = m.unattributedKey
	}

	now := m.clock.Now()
	m.tracker.Record(ip, now)

	if m.tracker.MaybePrune(now) {
		log.Debug().
			Int("tracked_ips", m.tracker.Len()).
			Int("alerted_ips", m.tracker.AlertedLen()).
			Msg("Pruned expired access records")
	}

	fire, count := m.tracker.ShouldAlert(ip, now)
	if !fire {
		return false
	}

	a := models.Alert{
		Timestamp: now,
		IPAddress: ip,
		Marker:    m.marker,
		Count:     count,
		Window:    m.window,
	}
	m.sink.Send(ctx, a.Message())
	m.tracker.MarkAlerted(ip, now)

	m.alertsSent++
	m.lastAlert = &a
	m.metrics.AlertSent()

	log.Info().Str("ip", ip).Int("count", count).Dur("window", m.window).Msg("Alert raised")
	return true
}

func (m *Monitor) publish() {
	now := m.clock.Now()
	m.metrics.SetTrackedIPs(m.tracker.Len())

	status := models.Status{
		Timestamp:         now,
		StartedAt:         m.startedAt,
		CurrentFile:       m.currentFile,
		Rotations:         m.rotations,
		LinesSeen:         m.linesSeen,
		MarkerLines:       m.markerLines,
		UnattributedLines: m.unattributedLines,
		TrackedIPs:        m.tracker.Len(),
		AlertedIPs:        m.tracker.AlertedLen(),
		AlertsSent:        m.alertsSent,
		TopIPs:            m.tracker.TopIPs(now, m.topN),
	}
	if m.lastAlert != nil {
		last := *m.lastAlert
		status.LastAlert = &last
	}
	m.board.Publish(status)
}
