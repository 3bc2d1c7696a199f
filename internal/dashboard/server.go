package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/justin4957/logflow-ipwatch/internal/config"
	"github.com/justin4957/logflow-ipwatch/pkg/models"
)

const writeWait = 5 * time.Second

// StatusSource provides the snapshot served to clients
type StatusSource interface {
	Snapshot() models.Status
}

// Server provides the read-only status dashboard
type Server struct {
	config    config.DashboardConfig
	source    StatusSource
	gatherer  prometheus.Gatherer
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex
}

// NewServer creates a new dashboard server. gatherer may be nil to omit /metrics.
func NewServer(cfg config.DashboardConfig, source StatusSource, gatherer prometheus.Gatherer) *Server {
	return &Server{
		config:   cfg,
		source:   source,
		gatherer: gatherer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // read-only status, no credentials
			},
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/status", s.handleStatus)
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/", s.handleIndex)
	return mux
}

// Start serves the dashboard until ctx is done
func (s *Server) Start(ctx context.Context) error {
	go s.broadcastLoop(ctx)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Dashboard server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("dashboard server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.closeClients()
	return server.Shutdown(shutdownCtx)
}

func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.Refresh())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.broadcast(s.source.Snapshot())
		}
	}
}

func (s *Server) broadcast(status models.Status) {
	var failed []*websocket.Conn

	s.clientsMu.RLock()
	for client := range s.clients {
		client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteJSON(status); err != nil {
			log.Debug().Err(err).Msg("WebSocket write error")
			failed = append(failed, client)
		}
	}
	s.clientsMu.RUnlock()

	for _, client := range failed {
		client.Close()
		s.removeClient(client)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}

	// Initial snapshot is written before registering so only the
	// broadcaster writes afterwards
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(s.source.Snapshot()); err != nil {
		conn.Close()
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	s.clientsMu.Unlock()

	log.Debug().Str("remote", r.RemoteAddr).Msg("WebSocket client connected")

	// Keep connection alive
	for {
		if _, _, err := conn.NextReader(); err != nil {
			s.removeClient(conn)
			conn.Close()
			break
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	delete(s.clients, conn)
}

func (s *Server) closeClients() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for client := range s.clients {
		client.Close()
		delete(s.clients, client)
	}
}

func (s *Server) clientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.source.Snapshot()); err != nil {
		log.Warn().Err(err).Msg("Failed to encode status")
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
    <title>ipwatch</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 20px; background: #1a1a1a; color: #fff; }
        .container { max-width: 1100px; margin: 0 auto; }
        h1 { color: #4CAF50; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(200px, 1fr)); gap: 20px; margin: 20px 0; }
        .card { background: #2a2a2a; padding: 20px; border-radius: 8px; border-left: 4px solid #4CAF50; }
        .value { font-size: 2em; font-weight: bold; color: #4CAF50; }
        .label { color: #999; font-size: 0.9em; }
        table { width: 100%; border-collapse: collapse; background: #2a2a2a; }
        td, th { padding: 8px; text-align: left; border-bottom: 1px solid #333; font-family: monospace; }
        .alert { background: #d32f2f; padding: 15px; border-radius: 8px; margin: 10px 0; }
        .status { color: #4CAF50; font-size: 0.9em; }
    </style>
</head>
<body>
    <div class="container">
        <h1>ipwatch</h1>
        <div class="status" id="status">Connecting to server...</div>
        <div class="status" id="file"></div>

        <div class="grid">
            <div class="card"><div class="label">Lines read</div><div class="value" id="lines">0</div></div>
            <div class="card"><div class="label">Marker hits</div><div class="value" id="markers">0</div></div>
            <div class="card"><div class="label">Tracked IPs</div><div class="value" id="tracked">0</div></div>
            <div class="card"><div class="label">Alerts sent</div><div class="value" id="alerts">0</div></div>
        </div>

        <div id="last-alert"></div>

        <h2>Top IPs in window</h2>
        <table><thead><tr><th>IP</th><th>Hits</th></tr></thead><tbody id="top"></tbody></table>
    </div>

    <script>
        const ws = new WebSocket('ws://' + window.location.host + '/ws');
        const statusEl = document.getElementById('status');

        ws.onopen = () => { statusEl.textContent = 'Connected'; };
        ws.onclose = () => { statusEl.textContent = 'Disconnected'; };

        ws.onmessage = (event) => {
            const data = JSON.parse(event.data);
            document.getElementById('file').textContent = data.current_file || 'waiting for log file';
            document.getElementById('lines').textContent = data.lines_seen;
            document.getElementById('markers').textContent = data.marker_lines;
            document.getElementById('tracked').textContent = data.tracked_ips;
            document.getElementById('alerts').textContent = data.alerts_sent;

            const last = document.getElementById('last-alert');
            last.innerHTML = '';
            if (data.last_alert) {
                const div = document.createElement('div');
                div.className = 'alert';
                div.textContent = data.last_alert.timestamp + ' ' + data.last_alert.ip_address +
                    ' hit ' + data.last_alert.marker + ' ' + data.last_alert.count + ' times';
                last.appendChild(div);
            }

            const top = document.getElementById('top');
            top.innerHTML = '';
            (data.top_ips || []).forEach((row) => {
                const tr = document.createElement('tr');
                const ip = document.createElement('td');
                const count = document.createElement('td');
                ip.textContent = row.ip;
                count.textContent = row.count;
                tr.appendChild(ip);
                tr.appendChild(count);
                top.appendChild(tr);
            });
        };
    </script>
</body>
</html>`
