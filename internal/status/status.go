// Package status provides a Unix socket HTTP server exposing the running
// router's state: a point-in-time snapshot over GET /status, and the
// same snapshot pushed over a WebSocket on every change via GET /watch.
// The "mipd status" CLI command is its client.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// Snapshot is the router state exposed to status clients.
type Snapshot struct {
	MIP              byte     `json:"mip"`
	Interfaces       []string `json:"interfaces"`
	ARPCacheSize     int      `json:"arp_cache_size"`
	PendingARPCount  int      `json:"pending_arp_count"`
	ForwardFIFOLen   int      `json:"forward_fifo_len"`
	PingConnected    bool     `json:"ping_connected"`
	RoutingConnected bool     `json:"routing_connected"`
}

// SnapshotFunc returns the current router state.
type SnapshotFunc func() Snapshot

// Server listens on a Unix domain socket and serves the router's status
// as JSON, plus a WebSocket feed of the same snapshot on every change.
type Server struct {
	socketPath string
	log        *slog.Logger

	mu       sync.Mutex
	snapshot SnapshotFunc
	watchers map[*watcher]struct{}

	listener   net.Listener
	httpServer *http.Server
}

type watcher struct {
	conn *websocket.Conn
	ch   chan Snapshot
}

// NewServer creates a status server listening on socketPath once Run is
// called.
func NewServer(socketPath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		socketPath: socketPath,
		log:        logger.With("component", "status"),
		watchers:   make(map[*watcher]struct{}),
	}
}

// SetSnapshotFunc sets the function used to answer GET /status and to
// seed new /watch connections.
func (s *Server) SetSnapshotFunc(fn SnapshotFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = fn
}

// Run binds the Unix socket and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	s.listener = ln

	if err := os.Chmod(s.socketPath, 0666); err != nil {
		s.log.Warn("setting socket permissions", "error", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /watch", s.handleWatch)

	s.httpServer = &http.Server{Handler: mux}
	s.log.Info("status server started", "socket", s.socketPath)

	errCh := make(chan error, 1)
	go func() {
		err := s.httpServer.Serve(ln)
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Close removes the socket file. Safe to call even if Run was never
// started.
func (s *Server) Close() {
	if s.listener != nil {
		_ = os.Remove(s.socketPath)
	}
}

// Publish pushes snap to every connected /watch client.
func (s *Server) Publish(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for w := range s.watchers {
		select {
		case w.ch <- snap:
		default:
			s.log.Debug("dropping status update, watcher not keeping up")
		}
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	fn := s.snapshot
	s.mu.Unlock()

	if fn == nil {
		http.Error(w, "router not ready", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(fn()); err != nil {
		s.log.Error("encoding status response", "error", err)
	}
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("websocket accept failed", "error", err)
		return
	}
	defer func() {
		_ = c.Close(websocket.StatusNormalClosure, "")
	}()

	ctx := r.Context()
	wt := &watcher{conn: c, ch: make(chan Snapshot, 8)}

	s.mu.Lock()
	s.watchers[wt] = struct{}{}
	fn := s.snapshot
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.watchers, wt)
		s.mu.Unlock()
	}()

	if fn != nil {
		if data, err := json.Marshal(fn()); err == nil {
			_ = c.Write(ctx, websocket.MessageText, data)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-wt.ch:
			data, err := json.Marshal(snap)
			if err != nil {
				continue
			}
			if err := c.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		}
	}
}

// FetchStatus connects to a running status server over its Unix socket
// and returns the current snapshot. Used by "mipd status".
func FetchStatus(socketPath string) (*Snapshot, error) {
	client := &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				return net.Dial("unix", socketPath)
			},
		},
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get("http://mipd/status")
	if err != nil {
		return nil, fmt.Errorf("connecting to status socket: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding status response: %w", err)
	}
	return &snap, nil
}

// WatchStatus dials a running status server's /watch endpoint over its
// Unix socket and invokes fn with every snapshot received, until ctx is
// cancelled or the connection drops. Used by "mipd status --watch".
func WatchStatus(ctx context.Context, socketPath string, fn func(Snapshot)) error {
	httpClient := &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				return net.Dial("unix", socketPath)
			},
		},
	}

	conn, _, err := websocket.Dial(ctx, "http://mipd/watch", &websocket.DialOptions{HTTPClient: httpClient})
	if err != nil {
		return fmt.Errorf("dialing status watch socket: %w", err)
	}
	defer func() {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			continue
		}
		fn(snap)
	}
}
