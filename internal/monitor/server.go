package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/leshan-fleet/internal/events"
	"github.com/muurk/leshan-fleet/internal/logging"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// clientBuffer is the bus subscription size per WebSocket client
	clientBuffer = 256
)

// Config holds the monitor configuration
type Config struct {
	// Addr is the listen address (e.g., "127.0.0.1:8081", ":0")
	Addr string
}

// DeviceStatus is the latest known state of one device
type DeviceStatus struct {
	events.Event
	Events int `json:"events"`
}

// Status is the /status response
type Status struct {
	RunID    string         `json:"run_id"`
	Aborted  bool           `json:"aborted"`
	Finished int            `json:"finished"`
	Devices  []DeviceStatus `json:"devices"`
}

// Server streams run events to HTTP clients
type Server struct {
	config     *Config
	bus        *events.Bus
	upgrader   websocket.Upgrader
	listener   net.Listener
	httpServer *http.Server
	wg         sync.WaitGroup

	mu          sync.Mutex
	runID       string
	aborted     bool
	devices     map[string]*DeviceStatus
	order       []string
	activeConns map[string]*websocket.Conn

	unsubscribe func()
	collected   chan struct{}
}

// New creates a server and starts collecting events from bus
func New(config *Config, bus *events.Bus) *Server {
	s := &Server{
		config:      config,
		bus:         bus,
		devices:     make(map[string]*DeviceStatus),
		activeConns: make(map[string]*websocket.Conn),
		collected:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	ch, unsubscribe := bus.Subscribe(0)
	s.unsubscribe = unsubscribe
	go s.collect(ch)

	return s
}

// Handler returns the HTTP handler serving /events and /status
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/status", s.handleStatus)
	return mux
}

// Start listens on the configured address and serves in the background
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logging.Info("Monitor listening", zap.String("addr", listener.Addr().String()))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Monitor server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound listen address, or "" before Start
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// collect keeps the /status snapshot current
func (s *Server) collect(ch <-chan events.Event) {
	defer close(s.collected)
	for e := range ch {
		s.record(e)
	}
}

func (s *Server) record(e events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.RunID != "" {
		s.runID = e.RunID
	}
	if e.State == events.StateAborting {
		s.aborted = true
	}
	if e.Endpoint == "" {
		return
	}

	d, ok := s.devices[e.Endpoint]
	if !ok {
		d = &DeviceStatus{}
		s.devices[e.Endpoint] = d
		s.order = append(s.order, e.Endpoint)
	}
	d.Event = e
	d.Events++
}

// Snapshot returns the current status
func (s *Server) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		RunID:   s.runID,
		Aborted: s.aborted,
		Devices: make([]DeviceStatus, 0, len(s.order)),
	}
	for _, ep := range s.order {
		d := s.devices[ep]
		if d.Terminal() {
			st.Finished++
		}
		st.Devices = append(st.Devices, *d)
	}
	return st
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Snapshot()); err != nil {
		logging.Debug("Failed to write status", zap.Error(err))
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	remoteAddr := r.RemoteAddr

	// Subscribe before the upgrade so no event is missed once the client
	// sees the handshake complete
	ch, unsubscribe := s.bus.Subscribe(clientBuffer)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		unsubscribe()
		logging.Warn("WebSocket upgrade failed", zap.String("remote_addr", remoteAddr), zap.Error(err))
		return
	}

	s.mu.Lock()
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()
	logging.Debug("Monitor client connected", zap.String("remote_addr", remoteAddr))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.readPump(conn, unsubscribe)
	}()

	s.writePump(conn, remoteAddr, ch)
}

// readPump discards client messages and unsubscribes when the peer goes away
func (s *Server) readPump(conn *websocket.Conn, unsubscribe func()) {
	defer unsubscribe()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump forwards events until the subscription is closed
func (s *Server) writePump(conn *websocket.Conn, remoteAddr string, ch <-chan events.Event) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
		logging.Debug("Monitor client disconnected", zap.String("remote_addr", remoteAddr))
	}()

	for {
		select {
		case e, ok := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"))
				return
			}
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Shutdown stops the server. Subscriptions are closed so every client gets
// a close frame.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Debug("Shutting down monitor")

	s.unsubscribe()
	<-s.collected

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Debug("Closing monitor client", zap.String("remote_addr", addr))
		_ = conn.SetReadDeadline(time.Now())
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logging.Warn("Monitor shutdown timeout, forcing close")
		return ctx.Err()
	}
	return err
}

// ActiveConnections returns the number of connected WebSocket clients
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}
