package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/crowdsync/internal/core/observability/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// StreamConfig holds stream server configuration
type StreamConfig struct {
	Addr         string
	MaxClients   int
	BufferFrames int
	WriteTimeout time.Duration
}

// DefaultStreamConfig returns default stream configuration
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Addr:         "127.0.0.1:8080",
		MaxClients:   64,
		BufferFrames: 8,
		WriteTimeout: 5 * time.Second,
	}
}

type client struct {
	conn    *websocket.Conn
	frames  chan []byte
	dropped atomic.Uint64
}

// Stream fans simulation frames out to websocket viewers. A slow viewer
// loses frames instead of stalling the simulation.
type Stream struct {
	config StreamConfig
	logger log.Log

	mu      sync.Mutex
	clients map[*client]struct{}

	running atomic.Bool
	closed  atomic.Bool
	httpSrv *http.Server
	addr    net.Addr

	published atomic.Uint64
}

func NewStream(config StreamConfig, logger log.Log) *Stream {
	if config.BufferFrames <= 0 {
		config.BufferFrames = 1
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Stream{
		config:  config,
		logger:  logger.With(log.String("component", "stream")),
		clients: make(map[*client]struct{}),
	}
}

// Handler serves the websocket endpoint.
func (s *Stream) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Start listens on the configured address in the background.
func (s *Stream) Start(ctx context.Context) error {
	if s.closed.Load() {
		return ErrServerClosed
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerAlreadyRunning
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.config.Addr)
	if err != nil {
		s.running.Store(false)
		s.logger.Error("Failed to listen", log.String("addr", s.config.Addr), log.Error(err))
		return err
	}

	s.addr = ln.Addr()
	s.httpSrv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Stream server stopped", log.Error(err))
		}
	}()

	s.logger.Info("Stream listening", log.String("addr", s.addr.String()))
	return nil
}

// Addr is the bound address once started.
func (s *Stream) Addr() net.Addr { return s.addr }

// Stop disconnects every viewer and shuts the listener down. Stopping a
// stream that was never started closes it and reports ErrServerNotRunning.
func (s *Stream) Stop(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrServerClosed
	}

	s.mu.Lock()
	for c := range s.clients {
		s.removeLocked(c)
	}
	s.mu.Unlock()

	if !s.running.Load() {
		return ErrServerNotRunning
	}
	s.logger.Info("Stopping stream", log.Uint64("published", s.published.Load()))
	return s.httpSrv.Shutdown(ctx)
}

// Clients is the number of connected viewers.
func (s *Stream) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Publish queues frame for every viewer without blocking.
func (s *Stream) Publish(frame Frame) error {
	if s.closed.Load() {
		return ErrServerClosed
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.frames <- payload:
		default:
			c.dropped.Add(1)
		}
	}
	s.published.Add(1)
	return nil
}

func (s *Stream) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.closed.Load() {
		http.Error(w, ErrServerClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	if s.full() {
		http.Error(w, ErrMaxClientsReached.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", log.Error(err))
		return
	}

	c := &client{
		conn:   conn,
		frames: make(chan []byte, s.config.BufferFrames),
	}
	if err := s.register(c); err != nil {
		s.logger.Debug("Viewer rejected", log.Error(err))
		_ = conn.Close()
		return
	}

	s.logger.Debug("Viewer connected", log.String("remote", conn.RemoteAddr().String()))

	go s.readLoop(c)
	s.writeLoop(c)
}

func (s *Stream) full() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.MaxClients > 0 && len(s.clients) >= s.config.MaxClients
}

// register adds c unless the stream was stopped or filled up while the
// connection was being upgraded. Stop clears the clients under the same
// lock, so a registered client is always released by Stop.
func (s *Stream) register(c *client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return ErrServerClosed
	}
	if s.config.MaxClients > 0 && len(s.clients) >= s.config.MaxClients {
		return ErrMaxClientsReached
	}
	s.clients[c] = struct{}{}
	return nil
}

// readLoop discards viewer input and notices disconnects.
func (s *Stream) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			s.remove(c)
			return
		}
	}
}

func (s *Stream) writeLoop(c *client) {
	for payload := range c.frames {
		if s.config.WriteTimeout > 0 {
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.remove(c)
			break
		}
	}
	_ = c.conn.Close()
	s.logger.Debug("Viewer disconnected", log.Uint64("dropped_frames", c.dropped.Load()))
}

func (s *Stream) remove(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(c)
}

func (s *Stream) removeLocked(c *client) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	close(c.frames)
}
