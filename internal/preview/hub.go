// Package preview streams rendered frames and diagnostics to browser clients.
package preview

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	diag "github.com/coreman2200/cheevolights/internal/diagnostics"
	"github.com/coreman2200/cheevolights/internal/render"
)

const (
	writeWait = 200 * time.Millisecond
	queueLen  = 8 // messages buffered per client before new ones are dropped
)

// Status reports what the supervisor is doing.
type Status interface {
	Active() string
	Effects() []string
}

// client owns one connection. Only its writer goroutine touches conn for
// writes, so a slow browser never stalls the frame path.
type client struct {
	conn *websocket.Conn
	send chan []byte
	quit chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{conn: conn, send: make(chan []byte, queueLen), quit: make(chan struct{})}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.quit)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (h *Hub) writer(c *client) {
	for {
		select {
		case <-c.quit:
			return
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				log.Debug().Err(err).Msg("preview write failed; dropping client")
				h.drop(c)
				return
			}
		}
	}
}

// Hub fans frames out to /ws clients and diagnostics to /diag clients.
// It implements sink.Observer.
type Hub struct {
	status  Status
	started time.Time
	frameID atomic.Uint64
	sent    atomic.Uint64
	dropped atomic.Uint64
	up      websocket.Upgrader

	mu          sync.RWMutex
	clients     map[*client]struct{}
	diagClients map[*client]struct{}
}

func NewHub(status Status) *Hub {
	return &Hub{
		status:      status,
		started:     time.Now(),
		up:          websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		clients:     map[*client]struct{}{},
		diagClients: map[*client]struct{}{},
	}
}

// SetStatus attaches the supervisor once it exists.
func (h *Hub) SetStatus(s Status) {
	h.mu.Lock()
	h.status = s
	h.mu.Unlock()
}

type frameMsg struct {
	T       int64        `json:"t"`
	FrameID uint64       `json:"frame_id"`
	Device  string       `json:"device"`
	RGB     render.Frame `json:"rgb"`
}

func (h *Hub) ObserveFrame(dev render.Device, f render.Frame) {
	id := h.frameID.Add(1)
	if h.ClientCount() == 0 {
		return
	}
	b, err := json.Marshal(frameMsg{T: time.Now().UnixNano(), FrameID: id, Device: dev.Addr, RGB: f})
	if err != nil {
		log.Debug().Err(err).Msg("encode frame")
		return
	}
	h.broadcast(h.clients, b)
}

// PushDiag forwards d to /diag clients. Its signature matches diag.Listener.
func (h *Hub) PushDiag(d diag.Diagnostic) {
	b, err := json.Marshal(d)
	if err != nil {
		return
	}
	h.broadcast(h.diagClients, b)
}

// broadcast queues b for every client in set without blocking. A client whose
// queue is full misses this message.
func (h *Hub) broadcast(set map[*client]struct{}, b []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range set {
		select {
		case c.send <- b:
			h.sent.Add(1)
		default:
			h.dropped.Add(1)
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	delete(h.diagClients, c)
	h.mu.Unlock()
	c.close()
}

// Stats returns messages queued to clients and messages dropped on full queues.
func (h *Hub) Stats() (sent, dropped uint64) {
	return h.sent.Load(), h.dropped.Load()
}

// ClientCount returns the number of connected frame clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) attach(ctx *gin.Context, set map[*client]struct{}) {
	conn, err := h.up.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade")
		return
	}
	c := newClient(conn)
	h.mu.Lock()
	set[c] = struct{}{}
	h.mu.Unlock()
	go h.writer(c)

	// drain reads so close frames are processed
	go func() {
		defer h.drop(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) handleFrames(c *gin.Context) { h.attach(c, h.clients) }

func (h *Hub) handleDiag(c *gin.Context) { h.attach(c, h.diagClients) }

func (h *Hub) handleHealth(c *gin.Context) {
	h.mu.RLock()
	st := h.status
	h.mu.RUnlock()
	sent, dropped := h.Stats()
	resp := gin.H{
		"frame_id": h.frameID.Load(),
		"uptime_s": time.Since(h.started).Seconds(),
		"clients":  h.ClientCount(),
		"sent":     sent,
		"dropped":  dropped,
	}
	if st != nil {
		resp["active"] = st.Active()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Hub) handleEffects(c *gin.Context) {
	h.mu.RLock()
	st := h.status
	h.mu.RUnlock()
	names := []string{}
	if st != nil {
		names = st.Effects()
	}
	c.JSON(http.StatusOK, gin.H{"effects": names, "total": len(names)})
}

// Router builds the HTTP surface: /ws, /diag, /api/health, /api/effects.
func (h *Hub) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	r.GET("/ws", h.handleFrames)
	r.GET("/diag", h.handleDiag)
	api := r.Group("/api")
	api.GET("/health", h.handleHealth)
	api.GET("/effects", h.handleEffects)
	return r
}

// Serve listens on addr until ctx ends.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     h.Router(),
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shut, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shut)
	}()
	log.Info().Str("addr", addr).Msg("preview server starting")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
