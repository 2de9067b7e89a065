package stream

import (
	"context"
	"sync"
	"time"

	"SignalDeck/internal/domain/models"
	drepo "SignalDeck/internal/domain/repository"
	applogger "SignalDeck/pkg/logger"

	"github.com/gorilla/websocket"
)

// Config holds the transport timings. Defaults match the gateway contract:
// a ping every 30s, a forced close after 60s of silence, and a fixed 3s
// retry delay with no cap.
type Config struct {
	URL               string
	KeepaliveInterval time.Duration
	DeadPeerTimeout   time.Duration
	ReconnectDelay    time.Duration
	FrameBuffer       int
}

// Client owns the one persistent duplex connection to the gateway. All
// socket errors are swallowed and normalized into the reconnect path; the
// client never surfaces them individually.
type Client struct {
	cfg     Config
	log     *applogger.Logger
	metrics drepo.Metrics

	mu           sync.Mutex
	conn         *websocket.Conn
	status       models.ConnStatus
	lastActivity time.Time

	frames   chan []byte
	wake     chan struct{}
	onStatus func(models.ConnStatus)
}

// New creates a stream client. onStatus may be nil; when set it is invoked
// on every connection-status change.
func New(cfg Config, log *applogger.Logger, metrics drepo.Metrics, onStatus func(models.ConnStatus)) *Client {
	if cfg.FrameBuffer <= 0 {
		cfg.FrameBuffer = 256
	}
	return &Client{
		cfg:      cfg,
		log:      log,
		metrics:  metrics,
		status:   models.ConnClosed,
		frames:   make(chan []byte, cfg.FrameBuffer),
		wake:     make(chan struct{}, 1),
		onStatus: onStatus,
	}
}

// Frames returns the inbound frame channel. Frames are delivered strictly in
// arrival order; the channel is closed when the client shuts down.
func (c *Client) Frames() <-chan []byte { return c.frames }

// Status returns the current connection status.
func (c *Client) Status() models.ConnStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// LastActivity returns the time of the last inbound frame of any kind.
func (c *Client) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// Start launches the connection loop. It returns immediately; the loop runs
// until ctx is cancelled.
func (c *Client) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Client) run(ctx context.Context) {
	defer close(c.frames)
	for {
		c.setStatus(models.ConnConnecting)
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, nil)
		if err != nil {
			if ctx.Err() != nil {
				c.setStatus(models.ConnClosed)
				return
			}
			c.log.Warn("stream dial failed", applogger.Error(err))
			c.metrics.RecordError("stream_dial")
			c.setStatus(models.ConnReconnecting)
			if !c.waitRetry(ctx) {
				c.setStatus(models.ConnClosed)
				return
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.lastActivity = time.Now()
		c.mu.Unlock()
		c.setStatus(models.ConnOpen)
		c.log.Info("stream connected", applogger.String("url", c.cfg.URL))

		c.session(ctx, conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()

		if ctx.Err() != nil {
			c.setStatus(models.ConnClosed)
			return
		}
		c.metrics.RecordReconnect()
		c.setStatus(models.ConnReconnecting)
		if !c.waitRetry(ctx) {
			c.setStatus(models.ConnClosed)
			return
		}
	}
}

// session reads frames until the connection dies. A companion goroutine
// writes the keepalive ping and enforces the dead-peer timeout; closing the
// connection there unblocks the read loop.
func (c *Client) session(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(c.cfg.KeepaliveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				_ = conn.Close()
				return
			case <-ticker.C:
				if time.Since(c.LastActivity()) > c.cfg.DeadPeerTimeout {
					c.log.Warn("stream silent past dead-peer timeout, forcing reconnect")
					c.metrics.RecordError("stream_dead_peer")
					_ = conn.Close()
					return
				}
				if err := conn.WriteJSON(models.Envelope{Type: models.EventPing}); err != nil {
					_ = conn.Close()
					return
				}
			}
		}
	}()

	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.log.Warn("stream read closed", applogger.Error(err))
			}
			return
		}
		c.touch()
		select {
		case c.frames <- b:
		case <-ctx.Done():
			return
		}
	}
}

// waitRetry blocks for the fixed reconnect delay. A Wake call skips the
// remainder of the wait. Returns false when ctx is cancelled.
func (c *Client) waitRetry(ctx context.Context) bool {
	timer := time.NewTimer(c.cfg.ReconnectDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-c.wake:
		return true
	case <-timer.C:
		return true
	}
}

// Wake is called when the display becomes visible again. If the connection
// is open but stale it is force-closed so the run loop reconnects; if a
// retry wait is in progress it is cut short.
func (c *Client) Wake() {
	c.mu.Lock()
	conn := c.conn
	stale := c.status == models.ConnOpen && time.Since(c.lastActivity) > c.cfg.DeadPeerTimeout
	c.mu.Unlock()

	if stale && conn != nil {
		_ = conn.Close()
		return
	}
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Close tears down the current connection. The run loop exits via its
// context; Close only unblocks an in-flight read.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Client) touch() {
	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
}

func (c *Client) setStatus(s models.ConnStatus) {
	c.mu.Lock()
	changed := c.status != s
	c.status = s
	c.mu.Unlock()
	if !changed {
		return
	}
	c.metrics.SetConnectionStatus(s)
	if c.onStatus != nil {
		c.onStatus(s)
	}
}
