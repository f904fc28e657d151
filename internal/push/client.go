package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/dmxsync/internal/logging"
	"github.com/muurk/dmxsync/internal/protocol"
	"github.com/muurk/dmxsync/internal/version"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the device
	writeWait = 10 * time.Second

	// Time allowed for the websocket handshake
	handshakeTimeout = 10 * time.Second
)

// ErrNotConnected is returned internally when a send finds no open connection.
var ErrNotConnected = errors.New("push channel not connected")

// Dialer opens websocket connections. *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// MessageHandler receives every inbound payload. *protocol.Dispatcher
// satisfies it.
type MessageHandler interface {
	Dispatch(data []byte) error
}

// Client keeps a best-effort connection to the device's push endpoint and
// hands every inbound payload to a MessageHandler, in order, from a single
// goroutine.
type Client struct {
	url              string
	handler          MessageHandler
	dialer           Dialer
	pingInterval     time.Duration
	requestOnConnect bool
	observers        []func(State)

	mu      sync.Mutex
	state   State
	policy  ReconnectPolicy
	conn    *websocket.Conn
	timer   *time.Timer
	ctx     context.Context
	cancel  context.CancelFunc
	gen     int
	started bool
	gaveUp  bool

	writeMu  sync.Mutex
	notifyMu sync.Mutex
}

// New creates a client for url ("ws://host/ws"). It does not connect until
// Start is called.
func New(url string, handler MessageHandler, opts ...Option) *Client {
	c := &Client{
		url:     url,
		handler: handler,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		policy: DefaultPolicy(),
		state:  Disconnected,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// URL returns the push endpoint.
func (c *Client) URL() string {
	return c.url
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts returns the number of reconnects consumed since the last open.
func (c *Client) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy.Attempt
}

// Exhausted reports whether the client has used every reconnect attempt
// and is waiting for Restart.
func (c *Client) Exhausted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gaveUp
}

// Start connects in the background. The client stops when ctx is cancelled.
// Calling Start more than once has no effect.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.ctx, c.cancel = context.WithCancel(ctx)
	gen := c.gen
	runCtx := c.ctx
	c.mu.Unlock()

	go func() {
		<-runCtx.Done()
		c.Stop()
	}()
	go c.connect(gen)
}

// Stop closes the connection and cancels any pending reconnect.
func (c *Client) Stop() {
	c.mu.Lock()
	c.gen++
	c.stopTimerLocked()
	conn := c.conn
	c.conn = nil
	if c.cancel != nil {
		c.cancel()
	}
	changed := c.setStateLocked(Disconnected)
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if changed {
		c.notify(Disconnected)
	}
}

// Restart drops any current connection, resets the attempt counter and
// connects again. It is the only way out of the given-up state.
func (c *Client) Restart() {
	c.mu.Lock()
	if !c.started || c.ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.stopTimerLocked()
	conn := c.conn
	c.conn = nil
	c.policy.Reset()
	c.gaveUp = false
	gen := c.gen
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	logging.LogConnection(c.url, "restart")
	go c.connect(gen)
}

// Send writes msg as JSON if the channel is connected. Otherwise the message
// is dropped with a warning. It reports whether the message was written.
func (c *Client) Send(msg any) bool {
	if err := c.send(msg); err != nil {
		logging.Warn("Dropping outbound push message", zap.Error(err))
		return false
	}
	return true
}

func (c *Client) send(msg any) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == Connected
	c.mu.Unlock()
	if conn == nil || !connected {
		return ErrNotConnected
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	logging.LogPushMessage("sent", messageType(data), data)
	return nil
}

func (c *Client) connect(gen int) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	ctx := c.ctx
	changed := c.setStateLocked(Connecting)
	c.mu.Unlock()
	if changed {
		c.notify(Connecting)
	}

	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())
	conn, _, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		logging.LogConnection(c.url, "dial_failed", zap.Error(err))
		c.closed(gen)
		return
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.policy.Reset()
	c.setStateLocked(Connected)
	c.mu.Unlock()

	logging.LogConnection(c.url, "connected")
	c.notifyIfCurrent(gen, Connected)

	if c.requestOnConnect {
		c.Send(protocol.GetConfig())
		c.Send(protocol.GetStatus())
	}

	done := make(chan struct{})
	if c.pingInterval > 0 {
		go c.pingLoop(conn, done)
	}
	c.readLoop(conn)
	close(done)

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	_ = conn.Close()

	c.closed(gen)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	if c.pingInterval > 0 {
		pongWait := c.pingInterval + writeWait
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.LogConnection(c.url, "closed_by_device")
			} else {
				logging.LogConnection(c.url, "read_failed", zap.Error(err))
			}
			return
		}
		// Errors are logged by the handler; the connection stays open.
		_ = c.handler.Dispatch(data)
	}
}

func (c *Client) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				logging.Debug("Ping failed", zap.String("url", c.url), zap.Error(err))
				return
			}
		}
	}
}

// closed moves to Disconnected and schedules a reconnect while attempts remain.
func (c *Client) closed(gen int) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	changed := c.setStateLocked(Disconnected)

	if c.ctx.Err() == nil {
		if delay, ok := c.policy.Next(); ok {
			attempt := c.policy.Attempt
			c.timer = time.AfterFunc(delay, func() { c.connect(gen) })
			logging.Info("Push channel reconnect scheduled",
				zap.String("url", c.url),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", c.policy.MaxAttempts),
				zap.Duration("delay", delay),
			)
		} else {
			c.gaveUp = true
			logging.Warn("Push channel reconnect attempts exhausted, relying on polling",
				zap.String("url", c.url),
				zap.Int("max_attempts", c.policy.MaxAttempts),
			)
		}
	}
	c.mu.Unlock()

	if changed {
		c.notify(Disconnected)
	}
}

func (c *Client) setStateLocked(s State) bool {
	if c.state == s {
		return false
	}
	c.state = s
	return true
}

func (c *Client) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Client) notify(s State) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	for _, f := range c.observers {
		f(s)
	}
}

// notifyIfCurrent delivers s only while gen is still the live generation and
// the client is still in state s. A Stop or Restart that lands between the
// transition and the delivery has already reported its own state.
func (c *Client) notifyIfCurrent(gen int, s State) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.mu.Lock()
	current := gen == c.gen && c.state == s
	c.mu.Unlock()
	if !current {
		return
	}
	for _, f := range c.observers {
		f(s)
	}
}

func messageType(data []byte) string {
	var head struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(data, &head)
	return head.Type
}
