package devicesim

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/dmxsync/internal/logging"
	"github.com/muurk/dmxsync/internal/protocol"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next message or pong from the peer
	pongWait = 60 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Messages queued per client before it is considered stuck
	sendBuffer = 32
)

// client is one websocket connection. Writes go through send so that only
// writePump touches the connection's writer.
type client struct {
	conn       *websocket.Conn
	remoteAddr string
	send       chan []byte
	done       chan struct{}
}

func (d *Device) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn:       conn,
		remoteAddr: r.RemoteAddr,
		send:       make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
	}

	d.mu.Lock()
	d.clients[c] = struct{}{}
	d.mu.Unlock()

	logging.LogConnection(c.remoteAddr, "websocket_upgraded")

	go d.writePump(c)
	d.readPump(c)
}

func (d *Device) readPump(c *client) {
	defer d.removeClient(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	messageNum := 0
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug("WebSocket read error", zap.String("remote_addr", c.remoteAddr), zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		messageNum++
		d.capture.record(c.remoteAddr, messageNum, DirectionIn, data)
		d.handleMessage(c, data)
	}
}

func (d *Device) writePump(c *client) {
	defer func() { _ = c.conn.Close() }()
	sent := 0
	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "device restarting"))
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logging.Debug("WebSocket write failed", zap.String("remote_addr", c.remoteAddr), zap.Error(err))
				return
			}
			sent++
			d.capture.record(c.remoteAddr, sent, DirectionOut, data)
		}
	}
}

// handleMessage answers a client request the way the firmware does.
func (d *Device) handleMessage(c *client, data []byte) {
	var req struct {
		Type protocol.Type `json:"type"`
		Mode *int          `json:"mode"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		logging.Debug("Ignoring unparseable client message", zap.String("remote_addr", c.remoteAddr))
		return
	}

	switch req.Type {
	case protocol.TypeGetStatus:
		d.sendTo(c, d.statusMessage())
	case protocol.TypeGetConfig:
		d.sendTo(c, d.configMessage())
	case protocol.TypePixelTestRequest:
		d.sendTo(c, d.pixelTest(req.Mode))
	default:
		d.sendTo(c, map[string]string{"type": string(protocol.TypeError), "message": "Unknown message type"})
	}
}

func (d *Device) pixelTest(mode *int) map[string]any {
	reply := map[string]any{"type": string(protocol.TypePixelTest)}
	if mode == nil {
		reply["success"] = false
		reply["message"] = "Missing mode"
		return reply
	}

	d.mu.Lock()
	d.pixelTests = append(d.pixelTests, *mode)
	enabled, _ := d.config.Get("pixelEnabled")
	d.mu.Unlock()

	if !enabled.Bool() {
		reply["success"] = false
		reply["message"] = "Pixel output disabled"
		return reply
	}
	reply["success"] = true
	return reply
}

// broadcast queues msg for every client. Clients whose queue is full are
// disconnected.
func (d *Device) broadcast(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		logging.Warn("Failed to encode broadcast", zap.Error(err))
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for c := range d.clients {
		select {
		case c.send <- data:
		default:
			logging.Warn("Client not keeping up, disconnecting", zap.String("remote_addr", c.remoteAddr))
			d.closeLocked(c)
		}
	}
}

func (d *Device) sendTo(c *client, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		logging.Warn("Failed to encode reply", zap.Error(err))
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		d.closeLocked(c)
	}
}

// DropConnections closes every websocket connection and returns how many
// were open.
func (d *Device) DropConnections() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.clients)
	for c := range d.clients {
		d.closeLocked(c)
	}
	if n > 0 {
		logging.Info("Dropped websocket connections", zap.Int("count", n))
	}
	return n
}

// Clients returns the number of open websocket connections.
func (d *Device) Clients() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.clients)
}

func (d *Device) removeClient(c *client) {
	d.mu.Lock()
	d.closeLocked(c)
	d.mu.Unlock()
	logging.LogConnection(c.remoteAddr, "websocket_closed")
}

func (d *Device) closeLocked(c *client) {
	if _, ok := d.clients[c]; !ok {
		return
	}
	delete(d.clients, c)
	close(c.done)
}
