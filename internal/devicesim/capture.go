package devicesim

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/muurk/dmxsync/internal/logging"
	"go.uber.org/zap"
)

// Capture directions.
const (
	DirectionIn  = "client->device"
	DirectionOut = "device->client"
)

// Record is one captured websocket message.
type Record struct {
	Timestamp  time.Time `json:"timestamp"`
	MessageNum int       `json:"message_num"`
	RemoteAddr string    `json:"remote_addr"`
	Direction  string    `json:"direction"`
	Type       string    `json:"type,omitempty"`
	PayloadLen int       `json:"payload_length"`
	Payload    string    `json:"payload"`
}

// capture appends Records to a JSONL file, one per session. A nil capture
// or one with an empty dir records nothing.
type capture struct {
	mu       sync.Mutex
	filename string
}

func newCapture(dir string) *capture {
	if dir == "" {
		return nil
	}
	return &capture{
		filename: filepath.Join(dir, fmt.Sprintf("capture-%s.jsonl", time.Now().Format("20060102-150405"))),
	}
}

func (c *capture) record(remoteAddr string, messageNum int, direction string, payload []byte) {
	if c == nil {
		return
	}

	rec := Record{
		Timestamp:  time.Now(),
		MessageNum: messageNum,
		RemoteAddr: remoteAddr,
		Direction:  direction,
		Type:       messageType(payload),
		PayloadLen: len(payload),
		Payload:    toASCII(payload),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		logging.Error("Failed to marshal capture record", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.OpenFile(c.filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		logging.Error("Failed to open capture file",
			zap.String("filename", c.filename),
			zap.Error(err),
		)
		return
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(data, '\n')); err != nil {
		logging.Error("Failed to write capture file",
			zap.String("filename", c.filename),
			zap.Error(err),
		)
	}
}

func messageType(payload []byte) string {
	var env struct {
		Type string `json:"type"`
	}
	if json.Unmarshal(payload, &env) != nil {
		return ""
	}
	return env.Type
}

// toASCII converts bytes to ASCII string (non-printable chars become '.')
func toASCII(data []byte) string {
	result := make([]byte, len(data))
	for i, b := range data {
		if b >= 32 && b <= 126 {
			result[i] = b
		} else {
			result[i] = '.'
		}
	}
	return string(result)
}
