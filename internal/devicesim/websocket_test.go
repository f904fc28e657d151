package devicesim

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/dmxsync/internal/snapshot"
)

func dialWS(t *testing.T, serverURL string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readType(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %q: %v", want, err)
		}
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("bad message %q: %v", data, err)
		}
		if msg["type"] == want {
			return msg
		}
	}
}

func waitClients(t *testing.T, dev *Device, n int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for dev.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", dev.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketRequests(t *testing.T) {
	dev, srv := newTestServer(t, Options{})
	conn := dialWS(t, srv.URL)
	waitClients(t, dev, 1)

	send := func(v any) {
		t.Helper()
		if err := conn.WriteJSON(v); err != nil {
			t.Fatal(err)
		}
	}

	send(map[string]string{"type": "get_config"})
	cfg := readType(t, conn, "config")
	if cfg["deviceName"] != "ESP32-2DMX" {
		t.Errorf("config = %v", cfg)
	}

	send(map[string]string{"type": "get_status"})
	st := readType(t, conn, "status")
	if _, ok := st["uptime"]; !ok {
		t.Errorf("status = %v", st)
	}

	send(map[string]string{"type": "set_wifi"})
	if msg := readType(t, conn, "error"); msg["message"] != "Unknown message type" {
		t.Errorf("error = %v", msg)
	}

	send(map[string]any{"type": "pixel-test", "mode": 3})
	if msg := readType(t, conn, "pixel_test"); msg["success"] != false {
		t.Errorf("pixel test with output disabled = %v", msg)
	}

	dev.SetConfig(snapshot.New().Set("pixelEnabled", snapshot.Bool(true)))
	readType(t, conn, "config")
	send(map[string]any{"type": "pixel-test", "mode": 1})
	if msg := readType(t, conn, "pixel_test"); msg["success"] != true {
		t.Errorf("pixel test = %v", msg)
	}

	if modes := dev.PixelTests(); len(modes) != 2 || modes[0] != 3 || modes[1] != 1 {
		t.Errorf("pixel tests = %v", modes)
	}
}

func TestConfigBroadcastAfterPost(t *testing.T) {
	dev, srv := newTestServer(t, Options{})
	conn := dialWS(t, srv.URL)
	waitClients(t, dev, 1)

	post(t, srv.URL+"/api/pixel", `{"pixelCount":120}`)

	msg := readType(t, conn, "config")
	if msg["pixelCount"] != float64(120) {
		t.Errorf("pixelCount = %v", msg["pixelCount"])
	}
	if _, ok := msg["password"]; ok {
		t.Error("password broadcast")
	}
}

func TestAPStatusBroadcastOnToggle(t *testing.T) {
	dev, srv := newTestServer(t, Options{})
	conn := dialWS(t, srv.URL)
	waitClients(t, dev, 1)

	post(t, srv.URL+"/api/ap", `{"ssid":"x","enabled":true}`)

	msg := readType(t, conn, "ap_status")
	if msg["enabled"] != true || msg["ip"] != "192.168.4.1" {
		t.Errorf("ap_status = %v", msg)
	}
}

func TestStatusBroadcast(t *testing.T) {
	dev, srv := newTestServer(t, Options{StatusInterval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = dev.Run(ctx) }()

	conn := dialWS(t, srv.URL)
	st := readType(t, conn, "status")
	if st["ap_enabled"] != false {
		t.Errorf("status = %v", st)
	}
}

func TestDropConnections(t *testing.T) {
	dev, srv := newTestServer(t, Options{})
	conn := dialWS(t, srv.URL)
	waitClients(t, dev, 1)

	if n := dev.DropConnections(); n != 1 {
		t.Errorf("dropped %d", n)
	}

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	waitClients(t, dev, 0)

	resp, err := http.Get(srv.URL + "/api/config")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("REST affected by drop: %d", resp.StatusCode)
	}
}

func TestCapture(t *testing.T) {
	dir := t.TempDir()
	dev, srv := newTestServer(t, Options{CaptureDir: dir})
	conn := dialWS(t, srv.URL)
	waitClients(t, dev, 1)

	if err := conn.WriteJSON(map[string]string{"type": "get_status"}); err != nil {
		t.Fatal(err)
	}
	readType(t, conn, "status")

	files, err := filepath.Glob(filepath.Join(dir, "capture-*.jsonl"))
	if err != nil || len(files) != 1 {
		t.Fatalf("capture files = %v, %v", files, err)
	}
	f, err := os.Open(files[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		t.Fatal("capture file empty")
	}
	var rec Record
	if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.Type != "get_status" || rec.Direction != "client->device" || rec.MessageNum != 1 {
		t.Errorf("record = %+v", rec)
	}
}
