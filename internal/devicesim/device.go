package devicesim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/dmxsync/internal/logging"
	"github.com/muurk/dmxsync/internal/protocol"
	"github.com/muurk/dmxsync/internal/snapshot"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultStatusInterval matches the firmware's status broadcast period.
	DefaultStatusInterval = time.Second

	// Maximum request body accepted by the REST endpoints
	maxBodySize = 4096

	shutdownTimeout = 5 * time.Second
)

// Options configures a simulated device.
type Options struct {
	// StatusInterval is the period of status broadcasts. Zero selects
	// DefaultStatusInterval.
	StatusInterval time.Duration

	// Config seeds the stored configuration on top of the field defaults.
	Config *snapshot.Snapshot

	// APIP is reported while the access point is enabled.
	APIP string

	// CaptureDir receives a JSONL record of every websocket message when set.
	CaptureDir string
}

// Device is an in-process stand-in for the ESP32 controller. It serves the
// REST API and the /ws push endpoint and implements http.Handler.
type Device struct {
	opts     Options
	mux      *http.ServeMux
	upgrader websocket.Upgrader
	capture  *capture

	mu          sync.Mutex
	config      *snapshot.Snapshot
	booted      time.Time
	failures    int
	failStatus  int
	requests    []string
	reboots     int
	resets      int
	pixelTests  []int
	clients     map[*client]struct{}
	stationsFor int
}

// New returns a device holding the field defaults overlaid with opts.Config.
func New(opts Options) *Device {
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = DefaultStatusInterval
	}
	if opts.APIP == "" {
		opts.APIP = "192.168.4.1"
	}

	d := &Device{
		opts:    opts,
		mux:     http.NewServeMux(),
		capture: newCapture(opts.CaptureDir),
		config:  snapshot.Defaults().Merge(snapshot.Known(opts.Config)),
		booted:  time.Now(),
		clients: make(map[*client]struct{}),
	}
	d.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	d.mux.HandleFunc("GET /api/config", d.handleGetConfig)
	d.mux.HandleFunc("POST /api/config", d.handleForm(""))
	d.mux.HandleFunc("GET /api/ap/config", d.handleGetAPConfig)
	d.mux.HandleFunc("POST /api/ap/config", d.handleForm(snapshot.FormAP))
	for _, form := range snapshot.Forms {
		d.mux.HandleFunc("POST /api/"+string(form), d.handleForm(form))
	}
	d.mux.HandleFunc("POST /api/reboot", d.handleReboot)
	d.mux.HandleFunc("POST /api/factory-reset", d.handleFactoryReset)
	d.mux.HandleFunc("/ws", d.handleWebSocket)
	return d
}

// ServeHTTP implements http.Handler.
func (d *Device) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	d.requests = append(d.requests, r.Method+" "+r.URL.Path)
	fail := r.URL.Path != "/ws" && d.failures > 0
	status := d.failStatus
	if fail {
		d.failures--
	}
	d.mu.Unlock()

	if fail {
		logging.Debug("Injected failure", zap.String("path", r.URL.Path), zap.Int("status", status))
		writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
		return
	}
	d.mux.ServeHTTP(w, r)
}

// Run broadcasts status every StatusInterval until ctx is done.
func (d *Device) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.opts.StatusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.DropConnections()
			return nil
		case <-ticker.C:
			d.broadcast(d.statusMessage())
		}
	}
}

// ListenAndServe serves the device on addr until ctx is done.
func (d *Device) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return d.Serve(ctx, ln)
}

// Serve serves the device on ln until ctx is done.
func (d *Device) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: d, ReadHeaderTimeout: 10 * time.Second}

	logging.Info("Simulated device listening", zap.String("addr", ln.Addr().String()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.Run(gctx) })
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		d.DropConnections()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Config returns the stored configuration, including AP fields.
func (d *Device) Config() *snapshot.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.config.Clone()
}

// SetConfig changes stored values as if edited on the device and pushes the
// result to every websocket client.
func (d *Device) SetConfig(fields *snapshot.Snapshot) {
	d.mu.Lock()
	d.config = d.config.Merge(snapshot.Known(fields))
	d.mu.Unlock()
	d.broadcast(d.configMessage())
}

// Status builds the status broadcast.
func (d *Device) Status() snapshot.Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	enabled := d.apEnabledLocked()
	st := snapshot.Status{
		Uptime:    int64(time.Since(d.booted) / time.Second),
		RSSI:      -55,
		FreeHeap:  180000,
		APEnabled: &enabled,
	}
	if enabled {
		stations := d.stationsFor
		st.APIP = d.opts.APIP
		st.APStations = &stations
	}
	return st
}

type statusMessage struct {
	Type protocol.Type `json:"type"`
	snapshot.Status
}

func (d *Device) statusMessage() statusMessage {
	return statusMessage{Type: protocol.TypeStatus, Status: d.Status()}
}

// SetStations sets the number of clients reported on the access point.
func (d *Device) SetStations(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stationsFor = n
}

// FailNext makes the next n REST requests fail with status.
func (d *Device) FailNext(n int, status int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures = n
	d.failStatus = status
}

// Requests returns every request seen as "METHOD /path".
func (d *Device) Requests() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.requests...)
}

// Reboots returns the number of reboot commands received.
func (d *Device) Reboots() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reboots
}

// FactoryResets returns the number of factory-reset commands received.
func (d *Device) FactoryResets() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resets
}

// PixelTests returns the modes of every pixel test requested.
func (d *Device) PixelTests() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.pixelTests...)
}

func (d *Device) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, d.publicConfig())
}

func (d *Device) handleGetAPConfig(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	out := snapshot.New()
	for _, f := range snapshot.FormFields(snapshot.FormAP) {
		if f.Secret {
			continue
		}
		if v, ok := d.config.Get(f.Key); ok {
			out.Set(f.Key, v)
		}
	}
	d.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

// handleForm stores the posted fields belonging to form. An empty form
// accepts every non-AP field.
func (d *Device) handleForm(form snapshot.Form) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Failed to read body"})
			return
		}
		posted, err := snapshot.Parse(body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
			return
		}

		d.mu.Lock()
		wasAP := d.apEnabledLocked()
		changed := d.applyLocked(form, posted)
		isAP := d.apEnabledLocked()
		d.mu.Unlock()

		logging.Info("Simulated device updated",
			zap.String("path", r.URL.Path),
			zap.Strings("fields", changed))

		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
		d.broadcast(d.configMessage())
		if wasAP != isAP {
			d.broadcast(d.apStatusMessage())
		}
	}
}

// applyLocked merges posted values the way the firmware does: only fields of
// the target form are taken, values are coerced to the field's kind, and the
// static address fields are ignored while DHCP is enabled.
func (d *Device) applyLocked(form snapshot.Form, posted *snapshot.Snapshot) []string {
	var changed []string
	take := func(f snapshot.Field) {
		v, ok := posted.Get(f.Key)
		if !ok {
			return
		}
		cv, ok := snapshot.CoerceField(f, v)
		if !ok {
			return
		}
		if isAddressField(f.Key) {
			cv = snapshot.String(normalizeIP(cv.String()))
		}
		d.config.Set(f.Key, cv)
		changed = append(changed, f.Key)
	}

	for _, f := range snapshot.Fields() {
		if form == "" && f.Form == snapshot.FormAP {
			continue
		}
		if form != "" && f.Form != form {
			continue
		}
		if isAddressField(f.Key) {
			continue
		}
		take(f)
	}

	dhcp, _ := d.config.Get("dhcpEnabled")
	if !dhcp.Bool() {
		for _, key := range []string{"staticIP", "staticMask", "staticGateway"} {
			f, _ := snapshot.Lookup(key)
			if form == "" || form == f.Form {
				take(f)
			}
		}
	}
	return changed
}

func (d *Device) handleReboot(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	d.reboots++
	d.booted = time.Now()
	d.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Rebooting..."})
	go d.DropConnections()
}

func (d *Device) handleFactoryReset(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	d.resets++
	d.config = snapshot.Defaults()
	d.booted = time.Now()
	d.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Factory reset successful. Rebooting..."})
	go d.DropConnections()
}

// publicConfig is the GET /api/config body. The AP password is never served.
func (d *Device) publicConfig() *snapshot.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return snapshot.Public(d.config)
}

func (d *Device) configMessage() map[string]any {
	msg := d.publicConfig().Map()
	msg["type"] = string(protocol.TypeConfig)
	return msg
}

func (d *Device) apStatusMessage() map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	msg := map[string]any{
		"type":     string(protocol.TypeAPStatus),
		"enabled":  d.apEnabledLocked(),
		"stations": d.stationsFor,
	}
	if d.apEnabledLocked() {
		msg["ip"] = d.opts.APIP
	}
	return msg
}

func (d *Device) apEnabledLocked() bool {
	v, _ := d.config.Get("enabled")
	return v.Bool()
}

func isAddressField(key string) bool {
	return key == "staticIP" || key == "staticMask" || key == "staticGateway"
}

// normalizeIP mirrors the firmware, which stores 0.0.0.0 for anything that
// is not a dotted IPv4 address.
func normalizeIP(s string) string {
	ip := net.ParseIP(s)
	if ip == nil || ip.To4() == nil {
		return "0.0.0.0"
	}
	return ip.To4().String()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Debug("Failed to write response", zap.Error(err))
	}
}
