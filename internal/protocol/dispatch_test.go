package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/muurk/dmxsync/internal/snapshot"
)

type recorder struct {
	statuses  []snapshot.Status
	configs   []*snapshot.Snapshot
	aps       []snapshot.APStatus
	pixels    []snapshot.PixelTestResult
	callOrder []Type
}

func (r *recorder) HandleStatus(s snapshot.Status) {
	r.statuses = append(r.statuses, s)
	r.callOrder = append(r.callOrder, TypeStatus)
}

func (r *recorder) HandleConfig(s *snapshot.Snapshot) {
	r.configs = append(r.configs, s)
	r.callOrder = append(r.callOrder, TypeConfig)
}

func (r *recorder) HandleAPStatus(a snapshot.APStatus) {
	r.aps = append(r.aps, a)
	r.callOrder = append(r.callOrder, TypeAPStatus)
}

func (r *recorder) HandlePixelTest(p snapshot.PixelTestResult) {
	r.pixels = append(r.pixels, p)
	r.callOrder = append(r.callOrder, TypePixelTest)
}

func TestDispatchRecognizedTypes(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec)

	msgs := []string{
		`{"type":"status","uptime":3600,"rssi":-61,"freeHeap":182340,"ap_enabled":true,"ap_ip":"192.168.4.1","ap_stations":2}`,
		`{"type":"config","deviceName":"truss-1","dhcpEnabled":false}`,
		`{"type":"ap_status","enabled":true,"ip":"192.168.4.1"}`,
		`{"type":"pixel_test","success":true}`,
	}
	for _, m := range msgs {
		if err := d.Dispatch([]byte(m)); err != nil {
			t.Fatalf("Dispatch(%s) error = %v", m, err)
		}
	}

	want := []Type{TypeStatus, TypeConfig, TypeAPStatus, TypePixelTest}
	if len(rec.callOrder) != len(want) {
		t.Fatalf("got %d calls, want %d", len(rec.callOrder), len(want))
	}
	for i := range want {
		if rec.callOrder[i] != want[i] {
			t.Errorf("call %d = %s, want %s", i, rec.callOrder[i], want[i])
		}
	}

	st := rec.statuses[0]
	if st.Uptime != 3600 || st.RSSI != -61 || st.FreeHeap != 182340 {
		t.Errorf("status = %+v", st)
	}
	ap, ok := st.AP()
	if !ok || !ap.Enabled || ap.Stations != 2 {
		t.Errorf("status AP = %+v, %v", ap, ok)
	}

	cfg := rec.configs[0]
	if _, ok := cfg.Get("type"); ok {
		t.Error("config snapshot should not contain the type discriminator")
	}
	if v, _ := cfg.Get("deviceName"); v.String() != "truss-1" {
		t.Errorf("deviceName = %q", v.String())
	}
	if !rec.pixels[0].Success {
		t.Error("pixel test success not decoded")
	}
}

func TestDispatchUnknownAndMalformed(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec)

	tests := []struct {
		name string
		in   string
		want error
	}{
		{"unknown type", `{"type":"unknown_future_type","x":1}`, ErrUnknownType},
		{"not json", `hello`, ErrMalformed},
		{"no type", `{"uptime":1}`, ErrMalformed},
		{"array", `[1,2]`, ErrMalformed},
		{"bad status field", `{"type":"status","uptime":"soon"}`, ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.Dispatch([]byte(tt.in))
			if !errors.Is(err, tt.want) {
				t.Errorf("Dispatch() error = %v, want %v", err, tt.want)
			}
		})
	}
	if len(rec.callOrder) != 0 {
		t.Errorf("handlers should not be called, got %v", rec.callOrder)
	}
}

func TestDispatchLoggedOnlyTypes(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec)
	for _, m := range []string{
		`{"type":"config_update","status":"success"}`,
		`{"type":"error","message":"Unknown message type"}`,
	} {
		if err := d.Dispatch([]byte(m)); err != nil {
			t.Errorf("Dispatch(%s) error = %v", m, err)
		}
	}
	if len(rec.callOrder) != 0 {
		t.Errorf("handlers should not be called, got %v", rec.callOrder)
	}
}

func TestDispatchContainsHandlerPanics(t *testing.T) {
	var delivered bool
	d := NewDispatcher(
		Funcs{Status: func(snapshot.Status) { panic("boom") }},
		Funcs{Status: func(snapshot.Status) { delivered = true }},
	)
	if err := d.Dispatch([]byte(`{"type":"status","uptime":1}`)); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if !delivered {
		t.Error("second handler should still receive the message")
	}
}

func TestDispatchFanOutGetsIndependentSnapshots(t *testing.T) {
	var a, b *snapshot.Snapshot
	d := NewDispatcher(
		Funcs{Config: func(s *snapshot.Snapshot) { a = s; s.Set("deviceName", snapshot.String("mutated")) }},
		Funcs{Config: func(s *snapshot.Snapshot) { b = s }},
	)
	_ = d.Dispatch([]byte(`{"type":"config","deviceName":"orig"}`))
	if v, _ := b.Get("deviceName"); v.String() != "orig" {
		t.Errorf("second handler saw %q; handlers must not share a snapshot", v.String())
	}
	if a == b {
		t.Error("handlers received the same pointer")
	}
}

func TestOutboundShapes(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{NewPixelTest(3), `{"type":"pixel-test","mode":3}`},
		{GetStatus(), `{"type":"get_status"}`},
		{GetConfig(), `{"type":"get_config"}`},
	}
	for _, tt := range tests {
		got, err := json.Marshal(tt.in)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if string(got) != tt.want {
			t.Errorf("Marshal() = %s, want %s", got, tt.want)
		}
	}
}

func TestRecognized(t *testing.T) {
	for _, typ := range []Type{TypeStatus, TypeConfig, TypeAPStatus, TypePixelTest} {
		if !typ.Recognized() {
			t.Errorf("%s should be recognized", typ)
		}
	}
	for _, typ := range []Type{TypeError, TypeConfigUpdate, "unknown_future_type"} {
		if typ.Recognized() {
			t.Errorf("%s should not be recognized", typ)
		}
	}
}
