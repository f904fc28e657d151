package devicesim

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/muurk/dmxsync/internal/snapshot"
)

func newTestServer(t *testing.T, opts Options) (*Device, *httptest.Server) {
	t.Helper()
	dev := New(opts)
	srv := httptest.NewServer(dev)
	t.Cleanup(srv.Close)
	return dev, srv
}

func post(t *testing.T, url string, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(data)
}

func getSnapshot(t *testing.T, url string) *snapshot.Snapshot {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	data, _ := io.ReadAll(resp.Body)
	snap, err := snapshot.Parse(data)
	if err != nil {
		t.Fatalf("parse %s: %v", url, err)
	}
	return snap
}

func TestGetConfigServesDefaultsWithoutPassword(t *testing.T) {
	_, srv := newTestServer(t, Options{
		Config: snapshot.New().
			Set("deviceName", snapshot.String("truss-1")).
			Set("password", snapshot.String("secret")).
			Set("bogus", snapshot.Int(1)),
	})

	cfg := getSnapshot(t, srv.URL+"/api/config")

	if v, _ := cfg.Get("deviceName"); v.String() != "truss-1" {
		t.Errorf("deviceName = %v", v)
	}
	if v, _ := cfg.Get("dmxStartAddress"); v.Int() != 1 {
		t.Errorf("dmxStartAddress = %v", v)
	}
	if _, ok := cfg.Get("password"); ok {
		t.Error("password served")
	}
	if _, ok := cfg.Get("bogus"); ok {
		t.Error("unknown key stored")
	}
}

func TestNetworkPostIgnoresStaticFieldsWhileDHCP(t *testing.T) {
	dev, srv := newTestServer(t, Options{})

	status, _ := post(t, srv.URL+"/api/network", `{"dhcpEnabled":true,"staticIP":"10.0.0.9"}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if v, _ := dev.Config().Get("staticIP"); v.String() != "192.168.1.100" {
		t.Errorf("staticIP changed while DHCP on: %v", v)
	}

	post(t, srv.URL+"/api/network", `{"dhcpEnabled":false,"staticIP":"10.0.0.9","staticGateway":"not-an-ip"}`)
	cfg := dev.Config()
	if v, _ := cfg.Get("staticIP"); v.String() != "10.0.0.9" {
		t.Errorf("staticIP = %v", v)
	}
	if v, _ := cfg.Get("staticGateway"); v.String() != "0.0.0.0" {
		t.Errorf("staticGateway = %v, want 0.0.0.0", v)
	}
}

func TestFormPostOnlyTakesItsFields(t *testing.T) {
	dev, srv := newTestServer(t, Options{})

	post(t, srv.URL+"/api/artnet", `{"artnetUniverse":"4","pixelCount":99}`)

	cfg := dev.Config()
	if v, _ := cfg.Get("artnetUniverse"); v.Kind() != snapshot.KindInt || v.Int() != 4 {
		t.Errorf("artnetUniverse = %v", v)
	}
	if v, _ := cfg.Get("pixelCount"); v.Int() != 0 {
		t.Errorf("pixelCount changed by artnet post: %v", v)
	}
}

func TestInvalidJSON(t *testing.T) {
	_, srv := newTestServer(t, Options{})

	status, body := post(t, srv.URL+"/api/pixel", `{not json`)
	if status != http.StatusBadRequest {
		t.Errorf("status = %d", status)
	}
	var msg map[string]string
	if err := json.Unmarshal([]byte(body), &msg); err != nil || msg["error"] != "Invalid JSON" {
		t.Errorf("body = %q", body)
	}
}

func TestFailNext(t *testing.T) {
	dev, srv := newTestServer(t, Options{})
	dev.FailNext(2, http.StatusInternalServerError)

	for i := 0; i < 2; i++ {
		resp, err := http.Get(srv.URL + "/api/config")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusInternalServerError {
			t.Errorf("request %d status = %d", i, resp.StatusCode)
		}
	}
	getSnapshot(t, srv.URL+"/api/config")

	if got := len(dev.Requests()); got != 3 {
		t.Errorf("requests = %d", got)
	}
}

func TestAPConfig(t *testing.T) {
	dev, srv := newTestServer(t, Options{})

	status, _ := post(t, srv.URL+"/api/ap", `{"ssid":"DMX-AP","password":"hunter22","enabled":true}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}

	ap := getSnapshot(t, srv.URL+"/api/ap/config")
	if v, _ := ap.Get("ssid"); v.String() != "DMX-AP" {
		t.Errorf("ssid = %v", v)
	}
	if v, _ := ap.Get("enabled"); !v.Bool() {
		t.Errorf("enabled = %v", v)
	}
	if _, ok := ap.Get("password"); ok {
		t.Error("password served")
	}
	if v, _ := dev.Config().Get("password"); v.String() != "hunter22" {
		t.Errorf("stored password = %v", v)
	}

	st := dev.Status()
	if st.APEnabled == nil || !*st.APEnabled || st.APIP != "192.168.4.1" {
		t.Errorf("status = %+v", st)
	}
}

func TestCommands(t *testing.T) {
	dev, srv := newTestServer(t, Options{Config: snapshot.New().Set("pixelCount", snapshot.Int(50))})

	if status, _ := post(t, srv.URL+"/api/reboot", ""); status != http.StatusOK {
		t.Errorf("reboot status = %d", status)
	}
	if status, _ := post(t, srv.URL+"/api/factory-reset", ""); status != http.StatusOK {
		t.Errorf("factory-reset status = %d", status)
	}

	if dev.Reboots() != 1 || dev.FactoryResets() != 1 {
		t.Errorf("reboots=%d resets=%d", dev.Reboots(), dev.FactoryResets())
	}
	if !dev.Config().Equal(snapshot.Defaults()) {
		t.Error("factory reset did not restore defaults")
	}
}

func TestNormalizeIP(t *testing.T) {
	tests := map[string]string{
		"10.1.2.3":    "10.1.2.3",
		"":            "0.0.0.0",
		"300.1.1.1":   "0.0.0.0",
		"fe80::1":     "0.0.0.0",
		"192.168.1.1": "192.168.1.1",
	}
	for in, want := range tests {
		if got := normalizeIP(in); got != want {
			t.Errorf("normalizeIP(%q) = %q, want %q", in, got, want)
		}
	}
}
