package configsync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muurk/dmxsync/internal/cache"
	"github.com/muurk/dmxsync/internal/deviceapi"
	"github.com/muurk/dmxsync/internal/protocol"
	"github.com/muurk/dmxsync/internal/snapshot"
)

type submission struct {
	form   snapshot.Form
	fields *snapshot.Snapshot
}

type fakeDevice struct {
	mu         sync.Mutex
	config     *snapshot.Snapshot
	getErr     error
	submitErr  error
	commandErr error
	gets       int
	submits    []submission
	commands   []deviceapi.Command
	normalize  func(*snapshot.Snapshot) *snapshot.Snapshot
}

func newFakeDevice(cfg *snapshot.Snapshot) *fakeDevice {
	return &fakeDevice{config: cfg}
}

func (d *fakeDevice) GetConfig(ctx context.Context) (*snapshot.Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gets++
	if d.getErr != nil {
		return nil, d.getErr
	}
	return d.config.Clone(), nil
}

func (d *fakeDevice) Submit(ctx context.Context, form snapshot.Form, fields *snapshot.Snapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submits = append(d.submits, submission{form: form, fields: fields.Clone()})
	if d.submitErr != nil {
		return d.submitErr
	}
	next := d.config.Merge(fields)
	if d.normalize != nil {
		next = d.normalize(next)
	}
	d.config = next
	return nil
}

func (d *fakeDevice) Command(ctx context.Context, cmd deviceapi.Command) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = append(d.commands, cmd)
	return d.commandErr
}

func (d *fakeDevice) setGetErr(err error) {
	d.mu.Lock()
	d.getErr = err
	d.mu.Unlock()
}

func (d *fakeDevice) getCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gets
}

type fakeSender struct {
	mu   sync.Mutex
	ok   bool
	sent []any
}

func (f *fakeSender) Send(msg any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.ok {
		return false
	}
	f.sent = append(f.sent, msg)
	return true
}

func deviceConfig() *snapshot.Snapshot {
	return snapshot.New().
		Set("deviceName", snapshot.String("stage-left")).
		Set("dhcpEnabled", snapshot.Bool(false)).
		Set("staticIP", snapshot.String("10.0.0.20")).
		Set("staticMask", snapshot.String("255.255.255.0")).
		Set("staticGateway", snapshot.String("10.0.0.1")).
		Set("artnetNet", snapshot.Int(0)).
		Set("artnetSubnet", snapshot.Int(0)).
		Set("artnetUniverse", snapshot.Int(1)).
		Set("dmxStartAddress", snapshot.Int(1)).
		Set("pixelCount", snapshot.Int(60)).
		Set("pixelType", snapshot.Int(0)).
		Set("pixelEnabled", snapshot.Bool(true))
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func fieldValue(t *testing.T, v *MemoryView, key string) snapshot.Value {
	t.Helper()
	val, ok := v.Field(key)
	if !ok {
		t.Fatalf("view has no field %q", key)
	}
	return val
}

func newTestSync(dev *fakeDevice) (*Synchronizer, *MemoryView, *cache.SnapshotCache) {
	view := NewMemoryView()
	store := cache.NewSnapshotCache(cache.NewMemoryStore())
	return New(dev, store, view, Options{RefreshDelay: 10 * time.Millisecond}), view, store
}

func TestApplySnapshotSkipsExcludedAndAbsentKeys(t *testing.T) {
	s, view, _ := newTestSync(newFakeDevice(snapshot.New()))

	view.Edit("deviceName", snapshot.String("typing..."))
	s.ApplySnapshot(deviceConfig(), "deviceName")

	if got := fieldValue(t, view, "deviceName").String(); got != "typing..." {
		t.Errorf("excluded field overwritten: %q", got)
	}
	if got := fieldValue(t, view, "staticIP").String(); got != "10.0.0.20" {
		t.Errorf("staticIP = %q", got)
	}

	before := view.Values()
	s.ApplySnapshot(snapshot.New().Set("pixelCount", snapshot.Int(144)), "")
	after := view.Values()

	if got := fieldValue(t, view, "pixelCount").Int(); got != 144 {
		t.Errorf("pixelCount = %d", got)
	}
	for _, key := range []string{"deviceName", "staticIP", "artnetUniverse", "ssid"} {
		b, _ := before.Get(key)
		a, _ := after.Get(key)
		if a != b {
			t.Errorf("absent key %q changed from %v to %v", key, b, a)
		}
	}
}

func TestApplySnapshotCoercesValues(t *testing.T) {
	s, view, _ := newTestSync(newFakeDevice(snapshot.New()))

	s.ApplySnapshot(snapshot.New().
		Set("artnetUniverse", snapshot.String("3")).
		Set("pixelEnabled", snapshot.String("true")).
		Set("deviceName", snapshot.Int(42)).
		Set("pixelCount", snapshot.String("lots")).
		Set("unknownKey", snapshot.String("ignored")), "")

	if v := fieldValue(t, view, "artnetUniverse"); v.Kind() != snapshot.KindInt || v.Int() != 3 {
		t.Errorf("artnetUniverse = %v", v)
	}
	if v := fieldValue(t, view, "pixelEnabled"); v.Kind() != snapshot.KindBool || !v.Bool() {
		t.Errorf("pixelEnabled = %v", v)
	}
	if v := fieldValue(t, view, "deviceName"); v.String() != "42" {
		t.Errorf("deviceName = %v", v)
	}
	if v := fieldValue(t, view, "pixelCount"); v.Int() != 0 {
		t.Errorf("uncoercible value replaced widget: %v", v)
	}
	if _, ok := view.Field("unknownKey"); ok {
		t.Error("unknown key reached the view")
	}
}

func TestRefreshFailureLeavesStateUntouched(t *testing.T) {
	dev := newFakeDevice(deviceConfig())
	s, view, store := newTestSync(dev)

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	values := view.Values()
	writes := view.Writes()
	current := s.Current()
	cached, _ := store.Load()

	dev.setGetErr(deviceapi.NewHTTPError(503, "/api/config", ""))
	if err := s.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh() should fail")
	}

	if !view.Values().Equal(values) {
		t.Error("view changed after failed refresh")
	}
	if view.Writes() != writes {
		t.Errorf("view written %d times after failed refresh", view.Writes()-writes)
	}
	if !s.Current().Equal(current) {
		t.Error("snapshot changed after failed refresh")
	}
	if again, _ := store.Load(); !again.Equal(cached) {
		t.Error("cache changed after failed refresh")
	}
	if n := len(view.Notices()); n != 0 {
		t.Errorf("failed refresh produced %d notices", n)
	}
}

func TestRefreshSkipsFocusedField(t *testing.T) {
	dev := newFakeDevice(deviceConfig())
	s, view, _ := newTestSync(dev)

	view.Focus("artnetUniverse")
	view.Edit("artnetUniverse", snapshot.Int(7))

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got := fieldValue(t, view, "artnetUniverse").Int(); got != 7 {
		t.Errorf("focused field = %d, want the user's 7", got)
	}
	if got, _ := s.Current().Get("artnetUniverse"); got.Int() != 1 {
		t.Errorf("snapshot universe = %v, want device value 1", got)
	}

	view.Focus("")
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got := fieldValue(t, view, "artnetUniverse").Int(); got != 1 {
		t.Errorf("universe after blur = %d, want 1", got)
	}
}

func TestDHCPControlsStaticGroup(t *testing.T) {
	dev := newFakeDevice(deviceConfig().Set("dhcpEnabled", snapshot.Bool(true)))
	s, view, _ := newTestSync(dev)

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if view.GroupVisible(GroupStaticIP) {
		t.Error("static group visible with DHCP on")
	}

	view.Edit("dhcpEnabled", snapshot.Bool(false))
	s.FieldChanged("dhcpEnabled")
	if !view.GroupVisible(GroupStaticIP) {
		t.Error("static group hidden after switching DHCP off")
	}

	dev.mu.Lock()
	dev.config.Set("dhcpEnabled", snapshot.Bool(true))
	dev.mu.Unlock()
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if view.GroupVisible(GroupStaticIP) {
		t.Error("static group visible after device reported DHCP on")
	}
}

func TestSubmitFailureRollsBack(t *testing.T) {
	dev := newFakeDevice(deviceConfig())
	s, view, store := newTestSync(dev)
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	dev.submitErr = deviceapi.NewHTTPError(500, "/api/artnet", "")

	view.Edit("artnetUniverse", snapshot.Int(9))
	err := s.SubmitForm(context.Background(), snapshot.FormArtNet)
	if !deviceapi.IsHTTPError(err) {
		t.Fatalf("SubmitForm() error = %v, want HTTP error", err)
	}

	if got := fieldValue(t, view, "artnetUniverse").Int(); got != 1 {
		t.Errorf("universe after rollback = %d, want 1", got)
	}
	if got, _ := s.Current().Get("artnetUniverse"); got.Int() != 1 {
		t.Errorf("snapshot universe = %v, want 1", got)
	}
	if cached, _ := store.Load(); cached == nil {
		t.Error("cache lost")
	} else if got, _ := cached.Get("artnetUniverse"); got.Int() != 1 {
		t.Errorf("cached universe = %v, want 1", got)
	}

	notices := view.Notices()
	if len(notices) != 1 {
		t.Fatalf("notices = %v", notices)
	}
	if notices[0].Level != LevelError || notices[0].Message != "Art-Net settings failed: HTTP error! status: 500" {
		t.Errorf("notice = %+v", notices[0])
	}

	events := view.FormEvents()
	want := []FormEvent{{snapshot.FormArtNet, false}, {snapshot.FormArtNet, true}}
	if len(events) != len(want) || events[0] != want[0] || events[1] != want[1] {
		t.Errorf("form events = %v, want %v", events, want)
	}
	if !view.FormEnabled(snapshot.FormArtNet) {
		t.Error("form left disabled")
	}
}

func TestSubmitFailureKeepsFocusedEdit(t *testing.T) {
	dev := newFakeDevice(deviceConfig().Set("artnetUniverse", snapshot.Int(3)))
	s, view, _ := newTestSync(dev)
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	dev.submitErr = deviceapi.NewNetworkError("connection reset", "/api/artnet", errors.New("connection reset by peer"))

	view.Focus("artnetUniverse")
	view.Edit("artnetUniverse", snapshot.Int(12))
	view.Edit("artnetNet", snapshot.Int(4))
	if err := s.SubmitForm(context.Background(), snapshot.FormArtNet); err == nil {
		t.Fatal("SubmitForm() error = nil, want network error")
	}

	if got := fieldValue(t, view, "artnetUniverse").Int(); got != 12 {
		t.Errorf("focused universe = %d, want the user's 12", got)
	}
	if got := fieldValue(t, view, "artnetNet").Int(); got != 0 {
		t.Errorf("unfocused net = %d, want rollback to 0", got)
	}
	if got, _ := s.Current().Get("artnetUniverse"); got.Int() != 3 {
		t.Errorf("snapshot universe = %v, want 3", got)
	}
}

func TestSubmitFormRejectsUnreadableValue(t *testing.T) {
	tests := []struct {
		name    string
		form    snapshot.Form
		key     string
		value   snapshot.Value
		wantMsg string
	}{
		{
			name:    "text in int field",
			form:    snapshot.FormArtNet,
			key:     "artnetUniverse",
			value:   snapshot.String("abc"),
			wantMsg: `Art-Net settings not sent: Universe is not a valid int: "abc"`,
		},
		{
			name:    "text in bool field",
			form:    snapshot.FormNetwork,
			key:     "dhcpEnabled",
			value:   snapshot.String("maybe"),
			wantMsg: `Network settings not sent: DHCP is not a valid bool: "maybe"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newFakeDevice(deviceConfig())
			s, view, _ := newTestSync(dev)
			if err := s.Refresh(context.Background()); err != nil {
				t.Fatalf("Refresh() error = %v", err)
			}

			view.Edit(tt.key, tt.value)
			err := s.SubmitForm(context.Background(), tt.form)
			if !deviceapi.IsValidationError(err) {
				t.Fatalf("SubmitForm() error = %v, want validation error", err)
			}

			dev.mu.Lock()
			submits := len(dev.submits)
			dev.mu.Unlock()
			if submits != 0 {
				t.Errorf("device saw %d submits, want none", submits)
			}

			notices := view.Notices()
			if len(notices) != 1 {
				t.Fatalf("notices = %v", notices)
			}
			if notices[0].Level != LevelError || notices[0].Message != tt.wantMsg {
				t.Errorf("notice = %+v, want error %q", notices[0], tt.wantMsg)
			}
			if events := view.FormEvents(); len(events) != 0 {
				t.Errorf("form events = %v, want none", events)
			}
			if got := fieldValue(t, view, tt.key); got != tt.value {
				t.Errorf("%s = %v, want the user's %v left in place", tt.key, got, tt.value)
			}
		})
	}
}

func TestSubmitSuccessConvergesToDevice(t *testing.T) {
	dev := newFakeDevice(deviceConfig())
	dev.normalize = func(s *snapshot.Snapshot) *snapshot.Snapshot {
		if v, ok := s.Get("artnetUniverse"); ok && v.Int() > 15 {
			s.Set("artnetUniverse", snapshot.Int(15))
		}
		return s
	}
	s, view, store := newTestSync(dev)
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	gets := dev.getCount()

	fields := snapshot.New().Set("artnetUniverse", snapshot.Int(20))
	if err := s.Submit(context.Background(), snapshot.FormArtNet, fields); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if got, _ := s.Current().Get("artnetUniverse"); got.Int() != 20 {
		t.Errorf("optimistic universe = %v, want 20", got)
	}
	notices := view.Notices()
	if len(notices) != 1 || notices[0].Level != LevelSuccess || notices[0].Message != "Art-Net settings saved" {
		t.Errorf("notices = %+v", notices)
	}
	if !view.FormEnabled(snapshot.FormArtNet) {
		t.Error("form left disabled")
	}

	eventually(t, "delayed refresh", func() bool { return dev.getCount() > gets })
	eventually(t, "device value", func() bool {
		v, _ := view.Field("artnetUniverse")
		return v.Int() == 15
	})
	if got, _ := s.Current().Get("artnetUniverse"); got.Int() != 15 {
		t.Errorf("converged universe = %v, want 15", got)
	}
	if cached, _ := store.Load(); cached == nil {
		t.Error("nothing cached")
	} else if got, _ := cached.Get("artnetUniverse"); got.Int() != 15 {
		t.Errorf("cached universe = %v, want 15", got)
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()
	if len(dev.submits) != 1 || dev.submits[0].form != snapshot.FormArtNet {
		t.Errorf("submits = %+v", dev.submits)
	}
}

func TestSubmitAPNeverCachesPassword(t *testing.T) {
	dev := newFakeDevice(deviceConfig())
	s, view, store := newTestSync(dev)

	view.Edit("ssid", snapshot.String("DMX-AP"))
	view.Edit("password", snapshot.String("hunter22"))
	view.Edit("enabled", snapshot.Bool(true))
	if err := s.SubmitForm(context.Background(), snapshot.FormAP); err != nil {
		t.Fatalf("SubmitForm() error = %v", err)
	}

	dev.mu.Lock()
	sent := dev.submits[0].fields
	dev.mu.Unlock()
	if v, _ := sent.Get("password"); v.String() != "hunter22" {
		t.Errorf("password not submitted: %v", v)
	}
	if sent.Len() != 3 {
		t.Errorf("submitted %d fields, want 3", sent.Len())
	}

	cached, ok := store.Load()
	if !ok {
		t.Fatal("nothing cached")
	}
	if _, ok := cached.Get("password"); ok {
		t.Error("password written to cache")
	}
	if !view.GroupVisible(GroupAPStatus) {
		t.Error("AP status group hidden after enabling the AP")
	}
}

func TestLoadInitialFallsBackToCache(t *testing.T) {
	dev := newFakeDevice(nil)
	dev.getErr = deviceapi.NewNetworkError("unreachable", "/api/config", errors.New("no route"))
	s, view, store := newTestSync(dev)
	store.Save(deviceConfig())

	if err := s.LoadInitial(context.Background()); err == nil {
		t.Fatal("LoadInitial() should report the failed fetch")
	}
	if got := fieldValue(t, view, "deviceName").String(); got != "stage-left" {
		t.Errorf("deviceName = %q, want cached value", got)
	}
	if !view.GroupVisible(GroupStaticIP) {
		t.Error("cached DHCP off should show the static group")
	}
	if !s.Current().Equal(deviceConfig()) {
		t.Error("snapshot does not match cache")
	}
}

func TestLoadInitialFetchesAndCaches(t *testing.T) {
	cfg := deviceConfig().Set("password", snapshot.String("secret"))
	dev := newFakeDevice(cfg)
	s, view, store := newTestSync(dev)

	if err := s.LoadInitial(context.Background()); err != nil {
		t.Fatalf("LoadInitial() error = %v", err)
	}
	if got := fieldValue(t, view, "pixelCount").Int(); got != 60 {
		t.Errorf("pixelCount = %d", got)
	}
	cached, ok := store.Load()
	if !ok {
		t.Fatal("nothing cached")
	}
	if !cached.Equal(deviceConfig()) {
		t.Errorf("cached %v", cached.Keys())
	}
}

func TestHandleConfigMergesPartialPush(t *testing.T) {
	dev := newFakeDevice(deviceConfig())
	s, view, store := newTestSync(dev)
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	s.HandleConfig(snapshot.New().Set("pixelCount", snapshot.Int(300)))

	if got := fieldValue(t, view, "pixelCount").Int(); got != 300 {
		t.Errorf("pixelCount = %d", got)
	}
	if got := fieldValue(t, view, "deviceName").String(); got != "stage-left" {
		t.Errorf("deviceName = %q", got)
	}
	current := s.Current()
	if current.Len() != deviceConfig().Len() {
		t.Errorf("snapshot has %d keys", current.Len())
	}
	if cached, _ := store.Load(); cached == nil {
		t.Error("push not cached")
	} else if v, _ := cached.Get("pixelCount"); v.Int() != 300 {
		t.Errorf("cached pixelCount = %v", v)
	}
}

func TestHandleStatus(t *testing.T) {
	s, view, _ := newTestSync(newFakeDevice(snapshot.New()))

	enabled, stations := true, 2
	s.HandleStatus(snapshot.Status{Uptime: 90, RSSI: -60, FreeHeap: 120000, APEnabled: &enabled, APIP: "192.168.4.1", APStations: &stations})

	st, ok := view.Status()
	if !ok || st.RSSI != -60 {
		t.Errorf("status = %+v, %v", st, ok)
	}
	ap, ok := view.APStatus()
	if !ok || ap.IP != "192.168.4.1" || ap.Stations != 2 {
		t.Errorf("ap = %+v, %v", ap, ok)
	}
	if !view.GroupVisible(GroupAPStatus) {
		t.Error("AP group hidden")
	}

	s.HandleAPStatus(snapshot.APStatus{Enabled: false})
	if view.GroupVisible(GroupAPStatus) {
		t.Error("AP group visible after AP disabled")
	}
}

func TestCommands(t *testing.T) {
	dev := newFakeDevice(snapshot.New())
	s, view, _ := newTestSync(dev)

	if err := s.Reboot(context.Background()); err != nil {
		t.Fatalf("Reboot() error = %v", err)
	}
	dev.commandErr = deviceapi.NewHTTPError(500, "/api/factory-reset", "")
	if err := s.FactoryReset(context.Background()); err == nil {
		t.Fatal("FactoryReset() should fail")
	}

	notices := view.Notices()
	if len(notices) != 2 {
		t.Fatalf("notices = %+v", notices)
	}
	if notices[0].Level != LevelSuccess || notices[0].Message != "Reboot command sent" {
		t.Errorf("first notice = %+v", notices[0])
	}
	if notices[1].Level != LevelError || notices[1].Message != "Command failed: HTTP error! status: 500" {
		t.Errorf("second notice = %+v", notices[1])
	}
	if len(dev.commands) != 2 || dev.commands[1] != deviceapi.CommandFactoryReset {
		t.Errorf("commands = %v", dev.commands)
	}
}

func TestPixelTest(t *testing.T) {
	s, view, _ := newTestSync(newFakeDevice(snapshot.New()))

	if s.PixelTest(1) {
		t.Error("PixelTest() without a sender should report false")
	}

	sender := &fakeSender{}
	s.SetSender(sender)
	if s.PixelTest(1) {
		t.Error("PixelTest() while disconnected should report false")
	}

	sender.ok = true
	if !s.PixelTest(2) {
		t.Fatal("PixelTest() should report true")
	}
	if len(sender.sent) != 1 || sender.sent[0] != protocol.NewPixelTest(2) {
		t.Errorf("sent = %v", sender.sent)
	}

	s.HandlePixelTest(snapshot.PixelTestResult{Success: false, Message: "pixels disabled"})
	notices := view.Notices()
	if len(notices) != 1 || notices[0].Level != LevelError || !strings.Contains(notices[0].Message, "pixels disabled") {
		t.Errorf("notices = %+v", notices)
	}
}

func TestRunPollsWhileVisible(t *testing.T) {
	dev := newFakeDevice(deviceConfig())
	view := NewMemoryView()
	s := New(dev, nil, view, Options{PollInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx)
		close(done)
	}()

	eventually(t, "periodic refreshes", func() bool { return dev.getCount() >= 3 })
	cancel()
	<-done
}

func TestRunSkipsPollsWhileHidden(t *testing.T) {
	dev := newFakeDevice(deviceConfig())
	s := New(dev, nil, NewMemoryView(), Options{PollInterval: 10 * time.Millisecond})
	s.SetVisible(false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	time.Sleep(80 * time.Millisecond)
	if n := dev.getCount(); n != 0 {
		t.Errorf("%d refreshes while hidden", n)
	}
}

func TestRunRefreshesOnVisibilityRegained(t *testing.T) {
	dev := newFakeDevice(deviceConfig())
	view := NewMemoryView()
	s := New(dev, nil, view, Options{PollInterval: time.Hour})
	s.SetVisible(false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	s.SetVisible(true)
	eventually(t, "refresh on visibility", func() bool { return dev.getCount() == 1 })
	eventually(t, "view updated", func() bool {
		v, _ := view.Field("deviceName")
		return v.String() == "stage-left"
	})

	s.SetVisible(true)
	time.Sleep(30 * time.Millisecond)
	if n := dev.getCount(); n != 1 {
		t.Errorf("staying visible triggered %d refreshes", n)
	}
}
