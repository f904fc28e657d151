package configsync

import (
	"sync"

	"github.com/muurk/dmxsync/internal/snapshot"
)

// MemoryView is a headless View. It backs the watch command and tests.
type MemoryView struct {
	mu          sync.Mutex
	fields      *snapshot.Snapshot
	focused     string
	disabled    map[snapshot.Form]bool
	formEvents  []FormEvent
	hidden      map[Group]bool
	notices     []Notice
	connected   bool
	status      *snapshot.Status
	ap          *snapshot.APStatus
	setCount    int
	OnNotice    func(Notice)
	OnStatus    func(snapshot.Status)
	OnConnected func(bool)
}

// FormEvent records a form being disabled or re-enabled.
type FormEvent struct {
	Form    snapshot.Form
	Enabled bool
}

// NewMemoryView returns a view whose widgets hold the field defaults.
func NewMemoryView() *MemoryView {
	return &MemoryView{
		fields:   snapshot.Defaults(),
		disabled: make(map[snapshot.Form]bool),
		hidden:   make(map[Group]bool),
	}
}

func (m *MemoryView) SetField(f snapshot.Field, v snapshot.Value) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fields.Set(f.Key, v)
	m.setCount++
}

func (m *MemoryView) Field(key string) (snapshot.Value, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fields.Get(key)
}

func (m *MemoryView) Focused() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.focused
}

func (m *MemoryView) SetFormEnabled(form snapshot.Form, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disabled[form] = !enabled
	m.formEvents = append(m.formEvents, FormEvent{Form: form, Enabled: enabled})
}

func (m *MemoryView) SetGroupVisible(g Group, visible bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hidden[g] = !visible
}

func (m *MemoryView) Notify(n Notice) {
	m.mu.Lock()
	m.notices = append(m.notices, n)
	cb := m.OnNotice
	m.mu.Unlock()
	if cb != nil {
		cb(n)
	}
}

func (m *MemoryView) SetConnected(connected bool) {
	m.mu.Lock()
	m.connected = connected
	cb := m.OnConnected
	m.mu.Unlock()
	if cb != nil {
		cb(connected)
	}
}

func (m *MemoryView) ShowStatus(s snapshot.Status) {
	m.mu.Lock()
	m.status = &s
	cb := m.OnStatus
	m.mu.Unlock()
	if cb != nil {
		cb(s)
	}
}

func (m *MemoryView) ShowAPStatus(a snapshot.APStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ap = &a
}

// Focus simulates the user placing the cursor in a field ("" clears it).
func (m *MemoryView) Focus(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.focused = key
}

// Edit simulates the user typing a value without submitting it.
func (m *MemoryView) Edit(key string, v snapshot.Value) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fields.Set(key, v)
}

// Values returns a copy of every widget value.
func (m *MemoryView) Values() *snapshot.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fields.Clone()
}

// FormEnabled reports whether form's inputs accept edits.
func (m *MemoryView) FormEnabled(form snapshot.Form) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.disabled[form]
}

// FormEvents returns every enable/disable call in order.
func (m *MemoryView) FormEvents() []FormEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]FormEvent(nil), m.formEvents...)
}

// GroupVisible reports whether g is shown.
func (m *MemoryView) GroupVisible(g Group) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.hidden[g]
}

// Notices returns every notification shown so far.
func (m *MemoryView) Notices() []Notice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notice(nil), m.notices...)
}

// Connected reports the indicator state.
func (m *MemoryView) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Status returns the last status shown, if any.
func (m *MemoryView) Status() (snapshot.Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == nil {
		return snapshot.Status{}, false
	}
	return *m.status, true
}

// APStatus returns the last access point status shown, if any.
func (m *MemoryView) APStatus() (snapshot.APStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ap == nil {
		return snapshot.APStatus{}, false
	}
	return *m.ap, true
}

// Writes counts SetField calls.
func (m *MemoryView) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setCount
}
