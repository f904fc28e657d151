package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/dmxsync/internal/configsync"
	"github.com/muurk/dmxsync/internal/snapshot"
)

// viewChangedMsg tells the dashboard to re-render after the synchronizer
// touched the view.
type viewChangedMsg struct{}

// Bridge is the View the synchronizer drives while the dashboard is
// running. It keeps widget state in a MemoryView, which the dashboard reads
// when rendering, and wakes the bubbletea loop after every write. Wakeups
// coalesce: any number of writes between renders produce one message.
type Bridge struct {
	*configsync.MemoryView
	changed chan struct{}
}

var _ configsync.View = (*Bridge)(nil)

// NewBridge returns a bridge seeded with the field defaults.
func NewBridge() *Bridge {
	return &Bridge{
		MemoryView: configsync.NewMemoryView(),
		changed:    make(chan struct{}, 1),
	}
}

func (b *Bridge) signal() {
	select {
	case b.changed <- struct{}{}:
	default:
	}
}

func (b *Bridge) SetField(f snapshot.Field, v snapshot.Value) {
	b.MemoryView.SetField(f, v)
	b.signal()
}

func (b *Bridge) SetFormEnabled(form snapshot.Form, enabled bool) {
	b.MemoryView.SetFormEnabled(form, enabled)
	b.signal()
}

func (b *Bridge) SetGroupVisible(g configsync.Group, visible bool) {
	b.MemoryView.SetGroupVisible(g, visible)
	b.signal()
}

func (b *Bridge) Notify(n configsync.Notice) {
	b.MemoryView.Notify(n)
	b.signal()
}

func (b *Bridge) SetConnected(connected bool) {
	b.MemoryView.SetConnected(connected)
	b.signal()
}

func (b *Bridge) ShowStatus(s snapshot.Status) {
	b.MemoryView.ShowStatus(s)
	b.signal()
}

func (b *Bridge) ShowAPStatus(a snapshot.APStatus) {
	b.MemoryView.ShowAPStatus(a)
	b.signal()
}

// Wait returns a command that blocks until the view changes or ctx ends.
// The dashboard re-issues it after every viewChangedMsg.
func (b *Bridge) Wait(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-b.changed:
			return viewChangedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}
