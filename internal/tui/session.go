package tui

import (
	"context"

	"github.com/muurk/dmxsync/internal/configsync"
	"github.com/muurk/dmxsync/internal/push"
)

// Session is the sync machinery for one device, bound to a Bridge.
type Session struct {
	Host   string
	Sync   *configsync.Synchronizer
	Bridge *Bridge

	// Push may be nil, in which case the dashboard only polls.
	Push *push.Client

	ctx    context.Context
	cancel context.CancelFunc
}

// Connector builds a session for host. It must not start anything.
type Connector func(host string) (*Session, error)

// Start launches the poll loop and the push channel.
func (s *Session) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	ctx = s.ctx
	go func() { _ = s.Sync.Run(ctx) }()
	if s.Push != nil {
		s.Push.Start(ctx)
	}
}

// Context is cancelled by Stop. It is Background before Start.
func (s *Session) Context() context.Context {
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

// Stop ends the poll loop and closes the push channel.
func (s *Session) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.Push != nil {
		s.Push.Stop()
	}
}

// connectionLabel describes the push channel for the header.
func (s *Session) connectionLabel() (string, bool) {
	if s.Push == nil {
		return "polling", s.Bridge.Connected()
	}
	switch s.Push.State() {
	case push.Connected:
		return "connected", true
	case push.Connecting:
		return "connecting", false
	default:
		if s.Push.Exhausted() {
			return "offline, press c to reconnect", false
		}
		return "reconnecting", false
	}
}
