package configsync

import (
	"github.com/muurk/dmxsync/internal/protocol"
	"github.com/muurk/dmxsync/internal/snapshot"
)

var _ protocol.Handler = (*Synchronizer)(nil)

// HandleStatus shows a live status broadcast.
func (s *Synchronizer) HandleStatus(st snapshot.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.ShowStatus(st)
	if ap, ok := st.AP(); ok {
		s.view.ShowAPStatus(ap)
		s.view.SetGroupVisible(GroupAPStatus, ap.Enabled)
	}
}

// HandleConfig reconciles a pushed configuration. Pushes may carry a subset
// of keys, so they are overlaid on the known-good snapshot.
func (s *Synchronizer) HandleConfig(snap *snapshot.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconcileLocked(s.current.Merge(snap))
}

// HandleAPStatus shows the access point state.
func (s *Synchronizer) HandleAPStatus(ap snapshot.APStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.ShowAPStatus(ap)
	s.view.SetGroupVisible(GroupAPStatus, ap.Enabled)
}

// HandlePixelTest reports the device's answer to a pixel test request.
func (s *Synchronizer) HandlePixelTest(r snapshot.PixelTestResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Success {
		msg := "Pixel test started"
		if r.Message != "" {
			msg = r.Message
		}
		s.notifyLocked(LevelSuccess, msg)
		return
	}
	msg := "Pixel test failed"
	if r.Message != "" {
		msg += ": " + r.Message
	}
	s.notifyLocked(LevelError, msg)
}
