package configsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/muurk/dmxsync/internal/cache"
	"github.com/muurk/dmxsync/internal/config"
	"github.com/muurk/dmxsync/internal/deviceapi"
	"github.com/muurk/dmxsync/internal/logging"
	"github.com/muurk/dmxsync/internal/protocol"
	"github.com/muurk/dmxsync/internal/snapshot"
	"go.uber.org/zap"
)

// Device is the request/response side of the device. *deviceapi.Client
// satisfies it.
type Device interface {
	GetConfig(ctx context.Context) (*snapshot.Snapshot, error)
	Submit(ctx context.Context, form snapshot.Form, fields *snapshot.Snapshot) error
	Command(ctx context.Context, cmd deviceapi.Command) error
}

// Sender writes best-effort messages to the push channel. *push.Client
// satisfies it.
type Sender interface {
	Send(msg any) bool
}

// Options tunes the synchronizer's timers. Zero values select the defaults.
type Options struct {
	PollInterval time.Duration
	RefreshDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = config.DefaultPollInterval
	}
	if o.RefreshDelay <= 0 {
		o.RefreshDelay = config.DefaultRefreshDelay
	}
	return o
}

// Synchronizer keeps the view consistent with the device.
//
// Every state change and view write happens with mu held, so refresh results,
// push messages and submit completions are applied one at a time. No lock is
// held while a request is in flight.
type Synchronizer struct {
	device Device
	cache  *cache.SnapshotCache
	view   View
	opts   Options

	mu      sync.Mutex
	current *snapshot.Snapshot
	sender  Sender
	visible bool
	runCtx  context.Context

	wake chan struct{}
}

// New returns a synchronizer. cache may be nil to disable persistence.
func New(device Device, store *cache.SnapshotCache, view View, opts Options) *Synchronizer {
	return &Synchronizer{
		device:  device,
		cache:   store,
		view:    view,
		opts:    opts.withDefaults(),
		current: snapshot.New(),
		visible: true,
		wake:    make(chan struct{}, 1),
	}
}

// SetSender attaches the push channel used for pixel tests.
func (s *Synchronizer) SetSender(sender Sender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sender = sender
}

// Current returns a copy of the last known-good configuration.
func (s *Synchronizer) Current() *snapshot.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// LoadInitial shows the cached snapshot, if any, then fetches the live
// configuration. A failed fetch leaves the cached values on screen.
func (s *Synchronizer) LoadInitial(ctx context.Context) error {
	if s.cache != nil {
		if cached, ok := s.cache.Load(); ok {
			s.mu.Lock()
			s.current = cached
			s.applyLocked(cached, s.view.Focused())
			s.mu.Unlock()
			logging.Debug("Applied cached configuration", zap.Int("keys", cached.Len()))
		}
	}

	if err := s.Refresh(ctx); err != nil {
		logging.Warn("Initial configuration fetch failed, showing cached values", zap.Error(err))
		return err
	}
	return nil
}

// Refresh fetches the configuration and reconciles it into the view,
// skipping the focused field. On failure nothing changes.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	snap, err := s.device.GetConfig(ctx)
	if err != nil {
		logging.Warn("Configuration refresh failed", zap.String("error", deviceapi.GetShortErrorMessage(err)))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconcileLocked(snap)
	return nil
}

// ApplySnapshot writes every known key of snap into the view except the
// field named by exclude. Keys absent from snap leave their widget alone.
func (s *Synchronizer) ApplySnapshot(snap *snapshot.Snapshot, exclude string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(snap, exclude)
}

// reconcileLocked replaces the known-good snapshot and pushes it to the view
// and cache.
func (s *Synchronizer) reconcileLocked(snap *snapshot.Snapshot) {
	s.current = snap.Clone()
	s.applyLocked(snap, s.view.Focused())
	if s.cache != nil {
		s.cache.Save(snap)
	}
}

func (s *Synchronizer) applyLocked(snap *snapshot.Snapshot, exclude string) {
	for _, f := range snapshot.Fields() {
		v, ok := snap.Get(f.Key)
		if !ok {
			continue
		}
		if f.Key == exclude {
			logging.Debug("Skipping focused field", zap.String("field", f.Key))
			continue
		}
		cv, ok := snapshot.CoerceField(f, v)
		if !ok {
			logging.Warn("Ignoring value of wrong type",
				zap.String("field", f.Key),
				zap.Stringer("want", f.Kind),
				zap.Stringer("got", v.Kind()))
			continue
		}
		s.view.SetField(f, cv)
	}
	s.updateGroupsLocked()
}

// updateGroupsLocked derives group visibility from what the view displays.
func (s *Synchronizer) updateGroupsLocked() {
	if v, ok := s.view.Field("dhcpEnabled"); ok {
		if dhcp, ok := v.Coerce(snapshot.KindBool); ok {
			s.view.SetGroupVisible(GroupStaticIP, !dhcp.Bool())
		}
	}
	if v, ok := s.view.Field("enabled"); ok {
		if enabled, ok := v.Coerce(snapshot.KindBool); ok {
			s.view.SetGroupVisible(GroupAPStatus, enabled.Bool())
		}
	}
}

// FieldChanged is called by views after a local edit so dependent groups
// follow the new value.
func (s *Synchronizer) FieldChanged(key string) {
	logging.Debug("Field edited", zap.String("field", key))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateGroupsLocked()
}

// FormValues reads form's fields from the view, including unsubmitted edits.
// A shown value that does not fit its field's kind is a validation error
// naming the field.
func (s *Synchronizer) FormValues(form snapshot.Form) (*snapshot.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.formValuesLocked(form)
}

func (s *Synchronizer) formValuesLocked(form snapshot.Form) (*snapshot.Snapshot, error) {
	out := snapshot.New()
	for _, f := range snapshot.FormFields(form) {
		v, ok := s.view.Field(f.Key)
		if !ok {
			continue
		}
		cv, ok := snapshot.CoerceField(f, v)
		if !ok {
			return nil, deviceapi.NewValidationError(fmt.Sprintf("%s is not a valid %s: %q", f.Label, f.Kind, v.String()))
		}
		out.Set(f.Key, cv)
	}
	return out, nil
}

// SubmitForm submits form with the values currently shown in the view.
// Nothing is sent if a value cannot be read as its field's kind.
func (s *Synchronizer) SubmitForm(ctx context.Context, form snapshot.Form) error {
	s.mu.Lock()
	fields, err := s.formValuesLocked(form)
	if err != nil {
		logging.Warn("Settings not submitted", zap.String("form", string(form)), zap.Error(err))
		s.notifyLocked(LevelError, fmt.Sprintf("%s settings not sent: %s", form.Label(), deviceapi.GetShortErrorMessage(err)))
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	return s.Submit(ctx, form, fields)
}

// Submit posts fields to form's endpoint. The form is disabled for the
// duration and re-enabled however the request ends. On success the values
// are merged into the known-good snapshot and a refresh is scheduled; on
// failure the view is rolled back to the known-good snapshot.
func (s *Synchronizer) Submit(ctx context.Context, form snapshot.Form, fields *snapshot.Snapshot) error {
	s.mu.Lock()
	s.view.SetFormEnabled(form, false)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.view.SetFormEnabled(form, true)
		s.mu.Unlock()
	}()

	err := s.device.Submit(ctx, form, fields)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		logging.Warn("Settings submit failed",
			zap.String("form", string(form)),
			zap.Error(err))
		s.notifyLocked(LevelError, fmt.Sprintf("%s settings failed: %s", form.Label(), deviceapi.GetShortErrorMessage(err)))
		s.applyLocked(s.current, s.view.Focused())
		return err
	}

	s.current = s.current.Merge(fields)
	if s.cache != nil {
		s.cache.Save(s.current)
	}
	s.updateGroupsLocked()
	logging.Info("Settings saved", zap.String("form", string(form)), zap.Int("fields", fields.Len()))
	s.notifyLocked(LevelSuccess, form.Label()+" settings saved")
	s.scheduleRefreshLocked()
	return nil
}

// scheduleRefreshLocked fetches the device's view of the new settings after
// RefreshDelay.
func (s *Synchronizer) scheduleRefreshLocked() {
	ctx := s.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	time.AfterFunc(s.opts.RefreshDelay, func() {
		if ctx.Err() != nil {
			return
		}
		_ = s.Refresh(ctx)
	})
}

// Reboot asks the device to restart.
func (s *Synchronizer) Reboot(ctx context.Context) error {
	return s.command(ctx, deviceapi.CommandReboot)
}

// FactoryReset asks the device to erase its settings.
func (s *Synchronizer) FactoryReset(ctx context.Context) error {
	return s.command(ctx, deviceapi.CommandFactoryReset)
}

func (s *Synchronizer) command(ctx context.Context, cmd deviceapi.Command) error {
	err := s.device.Command(ctx, cmd)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.notifyLocked(LevelError, "Command failed: "+deviceapi.GetShortErrorMessage(err))
		return err
	}
	s.notifyLocked(LevelSuccess, cmd.Label()+" command sent")
	return nil
}

// PixelTest sends a pixel test request over the push channel. It reports
// whether the message was written; nothing is queued while disconnected.
func (s *Synchronizer) PixelTest(mode int) bool {
	s.mu.Lock()
	sender := s.sender
	s.mu.Unlock()

	if sender == nil {
		logging.Warn("No push channel, pixel test not sent", zap.Int("mode", mode))
		return false
	}
	return sender.Send(protocol.NewPixelTest(mode))
}

// SetVisible records whether the user can see the view. Becoming visible
// triggers an immediate refresh from Run.
func (s *Synchronizer) SetVisible(visible bool) {
	s.mu.Lock()
	was := s.visible
	s.visible = visible
	s.mu.Unlock()

	if visible && !was {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

// Visible reports the last visibility set.
func (s *Synchronizer) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// SetConnected updates the push connection indicator.
func (s *Synchronizer) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.SetConnected(connected)
}

// Run refreshes every PollInterval while visible, and immediately whenever
// visibility is regained. It returns when ctx is done.
func (s *Synchronizer) Run(ctx context.Context) error {
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !s.Visible() {
				logging.Debug("View hidden, skipping poll")
				continue
			}
			_ = s.Refresh(ctx)
		case <-s.wake:
			logging.Debug("View visible again, refreshing")
			_ = s.Refresh(ctx)
		}
	}
}

func (s *Synchronizer) notifyLocked(level Level, msg string) {
	s.view.Notify(Notice{Level: level, Message: msg, At: time.Now()})
}
