package protocol

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/muurk/dmxsync/internal/logging"
	"github.com/muurk/dmxsync/internal/snapshot"
	"go.uber.org/zap"
)

// Handler consumes recognized push messages. Calls arrive in wire order from
// a single goroutine.
type Handler interface {
	HandleStatus(snapshot.Status)
	HandleConfig(*snapshot.Snapshot)
	HandleAPStatus(snapshot.APStatus)
	HandlePixelTest(snapshot.PixelTestResult)
}

// Funcs adapts optional functions to Handler. Nil fields ignore the message.
type Funcs struct {
	Status    func(snapshot.Status)
	Config    func(*snapshot.Snapshot)
	APStatus  func(snapshot.APStatus)
	PixelTest func(snapshot.PixelTestResult)
}

func (f Funcs) HandleStatus(s snapshot.Status) {
	if f.Status != nil {
		f.Status(s)
	}
}

func (f Funcs) HandleConfig(s *snapshot.Snapshot) {
	if f.Config != nil {
		f.Config(s)
	}
}

func (f Funcs) HandleAPStatus(s snapshot.APStatus) {
	if f.APStatus != nil {
		f.APStatus(s)
	}
}

func (f Funcs) HandlePixelTest(r snapshot.PixelTestResult) {
	if f.PixelTest != nil {
		f.PixelTest(r)
	}
}

// Dispatcher decodes raw push payloads and fans them out to handlers.
// Nothing it is given can make it panic or return an error that should close
// the connection; the returned error is informational.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewDispatcher returns a dispatcher delivering to handlers in order.
func NewDispatcher(handlers ...Handler) *Dispatcher {
	return &Dispatcher{handlers: handlers}
}

// Add registers another handler.
func (d *Dispatcher) Add(h Handler) {
	d.mu.Lock()
	d.handlers = append(d.handlers, h)
	d.mu.Unlock()
}

// Dispatch decodes data and delivers it. Malformed payloads and unknown types
// are logged and discarded.
func (d *Dispatcher) Dispatch(data []byte) error {
	env, err := Decode(data)
	if err != nil {
		logging.Warn("Discarding malformed push message", zap.Error(err), zap.Int("length", len(data)))
		return err
	}
	logging.LogPushMessage("received", string(env.Type), data)

	switch env.Type {
	case TypeStatus:
		var s snapshot.Status
		if err := json.Unmarshal(env.Raw, &s); err != nil {
			return d.malformed(env.Type, err)
		}
		d.each(env.Type, func(h Handler) { h.HandleStatus(s) })

	case TypeConfig:
		snap, err := snapshot.Parse(env.Raw)
		if err != nil {
			return d.malformed(env.Type, err)
		}
		snap.Delete("type")
		d.each(env.Type, func(h Handler) { h.HandleConfig(snap.Clone()) })

	case TypeAPStatus:
		var ap snapshot.APStatus
		if err := json.Unmarshal(env.Raw, &ap); err != nil {
			return d.malformed(env.Type, err)
		}
		d.each(env.Type, func(h Handler) { h.HandleAPStatus(ap) })

	case TypePixelTest:
		var r snapshot.PixelTestResult
		if err := json.Unmarshal(env.Raw, &r); err != nil {
			return d.malformed(env.Type, err)
		}
		d.each(env.Type, func(h Handler) { h.HandlePixelTest(r) })

	case TypeConfigUpdate:
		var u ConfigUpdate
		_ = json.Unmarshal(env.Raw, &u)
		logging.Info("Device acknowledged config update", zap.String("status", u.Status), zap.String("message", u.Message))

	case TypeError:
		var e ErrorMessage
		_ = json.Unmarshal(env.Raw, &e)
		logging.Warn("Device reported an error", zap.String("message", e.Message))

	default:
		logging.Warn("Ignoring push message of unknown type", zap.String("type", string(env.Type)))
		return fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	return nil
}

func (d *Dispatcher) malformed(t Type, err error) error {
	logging.Warn("Discarding malformed push message", zap.String("type", string(t)), zap.Error(err))
	return fmt.Errorf("%w: %s: %v", ErrMalformed, t, err)
}

// each delivers to every handler, containing panics so one faulty consumer
// cannot take down the read loop or starve the others.
func (d *Dispatcher) each(t Type, deliver func(Handler)) {
	d.mu.RLock()
	handlers := make([]Handler, len(d.handlers))
	copy(handlers, d.handlers)
	d.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logging.Error("Push handler panicked", zap.String("type", string(t)), zap.Any("panic", r))
				}
			}()
			deliver(h)
		}()
	}
}
