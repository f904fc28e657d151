package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/muurk/dmxsync/internal/cache"
	"github.com/muurk/dmxsync/internal/config"
	"github.com/muurk/dmxsync/internal/configsync"
	"github.com/muurk/dmxsync/internal/deviceapi"
	"github.com/muurk/dmxsync/internal/protocol"
	"github.com/muurk/dmxsync/internal/push"
	"github.com/muurk/dmxsync/internal/tui"
)

const retryDelay = time.Second

var errNoHost = errors.New("no device host: pass --host, set DMXSYNC_HOST or run 'dmxsync config set-host'")

// session is the full sync stack for one device.
type session struct {
	settings   *config.Settings
	device     *deviceapi.Client
	sync       *configsync.Synchronizer
	dispatcher *protocol.Dispatcher
	push       *push.Client
}

func requireHost(s *config.Settings) error {
	if strings.TrimSpace(s.Device.Host) == "" {
		return errNoHost
	}
	return nil
}

// withHost returns a copy of s pointing at host.
func withHost(s *config.Settings, host string) *config.Settings {
	cp := *s
	cp.Device.Host = host
	return &cp
}

func newDeviceClient(s *config.Settings) *deviceapi.Client {
	client := deviceapi.NewClientWithURL(s.BaseURL())
	client.SetTimeout(s.Sync.RequestTimeout)
	client.SetRetry(flagRetries, retryDelay)
	return client
}

// newSession wires cache, REST client, synchronizer, dispatcher and push
// client. Nothing is started. Extra state observers run after the
// synchronizer's own.
func newSession(s *config.Settings, view configsync.View, observers ...func(push.State)) (*session, error) {
	if err := requireHost(s); err != nil {
		return nil, err
	}

	store, err := cache.Open(s.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	device := newDeviceClient(s)
	sync := configsync.New(device, cache.NewSnapshotCache(store), view, configsync.Options{
		PollInterval: s.Sync.PollInterval,
		RefreshDelay: s.Sync.RefreshDelay,
	})
	dispatcher := protocol.NewDispatcher(sync)

	opts := []push.Option{
		push.WithReconnectDelay(s.Push.ReconnectDelay),
		push.WithMaxAttempts(s.Push.MaxAttempts),
		push.WithPingInterval(s.Push.PingInterval),
		push.OnStateChange(func(st push.State) {
			sync.SetConnected(st == push.Connected)
		}),
	}
	if s.Push.RequestOnConnect {
		opts = append(opts, push.WithRequestOnConnect())
	}
	for _, o := range observers {
		opts = append(opts, push.OnStateChange(o))
	}

	client := push.New(s.PushURL(), dispatcher, opts...)
	sync.SetSender(client)

	return &session{
		settings:   s,
		device:     device,
		sync:       sync,
		dispatcher: dispatcher,
		push:       client,
	}, nil
}

// connector builds dashboard sessions from the resolved settings.
func connector(base *config.Settings) tui.Connector {
	return func(host string) (*tui.Session, error) {
		bridge := tui.NewBridge()
		sess, err := newSession(withHost(base, host), bridge)
		if err != nil {
			return nil, err
		}
		return &tui.Session{
			Host:   host,
			Sync:   sess.sync,
			Bridge: bridge,
			Push:   sess.push,
		}, nil
	}
}
