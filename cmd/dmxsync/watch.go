package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/dmxsync/internal/configsync"
	"github.com/muurk/dmxsync/internal/deviceapi"
	"github.com/muurk/dmxsync/internal/logging"
	"github.com/muurk/dmxsync/internal/mqtt"
	"github.com/muurk/dmxsync/internal/protocol"
	"github.com/muurk/dmxsync/internal/push"
	"github.com/muurk/dmxsync/internal/snapshot"
	"go.uber.org/zap"
)

var (
	watchMQTT   bool
	watchBroker string
	watchPrefix string
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVar(&watchMQTT, "mqtt", false, "Publish device state to the configured MQTT broker")
	watchCmd.Flags().StringVar(&watchBroker, "mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883 (implies --mqtt)")
	watchCmd.Flags().StringVar(&watchPrefix, "mqtt-prefix", "", "MQTT topic prefix (default from settings)")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the device without a dashboard",
	Long: `Follow the controller's push channel and poll its configuration,
printing status reports, configuration changes and connection events.

With --mqtt the same stream is published to an MQTT broker:
  <prefix>/availability  online/offline (retained)
  <prefix>/status        status reports
  <prefix>/config        configuration without secrets (retained)
  <prefix>/ap            access point status (retained)`,
	Example: `  dmxsync watch --host 192.168.1.50

  # Bridge to MQTT
  dmxsync watch --mqtt-broker tcp://localhost:1883 --mqtt-prefix stage/dmx1`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, _ []string) error {
	s := settings
	if watchBroker != "" {
		s.MQTT.Broker = watchBroker
		watchMQTT = true
	}
	if watchPrefix != "" {
		s.MQTT.TopicPrefix = watchPrefix
	}
	out := cmd.OutOrStdout()

	var publisher *mqtt.Publisher
	if watchMQTT {
		var err error
		if publisher, err = mqtt.Dial(s.MQTT); err != nil {
			return fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}
		defer publisher.Close()
		logf(out, "mqtt", "publishing to %s under %s/", s.MQTT.Broker, s.MQTT.TopicPrefix)
	}

	view := watchView(out)
	var observers []func(push.State)
	if publisher != nil {
		observers = append(observers, func(st push.State) {
			publisher.SetAvailable(st == push.Connected)
		})
	}
	sess, err := newSession(s, view, observers...)
	if err != nil {
		return err
	}
	sess.dispatcher.Add(protocol.Funcs{
		Config: func(snap *snapshot.Snapshot) {
			logf(out, "config", "pushed: %s", strings.Join(snap.Keys(), ", "))
		},
		APStatus: func(ap snapshot.APStatus) {
			logf(out, "ap", "enabled=%t ip=%s stations=%d", ap.Enabled, ap.IP, ap.Stations)
		},
	})
	if publisher != nil {
		sess.dispatcher.Add(publisher)
	}

	ctx := cmd.Context()
	if err := sess.sync.LoadInitial(ctx); err != nil {
		logf(out, "config", "device unreachable (%s), showing cached values", deviceapi.GetShortErrorMessage(err))
	}
	current := sess.sync.Current()
	logf(out, "config", "%d fields loaded", current.Len())
	if publisher != nil && current.Len() > 0 {
		publisher.HandleConfig(current)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sess.sync.Run(ctx)
	})
	g.Go(func() error {
		sess.push.Start(ctx)
		<-ctx.Done()
		sess.push.Stop()
		return nil
	})
	logging.Info("Watching device", zap.String("host", s.Device.Host), zap.String("push", sess.push.URL()))
	return g.Wait()
}

// watchView prints what a dashboard would show.
func watchView(out io.Writer) *configsync.MemoryView {
	view := configsync.NewMemoryView()
	view.OnNotice = func(n configsync.Notice) {
		logf(out, n.Level.String(), "%s", n.Message)
	}
	view.OnStatus = func(st snapshot.Status) {
		logf(out, "status", "uptime %s, rssi %d dBm, free heap %d bytes",
			st.UptimeDuration(), st.RSSI, st.FreeHeap)
	}
	view.OnConnected = func(connected bool) {
		if connected {
			logf(out, "push", "connected")
		} else {
			logf(out, "push", "disconnected")
		}
	}
	return view
}

func logf(out io.Writer, topic, format string, args ...any) {
	_, _ = fmt.Fprintf(out, "%s  %-8s %s\n", time.Now().Format(time.TimeOnly), topic, fmt.Sprintf(format, args...))
}
