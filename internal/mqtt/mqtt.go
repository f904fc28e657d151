package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/muurk/dmxsync/internal/config"
	"github.com/muurk/dmxsync/internal/logging"
	"github.com/muurk/dmxsync/internal/protocol"
	"github.com/muurk/dmxsync/internal/snapshot"
	"go.uber.org/zap"
)

// Topic suffixes under the configured prefix.
const (
	TopicStatus       = "status"
	TopicConfig       = "config"
	TopicAP           = "ap"
	TopicPixelTest    = "pixel_test"
	TopicAvailability = "availability"
)

// Availability payloads.
const (
	Online  = "online"
	Offline = "offline"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
)

// Client is the part of paho_mqtt.Client the publisher uses.
type Client interface {
	Connect() paho_mqtt.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho_mqtt.Token
}

// Publisher mirrors the device's push stream onto MQTT. It is a
// protocol.Handler, so it sits next to the synchronizer on the dispatcher.
type Publisher struct {
	client Client
	prefix string

	mu        sync.Mutex
	config    *snapshot.Snapshot
	available bool
}

var _ protocol.Handler = (*Publisher)(nil)

// New wraps an existing client.
func New(client Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = config.DefaultTopicPrefix
	}
	return &Publisher{
		client: client,
		prefix: prefix,
		config: snapshot.New(),
	}
}

// Dial creates a paho client from settings and connects it. The broker
// marks the device offline if this process goes away.
func Dial(s config.MQTTSettings) (*Publisher, error) {
	if s.Broker == "" {
		return nil, errors.New("mqtt: no broker configured")
	}

	p := New(nil, s.TopicPrefix)

	opts := paho_mqtt.NewClientOptions()
	opts.AddBroker(s.Broker)
	clientID := s.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("dmxsync-%d", time.Now().Unix())
	}
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetMaxReconnectInterval(5 * time.Second)
	if s.Username != "" {
		opts.SetUsername(s.Username)
	}
	if s.Password != "" {
		opts.SetPassword(s.Password)
	}
	opts.SetWill(p.Topic(TopicAvailability), Offline, 1, true)

	opts.SetConnectionLostHandler(func(_ paho_mqtt.Client, err error) {
		logging.Warn("MQTT connection lost", zap.String("broker", s.Broker), zap.Error(err))
	})
	// Retained topics are republished after every (re)connect.
	opts.SetOnConnectHandler(func(_ paho_mqtt.Client) {
		logging.Info("MQTT connected", zap.String("broker", s.Broker))
		p.republish()
	})

	p.client = paho_mqtt.NewClient(opts)
	if err := p.Connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// Connect connects the underlying client.
func (p *Publisher) Connect() error {
	token := p.client.Connect()
	if token.WaitTimeout(connectTimeout) {
		return token.Error()
	}
	if err := token.Error(); err != nil {
		return err
	}
	return errors.New("mqtt: unable to connect in time")
}

// Close marks the device offline and disconnects.
func (p *Publisher) Close() {
	p.publish(TopicAvailability, true, []byte(Offline))
	p.client.Disconnect(250)
}

// Topic returns the full topic for suffix.
func (p *Publisher) Topic(suffix string) string {
	return p.prefix + "/" + suffix
}

// SetAvailable publishes the push connection state.
func (p *Publisher) SetAvailable(online bool) {
	p.mu.Lock()
	p.available = online
	p.mu.Unlock()

	payload := Offline
	if online {
		payload = Online
	}
	p.publish(TopicAvailability, true, []byte(payload))
}

func (p *Publisher) HandleStatus(st snapshot.Status) {
	p.publishJSON(TopicStatus, false, st)
}

// HandleConfig publishes the full configuration known so far. Pushes may
// carry a subset of keys, so they are merged first. Secrets are dropped.
func (p *Publisher) HandleConfig(snap *snapshot.Snapshot) {
	p.mu.Lock()
	p.config = p.config.Merge(snap)
	out := snapshot.Public(p.config)
	p.mu.Unlock()

	p.publishJSON(TopicConfig, true, out)
}

func (p *Publisher) HandleAPStatus(ap snapshot.APStatus) {
	p.publishJSON(TopicAP, true, ap)
}

func (p *Publisher) HandlePixelTest(r snapshot.PixelTestResult) {
	p.publishJSON(TopicPixelTest, false, r)
}

func (p *Publisher) republish() {
	p.mu.Lock()
	online := p.available
	cfg := snapshot.Public(p.config)
	p.mu.Unlock()

	payload := Offline
	if online {
		payload = Online
	}
	p.publish(TopicAvailability, true, []byte(payload))
	if cfg.Len() > 0 {
		p.publishJSON(TopicConfig, true, cfg)
	}
}

func (p *Publisher) publishJSON(suffix string, retained bool, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		logging.Error("MQTT payload encoding failed", zap.String("topic", p.Topic(suffix)), zap.Error(err))
		return
	}
	p.publish(suffix, retained, payload)
}

// publish is best effort; failures are logged and the stream carries on.
func (p *Publisher) publish(suffix string, retained bool, payload []byte) {
	topic := p.Topic(suffix)
	var qos byte
	if retained {
		qos = 1
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		logging.Warn("MQTT publish timed out", zap.String("topic", topic))
		return
	}
	if err := token.Error(); err != nil {
		logging.Warn("MQTT publish failed", zap.String("topic", topic), zap.Error(err))
		return
	}
	logging.Debug("MQTT published", zap.String("topic", topic), zap.Int("bytes", len(payload)), zap.Bool("retained", retained))
}
