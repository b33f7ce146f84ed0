package main

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	keepAlive      = 60 * time.Second
)

var (
	ErrBusConnection = errors.New("mqtt: connection failed")
	ErrNotConnected  = errors.New("mqtt: client not connected")
	ErrPublish       = errors.New("mqtt: publish failed")
	ErrSubscribe     = errors.New("mqtt: subscribe failed")
)

// MQTT is the broker connection. It is safe for concurrent use.
//
// The broker publishes availability=offline on our behalf if we vanish. On
// reconnects it announces availability=online again and restores the
// subscriptions.
type MQTT struct {
	client pahomqtt.Client
	topics Topics
	qos    byte

	connectedOnce atomic.Bool
	mu            sync.Mutex
	subscriptions map[string]func(payload string)
}

var newMQTTClient = pahomqtt.NewClient

func dialMQTT(cfg Config, topics Topics) (*MQTT, error) {
	m := &MQTT{
		topics:        topics,
		qos:           cfg.QoS,
		subscriptions: map[string]func(string){},
	}

	m.client = newMQTTClient(m.options(cfg))
	token := m.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		m.client.Disconnect(0)
		return nil, fmt.Errorf("%w: timeout after %v", ErrBusConnection, connectTimeout)
	}
	if err := token.Error(); err != nil {
		m.client.Disconnect(0)
		return nil, fmt.Errorf("%w: %w", ErrBusConnection, err)
	}
	log.Info("connected to mqtt broker", "broker", cfg.Broker, "port", cfg.BrokerPort)
	return m, nil
}

func (m *MQTT) options(cfg Config) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.BrokerPort))
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.BrokerPassword)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(keepAlive)
	// commands block on the panel; do not hold the delivery loop meanwhile.
	opts.SetOrderMatters(false)
	opts.SetWill(m.topics.Availability(), payloadOffline, cfg.QoS, true)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		m.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		log.Warn("mqtt connection lost, will reconnect", "broker", cfg.Broker, "err", err)
	})
	return opts
}

// handleConnect runs on every connection. The first one is announced by the
// bridge itself.
func (m *MQTT) handleConnect() {
	if !m.connectedOnce.Swap(true) {
		return
	}
	log.Info("reconnected to mqtt broker")
	if err := m.Publish(m.topics.Availability(), payloadOnline, true); err != nil {
		log.Error("could not announce availability", "err", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for topic, handler := range m.subscriptions {
		m.client.Subscribe(topic, m.qos, m.wrap(handler))
	}
}

func (m *MQTT) Publish(topic, payload string, retained bool) error {
	if !m.client.IsConnected() {
		return ErrNotConnected
	}
	token := m.client.Publish(topic, m.qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublish, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}
	return nil
}

// Subscribe registers handler for topic. Handlers run on paho's goroutines.
func (m *MQTT) Subscribe(topic string, handler func(payload string)) error {
	m.mu.Lock()
	m.subscriptions[topic] = handler
	m.mu.Unlock()

	token := m.client.Subscribe(topic, m.qos, m.wrap(handler))
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrSubscribe, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribe, err)
	}
	log.Info("subscribed", "topic", topic)
	return nil
}

// Disconnect stops the delivery loop, waiting up to quiesce for pending work.
func (m *MQTT) Disconnect(quiesce time.Duration) {
	m.client.Disconnect(uint(quiesce.Milliseconds()))
}

func (m *MQTT) wrap(handler func(payload string)) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("mqtt handler panic recovered", "topic", msg.Topic(), "panic", r)
			}
		}()
		handler(string(msg.Payload()))
	}
}
