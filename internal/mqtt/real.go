package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/motorctl/internal/control"
)

// DefaultBufferSize is the number of messages kept while disconnected.
const DefaultBufferSize = 256

// Options configures a RealPublisher.
type Options struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	BufferSize  int
}

// transport is the part of the broker connection the publisher needs.
type transport interface {
	connected() bool
	publish(msg bufferedMsg) error
	disconnect()
}

type pahoTransport struct {
	client paho.Client
}

func (t pahoTransport) connected() bool {
	return t.client.IsConnectionOpen()
}

func (t pahoTransport) publish(msg bufferedMsg) error {
	token := t.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

func (t pahoTransport) disconnect() {
	t.client.Disconnect(1000) // 1 second timeout
}

// RealPublisher publishes to an actual MQTT broker. Messages published
// while the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	conn           transport
	telemetryTopic string
	systemTopic    string

	mu     sync.Mutex
	buffer *ringBuffer
}

func newPublisher(prefix string, bufferSize int) *RealPublisher {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &RealPublisher{
		telemetryTopic: TelemetryTopic(prefix),
		systemTopic:    SystemTopic(prefix),
		buffer:         newRingBuffer(bufferSize),
	}
}

// NewRealPublisher creates a publisher for the given broker. If the broker
// is unreachable the client keeps retrying in the background and messages
// are buffered meanwhile.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	p := newPublisher(o.TopicPrefix, o.BufferSize)

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: EventOffline})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(p.systemTopic, will, 1, true).
		SetOnConnectHandler(func(paho.Client) {
			log.Printf("mqtt: connected to %s", o.Broker)
			go p.replay()
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}

	client := paho.NewClient(opts)
	p.conn = pahoTransport{client: client}
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: broker %s not reachable yet, buffering until connected", o.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// Publish sends a telemetry sample. QoS 0, not retained.
func (p *RealPublisher) Publish(sample control.Sample) error {
	payload, err := FormatPayload(sample)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.send(bufferedMsg{topic: p.telemetryTopic, payload: payload})
}

// PublishSystem sends a system lifecycle event. QoS 1 so lifecycle
// transitions are delivered at least once.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(bufferedMsg{topic: p.systemTopic, payload: payload, qos: 1, retained: event.Retained})
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.conn.connected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.mu.Lock()
	if n := p.buffer.len(); n > 0 {
		log.Printf("mqtt: discarding %d buffered messages on close", n)
	}
	p.mu.Unlock()
	p.conn.disconnect()
	return nil
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	if !p.conn.connected() {
		p.mu.Lock()
		p.buffer.push(msg)
		p.mu.Unlock()
		return nil
	}
	return p.conn.publish(msg)
}

func (p *RealPublisher) replay() {
	p.mu.Lock()
	msgs := p.buffer.drainAll()
	p.mu.Unlock()

	if len(msgs) == 0 {
		return
	}
	log.Printf("mqtt: replaying %d buffered messages", len(msgs))
	for _, msg := range msgs {
		if err := p.send(msg); err != nil {
			log.Printf("mqtt: replay: %v", err)
		}
	}
}
