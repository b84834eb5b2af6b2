package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/microwave/internal/logger"
)

// outboxCapacity bounds how many records are held while disconnected.
const outboxCapacity = 256

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	log    *logger.Logger

	mu     sync.Mutex
	outbox *outbox
}

// NewRealPublisher creates a publisher connected to the given broker. The
// broker is told to publish a retained SHUTDOWN if the connection drops.
func NewRealPublisher(broker, clientID string, log *logger.Logger) (*RealPublisher, error) {
	p := &RealPublisher{
		log:    logger.OrNop(log),
		outbox: newOutbox(outboxCapacity),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.log.Warnw("mqtt connection lost", "err", err)
		}).
		SetOnConnectHandler(func(paho.Client) {
			p.replay()
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

// PublishRecord sends an actuator record to the broker.
func (p *RealPublisher) PublishRecord(rec Record) error {
	payload, err := FormatRecordPayload(rec)
	if err != nil {
		return fmt.Errorf("format record payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.publish(pending{topic: TopicOutput, payload: payload})
}

// PublishState sends a retained status snapshot to the broker.
func (p *RealPublisher) PublishState(payload []byte) error {
	return p.publish(pending{topic: TopicState, payload: payload, qos: 1, retained: true})
}

// PublishSystem sends a system lifecycle event to the broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) so lifecycle events are not lost
	return p.publish(pending{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

func (p *RealPublisher) publish(msg pending) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		dropped := p.outbox.add(msg)
		p.mu.Unlock()
		if dropped {
			p.log.Warnw("mqtt outbox full, dropping oldest", "capacity", outboxCapacity)
		}
		return nil
	}

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// replay runs on paho's connect goroutine and must not wait on tokens.
func (p *RealPublisher) replay() {
	p.mu.Lock()
	msgs := p.outbox.take()
	p.mu.Unlock()

	if len(msgs) > 0 {
		p.log.Infow("mqtt replaying buffered messages", "count", len(msgs))
	}
	for _, msg := range msgs {
		p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	}

	payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
	if err == nil {
		p.client.Publish(TopicSystem, 1, false, payload)
	}
}
