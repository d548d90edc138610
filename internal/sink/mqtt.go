// v0
// internal/sink/mqtt.go
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/time/rate"
)

// Publisher is the part of mqtt.Client the sink uses.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTOptions configure the MQTT sink.
type MQTTOptions struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	QoS         byte
	PerSecond   float64
	Timeout     time.Duration
}

// MQTTSink publishes each document to <topicPrefix>/<collection>.
type MQTTSink struct {
	client  Publisher
	closer  func()
	prefix  string
	qos     byte
	timeout time.Duration
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewMQTTSink connects to the broker.
func NewMQTTSink(o MQTTOptions, log *slog.Logger) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions().AddBroker(o.Broker)
	if o.ClientID != "" {
		opts.SetClientID(o.ClientID)
	}
	opts.SetAutoReconnect(true)
	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", o.Broker, token.Error())
	}
	s := NewMQTTSinkWithClient(c, o, log)
	s.closer = func() { c.Disconnect(250) }
	return s, nil
}

// NewMQTTSinkWithClient uses an existing publisher.
func NewMQTTSinkWithClient(c Publisher, o MQTTOptions, log *slog.Logger) *MQTTSink {
	prefix := o.TopicPrefix
	if prefix == "" {
		prefix = "footfall"
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if o.PerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(o.PerSecond), 1)
	}
	return &MQTTSink{client: c, prefix: prefix, qos: o.QoS, timeout: timeout, limiter: limiter, log: log}
}

func (s *MQTTSink) Name() string { return "mqtt" }

// Topic returns the topic collection is published to.
func (s *MQTTSink) Topic(collection string) string {
	return s.prefix + "/" + safeName(collection)
}

// Write appends; like kafka, a topic cannot be replaced.
func (s *MQTTSink) Write(ctx context.Context, b Batch) error {
	if err := b.validate(); err != nil {
		return err
	}
	entries, err := encode(b)
	if err != nil {
		return err
	}
	topic := s.Topic(b.Collection)
	for _, e := range entries {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		token := s.client.Publish(topic, s.qos, false, e.raw)
		if !token.WaitTimeout(s.timeout) {
			return fmt.Errorf("mqtt publish to %s timed out after %s", topic, s.timeout)
		}
		if err := token.Error(); err != nil {
			s.log.Error("Failed to publish document", "topic", topic, "err", err)
			return err
		}
	}
	return nil
}

func (s *MQTTSink) Close() error {
	if s.closer != nil {
		s.closer()
	}
	return nil
}
