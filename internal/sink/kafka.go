// v0
// internal/sink/kafka.go
package sink

import (
	"context"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"golang.org/x/time/rate"

	"it.uniroma2.dicii/nrg-champ/footfall/internal/circuitbreaker"
)

// KafkaSink publishes every document to <topicPrefix>.<collection>, keyed by
// venue so that a venue's records stay ordered on one partition.
type KafkaSink struct {
	writer      circuitbreaker.MessageWriter
	closer      func() error
	topicPrefix string
	limiter     *rate.Limiter
	batchSize   int
	log         *slog.Logger
}

func newKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

// NewKafkaSink wraps a kafka-go writer with the CB_* circuit breaker.
// perSecond limits messages per second; zero disables the limit.
func NewKafkaSink(brokers []string, topicPrefix string, perSecond float64, log *slog.Logger, onState func(string, circuitbreaker.State)) (*KafkaSink, error) {
	kb, err := circuitbreaker.NewKafkaBreakerFromEnv("kafka-sink", log, nil)
	if err != nil {
		return nil, err
	}
	if onState != nil && kb.Enabled() {
		kb.Breaker().OnStateChange(onState)
	}
	w := newKafkaWriter(brokers)
	s := NewKafkaSinkWithWriter(circuitbreaker.NewCBKafkaWriter(w, kb), topicPrefix, perSecond, log)
	s.closer = w.Close
	return s, nil
}

// NewKafkaSinkWithWriter uses any message writer.
func NewKafkaSinkWithWriter(w circuitbreaker.MessageWriter, topicPrefix string, perSecond float64, log *slog.Logger) *KafkaSink {
	if topicPrefix == "" {
		topicPrefix = "footfall"
	}
	return &KafkaSink{
		writer:      w,
		topicPrefix: topicPrefix,
		limiter:     newLimiter(perSecond),
		batchSize:   500,
		log:         log,
	}
}

func (s *KafkaSink) Name() string { return "kafka" }

// Topic returns the topic collection is published to.
func (s *KafkaSink) Topic(collection string) string {
	return s.topicPrefix + "." + safeName(collection)
}

// Write appends; Update is ignored because a stream cannot be replaced.
func (s *KafkaSink) Write(ctx context.Context, b Batch) error {
	if err := b.validate(); err != nil {
		return err
	}
	entries, err := encode(b)
	if err != nil {
		return err
	}
	if !b.Update {
		s.log.Debug("kafka_append_only", slog.String("collection", b.Collection))
	}
	topic := s.Topic(b.Collection)
	for lo := 0; lo < len(entries); lo += s.batchSize {
		hi := min(lo+s.batchSize, len(entries))
		if err := s.limiter.WaitN(ctx, hi-lo); err != nil {
			return err
		}
		msgs := make([]kafka.Message, 0, hi-lo)
		for _, e := range entries[lo:hi] {
			msgs = append(msgs, kafka.Message{Topic: topic, Key: []byte(e.key), Value: e.raw, Time: e.at})
		}
		if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
			s.log.Error("kafka write failed", "err", err, "topic", topic)
			return err
		}
	}
	return nil
}

func (s *KafkaSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// newLimiter allows bursts of one batch; a non-positive rate is unlimited.
func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(perSecond)
	if burst < 500 {
		burst = 500
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
