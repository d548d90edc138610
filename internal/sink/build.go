// v0
// internal/sink/build.go
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"it.uniroma2.dicii/nrg-champ/footfall/internal/circuitbreaker"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/metrics"
)

// Options select and configure the sinks of a process.
type Options struct {
	// Enabled lists sink names: file, redis, sqlite, s3, kafka, mqtt.
	Enabled []string
	Timeout time.Duration
	Breaker circuitbreaker.Config

	FileDir string

	RedisAddr     string
	RedisDB       int
	RedisPassword string
	RedisPrefix   string

	SQLitePath string

	S3 S3Options

	KafkaBrokers     []string
	KafkaTopicPrefix string
	KafkaPerSecond   float64

	MQTT MQTTOptions
}

// Build opens every enabled sink. Non-streaming sinks get their own breaker;
// kafka uses the CB_* breaker of its writer.
func Build(ctx context.Context, o Options, log *slog.Logger, m *metrics.Metrics) (*Multi, error) {
	if o.Breaker.Validate() != nil {
		o.Breaker = circuitbreaker.DefaultConfig()
	}
	var sinks []Sink
	fail := func(err error) (*Multi, error) {
		for _, s := range sinks {
			_ = s.Close()
		}
		return nil, err
	}
	onState := func(name string, s circuitbreaker.State) {
		m.SetCircuitBreakerState(name, float64(s))
	}
	guard := func(s Sink) Sink {
		b := circuitbreaker.New(s.Name()+"-sink", o.Breaker, log, nil)
		b.OnStateChange(onState)
		m.SetCircuitBreakerState(b.Name(), float64(circuitbreaker.Closed))
		return Guard(s, b)
	}

	for _, name := range o.Enabled {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "":
			continue
		case "file":
			s, err := NewFileSink(o.FileDir, log)
			if err != nil {
				return fail(fmt.Errorf("file sink: %w", err))
			}
			sinks = append(sinks, guard(s))
		case "redis":
			s, err := NewRedisSink(ctx, o.RedisAddr, o.RedisDB, o.RedisPassword, o.RedisPrefix)
			if err != nil {
				return fail(fmt.Errorf("redis sink: %w", err))
			}
			sinks = append(sinks, guard(s))
		case "sqlite":
			s, err := NewSQLiteSink(o.SQLitePath)
			if err != nil {
				return fail(fmt.Errorf("sqlite sink: %w", err))
			}
			sinks = append(sinks, guard(s))
		case "s3":
			s, err := NewS3Sink(ctx, o.S3)
			if err != nil {
				return fail(fmt.Errorf("s3 sink: %w", err))
			}
			sinks = append(sinks, guard(s))
		case "kafka":
			s, err := NewKafkaSink(o.KafkaBrokers, o.KafkaTopicPrefix, o.KafkaPerSecond, log, onState)
			if err != nil {
				return fail(fmt.Errorf("kafka sink: %w", err))
			}
			sinks = append(sinks, s)
		case "mqtt":
			s, err := NewMQTTSink(o.MQTT, log)
			if err != nil {
				return fail(fmt.Errorf("mqtt sink: %w", err))
			}
			sinks = append(sinks, s)
		default:
			return fail(fmt.Errorf("unknown sink %q", name))
		}
		log.Info("sink_enabled", slog.String("sink", name))
	}
	return NewMulti(log, m, o.Timeout, sinks...), nil
}
