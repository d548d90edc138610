// v0
// internal/circuitbreaker/breaker_test.go
package circuitbreaker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func TestNewKafkaBreakerFromEnv(t *testing.T) {
	t.Setenv("CB_ENABLED", "true")
	t.Setenv("CB_KAFKA_FAILURE_THRESHOLD", "4")
	t.Setenv("CB_KAFKA_SUCCESS_THRESHOLD", "3")
	t.Setenv("CB_KAFKA_OPEN_SECONDS", "0.05")
	t.Setenv("CB_KAFKA_TIMEOUT_MS", "150")
	t.Setenv("CB_KAFKA_BACKOFF_MS", "25")

	kb, err := NewKafkaBreakerFromEnv("env-breaker", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !kb.Enabled() {
		t.Fatalf("expected breaker enabled")
	}
	if kb.failureThreshold != 4 {
		t.Fatalf("expected failure threshold 4, got %d", kb.failureThreshold)
	}
	if kb.timeout != 150*time.Millisecond {
		t.Fatalf("expected timeout 150ms, got %s", kb.timeout)
	}
	if kb.backoff != 25*time.Millisecond {
		t.Fatalf("expected backoff 25ms, got %s", kb.backoff)
	}
	if kb.breaker.cfg.SuccessesToClose != 3 {
		t.Fatalf("expected success threshold 3, got %d", kb.breaker.cfg.SuccessesToClose)
	}
}

func TestNewKafkaBreakerFromEnvRejectsBadValues(t *testing.T) {
	t.Setenv("CB_KAFKA_FAILURE_THRESHOLD", "zero")
	if _, err := NewKafkaBreakerFromEnv("bad", nil, nil); err == nil {
		t.Fatalf("expected parse error")
	}
	t.Setenv("CB_KAFKA_FAILURE_THRESHOLD", "0")
	if _, err := NewKafkaBreakerFromEnv("bad", nil, nil); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestCBKafkaWriterRetryAndStateTransitions(t *testing.T) {
	t.Setenv("CB_ENABLED", "true")
	t.Setenv("CB_KAFKA_FAILURE_THRESHOLD", "2")
	t.Setenv("CB_KAFKA_SUCCESS_THRESHOLD", "2")
	t.Setenv("CB_KAFKA_OPEN_SECONDS", "0.05")
	t.Setenv("CB_KAFKA_TIMEOUT_MS", "50")
	t.Setenv("CB_KAFKA_BACKOFF_MS", "10")

	var logBuf bytes.Buffer
	kb, err := NewKafkaBreakerFromEnv("writer-breaker", bufferLogger(&logBuf), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var transitions []State
	kb.Breaker().OnStateChange(func(_ string, s State) { transitions = append(transitions, s) })

	stub := &stubKafkaWriter{failuresBeforeSuccess: 2}
	writer := NewCBKafkaWriter(stub, kb)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := writer.WriteMessages(ctx, kafka.Message{Value: []byte("payload")}); err != nil {
		t.Fatalf("unexpected error on write: %v", err)
	}
	if kb.Breaker().State() != HalfOpen {
		t.Fatalf("expected breaker to remain half-open after first success, got %v", kb.Breaker().State())
	}
	if err := writer.WriteMessages(ctx, kafka.Message{Value: []byte("payload")}); err != nil {
		t.Fatalf("second write should succeed, got %v", err)
	}
	if kb.Breaker().State() != Closed {
		t.Fatalf("expected breaker closed after second success, got %v", kb.Breaker().State())
	}
	if stub.calls != 4 {
		t.Fatalf("expected 4 write attempts, got %d", stub.calls)
	}

	want := []State{Open, HalfOpen, Closed}
	if len(transitions) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("expected transitions %v, got %v", want, transitions)
		}
	}

	logs := logBuf.String()
	for _, msg := range []string{"breaker_opened", "breaker_half_open", "breaker_closed"} {
		if !strings.Contains(logs, msg) {
			t.Fatalf("expected %s log, got %q", msg, logs)
		}
	}
}

func TestCBKafkaWriterDisabledWritesOnce(t *testing.T) {
	t.Setenv("CB_ENABLED", "false")

	kb, err := NewKafkaBreakerFromEnv("disabled", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kb.Enabled() {
		t.Fatalf("expected breaker disabled")
	}
	stub := &stubKafkaWriter{failuresBeforeSuccess: 1}
	if err := NewCBKafkaWriter(stub, kb).WriteMessages(context.Background(), kafka.Message{}); err == nil {
		t.Fatalf("expected the synthetic failure to surface")
	}
	if stub.calls != 1 {
		t.Fatalf("expected single call when breaker disabled, got %d", stub.calls)
	}
}

func TestBreakerFastFailsWhileOpen(t *testing.T) {
	var logBuf bytes.Buffer
	b := New("fast", Config{MaxFailures: 1, ResetTimeout: time.Hour, SuccessesToClose: 1}, bufferLogger(&logBuf), nil)
	boom := errors.New("boom")
	calls := 0
	op := func(context.Context) error { calls++; return boom }

	if err := b.Execute(context.Background(), op); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen once threshold is hit, got %v", err)
	}
	if err := b.Execute(context.Background(), op); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected fast fail, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("open breaker must not run the operation, calls=%d", calls)
	}
}

func TestBreakerProbeFailureReopens(t *testing.T) {
	b := New("probe", Config{MaxFailures: 1, ResetTimeout: time.Millisecond, SuccessesToClose: 1}, bufferLogger(&bytes.Buffer{}),
		func(context.Context) error { return errors.New("still down") })
	_ = b.Execute(context.Background(), func(context.Context) error { return errors.New("down") })
	time.Sleep(5 * time.Millisecond)

	ran := false
	err := b.Execute(context.Background(), func(context.Context) error { ran = true; return nil })
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen after failed probe, got %v", err)
	}
	if ran {
		t.Fatalf("operation must not run when the probe fails")
	}
	if b.State() != Open {
		t.Fatalf("expected Open, got %v", b.State())
	}
}

type stubKafkaWriter struct {
	mu                    sync.Mutex
	calls                 int
	failuresBeforeSuccess int
}

func (s *stubKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.calls++
	if s.calls <= s.failuresBeforeSuccess {
		return errors.New("synthetic failure")
	}
	return nil
}
