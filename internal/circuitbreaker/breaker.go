// v0
// internal/circuitbreaker/breaker.go
package circuitbreaker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

type State int

const (
	Closed State = iota
	HalfOpen
	Open
)

func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

var ErrOpen = errors.New("circuit breaker is open; fast-fail")

// Config holds the circuit breaker tunables.
type Config struct {
	MaxFailures      int           // consecutive failures before opening
	ResetTimeout     time.Duration // wait before probing again
	SuccessesToClose int           // successes required in HalfOpen before closing
}

// DefaultConfig mirrors the CB_* environment defaults.
func DefaultConfig() Config {
	return Config{MaxFailures: 5, ResetTimeout: 30 * time.Second, SuccessesToClose: 2}
}

// Validate rejects non-positive tunables.
func (c Config) Validate() error {
	if c.MaxFailures < 1 {
		return errors.New("MaxFailures must be >= 1")
	}
	if c.ResetTimeout <= 0 {
		return errors.New("ResetTimeout must be > 0")
	}
	if c.SuccessesToClose < 1 {
		return errors.New("SuccessesToClose must be >= 1")
	}
	return nil
}

type Breaker struct {
	name   string
	cfg    Config
	logger *slog.Logger

	mu          sync.Mutex
	state       State
	recentFails int
	successes   int
	openedAt    time.Time

	probe    func(ctx context.Context) error
	onChange func(name string, s State)
}

// New builds a closed breaker. probe may be nil; when set it runs before the
// first operation after the reset timeout.
func New(name string, cfg Config, logger *slog.Logger, probe func(ctx context.Context) error) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Breaker{
		name:   name,
		cfg:    cfg,
		logger: logger,
		state:  Closed,
		probe:  probe,
	}
	b.logger.Info("breaker_created", "name", name, "maxFailures", cfg.MaxFailures, "resetTimeout", cfg.ResetTimeout.String())
	return b
}

// OnStateChange registers fn to be called on every transition.
func (b *Breaker) OnStateChange(fn func(name string, s State)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

func (b *Breaker) Name() string { return b.name }

func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	b.mu.Lock()
	state := b.state
	openedAt := b.openedAt
	b.mu.Unlock()

	if state == Open {
		if time.Since(openedAt) < b.cfg.ResetTimeout {
			b.logger.Warn("breaker_fast_fail", "name", b.name, "since_open", time.Since(openedAt).String())
			return ErrOpen
		}
		return b.tryProbeThenOp(ctx, op)
	}

	if err := op(ctx); err != nil {
		if b.onFailure(err) == Open {
			return ErrOpen
		}
		return err
	}
	b.onSuccess()
	return nil
}

func (b *Breaker) tryProbeThenOp(ctx context.Context, op func(ctx context.Context) error) error {
	b.mu.Lock()
	b.setState(HalfOpen)
	b.successes = 0
	b.mu.Unlock()

	if b.probe != nil {
		if err := b.probe(ctx); err != nil {
			b.logger.Warn("breaker_probe_failed", "name", b.name, "err", err)
			b.mu.Lock()
			b.trip()
			b.mu.Unlock()
			return ErrOpen
		}
		b.logger.Info("breaker_probe_ok", "name", b.name)
	}

	if err := op(ctx); err != nil {
		b.onFailure(err)
		return err
	}
	b.onSuccess()
	return nil
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recentFails = 0
	if b.state != HalfOpen {
		return
	}
	b.successes++
	if b.successes >= b.cfg.SuccessesToClose {
		b.setState(Closed)
	}
}

func (b *Breaker) onFailure(err error) State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recentFails++
	b.logger.Warn("operation_failure", "name", b.name, "failures", b.recentFails, "err", err)
	if b.state == HalfOpen || b.recentFails >= b.cfg.MaxFailures {
		b.trip()
	}
	return b.state
}

// trip opens the breaker; callers hold mu.
func (b *Breaker) trip() {
	b.openedAt = time.Now()
	b.setState(Open)
}

// setState records a transition; callers hold mu.
func (b *Breaker) setState(s State) {
	if b.state == s {
		return
	}
	from := b.state
	b.state = s
	switch s {
	case Open:
		b.logger.Error("breaker_opened", "name", b.name, "from", from.String(), "maxFailures", b.cfg.MaxFailures)
	case HalfOpen:
		b.logger.Info("breaker_half_open", "name", b.name)
	case Closed:
		b.logger.Info("breaker_closed", "name", b.name, "from", from.String())
	}
	if b.onChange != nil {
		b.onChange(b.name, s)
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
