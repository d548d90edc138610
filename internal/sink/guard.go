// v0
// internal/sink/guard.go
package sink

import (
	"context"

	"it.uniroma2.dicii/nrg-champ/footfall/internal/circuitbreaker"
)

// Guarded fast-fails writes to a backend whose breaker is open.
type Guarded struct {
	inner   Sink
	breaker *circuitbreaker.Breaker
}

// Guard wraps s with b.
func Guard(s Sink, b *circuitbreaker.Breaker) *Guarded {
	return &Guarded{inner: s, breaker: b}
}

func (g *Guarded) Name() string { return g.inner.Name() }

func (g *Guarded) Write(ctx context.Context, b Batch) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.inner.Write(ctx, b)
	})
}

func (g *Guarded) Close() error { return g.inner.Close() }
