// v0
// internal/compose/usecase.go
package compose

import (
	"fmt"
	"strings"
)

// Combination says how the combined weight is applied to the base mean.
type Combination uint8

const (
	// Multiply scales the mean up with footfall.
	Multiply Combination = iota
	// Divide scales the mean down with footfall (higher footfall, fewer free seats).
	Divide
)

func (c Combination) String() string {
	if c == Divide {
		return "divide"
	}
	return "multiply"
}

// UseCase is the closed set of metric families the composer understands.
type UseCase uint8

const (
	// Footfall covers visitor counts, queue lengths and every other metric
	// that grows with traffic.
	Footfall UseCase = iota
	// FreeSeats shrinks as traffic grows.
	FreeSeats
	// DwellTime grows with traffic; its hour weight carries a lift and the
	// base distribution is expressed in hours.
	DwellTime
	// Event produces per-window distribution parameters instead of a series.
	Event
)

var useCaseNames = map[UseCase]string{
	Footfall:  "footfall",
	FreeSeats: "freeSeats",
	DwellTime: "dwellTime",
	Event:     "event",
}

func (u UseCase) String() string {
	if n, ok := useCaseNames[u]; ok {
		return n
	}
	return fmt.Sprintf("UseCase(%d)", uint8(u))
}

// Combination returns the strategy the composer applies for u.
func (u UseCase) Combination() Combination {
	if u == FreeSeats {
		return Divide
	}
	return Multiply
}

// ParseUseCase maps a metric family name onto a UseCase. Names other than
// the dedicated ones are footfall-like metrics.
func ParseUseCase(name string) UseCase {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "freeseats", "free_seats":
		return FreeSeats
	case "dwelltime", "dwell_time":
		return DwellTime
	case "event":
		return Event
	default:
		return Footfall
	}
}

// MarshalText implements encoding.TextMarshaler.
func (u UseCase) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *UseCase) UnmarshalText(b []byte) error {
	*u = ParseUseCase(string(b))
	return nil
}
