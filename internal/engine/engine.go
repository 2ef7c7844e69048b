// Package engine keeps the ledger, the cached balances and the quotation chain
// consistent with each other.
//
// Every ledger mutation goes through the Coordinator, which persists the
// change, applies the balance delta to the affected users and then asks the
// Recalculator to sweep the quotation chain forward from the earliest month
// the change touched.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/gtxlabs/gtxips/internal/date"
	"github.com/gtxlabs/gtxips/internal/service"
)

// Engine errors.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrFuturePeriod        = errors.New("period is after the current month")
	ErrRuleNotSelfService  = errors.New("rule is not available for self-service")
)

// RecalcMode controls what happens when a month's quotation cannot be written.
type RecalcMode string

const (
	// ModeAtomic runs the ledger change, the balance writes and the sweep in
	// one database transaction and rolls everything back on failure.
	ModeAtomic RecalcMode = "atomic"
	// ModeBestEffort commits the ledger change and balances first, then
	// sweeps month by month, logging and skipping months that fail to write.
	ModeBestEffort RecalcMode = "best-effort"
)

// ParseRecalcMode validates a configured mode name.
func ParseRecalcMode(s string) (RecalcMode, error) {
	switch RecalcMode(s) {
	case ModeAtomic, "":
		return ModeAtomic, nil
	case ModeBestEffort:
		return ModeBestEffort, nil
	default:
		return "", fmt.Errorf("invalid recalculation mode %q (want %q or %q)", s, ModeAtomic, ModeBestEffort)
	}
}

// Clock supplies the current day. The sweep never goes past the month that
// contains it.
type Clock interface {
	Today() date.Date
}

// SystemClock reads the local wall clock.
type SystemClock struct{}

// Today returns the current local date.
func (SystemClock) Today() date.Date { return date.Today() }

// Config holds configuration options for the engine.
type Config struct {
	Clock Clock
	Mode  RecalcMode
	Retry service.RetryOptions
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Clock: SystemClock{},
		Mode:  ModeAtomic,
		Retry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2.0,
		},
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Clock == nil {
		c.Clock = def.Clock
	}
	if c.Mode == "" {
		c.Mode = def.Mode
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry = def.Retry
	}
	return c
}
