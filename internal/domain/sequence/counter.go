package sequence

import (
	"context"
	"fmt"
	"time"
)

// Counter is a monotonically increasing sequence keyed by scope and year.
// A counter row must never issue the same value twice, even under
// concurrent increments; implementations guarantee this with an atomic
// upsert followed by a locking read inside one transaction.
type Counter struct {
	Scope        string `gorm:"size:50;primaryKey"`
	Year         int    `gorm:"primaryKey"`
	LastSequence int64  `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for GORM
func (Counter) TableName() string {
	return "sequence_counters"
}

// Generator mints human-readable reference codes unique per
// (prefix, scope, year)
type Generator interface {
	// Next returns the next reference for the prefix, scope and year,
	// e.g. "WDR-MAIN-2026-0001". Must be called inside the transaction
	// that persists the record carrying the reference.
	Next(ctx context.Context, prefix, scope string, year int) (string, error)
}

// FormatReference renders a reference code as PREFIX-SCOPE-YEAR-NNNN with a
// zero-padded sequence of at least four digits.
func FormatReference(prefix, scope string, year int, seq int64) string {
	return fmt.Sprintf("%s-%s-%d-%04d", prefix, scope, year, seq)
}

// FallbackReference derives a reference from the current timestamp, unique
// to the second. Used when sequence generation fails so that record
// creation never blocks on reference minting alone.
func FallbackReference(prefix, scope string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", prefix, scope, now.Format("20060102150405"))
}
