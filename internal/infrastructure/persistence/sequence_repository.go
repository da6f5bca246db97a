package persistence

import (
	"context"
	"time"

	"github.com/toolroom/backend/internal/domain/sequence"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSequenceGenerator implements sequence.Generator using GORM. The
// counter row is incremented with an atomic upsert and then read back under
// a row lock, so two transactions minting in the same scope serialize on
// the counter and can never observe the same value.
type GormSequenceGenerator struct {
	db *gorm.DB
}

// NewGormSequenceGenerator creates a new GormSequenceGenerator
func NewGormSequenceGenerator(db *gorm.DB) *GormSequenceGenerator {
	return &GormSequenceGenerator{db: db}
}

// Next returns the next reference for the prefix, scope and year. Must run
// inside the transaction that persists the record carrying the reference:
// the counter lock is then released together with the record's commit, and
// a rollback leaves a gap in the sequence rather than a duplicate.
func (g *GormSequenceGenerator) Next(ctx context.Context, prefix, scope string, year int) (string, error) {
	key := prefix + "-" + scope
	now := time.Now()

	counter := sequence.Counter{
		Scope:        key,
		Year:         year,
		LastSequence: 1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "scope"}, {Name: "year"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"last_sequence": gorm.Expr("sequence_counters.last_sequence + 1"),
				"updated_at":    now,
			}),
		}).
		Create(&counter).Error; err != nil {
		return "", err
	}

	// The upsert result does not report the incremented value, so read the
	// row back under lock.
	var row sequence.Counter
	if err := g.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("scope = ? AND year = ?", key, year).
		First(&row).Error; err != nil {
		return "", err
	}

	return sequence.FormatReference(prefix, scope, year, row.LastSequence), nil
}

// Ensure GormSequenceGenerator implements Generator
var _ sequence.Generator = (*GormSequenceGenerator)(nil)
