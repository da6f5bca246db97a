package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/toolroom/backend/internal/domain/borrowing"
	"github.com/toolroom/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBorrowedToolRepository implements borrowing.BorrowedToolRepository
// using GORM
type GormBorrowedToolRepository struct {
	db *gorm.DB
}

// NewGormBorrowedToolRepository creates a new GormBorrowedToolRepository
func NewGormBorrowedToolRepository(db *gorm.DB) *GormBorrowedToolRepository {
	return &GormBorrowedToolRepository{db: db}
}

// FindByID finds a borrowed tool record by its ID
func (r *GormBorrowedToolRepository) FindByID(ctx context.Context, id uuid.UUID) (*borrowing.BorrowedTool, error) {
	var tool borrowing.BorrowedTool
	if err := r.db.WithContext(ctx).First(&tool, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &tool, nil
}

// FindByReference finds a borrowed tool record by its human-readable reference
func (r *GormBorrowedToolRepository) FindByReference(ctx context.Context, reference string) (*borrowing.BorrowedTool, error) {
	var tool borrowing.BorrowedTool
	if err := r.db.WithContext(ctx).First(&tool, "request_reference = ?", reference).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &tool, nil
}

// FindByStatus finds loans in the given status. An empty status matches all
// loans.
func (r *GormBorrowedToolRepository) FindByStatus(ctx context.Context, status borrowing.ToolStatus, filter shared.Filter) ([]borrowing.BorrowedTool, error) {
	var tools []borrowing.BorrowedTool
	query := r.db.WithContext(ctx).Model(&borrowing.BorrowedTool{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := applyFilter(query, filter).Find(&tools).Error; err != nil {
		return nil, err
	}
	return tools, nil
}

// CountByStatus counts loans in the given status. An empty status counts
// all loans.
func (r *GormBorrowedToolRepository) CountByStatus(ctx context.Context, status borrowing.ToolStatus) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&borrowing.BorrowedTool{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindActiveByItem returns non-terminal loans for an inventory item
func (r *GormBorrowedToolRepository) FindActiveByItem(ctx context.Context, inventoryItemID uuid.UUID) ([]borrowing.BorrowedTool, error) {
	var tools []borrowing.BorrowedTool
	if err := r.db.WithContext(ctx).
		Where("inventory_item_id = ? AND status NOT IN ?", inventoryItemID, []borrowing.ToolStatus{
			borrowing.ToolStatusReturned,
			borrowing.ToolStatusCancelled,
		}).
		Find(&tools).Error; err != nil {
		return nil, err
	}
	return tools, nil
}

// Save persists a borrowed tool record
func (r *GormBorrowedToolRepository) Save(ctx context.Context, tool *borrowing.BorrowedTool) error {
	return r.db.WithContext(ctx).Save(tool).Error
}

// SaveWithLock persists a mutated loan guarded by its version: the update
// only matches the row if nobody else bumped the version since this copy
// was loaded. Zero rows affected means the copy is stale.
func (r *GormBorrowedToolRepository) SaveWithLock(ctx context.Context, tool *borrowing.BorrowedTool) error {
	result := r.db.WithContext(ctx).
		Model(&borrowing.BorrowedTool{}).
		Where("id = ? AND version = ?", tool.ID, tool.Version-1).
		Updates(tool)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindDueForSweep returns BORROWED loans past the cutoff under row locks,
// so a racing return blocks until the sweep's transaction ends
func (r *GormBorrowedToolRepository) FindDueForSweep(ctx context.Context, cutoff time.Time) ([]borrowing.BorrowedTool, error) {
	var tools []borrowing.BorrowedTool
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("status = ? AND expected_return < ?", borrowing.ToolStatusBorrowed, cutoff).
		Find(&tools).Error; err != nil {
		return nil, err
	}
	return tools, nil
}

// FindOverdue returns loans currently flagged OVERDUE
func (r *GormBorrowedToolRepository) FindOverdue(ctx context.Context, filter shared.Filter) ([]borrowing.BorrowedTool, error) {
	var tools []borrowing.BorrowedTool
	query := applyFilter(
		r.db.WithContext(ctx).Model(&borrowing.BorrowedTool{}).
			Where("status = ?", borrowing.ToolStatusOverdue),
		filter,
	)
	if err := query.Find(&tools).Error; err != nil {
		return nil, err
	}
	return tools, nil
}

// Delete deletes a borrowed tool record
func (r *GormBorrowedToolRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&borrowing.BorrowedTool{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormBorrowedToolRepository implements BorrowedToolRepository
var _ borrowing.BorrowedToolRepository = (*GormBorrowedToolRepository)(nil)
