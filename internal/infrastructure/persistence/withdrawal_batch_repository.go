package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/toolroom/backend/internal/domain/shared"
	"github.com/toolroom/backend/internal/domain/withdrawal"
	"gorm.io/gorm"
)

// GormBatchRepository implements withdrawal.BatchRepository using GORM.
// Batches are always loaded with their lines; a batch without lines is not
// a meaningful aggregate.
type GormBatchRepository struct {
	db *gorm.DB
}

// NewGormBatchRepository creates a new GormBatchRepository
func NewGormBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db}
}

// FindByID finds a withdrawal batch by its ID
func (r *GormBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*withdrawal.Batch, error) {
	var batch withdrawal.Batch
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&batch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// FindByReference finds a withdrawal batch by its human-readable reference
func (r *GormBatchRepository) FindByReference(ctx context.Context, reference string) (*withdrawal.Batch, error) {
	var batch withdrawal.Batch
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&batch, "batch_reference = ?", reference).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// FindByStatus finds batches in the given status. An empty status matches
// all batches.
func (r *GormBatchRepository) FindByStatus(ctx context.Context, status withdrawal.BatchStatus, filter shared.Filter) ([]withdrawal.Batch, error) {
	var batches []withdrawal.Batch
	query := r.db.WithContext(ctx).Model(&withdrawal.Batch{}).Preload("Lines")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := applyFilter(query, filter).Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// FindByProject finds batches belonging to a project
func (r *GormBatchRepository) FindByProject(ctx context.Context, projectID uuid.UUID, filter shared.Filter) ([]withdrawal.Batch, error) {
	var batches []withdrawal.Batch
	query := applyFilter(
		r.db.WithContext(ctx).Model(&withdrawal.Batch{}).Preload("Lines").
			Where("project_id = ?", projectID),
		filter,
	)
	if err := query.Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// CountByStatus counts batches in the given status. An empty status counts
// all batches.
func (r *GormBatchRepository) CountByStatus(ctx context.Context, status withdrawal.BatchStatus) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&withdrawal.Batch{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByProject counts batches belonging to a project
func (r *GormBatchRepository) CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&withdrawal.Batch{}).
		Where("project_id = ?", projectID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save persists a batch together with its lines
func (r *GormBatchRepository) Save(ctx context.Context, batch *withdrawal.Batch) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(batch).Error
}

// SaveWithLock persists a mutated batch guarded by its version: the update
// only matches the row if nobody else bumped the version since this copy
// was loaded. Zero rows affected means the copy is stale.
func (r *GormBatchRepository) SaveWithLock(ctx context.Context, batch *withdrawal.Batch) error {
	result := r.db.WithContext(ctx).
		Model(&withdrawal.Batch{}).
		Where("id = ? AND version = ?", batch.ID, batch.Version-1).
		Updates(batch)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	for idx := range batch.Lines {
		if err := r.db.WithContext(ctx).Save(&batch.Lines[idx]).Error; err != nil {
			return err
		}
	}
	return nil
}

// Delete deletes a batch and its lines
func (r *GormBatchRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&withdrawal.Line{}, "batch_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&withdrawal.Batch{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Ensure GormBatchRepository implements BatchRepository
var _ withdrawal.BatchRepository = (*GormBatchRepository)(nil)
