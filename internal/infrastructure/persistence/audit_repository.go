package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/toolroom/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormAuditLogger implements shared.AuditLogger using GORM. When handed the
// transaction's DB handle it writes within that transaction, so the audit
// trail commits or rolls back together with the change it describes.
type GormAuditLogger struct {
	db *gorm.DB
}

// NewGormAuditLogger creates a new GormAuditLogger
func NewGormAuditLogger(db *gorm.DB) *GormAuditLogger {
	return &GormAuditLogger{db: db}
}

// Record persists an audit entry
func (l *GormAuditLogger) Record(ctx context.Context, entry *shared.AuditEntry) error {
	return l.db.WithContext(ctx).Create(entry).Error
}

// FindByEntity returns the audit trail for one entity, newest first
func (l *GormAuditLogger) FindByEntity(ctx context.Context, entityTable string, entityID uuid.UUID, filter shared.Filter) ([]shared.AuditEntry, error) {
	var entries []shared.AuditEntry
	query := applyFilter(
		l.db.WithContext(ctx).Model(&shared.AuditEntry{}).
			Where("entity_table = ? AND entity_id = ?", entityTable, entityID),
		filter,
	)
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Ensure GormAuditLogger implements AuditLogger
var _ shared.AuditLogger = (*GormAuditLogger)(nil)
