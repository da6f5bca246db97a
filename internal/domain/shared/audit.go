package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditEntry is a single audit trail record linking an action to the
// entity it touched and the actor who performed it.
type AuditEntry struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Action      string    `gorm:"size:100;not null;index"`
	Description string    `gorm:"size:500"`
	EntityTable string    `gorm:"size:100;not null;index:idx_audit_entity"`
	EntityID    uuid.UUID `gorm:"type:uuid;not null;index:idx_audit_entity"`
	ActorID     uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt   time.Time
}

// TableName returns the table name for GORM
func (AuditEntry) TableName() string {
	return "audit_entries"
}

// NewAuditEntry creates an audit entry for the given action
func NewAuditEntry(action, description, entityTable string, entityID, actorID uuid.UUID) *AuditEntry {
	return &AuditEntry{
		ID:          uuid.New(),
		Action:      action,
		Description: description,
		EntityTable: entityTable,
		EntityID:    entityID,
		ActorID:     actorID,
		CreatedAt:   time.Now(),
	}
}

// AuditLogger records and reads audit entries. Implementations are
// expected to write within the caller's transaction when invoked from a
// transaction scope.
type AuditLogger interface {
	Record(ctx context.Context, entry *AuditEntry) error
	// FindByEntity returns the audit trail for one entity, newest first
	FindByEntity(ctx context.Context, entityTable string, entityID uuid.UUID, filter Filter) ([]AuditEntry, error)
}
