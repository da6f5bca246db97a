package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/toolroom/backend/internal/domain/shared"
)

// InventoryItemRepository persists InventoryItem aggregates
type InventoryItemRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryItem, error)
	// FindByIDForUpdate loads an item under an exclusive row lock. The lock
	// is held until the enclosing transaction commits or rolls back, so this
	// must only be called from inside a transaction scope.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*InventoryItem, error)
	FindByProject(ctx context.Context, projectID uuid.UUID, filter shared.Filter) ([]InventoryItem, error)
	Save(ctx context.Context, item *InventoryItem) error
	Delete(ctx context.Context, id uuid.UUID) error
}
