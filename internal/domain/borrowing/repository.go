package borrowing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/toolroom/backend/internal/domain/shared"
)

// BorrowedToolRepository persists BorrowedTool aggregates
type BorrowedToolRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*BorrowedTool, error)
	FindByReference(ctx context.Context, reference string) (*BorrowedTool, error)
	FindByStatus(ctx context.Context, status ToolStatus, filter shared.Filter) ([]BorrowedTool, error)
	// CountByStatus counts loans in the given status; an empty status
	// counts all loans. Paired with FindByStatus for paginated listings.
	CountByStatus(ctx context.Context, status ToolStatus) (int64, error)
	// FindActiveByItem returns non-terminal loans for an inventory item,
	// used to enforce one active loan per physical tool.
	FindActiveByItem(ctx context.Context, inventoryItemID uuid.UUID) ([]BorrowedTool, error)
	Save(ctx context.Context, tool *BorrowedTool) error
	// SaveWithLock persists a mutated loan only if no other transaction
	// changed it since it was loaded; a stale in-memory copy fails with
	// shared.ErrConcurrencyConflict.
	SaveWithLock(ctx context.Context, tool *BorrowedTool) error
	// FindDueForSweep returns BORROWED loans whose expected return precedes
	// the cutoff, each under a row lock so that a racing return blocks
	// until the sweep's transaction ends.
	FindDueForSweep(ctx context.Context, cutoff time.Time) ([]BorrowedTool, error)
	// FindOverdue returns loans currently flagged OVERDUE
	FindOverdue(ctx context.Context, filter shared.Filter) ([]BorrowedTool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
