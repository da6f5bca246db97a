package withdrawal

import (
	"context"

	"github.com/google/uuid"
	"github.com/toolroom/backend/internal/domain/shared"
)

// BatchRepository persists withdrawal batch aggregates together with their
// lines. Save must write the header and all lines atomically.
type BatchRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Batch, error)
	FindByReference(ctx context.Context, reference string) (*Batch, error)
	FindByStatus(ctx context.Context, status BatchStatus, filter shared.Filter) ([]Batch, error)
	FindByProject(ctx context.Context, projectID uuid.UUID, filter shared.Filter) ([]Batch, error)
	// CountByStatus counts batches in the given status; an empty status
	// counts all batches. Paired with FindByStatus for paginated listings.
	CountByStatus(ctx context.Context, status BatchStatus) (int64, error)
	CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error)
	Save(ctx context.Context, batch *Batch) error
	// SaveWithLock persists a mutated batch only if no other transaction
	// changed it since it was loaded. The aggregate increments its version
	// on every transition; a stale in-memory copy fails with
	// shared.ErrConcurrencyConflict instead of overwriting a newer row.
	SaveWithLock(ctx context.Context, batch *Batch) error
	Delete(ctx context.Context, id uuid.UUID) error
}
