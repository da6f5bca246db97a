package shared

import (
	"context"

	"github.com/google/uuid"
)

// Dispatcher delivers notifications to users. Delivery is fire-and-forget:
// failures are logged by implementations and never fail the calling
// operation.
type Dispatcher interface {
	Notify(ctx context.Context, userIDs []uuid.UUID, title, message string)
}
