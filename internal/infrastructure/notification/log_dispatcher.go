package notification

import (
	"context"

	"github.com/google/uuid"
	"github.com/toolroom/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// LogDispatcher is the default Dispatcher. It writes each notification to
// the structured log instead of an external channel, which keeps the
// delivery contract honest in environments without a messaging backend.
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher creates a Dispatcher backed by the structured log
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// Notify logs the notification for each recipient
func (d *LogDispatcher) Notify(ctx context.Context, userIDs []uuid.UUID, title, message string) {
	if len(userIDs) == 0 {
		return
	}

	recipients := make([]string, len(userIDs))
	for i, id := range userIDs {
		recipients[i] = id.String()
	}

	d.logger.Info("notification dispatched",
		zap.Strings("recipients", recipients),
		zap.String("title", title),
		zap.String("message", message),
	)
}

var _ shared.Dispatcher = (*LogDispatcher)(nil)
