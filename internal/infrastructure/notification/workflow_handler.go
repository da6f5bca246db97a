package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/toolroom/backend/internal/domain/borrowing"
	"github.com/toolroom/backend/internal/domain/shared"
	"github.com/toolroom/backend/internal/domain/withdrawal"
	"github.com/toolroom/backend/internal/infrastructure/cache"
	"go.uber.org/zap"
)

// SettingNotificationsEnabled toggles workflow notifications at runtime.
// Any value other than "false" means enabled.
const SettingNotificationsEnabled = "notifications_enabled"

// WorkflowHandler turns workflow domain events into notifications for the
// toolroom staff who have to act next: verifiers on new requests, approvers
// on verified requests, and everyone configured on overdue loans.
type WorkflowHandler struct {
	dispatcher  shared.Dispatcher
	settings    *cache.SettingsCache
	verifierIDs []uuid.UUID
	approverIDs []uuid.UUID
	logger      *zap.Logger
}

// NewWorkflowHandler creates a workflow notification handler
func NewWorkflowHandler(
	dispatcher shared.Dispatcher,
	settings *cache.SettingsCache,
	verifierIDs, approverIDs []uuid.UUID,
	logger *zap.Logger,
) *WorkflowHandler {
	return &WorkflowHandler{
		dispatcher:  dispatcher,
		settings:    settings,
		verifierIDs: verifierIDs,
		approverIDs: approverIDs,
		logger:      logger,
	}
}

// EventTypes returns the workflow events this handler reacts to
func (h *WorkflowHandler) EventTypes() []string {
	return []string{
		withdrawal.EventTypeBatchCreated,
		withdrawal.EventTypeBatchVerified,
		borrowing.EventTypeToolRequested,
		borrowing.EventTypeToolVerified,
		borrowing.EventTypeToolOverdue,
	}
}

// Handle dispatches a notification for the event if notifications are on
func (h *WorkflowHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.enabled() {
		return nil
	}

	switch e := event.(type) {
	case *withdrawal.BatchCreatedEvent:
		h.dispatcher.Notify(ctx, h.verifierIDs,
			"Withdrawal batch awaiting verification",
			fmt.Sprintf("Batch %s with %d item(s) needs verification", e.BatchReference, e.TotalItems))
	case *withdrawal.BatchVerifiedEvent:
		h.dispatcher.Notify(ctx, h.approverIDs,
			"Withdrawal batch awaiting approval",
			fmt.Sprintf("Batch %s passed verification and needs approval", e.BatchReference))
	case *borrowing.ToolRequestedEvent:
		h.dispatcher.Notify(ctx, h.verifierIDs,
			"Tool loan awaiting verification",
			fmt.Sprintf("Loan request %s needs verification", e.RequestReference))
	case *borrowing.ToolVerifiedEvent:
		h.dispatcher.Notify(ctx, h.approverIDs,
			"Tool loan awaiting approval",
			fmt.Sprintf("Loan request %s passed verification and needs approval", e.RequestReference))
	case *borrowing.ToolOverdueEvent:
		h.dispatcher.Notify(ctx, append(h.verifierIDs, h.approverIDs...),
			"Tool loan overdue",
			fmt.Sprintf("Loan %s to %s was due %s", e.RequestReference, e.BorrowerName,
				e.ExpectedReturn.Format("2006-01-02")))
	default:
		h.logger.Debug("no notification mapping for event",
			zap.String("event_type", event.EventType()))
	}

	return nil
}

func (h *WorkflowHandler) enabled() bool {
	if h.settings == nil {
		return true
	}
	value, fresh := h.settings.Get(SettingNotificationsEnabled)
	return !fresh || value != "false"
}

var _ shared.EventHandler = (*WorkflowHandler)(nil)
