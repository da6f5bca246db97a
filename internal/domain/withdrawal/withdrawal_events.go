package withdrawal

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/toolroom/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeWithdrawalBatch = "WithdrawalBatch"

// Event type constants
const (
	EventTypeBatchCreated      = "WithdrawalBatchCreated"
	EventTypeBatchVerified     = "WithdrawalBatchVerified"
	EventTypeBatchApproved     = "WithdrawalBatchApproved"
	EventTypeBatchReleased     = "WithdrawalBatchReleased"
	EventTypeBatchCancelled    = "WithdrawalBatchCancelled"
	EventTypeBatchLineReturned = "WithdrawalBatchLineReturned"
)

// BatchCreatedEvent is raised when a maker submits a new withdrawal batch
type BatchCreatedEvent struct {
	shared.BaseDomainEvent
	BatchReference string          `json:"batch_reference"`
	ProjectID      uuid.UUID       `json:"project_id"`
	IssuedBy       uuid.UUID       `json:"issued_by"`
	TotalItems     int             `json:"total_items"`
	TotalQuantity  decimal.Decimal `json:"total_quantity"`
}

// NewBatchCreatedEvent creates a new BatchCreatedEvent
func NewBatchCreatedEvent(batch *Batch) *BatchCreatedEvent {
	return &BatchCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchCreated, AggregateTypeWithdrawalBatch, batch.ID),
		BatchReference:  batch.BatchReference,
		ProjectID:       batch.ProjectID,
		IssuedBy:        batch.IssuedBy,
		TotalItems:      batch.TotalItems,
		TotalQuantity:   batch.TotalQuantity,
	}
}

// EventType returns the event type name
func (e *BatchCreatedEvent) EventType() string {
	return EventTypeBatchCreated
}

// BatchVerifiedEvent is raised when a verifier passes the batch on for approval
type BatchVerifiedEvent struct {
	shared.BaseDomainEvent
	BatchReference string    `json:"batch_reference"`
	VerifiedBy     uuid.UUID `json:"verified_by"`
}

// NewBatchVerifiedEvent creates a new BatchVerifiedEvent
func NewBatchVerifiedEvent(batch *Batch, verifierID uuid.UUID) *BatchVerifiedEvent {
	return &BatchVerifiedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchVerified, AggregateTypeWithdrawalBatch, batch.ID),
		BatchReference:  batch.BatchReference,
		VerifiedBy:      verifierID,
	}
}

// EventType returns the event type name
func (e *BatchVerifiedEvent) EventType() string {
	return EventTypeBatchVerified
}

// BatchApprovedEvent is raised when an authorizer approves the batch
type BatchApprovedEvent struct {
	shared.BaseDomainEvent
	BatchReference string    `json:"batch_reference"`
	ApprovedBy     uuid.UUID `json:"approved_by"`
}

// NewBatchApprovedEvent creates a new BatchApprovedEvent
func NewBatchApprovedEvent(batch *Batch, approverID uuid.UUID) *BatchApprovedEvent {
	return &BatchApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchApproved, AggregateTypeWithdrawalBatch, batch.ID),
		BatchReference:  batch.BatchReference,
		ApprovedBy:      approverID,
	}
}

// EventType returns the event type name
func (e *BatchApprovedEvent) EventType() string {
	return EventTypeBatchApproved
}

// BatchReleasedEvent is raised when physical custody transfers to the receiver
type BatchReleasedEvent struct {
	shared.BaseDomainEvent
	BatchReference string    `json:"batch_reference"`
	ReleasedBy     uuid.UUID `json:"released_by"`
	ReceiverName   string    `json:"receiver_name"`
}

// NewBatchReleasedEvent creates a new BatchReleasedEvent
func NewBatchReleasedEvent(batch *Batch, releaserID uuid.UUID) *BatchReleasedEvent {
	return &BatchReleasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchReleased, AggregateTypeWithdrawalBatch, batch.ID),
		BatchReference:  batch.BatchReference,
		ReleasedBy:      releaserID,
		ReceiverName:    batch.ReceiverName,
	}
}

// EventType returns the event type name
func (e *BatchReleasedEvent) EventType() string {
	return EventTypeBatchReleased
}

// BatchCancelledEvent is raised when a batch is voided before release.
// Reserved quantities are restocked in the same transaction.
type BatchCancelledEvent struct {
	shared.BaseDomainEvent
	BatchReference string    `json:"batch_reference"`
	CanceledBy     uuid.UUID `json:"canceled_by"`
	Reason         string    `json:"reason,omitempty"`
}

// NewBatchCancelledEvent creates a new BatchCancelledEvent
func NewBatchCancelledEvent(batch *Batch, actorID uuid.UUID, reason string) *BatchCancelledEvent {
	return &BatchCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchCancelled, AggregateTypeWithdrawalBatch, batch.ID),
		BatchReference:  batch.BatchReference,
		CanceledBy:      actorID,
		Reason:          reason,
	}
}

// EventType returns the event type name
func (e *BatchCancelledEvent) EventType() string {
	return EventTypeBatchCancelled
}

// BatchLineReturnedEvent is raised when quantity comes back on one line
type BatchLineReturnedEvent struct {
	shared.BaseDomainEvent
	BatchReference  string          `json:"batch_reference"`
	LineID          uuid.UUID       `json:"line_id"`
	InventoryItemID uuid.UUID       `json:"inventory_item_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	BatchStatus     BatchStatus     `json:"batch_status"`
	ReturnedBy      uuid.UUID       `json:"returned_by"`
}

// NewBatchLineReturnedEvent creates a new BatchLineReturnedEvent
func NewBatchLineReturnedEvent(batch *Batch, line *Line, quantity decimal.Decimal, actorID uuid.UUID) *BatchLineReturnedEvent {
	return &BatchLineReturnedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchLineReturned, AggregateTypeWithdrawalBatch, batch.ID),
		BatchReference:  batch.BatchReference,
		LineID:          line.ID,
		InventoryItemID: line.InventoryItemID,
		Quantity:        quantity,
		BatchStatus:     batch.Status,
		ReturnedBy:      actorID,
	}
}

// EventType returns the event type name
func (e *BatchLineReturnedEvent) EventType() string {
	return EventTypeBatchLineReturned
}
