package borrowing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/toolroom/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeBorrowedTool = "BorrowedTool"

// Event type constants
const (
	EventTypeToolRequested = "ToolBorrowRequested"
	EventTypeToolVerified  = "ToolBorrowVerified"
	EventTypeToolApproved  = "ToolBorrowApproved"
	EventTypeToolBorrowed  = "ToolBorrowed"
	EventTypeToolReturned  = "ToolReturned"
	EventTypeToolExtended  = "ToolLoanExtended"
	EventTypeToolOverdue   = "ToolOverdue"
	EventTypeToolCancelled = "ToolBorrowCancelled"
)

// ToolRequestedEvent is raised when a maker submits a borrow request
type ToolRequestedEvent struct {
	shared.BaseDomainEvent
	RequestReference string          `json:"request_reference"`
	InventoryItemID  uuid.UUID       `json:"inventory_item_id"`
	ProjectID        uuid.UUID       `json:"project_id"`
	RequestedBy      uuid.UUID       `json:"requested_by"`
	Quantity         decimal.Decimal `json:"quantity"`
	ExpectedReturn   time.Time       `json:"expected_return"`
}

// NewToolRequestedEvent creates a new ToolRequestedEvent
func NewToolRequestedEvent(tool *BorrowedTool) *ToolRequestedEvent {
	return &ToolRequestedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeToolRequested, AggregateTypeBorrowedTool, tool.ID),
		RequestReference: tool.RequestReference,
		InventoryItemID:  tool.InventoryItemID,
		ProjectID:        tool.ProjectID,
		RequestedBy:      tool.RequestedBy,
		Quantity:         tool.Quantity,
		ExpectedReturn:   tool.ExpectedReturn,
	}
}

// EventType returns the event type name
func (e *ToolRequestedEvent) EventType() string {
	return EventTypeToolRequested
}

// ToolVerifiedEvent is raised when a verifier passes the request on
type ToolVerifiedEvent struct {
	shared.BaseDomainEvent
	RequestReference string    `json:"request_reference"`
	VerifiedBy       uuid.UUID `json:"verified_by"`
}

// NewToolVerifiedEvent creates a new ToolVerifiedEvent
func NewToolVerifiedEvent(tool *BorrowedTool, verifierID uuid.UUID) *ToolVerifiedEvent {
	return &ToolVerifiedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeToolVerified, AggregateTypeBorrowedTool, tool.ID),
		RequestReference: tool.RequestReference,
		VerifiedBy:       verifierID,
	}
}

// EventType returns the event type name
func (e *ToolVerifiedEvent) EventType() string {
	return EventTypeToolVerified
}

// ToolApprovedEvent is raised when an authorizer approves the request
type ToolApprovedEvent struct {
	shared.BaseDomainEvent
	RequestReference string    `json:"request_reference"`
	ApprovedBy       uuid.UUID `json:"approved_by"`
}

// NewToolApprovedEvent creates a new ToolApprovedEvent
func NewToolApprovedEvent(tool *BorrowedTool, approverID uuid.UUID) *ToolApprovedEvent {
	return &ToolApprovedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeToolApproved, AggregateTypeBorrowedTool, tool.ID),
		RequestReference: tool.RequestReference,
		ApprovedBy:       approverID,
	}
}

// EventType returns the event type name
func (e *ToolApprovedEvent) EventType() string {
	return EventTypeToolApproved
}

// ToolBorrowedEvent is raised when the tool physically goes out
type ToolBorrowedEvent struct {
	shared.BaseDomainEvent
	RequestReference string    `json:"request_reference"`
	InventoryItemID  uuid.UUID `json:"inventory_item_id"`
	ReleasedBy       uuid.UUID `json:"released_by"`
	BorrowerName     string    `json:"borrower_name"`
	ExpectedReturn   time.Time `json:"expected_return"`
}

// NewToolBorrowedEvent creates a new ToolBorrowedEvent
func NewToolBorrowedEvent(tool *BorrowedTool, releaserID uuid.UUID) *ToolBorrowedEvent {
	return &ToolBorrowedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeToolBorrowed, AggregateTypeBorrowedTool, tool.ID),
		RequestReference: tool.RequestReference,
		InventoryItemID:  tool.InventoryItemID,
		ReleasedBy:       releaserID,
		BorrowerName:     tool.BorrowerName,
		ExpectedReturn:   tool.ExpectedReturn,
	}
}

// EventType returns the event type name
func (e *ToolBorrowedEvent) EventType() string {
	return EventTypeToolBorrowed
}

// ToolReturnedEvent is raised when the tool comes back
type ToolReturnedEvent struct {
	shared.BaseDomainEvent
	RequestReference string    `json:"request_reference"`
	InventoryItemID  uuid.UUID `json:"inventory_item_id"`
	ReturnedBy       uuid.UUID `json:"returned_by"`
	ConditionIn      string    `json:"condition_in,omitempty"`
	WasOverdue       bool      `json:"was_overdue"`
}

// NewToolReturnedEvent creates a new ToolReturnedEvent
func NewToolReturnedEvent(tool *BorrowedTool, returnerID uuid.UUID) *ToolReturnedEvent {
	wasOverdue := tool.ActualReturn != nil && tool.ExpectedReturn.Before(*tool.ActualReturn)
	return &ToolReturnedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeToolReturned, AggregateTypeBorrowedTool, tool.ID),
		RequestReference: tool.RequestReference,
		InventoryItemID:  tool.InventoryItemID,
		ReturnedBy:       returnerID,
		ConditionIn:      tool.ConditionIn,
		WasOverdue:       wasOverdue,
	}
}

// EventType returns the event type name
func (e *ToolReturnedEvent) EventType() string {
	return EventTypeToolReturned
}

// ToolExtendedEvent is raised when the loan period is extended
type ToolExtendedEvent struct {
	shared.BaseDomainEvent
	RequestReference string    `json:"request_reference"`
	ExtendedBy       uuid.UUID `json:"extended_by"`
	PreviousReturn   time.Time `json:"previous_return"`
	NewReturn        time.Time `json:"new_return"`
	Reason           string    `json:"reason"`
}

// NewToolExtendedEvent creates a new ToolExtendedEvent
func NewToolExtendedEvent(tool *BorrowedTool, actorID uuid.UUID, previous, next time.Time, reason string) *ToolExtendedEvent {
	return &ToolExtendedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeToolExtended, AggregateTypeBorrowedTool, tool.ID),
		RequestReference: tool.RequestReference,
		ExtendedBy:       actorID,
		PreviousReturn:   previous,
		NewReturn:        next,
		Reason:           reason,
	}
}

// EventType returns the event type name
func (e *ToolExtendedEvent) EventType() string {
	return EventTypeToolExtended
}

// ToolOverdueEvent is raised when the sweep flags a loan as overdue
type ToolOverdueEvent struct {
	shared.BaseDomainEvent
	RequestReference string    `json:"request_reference"`
	InventoryItemID  uuid.UUID `json:"inventory_item_id"`
	BorrowerName     string    `json:"borrower_name"`
	ExpectedReturn   time.Time `json:"expected_return"`
}

// NewToolOverdueEvent creates a new ToolOverdueEvent
func NewToolOverdueEvent(tool *BorrowedTool) *ToolOverdueEvent {
	return &ToolOverdueEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeToolOverdue, AggregateTypeBorrowedTool, tool.ID),
		RequestReference: tool.RequestReference,
		InventoryItemID:  tool.InventoryItemID,
		BorrowerName:     tool.BorrowerName,
		ExpectedReturn:   tool.ExpectedReturn,
	}
}

// EventType returns the event type name
func (e *ToolOverdueEvent) EventType() string {
	return EventTypeToolOverdue
}

// ToolCancelledEvent is raised when a request is voided before release
type ToolCancelledEvent struct {
	shared.BaseDomainEvent
	RequestReference string    `json:"request_reference"`
	CanceledBy       uuid.UUID `json:"canceled_by"`
	Reason           string    `json:"reason,omitempty"`
}

// NewToolCancelledEvent creates a new ToolCancelledEvent
func NewToolCancelledEvent(tool *BorrowedTool, actorID uuid.UUID, reason string) *ToolCancelledEvent {
	return &ToolCancelledEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeToolCancelled, AggregateTypeBorrowedTool, tool.ID),
		RequestReference: tool.RequestReference,
		CanceledBy:       actorID,
		Reason:           reason,
	}
}

// EventType returns the event type name
func (e *ToolCancelledEvent) EventType() string {
	return EventTypeToolCancelled
}
