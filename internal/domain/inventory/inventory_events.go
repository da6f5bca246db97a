package inventory

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/toolroom/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeInventoryItem = "InventoryItem"

// Event type constants
const (
	EventTypeStockReserved     = "StockReserved"
	EventTypeStockRestocked    = "StockRestocked"
	EventTypeItemStatusChanged = "ItemStatusChanged"
)

// StockReservedEvent is raised when available quantity is reserved for a withdrawal batch
type StockReservedEvent struct {
	shared.BaseDomainEvent
	InventoryItemID uuid.UUID       `json:"inventory_item_id"`
	ProjectID       uuid.UUID       `json:"project_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	BatchID         uuid.UUID       `json:"batch_id"`
	Remaining       decimal.Decimal `json:"remaining"`
}

// NewStockReservedEvent creates a new StockReservedEvent
func NewStockReservedEvent(item *InventoryItem, quantity decimal.Decimal, batchID uuid.UUID) *StockReservedEvent {
	return &StockReservedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReserved, AggregateTypeInventoryItem, item.ID),
		InventoryItemID: item.ID,
		ProjectID:       item.ProjectID,
		Quantity:        quantity,
		BatchID:         batchID,
		Remaining:       item.AvailableQuantity,
	}
}

// EventType returns the event type name
func (e *StockReservedEvent) EventType() string {
	return EventTypeStockReserved
}

// StockRestockedEvent is raised when a cancelled reservation returns quantity to stock
type StockRestockedEvent struct {
	shared.BaseDomainEvent
	InventoryItemID uuid.UUID       `json:"inventory_item_id"`
	ProjectID       uuid.UUID       `json:"project_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	Remaining       decimal.Decimal `json:"remaining"`
}

// NewStockRestockedEvent creates a new StockRestockedEvent
func NewStockRestockedEvent(item *InventoryItem, quantity decimal.Decimal) *StockRestockedEvent {
	return &StockRestockedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockRestocked, AggregateTypeInventoryItem, item.ID),
		InventoryItemID: item.ID,
		ProjectID:       item.ProjectID,
		Quantity:        quantity,
		Remaining:       item.AvailableQuantity,
	}
}

// EventType returns the event type name
func (e *StockRestockedEvent) EventType() string {
	return EventTypeStockRestocked
}

// ItemStatusChangedEvent is raised when a tool's custody status changes
type ItemStatusChangedEvent struct {
	shared.BaseDomainEvent
	InventoryItemID uuid.UUID  `json:"inventory_item_id"`
	ProjectID       uuid.UUID  `json:"project_id"`
	FromStatus      ItemStatus `json:"from_status"`
	ToStatus        ItemStatus `json:"to_status"`
}

// NewItemStatusChangedEvent creates a new ItemStatusChangedEvent
func NewItemStatusChangedEvent(item *InventoryItem, from, to ItemStatus) *ItemStatusChangedEvent {
	return &ItemStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeItemStatusChanged, AggregateTypeInventoryItem, item.ID),
		InventoryItemID: item.ID,
		ProjectID:       item.ProjectID,
		FromStatus:      from,
		ToStatus:        to,
	}
}

// EventType returns the event type name
func (e *ItemStatusChangedEvent) EventType() string {
	return EventTypeItemStatusChanged
}
