package inventory

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/toolroom/backend/internal/domain/shared"

	"github.com/google/uuid"
)

// ItemStatus represents the custody status of an inventory item
type ItemStatus string

const (
	ItemStatusAvailable ItemStatus = "AVAILABLE"
	ItemStatusBorrowed  ItemStatus = "BORROWED"
	ItemStatusRetired   ItemStatus = "RETIRED"
)

// IsValid checks if the status is a valid ItemStatus
func (s ItemStatus) IsValid() bool {
	switch s {
	case ItemStatusAvailable, ItemStatusBorrowed, ItemStatusRetired:
		return true
	}
	return false
}

// String returns the string representation of ItemStatus
func (s ItemStatus) String() string {
	return string(s)
}

// InventoryItem represents a single asset or consumable stock record owned
// by a project. It is the aggregate root for all quantity mutations: the
// available quantity may only be changed while the enclosing transaction
// holds this item's row lock.
type InventoryItem struct {
	shared.BaseAggregateRoot
	ProjectID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name              string          `gorm:"size:200;not null"`
	IsConsumable      bool            `gorm:"not null;default:false;index"`
	AvailableQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status            ItemStatus      `gorm:"size:20;not null;default:'AVAILABLE'"`
}

// TableName returns the table name for GORM
func (InventoryItem) TableName() string {
	return "inventory_items"
}

// NewInventoryItem creates a new inventory item for a project
func NewInventoryItem(projectID uuid.UUID, name string, isConsumable bool, quantity decimal.Decimal) (*InventoryItem, error) {
	if projectID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PROJECT", "Project ID cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Item name cannot be empty")
	}
	if quantity.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}

	return &InventoryItem{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProjectID:         projectID,
		Name:              name,
		IsConsumable:      isConsumable,
		AvailableQuantity: quantity,
		Status:            ItemStatusAvailable,
	}, nil
}

// CanFulfill returns true if the available quantity can fulfill the requested quantity
func (i *InventoryItem) CanFulfill(quantity decimal.Decimal) bool {
	return i.AvailableQuantity.GreaterThanOrEqual(quantity)
}

// Reserve deducts the requested quantity from available stock for a
// withdrawal batch. Callers must hold the item's row lock for the duration
// of the enclosing transaction.
func (i *InventoryItem) Reserve(quantity decimal.Decimal, batchID uuid.UUID) error {
	if !i.IsConsumable {
		return shared.ErrWrongWorkflow
	}
	if quantity.LessThan(decimal.NewFromInt(1)) {
		return shared.ErrInvalidQuantity
	}
	if !i.CanFulfill(quantity) {
		return shared.ErrInsufficientQuantity
	}

	i.AvailableQuantity = i.AvailableQuantity.Sub(quantity)
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	i.AddDomainEvent(NewStockReservedEvent(i, quantity, batchID))

	return nil
}

// Restock returns a previously reserved quantity to available stock, used
// when a reserved batch is cancelled before release.
func (i *InventoryItem) Restock(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.ErrInvalidQuantity
	}

	i.AvailableQuantity = i.AvailableQuantity.Add(quantity)
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	i.AddDomainEvent(NewStockRestockedEvent(i, quantity))

	return nil
}

// MarkBorrowed flags a durable tool as physically out on loan
func (i *InventoryItem) MarkBorrowed() error {
	if i.IsConsumable {
		return shared.ErrWrongWorkflow
	}
	if i.Status != ItemStatusAvailable {
		return shared.ErrInvalidState
	}

	i.Status = ItemStatusBorrowed
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	i.AddDomainEvent(NewItemStatusChangedEvent(i, ItemStatusAvailable, ItemStatusBorrowed))

	return nil
}

// MarkAvailable restores a tool's availability after it is returned
func (i *InventoryItem) MarkAvailable() error {
	if i.Status != ItemStatusBorrowed {
		return shared.ErrInvalidState
	}

	i.Status = ItemStatusAvailable
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	i.AddDomainEvent(NewItemStatusChangedEvent(i, ItemStatusBorrowed, ItemStatusAvailable))

	return nil
}
