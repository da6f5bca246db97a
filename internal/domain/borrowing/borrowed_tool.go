package borrowing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/toolroom/backend/internal/domain/shared"
)

// ToolStatus represents the status of a borrowed tool record
type ToolStatus string

const (
	ToolStatusPendingVerification ToolStatus = "PENDING_VERIFICATION"
	ToolStatusPendingApproval     ToolStatus = "PENDING_APPROVAL"
	ToolStatusApproved            ToolStatus = "APPROVED"
	ToolStatusBorrowed            ToolStatus = "BORROWED"
	ToolStatusOverdue             ToolStatus = "OVERDUE"
	ToolStatusReturned            ToolStatus = "RETURNED"
	ToolStatusCancelled           ToolStatus = "CANCELLED"
)

// IsValid checks if the status is a valid ToolStatus
func (s ToolStatus) IsValid() bool {
	switch s {
	case ToolStatusPendingVerification, ToolStatusPendingApproval, ToolStatusApproved,
		ToolStatusBorrowed, ToolStatusOverdue, ToolStatusReturned, ToolStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of ToolStatus
func (s ToolStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// Once a tool is physically out (BORROWED/OVERDUE) cancellation is
// disallowed; the record must go through the return path.
func (s ToolStatus) CanTransitionTo(target ToolStatus) bool {
	switch s {
	case ToolStatusPendingVerification:
		return target == ToolStatusPendingApproval || target == ToolStatusCancelled
	case ToolStatusPendingApproval:
		return target == ToolStatusApproved || target == ToolStatusCancelled
	case ToolStatusApproved:
		return target == ToolStatusBorrowed || target == ToolStatusCancelled
	case ToolStatusBorrowed:
		return target == ToolStatusOverdue || target == ToolStatusReturned
	case ToolStatusOverdue:
		return target == ToolStatusReturned
	case ToolStatusReturned, ToolStatusCancelled:
		return false // Terminal states
	}
	return false
}

// IsTerminal returns true for states with no outgoing transitions
func (s ToolStatus) IsTerminal() bool {
	return s == ToolStatusReturned || s == ToolStatusCancelled
}

// IsOut returns true while the tool is physically with the borrower
func (s ToolStatus) IsOut() bool {
	return s == ToolStatusBorrowed || s == ToolStatusOverdue
}

// BorrowedTool represents a durable tool loan aggregate root, the
// non-consumable counterpart of a withdrawal batch. The tool itself stays
// on the inventory ledger; this record tracks custody through the
// maker-verifier-authorizer chain, the loan period and the return.
type BorrowedTool struct {
	shared.BaseAggregateRoot
	RequestReference string     `gorm:"size:50;not null;uniqueIndex"`
	InventoryItemID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	ProjectID        uuid.UUID  `gorm:"type:uuid;not null;index"`
	BatchID          *uuid.UUID `gorm:"type:uuid;index"` // Optional grouping with sibling loans
	Status           ToolStatus `gorm:"size:30;not null;index"`

	Quantity         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QuantityReturned decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`

	BorrowerName    string `gorm:"size:200;not null"`
	BorrowerContact string `gorm:"size:100"`
	Purpose         string `gorm:"size:500"`

	ExpectedReturn      time.Time `gorm:"not null;index"`
	ActualReturn        *time.Time
	ConditionOut        string `gorm:"size:200"`
	ConditionIn         string `gorm:"size:200"`
	LastExtensionReason string `gorm:"size:500"`

	RequestedBy        uuid.UUID  `gorm:"type:uuid;not null"`
	VerifiedBy         *uuid.UUID `gorm:"type:uuid"`
	VerificationDate   *time.Time
	VerificationNotes  string `gorm:"size:500"`
	ApprovedBy         *uuid.UUID `gorm:"type:uuid"`
	ApprovalDate       *time.Time
	ApprovalNotes      string `gorm:"size:500"`
	ReleasedBy         *uuid.UUID `gorm:"type:uuid"`
	ReleaseDate        *time.Time
	ReturnedBy         *uuid.UUID `gorm:"type:uuid"`
	ReturnDate         *time.Time
	CanceledBy         *uuid.UUID `gorm:"type:uuid"`
	CancellationDate   *time.Time
	CancellationReason string `gorm:"size:500"`
}

// TableName returns the table name for GORM
func (BorrowedTool) TableName() string {
	return "borrowed_tools"
}

// NewBorrowedTool creates a borrow request in PENDING_VERIFICATION
func NewBorrowedTool(reference string, inventoryItemID, projectID, makerID uuid.UUID, quantity decimal.Decimal, borrowerName string, expectedReturn time.Time, conditionOut string) (*BorrowedTool, error) {
	if reference == "" {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Request reference cannot be empty")
	}
	if inventoryItemID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ITEM", "Inventory item ID cannot be empty")
	}
	if makerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Maker ID cannot be empty")
	}
	if borrowerName == "" {
		return nil, shared.NewDomainError("INVALID_BORROWER", "Borrower name cannot be empty")
	}
	if quantity.LessThan(decimal.NewFromInt(1)) {
		return nil, shared.ErrInvalidQuantity
	}
	if !expectedReturn.After(time.Now()) {
		return nil, shared.NewDomainError("INVALID_RETURN_DATE", "Expected return date must be in the future")
	}

	tool := &BorrowedTool{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		RequestReference:  reference,
		InventoryItemID:   inventoryItemID,
		ProjectID:         projectID,
		Status:            ToolStatusPendingVerification,
		Quantity:          quantity,
		QuantityReturned:  decimal.Zero,
		BorrowerName:      borrowerName,
		ExpectedReturn:    expectedReturn,
		ConditionOut:      conditionOut,
		RequestedBy:       makerID,
	}

	tool.AddDomainEvent(NewToolRequestedEvent(tool))

	return tool, nil
}

// Verify advances the request from PENDING_VERIFICATION to PENDING_APPROVAL.
// The verifier must not be the maker.
func (t *BorrowedTool) Verify(verifierID uuid.UUID, notes string) error {
	if !t.Status.CanTransitionTo(ToolStatusPendingApproval) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot verify loan in %s status", t.Status))
	}
	if err := shared.CheckWorkflowActor(verifierID, &t.RequestedBy); err != nil {
		return err
	}

	now := time.Now()
	t.Status = ToolStatusPendingApproval
	t.VerifiedBy = &verifierID
	t.VerificationDate = &now
	t.VerificationNotes = notes
	t.UpdatedAt = now
	t.IncrementVersion()

	t.AddDomainEvent(NewToolVerifiedEvent(t, verifierID))

	return nil
}

// Approve advances the request from PENDING_APPROVAL to APPROVED. The
// authorizer must be distinct from both maker and verifier.
func (t *BorrowedTool) Approve(approverID uuid.UUID, notes string) error {
	if !t.Status.CanTransitionTo(ToolStatusApproved) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot approve loan in %s status", t.Status))
	}
	if err := shared.CheckWorkflowActor(approverID, &t.RequestedBy, t.VerifiedBy); err != nil {
		return err
	}

	now := time.Now()
	t.Status = ToolStatusApproved
	t.ApprovedBy = &approverID
	t.ApprovalDate = &now
	t.ApprovalNotes = notes
	t.UpdatedAt = now
	t.IncrementVersion()

	t.AddDomainEvent(NewToolApprovedEvent(t, approverID))

	return nil
}

// Release hands the tool to the borrower, moving the record to BORROWED.
// The caller flips the underlying inventory item to BORROWED in the same
// transaction.
func (t *BorrowedTool) Release(releaserID uuid.UUID) error {
	if !t.Status.CanTransitionTo(ToolStatusBorrowed) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot release loan in %s status", t.Status))
	}
	if err := shared.CheckWorkflowActor(releaserID); err != nil {
		return err
	}

	now := time.Now()
	t.Status = ToolStatusBorrowed
	t.ReleasedBy = &releaserID
	t.ReleaseDate = &now
	t.UpdatedAt = now
	t.IncrementVersion()

	t.AddDomainEvent(NewToolBorrowedEvent(t, releaserID))

	return nil
}

// Return closes the loan from BORROWED or OVERDUE, recording the return
// condition. The caller restores the inventory item's availability in the
// same transaction.
func (t *BorrowedTool) Return(returnerID uuid.UUID, conditionIn string) error {
	if !t.Status.IsOut() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot return loan in %s status", t.Status))
	}
	if err := shared.CheckWorkflowActor(returnerID); err != nil {
		return err
	}

	now := time.Now()
	t.Status = ToolStatusReturned
	t.QuantityReturned = t.Quantity
	t.ActualReturn = &now
	t.ConditionIn = conditionIn
	t.ReturnedBy = &returnerID
	t.ReturnDate = &now
	t.UpdatedAt = now
	t.IncrementVersion()

	t.AddDomainEvent(NewToolReturnedEvent(t, returnerID))

	return nil
}

// Extend pushes the expected return date out. The new date must be strictly
// later than the current one and a reason is required.
func (t *BorrowedTool) Extend(actorID uuid.UUID, newExpectedReturn time.Time, reason string) error {
	if !t.Status.IsOut() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot extend loan in %s status", t.Status))
	}
	if err := shared.CheckWorkflowActor(actorID); err != nil {
		return err
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Extension reason is required")
	}
	if !newExpectedReturn.After(t.ExpectedReturn) {
		return shared.NewDomainError("INVALID_RETURN_DATE", "New expected return date must be later than the current one")
	}

	now := time.Now()
	previous := t.ExpectedReturn
	t.ExpectedReturn = newExpectedReturn
	t.LastExtensionReason = reason
	// An extension clears an overdue flag when the new date is in the future
	if t.Status == ToolStatusOverdue && newExpectedReturn.After(now) {
		t.Status = ToolStatusBorrowed
	}
	t.UpdatedAt = now
	t.IncrementVersion()

	t.AddDomainEvent(NewToolExtendedEvent(t, actorID, previous, newExpectedReturn, reason))

	return nil
}

// MarkOverdue transitions a BORROWED tool whose expected return has passed
// to OVERDUE. Idempotent: returns false when nothing changed.
func (t *BorrowedTool) MarkOverdue(now time.Time) bool {
	if t.Status != ToolStatusBorrowed || !t.ExpectedReturn.Before(now) {
		return false
	}

	t.Status = ToolStatusOverdue
	t.UpdatedAt = now
	t.IncrementVersion()
	t.AddDomainEvent(NewToolOverdueEvent(t))

	return true
}

// Cancel voids the request before the tool goes out
func (t *BorrowedTool) Cancel(actorID uuid.UUID, reason string) error {
	if !t.Status.CanTransitionTo(ToolStatusCancelled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel loan in %s status", t.Status))
	}
	if err := shared.CheckWorkflowActor(actorID); err != nil {
		return err
	}

	now := time.Now()
	t.Status = ToolStatusCancelled
	t.CanceledBy = &actorID
	t.CancellationDate = &now
	t.CancellationReason = reason
	t.UpdatedAt = now
	t.IncrementVersion()

	t.AddDomainEvent(NewToolCancelledEvent(t, actorID, reason))

	return nil
}

// IsOverdue reports whether the tool is out past its expected return date
func (t *BorrowedTool) IsOverdue(now time.Time) bool {
	return t.Status.IsOut() && t.ExpectedReturn.Before(now)
}
