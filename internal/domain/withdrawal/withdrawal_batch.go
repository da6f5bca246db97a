package withdrawal

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/toolroom/backend/internal/domain/shared"
)

// BatchStatus represents the status of a withdrawal batch
type BatchStatus string

const (
	BatchStatusPendingVerification BatchStatus = "PENDING_VERIFICATION"
	BatchStatusPendingApproval     BatchStatus = "PENDING_APPROVAL"
	BatchStatusApproved            BatchStatus = "APPROVED"
	BatchStatusReleased            BatchStatus = "RELEASED"
	BatchStatusPartiallyReturned   BatchStatus = "PARTIALLY_RETURNED"
	BatchStatusReturned            BatchStatus = "RETURNED"
	BatchStatusCancelled           BatchStatus = "CANCELLED"
)

// IsValid checks if the status is a valid BatchStatus
func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusPendingVerification, BatchStatusPendingApproval, BatchStatusApproved,
		BatchStatusReleased, BatchStatusPartiallyReturned, BatchStatusReturned, BatchStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of BatchStatus
func (s BatchStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// Cancellation is legal from any state before physical release; once
// released, reversal must go through the return path instead.
func (s BatchStatus) CanTransitionTo(target BatchStatus) bool {
	switch s {
	case BatchStatusPendingVerification:
		return target == BatchStatusPendingApproval || target == BatchStatusCancelled
	case BatchStatusPendingApproval:
		return target == BatchStatusApproved || target == BatchStatusCancelled
	case BatchStatusApproved:
		return target == BatchStatusReleased || target == BatchStatusCancelled
	case BatchStatusReleased:
		return target == BatchStatusPartiallyReturned || target == BatchStatusReturned
	case BatchStatusPartiallyReturned:
		return target == BatchStatusReturned
	case BatchStatusReturned, BatchStatusCancelled:
		return false // Terminal states
	}
	return false
}

// IsTerminal returns true for states with no outgoing transitions
func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusReturned || s == BatchStatusCancelled
}

// Line represents a single consumable item within a withdrawal batch.
// The batch owns its lines; BatchID is a back-reference only.
type Line struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BatchID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	InventoryItemID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProjectID        uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ReturnedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status           BatchStatus     `gorm:"size:30;not null"`
	Notes            string          `gorm:"size:500"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName returns the table name for GORM
func (Line) TableName() string {
	return "withdrawal_lines"
}

// FullyReturned returns true once the entire line quantity has come back
func (l *Line) FullyReturned() bool {
	return l.ReturnedQuantity.GreaterThanOrEqual(l.Quantity)
}

// Batch represents a withdrawal batch aggregate root: a group of consumable
// line items requested, verified, approved and released together under one
// reference. Quantity is reserved against inventory at creation time, so
// release only transfers physical custody.
type Batch struct {
	shared.BaseAggregateRoot
	BatchReference  string      `gorm:"size:50;not null;uniqueIndex"`
	ProjectID       uuid.UUID   `gorm:"type:uuid;not null;index"`
	ReceiverName    string      `gorm:"size:200;not null"`
	ReceiverContact string      `gorm:"size:100"`
	Purpose         string      `gorm:"size:500"`
	Status          BatchStatus `gorm:"size:30;not null;index"`

	IssuedBy           uuid.UUID  `gorm:"type:uuid;not null"`
	VerifiedBy         *uuid.UUID `gorm:"type:uuid"`
	VerificationDate   *time.Time
	VerificationNotes  string `gorm:"size:500"`
	ApprovedBy         *uuid.UUID `gorm:"type:uuid"`
	ApprovalDate       *time.Time
	ApprovalNotes      string `gorm:"size:500"`
	ReleasedBy         *uuid.UUID `gorm:"type:uuid"`
	ReleaseDate        *time.Time
	CanceledBy         *uuid.UUID `gorm:"type:uuid"`
	CancellationDate   *time.Time
	CancellationReason string `gorm:"size:500"`

	TotalItems    int             `gorm:"not null;default:0"`
	TotalQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`

	Lines []Line `gorm:"foreignKey:BatchID;references:ID"`
}

// TableName returns the table name for GORM
func (Batch) TableName() string {
	return "withdrawal_batches"
}

// NewBatch creates a withdrawal batch in PENDING_VERIFICATION with the
// maker recorded as issuer. Lines are added separately before saving.
func NewBatch(reference, receiverName, receiverContact, purpose string, makerID uuid.UUID) (*Batch, error) {
	if reference == "" {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Batch reference cannot be empty")
	}
	if receiverName == "" {
		return nil, shared.NewDomainError("INVALID_RECEIVER", "Receiver name cannot be empty")
	}
	if makerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Maker ID cannot be empty")
	}

	batch := &Batch{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BatchReference:    reference,
		ReceiverName:      receiverName,
		ReceiverContact:   receiverContact,
		Purpose:           purpose,
		Status:            BatchStatusPendingVerification,
		IssuedBy:          makerID,
		Lines:             make([]Line, 0),
		TotalQuantity:     decimal.Zero,
	}

	batch.AddDomainEvent(NewBatchCreatedEvent(batch))

	return batch, nil
}

// AddLine appends a validated line item. The first line establishes the
// batch's project; later lines from a different project are rejected.
// Only allowed before the batch leaves PENDING_VERIFICATION.
func (b *Batch) AddLine(inventoryItemID, projectID uuid.UUID, quantity decimal.Decimal, notes string) error {
	if b.Status != BatchStatusPendingVerification {
		return shared.ErrInvalidState
	}
	if inventoryItemID == uuid.Nil {
		return shared.NewDomainError("INVALID_ITEM", "Inventory item ID cannot be empty")
	}
	if quantity.LessThan(decimal.NewFromInt(1)) {
		return shared.ErrInvalidQuantity
	}
	if b.ProjectID == uuid.Nil {
		b.ProjectID = projectID
	} else if b.ProjectID != projectID {
		return shared.ErrProjectMismatch
	}

	now := time.Now()
	b.Lines = append(b.Lines, Line{
		ID:               uuid.New(),
		BatchID:          b.ID,
		InventoryItemID:  inventoryItemID,
		ProjectID:        projectID,
		Quantity:         quantity,
		ReturnedQuantity: decimal.Zero,
		Status:           b.Status,
		Notes:            notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	b.recalculateTotals()
	b.UpdatedAt = now

	return nil
}

// Verify advances the batch from PENDING_VERIFICATION to PENDING_APPROVAL.
// The verifier must not be the maker (segregation of duties).
func (b *Batch) Verify(verifierID uuid.UUID, notes string) error {
	if !b.Status.CanTransitionTo(BatchStatusPendingApproval) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot verify batch in %s status", b.Status))
	}
	if err := shared.CheckWorkflowActor(verifierID, &b.IssuedBy); err != nil {
		return err
	}

	now := time.Now()
	b.Status = BatchStatusPendingApproval
	b.VerifiedBy = &verifierID
	b.VerificationDate = &now
	b.VerificationNotes = notes
	b.setLineStatuses(BatchStatusPendingApproval)
	b.UpdatedAt = now
	b.IncrementVersion()

	b.AddDomainEvent(NewBatchVerifiedEvent(b, verifierID))

	return nil
}

// Approve advances the batch from PENDING_APPROVAL to APPROVED. The
// authorizer must be distinct from both maker and verifier.
func (b *Batch) Approve(approverID uuid.UUID, notes string) error {
	if !b.Status.CanTransitionTo(BatchStatusApproved) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot approve batch in %s status", b.Status))
	}
	if err := shared.CheckWorkflowActor(approverID, &b.IssuedBy, b.VerifiedBy); err != nil {
		return err
	}

	now := time.Now()
	b.Status = BatchStatusApproved
	b.ApprovedBy = &approverID
	b.ApprovalDate = &now
	b.ApprovalNotes = notes
	b.setLineStatuses(BatchStatusApproved)
	b.UpdatedAt = now
	b.IncrementVersion()

	b.AddDomainEvent(NewBatchApprovedEvent(b, approverID))

	return nil
}

// Release transfers physical custody of the batch. No inventory quantity
// changes here; quantities were reserved when the batch was created.
func (b *Batch) Release(releaserID uuid.UUID) error {
	if !b.Status.CanTransitionTo(BatchStatusReleased) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot release batch in %s status", b.Status))
	}
	if err := shared.CheckWorkflowActor(releaserID); err != nil {
		return err
	}

	now := time.Now()
	b.Status = BatchStatusReleased
	b.ReleasedBy = &releaserID
	b.ReleaseDate = &now
	b.setLineStatuses(BatchStatusReleased)
	b.UpdatedAt = now
	b.IncrementVersion()

	b.AddDomainEvent(NewBatchReleasedEvent(b, releaserID))

	return nil
}

// Cancel voids the batch before release. Released batches cannot be
// cancelled; they must go through the return path.
func (b *Batch) Cancel(actorID uuid.UUID, reason string) error {
	if !b.Status.CanTransitionTo(BatchStatusCancelled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel batch in %s status", b.Status))
	}
	if err := shared.CheckWorkflowActor(actorID); err != nil {
		return err
	}

	now := time.Now()
	b.Status = BatchStatusCancelled
	b.CanceledBy = &actorID
	b.CancellationDate = &now
	b.CancellationReason = reason
	b.setLineStatuses(BatchStatusCancelled)
	b.UpdatedAt = now
	b.IncrementVersion()

	b.AddDomainEvent(NewBatchCancelledEvent(b, actorID, reason))

	return nil
}

// ReturnLine records a quantity coming back on one line and recomputes the
// batch status from its children: every line fully returned means RETURNED,
// any returned quantity means PARTIALLY_RETURNED.
func (b *Batch) ReturnLine(lineID uuid.UUID, quantity decimal.Decimal, actorID uuid.UUID) error {
	if b.Status != BatchStatusReleased && b.Status != BatchStatusPartiallyReturned {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot return items for batch in %s status", b.Status))
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.ErrInvalidQuantity
	}

	var line *Line
	for idx := range b.Lines {
		if b.Lines[idx].ID == lineID {
			line = &b.Lines[idx]
			break
		}
	}
	if line == nil {
		return shared.NewDomainError("LINE_NOT_FOUND", "Withdrawal line not found")
	}

	newReturned := line.ReturnedQuantity.Add(quantity)
	if newReturned.GreaterThan(line.Quantity) {
		return shared.NewDomainError("INVALID_QUANTITY", "Returned quantity cannot exceed withdrawn quantity")
	}

	now := time.Now()
	line.ReturnedQuantity = newReturned
	if line.FullyReturned() {
		line.Status = BatchStatusReturned
	} else {
		line.Status = BatchStatusPartiallyReturned
	}
	line.UpdatedAt = now

	b.recomputeReturnStatus()
	b.UpdatedAt = now
	b.IncrementVersion()
	b.AddDomainEvent(NewBatchLineReturnedEvent(b, line, quantity, actorID))

	return nil
}

// recomputeReturnStatus rolls per-line state up into the batch status
func (b *Batch) recomputeReturnStatus() {
	returned := 0
	anyReturned := false
	for idx := range b.Lines {
		if b.Lines[idx].FullyReturned() {
			returned++
		}
		if b.Lines[idx].ReturnedQuantity.GreaterThan(decimal.Zero) {
			anyReturned = true
		}
	}

	switch {
	case len(b.Lines) > 0 && returned == len(b.Lines):
		b.Status = BatchStatusReturned
	case anyReturned:
		b.Status = BatchStatusPartiallyReturned
	}
}

// setLineStatuses mirrors the batch status onto lines that have not
// diverged through partial returns
func (b *Batch) setLineStatuses(status BatchStatus) {
	now := time.Now()
	for idx := range b.Lines {
		b.Lines[idx].Status = status
		b.Lines[idx].UpdatedAt = now
	}
}

// recalculateTotals recomputes the denormalized totals from the lines
func (b *Batch) recalculateTotals() {
	total := decimal.Zero
	for _, line := range b.Lines {
		total = total.Add(line.Quantity)
	}
	b.TotalItems = len(b.Lines)
	b.TotalQuantity = total
}

// GetLine returns a line by its ID
func (b *Batch) GetLine(lineID uuid.UUID) *Line {
	for idx := range b.Lines {
		if b.Lines[idx].ID == lineID {
			return &b.Lines[idx]
		}
	}
	return nil
}

// IsTerminal returns true if the batch is fully returned or cancelled
func (b *Batch) IsTerminal() bool {
	return b.Status.IsTerminal()
}
