package withdrawal

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/toolroom/backend/internal/domain/withdrawal"
)

// BatchItemRequest is one requested line of a withdrawal
type BatchItemRequest struct {
	InventoryItemID uuid.UUID       `json:"inventory_item_id" validate:"required"`
	Quantity        decimal.Decimal `json:"quantity"`
	Notes           string          `json:"notes" validate:"max=500"`
}

// CreateBatchRequest represents a request to create a withdrawal batch
type CreateBatchRequest struct {
	ReceiverName    string             `json:"receiver_name" validate:"required,max=200"`
	ReceiverContact string             `json:"receiver_contact" validate:"max=100"`
	Purpose         string             `json:"purpose" validate:"max=500"`
	Items           []BatchItemRequest `json:"items" validate:"required,min=1,dive"`
}

// ReviewRequest carries the optional notes of a verification or approval
type ReviewRequest struct {
	Notes string `json:"notes" validate:"max=500"`
}

// CancelRequest represents a request to cancel a batch
type CancelRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// ReturnLineRequest represents a partial or full return against one line
type ReturnLineRequest struct {
	LineID   uuid.UUID       `json:"line_id" validate:"required"`
	Quantity decimal.Decimal `json:"quantity"`
}

// BatchListFilter represents filter options for batch listing
type BatchListFilter struct {
	Status    string     `json:"status" validate:"omitempty,oneof=PENDING_VERIFICATION PENDING_APPROVAL APPROVED RELEASED PARTIALLY_RETURNED RETURNED CANCELLED"`
	ProjectID *uuid.UUID `json:"project_id"`
	Page      int        `json:"page" validate:"omitempty,min=1"`
	PageSize  int        `json:"page_size" validate:"omitempty,min=1,max=100"`
	OrderBy   string     `json:"order_by"`
	OrderDir  string     `json:"order_dir" validate:"omitempty,oneof=asc desc"`
}

// LineResponse represents a withdrawal line in responses
type LineResponse struct {
	ID               uuid.UUID       `json:"id"`
	InventoryItemID  uuid.UUID       `json:"inventory_item_id"`
	Quantity         decimal.Decimal `json:"quantity"`
	ReturnedQuantity decimal.Decimal `json:"returned_quantity"`
	Status           string          `json:"status"`
	Notes            string          `json:"notes,omitempty"`
}

// BatchResponse represents a withdrawal batch in responses
type BatchResponse struct {
	ID              uuid.UUID `json:"id"`
	BatchReference  string    `json:"batch_reference"`
	ProjectID       uuid.UUID `json:"project_id"`
	ReceiverName    string    `json:"receiver_name"`
	ReceiverContact string    `json:"receiver_contact,omitempty"`
	Purpose         string    `json:"purpose,omitempty"`
	Status          string    `json:"status"`

	IssuedBy           uuid.UUID  `json:"issued_by"`
	VerifiedBy         *uuid.UUID `json:"verified_by,omitempty"`
	VerificationDate   *time.Time `json:"verification_date,omitempty"`
	VerificationNotes  string     `json:"verification_notes,omitempty"`
	ApprovedBy         *uuid.UUID `json:"approved_by,omitempty"`
	ApprovalDate       *time.Time `json:"approval_date,omitempty"`
	ApprovalNotes      string     `json:"approval_notes,omitempty"`
	ReleasedBy         *uuid.UUID `json:"released_by,omitempty"`
	ReleaseDate        *time.Time `json:"release_date,omitempty"`
	CanceledBy         *uuid.UUID `json:"canceled_by,omitempty"`
	CancellationDate   *time.Time `json:"cancellation_date,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`

	TotalItems    int             `json:"total_items"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	Lines         []LineResponse  `json:"lines"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// BatchListItemResponse represents a batch in list responses
type BatchListItemResponse struct {
	ID             uuid.UUID       `json:"id"`
	BatchReference string          `json:"batch_reference"`
	ProjectID      uuid.UUID       `json:"project_id"`
	ReceiverName   string          `json:"receiver_name"`
	Status         string          `json:"status"`
	TotalItems     int             `json:"total_items"`
	TotalQuantity  decimal.Decimal `json:"total_quantity"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ToLineResponse converts a domain line to a response DTO
func ToLineResponse(line *withdrawal.Line) LineResponse {
	return LineResponse{
		ID:               line.ID,
		InventoryItemID:  line.InventoryItemID,
		Quantity:         line.Quantity,
		ReturnedQuantity: line.ReturnedQuantity,
		Status:           string(line.Status),
		Notes:            line.Notes,
	}
}

// ToBatchResponse converts a domain batch to a response DTO
func ToBatchResponse(batch *withdrawal.Batch) BatchResponse {
	lines := make([]LineResponse, 0, len(batch.Lines))
	for idx := range batch.Lines {
		lines = append(lines, ToLineResponse(&batch.Lines[idx]))
	}
	return BatchResponse{
		ID:                 batch.ID,
		BatchReference:     batch.BatchReference,
		ProjectID:          batch.ProjectID,
		ReceiverName:       batch.ReceiverName,
		ReceiverContact:    batch.ReceiverContact,
		Purpose:            batch.Purpose,
		Status:             string(batch.Status),
		IssuedBy:           batch.IssuedBy,
		VerifiedBy:         batch.VerifiedBy,
		VerificationDate:   batch.VerificationDate,
		VerificationNotes:  batch.VerificationNotes,
		ApprovedBy:         batch.ApprovedBy,
		ApprovalDate:       batch.ApprovalDate,
		ApprovalNotes:      batch.ApprovalNotes,
		ReleasedBy:         batch.ReleasedBy,
		ReleaseDate:        batch.ReleaseDate,
		CanceledBy:         batch.CanceledBy,
		CancellationDate:   batch.CancellationDate,
		CancellationReason: batch.CancellationReason,
		TotalItems:         batch.TotalItems,
		TotalQuantity:      batch.TotalQuantity,
		Lines:              lines,
		CreatedAt:          batch.CreatedAt,
		UpdatedAt:          batch.UpdatedAt,
		Version:            batch.Version,
	}
}

// ToBatchListItemResponse converts a domain batch to a list item DTO
func ToBatchListItemResponse(batch *withdrawal.Batch) BatchListItemResponse {
	return BatchListItemResponse{
		ID:             batch.ID,
		BatchReference: batch.BatchReference,
		ProjectID:      batch.ProjectID,
		ReceiverName:   batch.ReceiverName,
		Status:         string(batch.Status),
		TotalItems:     batch.TotalItems,
		TotalQuantity:  batch.TotalQuantity,
		CreatedAt:      batch.CreatedAt,
	}
}

// ToBatchListItemResponses converts a slice of batches to list item DTOs
func ToBatchListItemResponses(batches []withdrawal.Batch) []BatchListItemResponse {
	responses := make([]BatchListItemResponse, 0, len(batches))
	for idx := range batches {
		responses = append(responses, ToBatchListItemResponse(&batches[idx]))
	}
	return responses
}

// ReferenceScope derives the sequence scope for a project. The first UUID
// segment is enough to keep per-project counters apart while keeping
// references short.
func ReferenceScope(projectID uuid.UUID) string {
	return strings.ToUpper(projectID.String()[:8])
}
