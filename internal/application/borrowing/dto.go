package borrowing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/toolroom/backend/internal/domain/borrowing"
)

// CreateLoanRequest represents a request to borrow a durable tool
type CreateLoanRequest struct {
	InventoryItemID uuid.UUID       `json:"inventory_item_id" validate:"required"`
	Quantity        decimal.Decimal `json:"quantity"`
	BorrowerName    string          `json:"borrower_name" validate:"required,max=200"`
	BorrowerContact string          `json:"borrower_contact" validate:"max=100"`
	Purpose         string          `json:"purpose" validate:"max=500"`
	ExpectedReturn  time.Time       `json:"expected_return" validate:"required"`
	ConditionOut    string          `json:"condition_out" validate:"max=200"`
}

// ReviewRequest carries the optional notes of a verification or approval
type ReviewRequest struct {
	Notes string `json:"notes" validate:"max=500"`
}

// ReturnRequest records the condition a tool came back in
type ReturnRequest struct {
	ConditionIn string `json:"condition_in" validate:"max=200"`
}

// ExtendRequest represents a request to push the return date out
type ExtendRequest struct {
	NewExpectedReturn time.Time `json:"new_expected_return" validate:"required"`
	Reason            string    `json:"reason" validate:"required,max=500"`
}

// CancelRequest represents a request to cancel a loan
type CancelRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// LoanListFilter represents filter options for loan listing
type LoanListFilter struct {
	Status   string `json:"status" validate:"omitempty,oneof=PENDING_VERIFICATION PENDING_APPROVAL APPROVED BORROWED OVERDUE RETURNED CANCELLED"`
	Page     int    `json:"page" validate:"omitempty,min=1"`
	PageSize int    `json:"page_size" validate:"omitempty,min=1,max=100"`
	OrderBy  string `json:"order_by"`
	OrderDir string `json:"order_dir" validate:"omitempty,oneof=asc desc"`
}

// LoanResponse represents a borrowed tool in responses
type LoanResponse struct {
	ID               uuid.UUID  `json:"id"`
	RequestReference string     `json:"request_reference"`
	InventoryItemID  uuid.UUID  `json:"inventory_item_id"`
	ProjectID        uuid.UUID  `json:"project_id"`
	BatchID          *uuid.UUID `json:"batch_id,omitempty"`
	Status           string     `json:"status"`

	Quantity         decimal.Decimal `json:"quantity"`
	QuantityReturned decimal.Decimal `json:"quantity_returned"`

	BorrowerName    string `json:"borrower_name"`
	BorrowerContact string `json:"borrower_contact,omitempty"`
	Purpose         string `json:"purpose,omitempty"`

	ExpectedReturn      time.Time  `json:"expected_return"`
	ActualReturn        *time.Time `json:"actual_return,omitempty"`
	ConditionOut        string     `json:"condition_out,omitempty"`
	ConditionIn         string     `json:"condition_in,omitempty"`
	LastExtensionReason string     `json:"last_extension_reason,omitempty"`

	RequestedBy        uuid.UUID  `json:"requested_by"`
	VerifiedBy         *uuid.UUID `json:"verified_by,omitempty"`
	VerificationDate   *time.Time `json:"verification_date,omitempty"`
	VerificationNotes  string     `json:"verification_notes,omitempty"`
	ApprovedBy         *uuid.UUID `json:"approved_by,omitempty"`
	ApprovalDate       *time.Time `json:"approval_date,omitempty"`
	ApprovalNotes      string     `json:"approval_notes,omitempty"`
	ReleasedBy         *uuid.UUID `json:"released_by,omitempty"`
	ReleaseDate        *time.Time `json:"release_date,omitempty"`
	ReturnedBy         *uuid.UUID `json:"returned_by,omitempty"`
	ReturnDate         *time.Time `json:"return_date,omitempty"`
	CanceledBy         *uuid.UUID `json:"canceled_by,omitempty"`
	CancellationDate   *time.Time `json:"cancellation_date,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// LoanListItemResponse represents a loan in list responses
type LoanListItemResponse struct {
	ID               uuid.UUID       `json:"id"`
	RequestReference string          `json:"request_reference"`
	InventoryItemID  uuid.UUID       `json:"inventory_item_id"`
	ProjectID        uuid.UUID       `json:"project_id"`
	Status           string          `json:"status"`
	Quantity         decimal.Decimal `json:"quantity"`
	BorrowerName     string          `json:"borrower_name"`
	ExpectedReturn   time.Time       `json:"expected_return"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ToLoanResponse converts a domain loan to a response DTO
func ToLoanResponse(tool *borrowing.BorrowedTool) LoanResponse {
	return LoanResponse{
		ID:                  tool.ID,
		RequestReference:    tool.RequestReference,
		InventoryItemID:     tool.InventoryItemID,
		ProjectID:           tool.ProjectID,
		BatchID:             tool.BatchID,
		Status:              string(tool.Status),
		Quantity:            tool.Quantity,
		QuantityReturned:    tool.QuantityReturned,
		BorrowerName:        tool.BorrowerName,
		BorrowerContact:     tool.BorrowerContact,
		Purpose:             tool.Purpose,
		ExpectedReturn:      tool.ExpectedReturn,
		ActualReturn:        tool.ActualReturn,
		ConditionOut:        tool.ConditionOut,
		ConditionIn:         tool.ConditionIn,
		LastExtensionReason: tool.LastExtensionReason,
		RequestedBy:         tool.RequestedBy,
		VerifiedBy:          tool.VerifiedBy,
		VerificationDate:    tool.VerificationDate,
		VerificationNotes:   tool.VerificationNotes,
		ApprovedBy:          tool.ApprovedBy,
		ApprovalDate:        tool.ApprovalDate,
		ApprovalNotes:       tool.ApprovalNotes,
		ReleasedBy:          tool.ReleasedBy,
		ReleaseDate:         tool.ReleaseDate,
		ReturnedBy:          tool.ReturnedBy,
		ReturnDate:          tool.ReturnDate,
		CanceledBy:          tool.CanceledBy,
		CancellationDate:    tool.CancellationDate,
		CancellationReason:  tool.CancellationReason,
		CreatedAt:           tool.CreatedAt,
		UpdatedAt:           tool.UpdatedAt,
		Version:             tool.Version,
	}
}

// ToLoanListItemResponse converts a domain loan to a list item DTO
func ToLoanListItemResponse(tool *borrowing.BorrowedTool) LoanListItemResponse {
	return LoanListItemResponse{
		ID:               tool.ID,
		RequestReference: tool.RequestReference,
		InventoryItemID:  tool.InventoryItemID,
		ProjectID:        tool.ProjectID,
		Status:           string(tool.Status),
		Quantity:         tool.Quantity,
		BorrowerName:     tool.BorrowerName,
		ExpectedReturn:   tool.ExpectedReturn,
		CreatedAt:        tool.CreatedAt,
	}
}

// ToLoanListItemResponses converts a slice of loans to list item DTOs
func ToLoanListItemResponses(tools []borrowing.BorrowedTool) []LoanListItemResponse {
	responses := make([]LoanListItemResponse, 0, len(tools))
	for idx := range tools {
		responses = append(responses, ToLoanListItemResponse(&tools[idx]))
	}
	return responses
}
