package borrowing

import (
	"context"

	"github.com/toolroom/backend/internal/domain/borrowing"
	"github.com/toolroom/backend/internal/domain/inventory"
	"github.com/toolroom/backend/internal/domain/sequence"
	"github.com/toolroom/backend/internal/domain/shared"
)

// TransactionScope provides transactional access to the repositories a
// borrowing operation touches
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all repositories within
// one transaction
type TransactionalRepositories interface {
	Items() inventory.InventoryItemRepository
	Tools() borrowing.BorrowedToolRepository
	Sequences() sequence.Generator
	Audit() shared.AuditLogger
}

// NoOpTransactionScope runs the function without a real transaction. Used
// in tests to substitute mock repositories.
type NoOpTransactionScope struct {
	ItemRepo    inventory.InventoryItemRepository
	ToolRepo    borrowing.BorrowedToolRepository
	SequenceGen sequence.Generator
	AuditLogger shared.AuditLogger
}

// Execute runs the function directly against the configured repositories
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Items returns the inventory item repository
func (s *NoOpTransactionScope) Items() inventory.InventoryItemRepository { return s.ItemRepo }

// Tools returns the borrowed tool repository
func (s *NoOpTransactionScope) Tools() borrowing.BorrowedToolRepository { return s.ToolRepo }

// Sequences returns the reference generator
func (s *NoOpTransactionScope) Sequences() sequence.Generator { return s.SequenceGen }

// Audit returns the audit logger
func (s *NoOpTransactionScope) Audit() shared.AuditLogger { return s.AuditLogger }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
