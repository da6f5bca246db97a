package withdrawal

import (
	"context"

	"github.com/toolroom/backend/internal/domain/inventory"
	"github.com/toolroom/backend/internal/domain/sequence"
	"github.com/toolroom/backend/internal/domain/shared"
	"github.com/toolroom/backend/internal/domain/withdrawal"
)

// TransactionScope provides transactional access to the repositories a
// withdrawal operation touches. Everything executed within one scope shares
// a single database transaction committed or rolled back atomically; row
// locks taken inside the scope are held until it ends.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all repositories within one
// transaction. The sequence generator is included because a reference must
// be minted (and its counter row locked) in the same transaction that
// persists the batch carrying it.
type TransactionalRepositories interface {
	Items() inventory.InventoryItemRepository
	Batches() withdrawal.BatchRepository
	Sequences() sequence.Generator
	Audit() shared.AuditLogger
}

// NoOpTransactionScope runs the function without a real transaction. Used
// in tests to substitute mock repositories.
type NoOpTransactionScope struct {
	ItemRepo    inventory.InventoryItemRepository
	BatchRepo   withdrawal.BatchRepository
	SequenceGen sequence.Generator
	AuditLogger shared.AuditLogger
}

// Execute runs the function directly against the configured repositories
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Items returns the inventory item repository
func (s *NoOpTransactionScope) Items() inventory.InventoryItemRepository { return s.ItemRepo }

// Batches returns the withdrawal batch repository
func (s *NoOpTransactionScope) Batches() withdrawal.BatchRepository { return s.BatchRepo }

// Sequences returns the reference generator
func (s *NoOpTransactionScope) Sequences() sequence.Generator { return s.SequenceGen }

// Audit returns the audit logger
func (s *NoOpTransactionScope) Audit() shared.AuditLogger { return s.AuditLogger }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
