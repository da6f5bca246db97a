package persistence

import (
	"context"

	appborrowing "github.com/toolroom/backend/internal/application/borrowing"
	"github.com/toolroom/backend/internal/domain/borrowing"
	"github.com/toolroom/backend/internal/domain/inventory"
	"github.com/toolroom/backend/internal/domain/sequence"
	"github.com/toolroom/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormBorrowingTransactionScope implements the borrowing application's
// TransactionScope using GORM transactions
type GormBorrowingTransactionScope struct {
	db *gorm.DB
}

// NewGormBorrowingTransactionScope creates a new GormBorrowingTransactionScope
func NewGormBorrowingTransactionScope(db *gorm.DB) *GormBorrowingTransactionScope {
	return &GormBorrowingTransactionScope{db: db}
}

// Execute runs the given function within a database transaction. If the
// function returns an error, the transaction is rolled back.
func (s *GormBorrowingTransactionScope) Execute(ctx context.Context, fn func(repos appborrowing.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&borrowingTransactionalRepositories{tx: tx})
	})
}

// borrowingTransactionalRepositories provides repositories scoped to one
// transaction
type borrowingTransactionalRepositories struct {
	tx *gorm.DB
}

// Items returns the inventory item repository scoped to the current transaction
func (r *borrowingTransactionalRepositories) Items() inventory.InventoryItemRepository {
	return NewGormInventoryItemRepository(r.tx)
}

// Tools returns the borrowed tool repository scoped to the current transaction
func (r *borrowingTransactionalRepositories) Tools() borrowing.BorrowedToolRepository {
	return NewGormBorrowedToolRepository(r.tx)
}

// Sequences returns the reference generator scoped to the current transaction
func (r *borrowingTransactionalRepositories) Sequences() sequence.Generator {
	return NewGormSequenceGenerator(r.tx)
}

// Audit returns the audit logger scoped to the current transaction
func (r *borrowingTransactionalRepositories) Audit() shared.AuditLogger {
	return NewGormAuditLogger(r.tx)
}

// Ensure GormBorrowingTransactionScope implements TransactionScope
var _ appborrowing.TransactionScope = (*GormBorrowingTransactionScope)(nil)

// Ensure borrowingTransactionalRepositories implements TransactionalRepositories
var _ appborrowing.TransactionalRepositories = (*borrowingTransactionalRepositories)(nil)
