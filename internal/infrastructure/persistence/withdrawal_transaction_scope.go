package persistence

import (
	"context"

	appwithdrawal "github.com/toolroom/backend/internal/application/withdrawal"
	"github.com/toolroom/backend/internal/domain/inventory"
	"github.com/toolroom/backend/internal/domain/sequence"
	"github.com/toolroom/backend/internal/domain/shared"
	"github.com/toolroom/backend/internal/domain/withdrawal"
	"gorm.io/gorm"
)

// GormWithdrawalTransactionScope implements the withdrawal application's
// TransactionScope using GORM transactions
type GormWithdrawalTransactionScope struct {
	db *gorm.DB
}

// NewGormWithdrawalTransactionScope creates a new GormWithdrawalTransactionScope
func NewGormWithdrawalTransactionScope(db *gorm.DB) *GormWithdrawalTransactionScope {
	return &GormWithdrawalTransactionScope{db: db}
}

// Execute runs the given function within a database transaction. If the
// function returns an error, the transaction is rolled back.
func (s *GormWithdrawalTransactionScope) Execute(ctx context.Context, fn func(repos appwithdrawal.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&withdrawalTransactionalRepositories{tx: tx})
	})
}

// withdrawalTransactionalRepositories provides repositories scoped to one
// transaction
type withdrawalTransactionalRepositories struct {
	tx *gorm.DB
}

// Items returns the inventory item repository scoped to the current transaction
func (r *withdrawalTransactionalRepositories) Items() inventory.InventoryItemRepository {
	return NewGormInventoryItemRepository(r.tx)
}

// Batches returns the batch repository scoped to the current transaction
func (r *withdrawalTransactionalRepositories) Batches() withdrawal.BatchRepository {
	return NewGormBatchRepository(r.tx)
}

// Sequences returns the reference generator scoped to the current transaction
func (r *withdrawalTransactionalRepositories) Sequences() sequence.Generator {
	return NewGormSequenceGenerator(r.tx)
}

// Audit returns the audit logger scoped to the current transaction
func (r *withdrawalTransactionalRepositories) Audit() shared.AuditLogger {
	return NewGormAuditLogger(r.tx)
}

// Ensure GormWithdrawalTransactionScope implements TransactionScope
var _ appwithdrawal.TransactionScope = (*GormWithdrawalTransactionScope)(nil)

// Ensure withdrawalTransactionalRepositories implements TransactionalRepositories
var _ appwithdrawal.TransactionalRepositories = (*withdrawalTransactionalRepositories)(nil)
