package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolroom/backend/internal/domain/borrowing"
	"github.com/toolroom/backend/internal/domain/shared"
	"gorm.io/gorm"
)

func seedLoan(t *testing.T, db *gorm.DB, reference string, itemID uuid.UUID, expectedReturn time.Time) *borrowing.BorrowedTool {
	t.Helper()
	tool, err := borrowing.NewBorrowedTool(reference, itemID, uuid.New(), uuid.New(),
		decimal.NewFromInt(1), "J. Mason", expectedReturn, "good")
	require.NoError(t, err)
	require.NoError(t, db.Create(tool).Error)
	return tool
}

// borrowedLoan seeds a loan already walked to BORROWED with the given
// expected return, bypassing the future-date guard of the constructor
func borrowedLoan(t *testing.T, db *gorm.DB, reference string, itemID uuid.UUID, expectedReturn time.Time) *borrowing.BorrowedTool {
	t.Helper()
	tool := seedLoan(t, db, reference, itemID, time.Now().Add(time.Hour))
	require.NoError(t, tool.Verify(uuid.New(), ""))
	require.NoError(t, tool.Approve(uuid.New(), ""))
	require.NoError(t, tool.Release(uuid.New()))
	tool.ExpectedReturn = expectedReturn
	require.NoError(t, db.Save(tool).Error)
	return tool
}

func TestGormBorrowedToolRepository_FindByID(t *testing.T) {
	t.Run("finds existing loan", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewGormBorrowedToolRepository(db)
		tool := seedLoan(t, db, "BRW-MAIN-2026-0001", uuid.New(), time.Now().Add(48*time.Hour))

		found, err := repo.FindByID(context.Background(), tool.ID)
		require.NoError(t, err)
		assert.Equal(t, "BRW-MAIN-2026-0001", found.RequestReference)
		assert.Equal(t, borrowing.ToolStatusPendingVerification, found.Status)
	})

	t.Run("returns ErrNotFound for missing loan", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewGormBorrowedToolRepository(db)

		_, err := repo.FindByID(context.Background(), uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormBorrowedToolRepository_FindActiveByItem(t *testing.T) {
	t.Run("excludes terminal loans", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewGormBorrowedToolRepository(db)
		itemID := uuid.New()

		cancelled := seedLoan(t, db, "BRW-MAIN-2026-0002", itemID, time.Now().Add(48*time.Hour))
		require.NoError(t, cancelled.Cancel(uuid.New(), "changed plans"))
		require.NoError(t, db.Save(cancelled).Error)

		active := seedLoan(t, db, "BRW-MAIN-2026-0003", itemID, time.Now().Add(48*time.Hour))

		loans, err := repo.FindActiveByItem(context.Background(), itemID)
		require.NoError(t, err)
		require.Len(t, loans, 1)
		assert.Equal(t, active.ID, loans[0].ID)
	})

	t.Run("pending loans count as active", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewGormBorrowedToolRepository(db)
		itemID := uuid.New()
		seedLoan(t, db, "BRW-MAIN-2026-0004", itemID, time.Now().Add(48*time.Hour))

		loans, err := repo.FindActiveByItem(context.Background(), itemID)
		require.NoError(t, err)
		assert.Len(t, loans, 1)
	})
}

func TestGormBorrowedToolRepository_FindDueForSweep(t *testing.T) {
	t.Run("selects only borrowed loans past the cutoff", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewGormBorrowedToolRepository(db)

		late := borrowedLoan(t, db, "BRW-MAIN-2026-0005", uuid.New(), time.Now().Add(-24*time.Hour))
		borrowedLoan(t, db, "BRW-MAIN-2026-0006", uuid.New(), time.Now().Add(24*time.Hour))
		seedLoan(t, db, "BRW-MAIN-2026-0007", uuid.New(), time.Now().Add(time.Minute))

		due, err := repo.FindDueForSweep(context.Background(), time.Now())
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, late.ID, due[0].ID)
	})

	t.Run("skips loans already flagged overdue", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewGormBorrowedToolRepository(db)

		tool := borrowedLoan(t, db, "BRW-MAIN-2026-0008", uuid.New(), time.Now().Add(-time.Hour))
		require.True(t, tool.MarkOverdue(time.Now()))
		require.NoError(t, repo.SaveWithLock(context.Background(), tool))

		due, err := repo.FindDueForSweep(context.Background(), time.Now())
		require.NoError(t, err)
		assert.Empty(t, due)
	})
}

func TestGormBorrowedToolRepository_SaveWithLock(t *testing.T) {
	t.Run("persists a transition and bumps the stored version", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewGormBorrowedToolRepository(db)
		tool := borrowedLoan(t, db, "BRW-MAIN-2026-0013", uuid.New(), time.Now().Add(-time.Hour))

		require.True(t, tool.MarkOverdue(time.Now()))
		require.NoError(t, repo.SaveWithLock(context.Background(), tool))

		found, err := repo.FindByID(context.Background(), tool.ID)
		require.NoError(t, err)
		assert.Equal(t, borrowing.ToolStatusOverdue, found.Status)
		assert.Equal(t, tool.Version, found.Version)
	})

	t.Run("rejects a stale copy", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewGormBorrowedToolRepository(db)
		tool := borrowedLoan(t, db, "BRW-MAIN-2026-0014", uuid.New(), time.Now().Add(-time.Hour))

		stale, err := repo.FindByID(context.Background(), tool.ID)
		require.NoError(t, err)

		require.True(t, tool.MarkOverdue(time.Now()))
		require.NoError(t, repo.SaveWithLock(context.Background(), tool))

		require.NoError(t, stale.Return(uuid.New(), "good"))
		err = repo.SaveWithLock(context.Background(), stale)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}

func TestGormBorrowedToolRepository_FindOverdue(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormBorrowedToolRepository(db)

	late := borrowedLoan(t, db, "BRW-MAIN-2026-0009", uuid.New(), time.Now().Add(-time.Hour))
	borrowedLoan(t, db, "BRW-MAIN-2026-0010", uuid.New(), time.Now().Add(time.Hour))

	require.True(t, late.MarkOverdue(time.Now()))
	require.NoError(t, repo.SaveWithLock(context.Background(), late))

	loans, err := repo.FindOverdue(context.Background(), shared.DefaultFilter())
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, late.ID, loans[0].ID)
}

func TestGormBorrowedToolRepository_FindByStatus(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormBorrowedToolRepository(db)
	itemID := uuid.New()

	seedLoan(t, db, "BRW-MAIN-2026-0011", itemID, time.Now().Add(48*time.Hour))
	borrowedLoan(t, db, "BRW-MAIN-2026-0012", uuid.New(), time.Now().Add(48*time.Hour))

	loans, err := repo.FindByStatus(context.Background(), borrowing.ToolStatusBorrowed, shared.DefaultFilter())
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, borrowing.ToolStatusBorrowed, loans[0].Status)

	total, err := repo.CountByStatus(context.Background(), borrowing.ToolStatusBorrowed)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	total, err = repo.CountByStatus(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}
