package borrowing

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolroom/backend/internal/domain/shared"
)

// Test helpers
func createTestTool(t *testing.T) *BorrowedTool {
	t.Helper()
	tool, err := NewBorrowedTool(
		"BRW-MAIN-2026-0001",
		uuid.New(),
		uuid.New(),
		uuid.New(),
		decimal.NewFromInt(1),
		"Pedro Santos",
		time.Now().Add(7*24*time.Hour),
		"good",
	)
	require.NoError(t, err)
	return tool
}

func toolInStatus(t *testing.T, status ToolStatus) *BorrowedTool {
	t.Helper()
	tool := createTestTool(t)

	switch status {
	case ToolStatusPendingVerification:
	case ToolStatusPendingApproval:
		require.NoError(t, tool.Verify(uuid.New(), ""))
	case ToolStatusApproved:
		require.NoError(t, tool.Verify(uuid.New(), ""))
		require.NoError(t, tool.Approve(uuid.New(), ""))
	case ToolStatusBorrowed:
		require.NoError(t, tool.Verify(uuid.New(), ""))
		require.NoError(t, tool.Approve(uuid.New(), ""))
		require.NoError(t, tool.Release(uuid.New()))
	case ToolStatusOverdue:
		require.NoError(t, tool.Verify(uuid.New(), ""))
		require.NoError(t, tool.Approve(uuid.New(), ""))
		require.NoError(t, tool.Release(uuid.New()))
		tool.ExpectedReturn = time.Now().Add(-24 * time.Hour)
		require.True(t, tool.MarkOverdue(time.Now()))
	case ToolStatusCancelled:
		require.NoError(t, tool.Cancel(uuid.New(), "not needed"))
	default:
		t.Fatalf("unsupported starting status %s", status)
	}
	require.Equal(t, status, tool.Status)
	return tool
}

// ============================================
// ToolStatus Tests
// ============================================

func TestToolStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     ToolStatus
		to       ToolStatus
		canTrans bool
	}{
		{ToolStatusPendingVerification, ToolStatusPendingApproval, true},
		{ToolStatusPendingVerification, ToolStatusCancelled, true},
		{ToolStatusPendingVerification, ToolStatusBorrowed, false},
		{ToolStatusPendingApproval, ToolStatusApproved, true},
		{ToolStatusPendingApproval, ToolStatusCancelled, true},
		{ToolStatusPendingApproval, ToolStatusBorrowed, false},
		{ToolStatusApproved, ToolStatusBorrowed, true},
		{ToolStatusApproved, ToolStatusCancelled, true},
		{ToolStatusApproved, ToolStatusReturned, false},
		// Once out, no cancellation
		{ToolStatusBorrowed, ToolStatusOverdue, true},
		{ToolStatusBorrowed, ToolStatusReturned, true},
		{ToolStatusBorrowed, ToolStatusCancelled, false},
		{ToolStatusOverdue, ToolStatusReturned, true},
		{ToolStatusOverdue, ToolStatusCancelled, false},
		// Terminal
		{ToolStatusReturned, ToolStatusBorrowed, false},
		{ToolStatusCancelled, ToolStatusPendingApproval, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.canTrans, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestToolStatus_IsOut(t *testing.T) {
	assert.True(t, ToolStatusBorrowed.IsOut())
	assert.True(t, ToolStatusOverdue.IsOut())
	assert.False(t, ToolStatusApproved.IsOut())
	assert.False(t, ToolStatusReturned.IsOut())
}

// ============================================
// NewBorrowedTool Tests
// ============================================

func TestNewBorrowedTool(t *testing.T) {
	t.Run("creates request with valid inputs", func(t *testing.T) {
		tool := createTestTool(t)

		assert.Equal(t, ToolStatusPendingVerification, tool.Status)
		assert.True(t, tool.QuantityReturned.IsZero())
		assert.Len(t, tool.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeToolRequested, tool.GetDomainEvents()[0].EventType())
	})

	t.Run("fails with a past expected return", func(t *testing.T) {
		_, err := NewBorrowedTool("BRW-MAIN-2026-0002", uuid.New(), uuid.New(), uuid.New(),
			decimal.NewFromInt(1), "Pedro", time.Now().Add(-time.Hour), "")
		require.Error(t, err)
	})

	t.Run("fails with zero quantity", func(t *testing.T) {
		_, err := NewBorrowedTool("BRW-MAIN-2026-0003", uuid.New(), uuid.New(), uuid.New(),
			decimal.Zero, "Pedro", time.Now().Add(time.Hour), "")
		assert.True(t, errors.Is(err, shared.ErrInvalidQuantity))
	})
}

// ============================================
// Workflow transition tests
// ============================================

func TestBorrowedTool_Workflow(t *testing.T) {
	t.Run("full happy path", func(t *testing.T) {
		tool := createTestTool(t)
		verifier := uuid.New()
		approver := uuid.New()
		releaser := uuid.New()
		returner := uuid.New()

		require.NoError(t, tool.Verify(verifier, "ok"))
		assert.Equal(t, ToolStatusPendingApproval, tool.Status)

		require.NoError(t, tool.Approve(approver, "ok"))
		assert.Equal(t, ToolStatusApproved, tool.Status)

		require.NoError(t, tool.Release(releaser))
		assert.Equal(t, ToolStatusBorrowed, tool.Status)
		assert.NotNil(t, tool.ReleaseDate)

		require.NoError(t, tool.Return(returner, "minor wear"))
		assert.Equal(t, ToolStatusReturned, tool.Status)
		assert.Equal(t, "minor wear", tool.ConditionIn)
		assert.True(t, tool.QuantityReturned.Equal(tool.Quantity))
		assert.NotNil(t, tool.ActualReturn)
	})

	t.Run("actor distinctness enforced per role", func(t *testing.T) {
		tool := createTestTool(t)

		err := tool.Verify(tool.RequestedBy, "")
		assert.True(t, errors.Is(err, shared.ErrSameActor))

		require.NoError(t, tool.Verify(uuid.New(), ""))

		err = tool.Approve(tool.RequestedBy, "")
		assert.True(t, errors.Is(err, shared.ErrSameActor))
		err = tool.Approve(*tool.VerifiedBy, "")
		assert.True(t, errors.Is(err, shared.ErrSameActor))
	})

	t.Run("transitions fail outside their precondition without mutating state", func(t *testing.T) {
		tool := toolInStatus(t, ToolStatusPendingVerification)

		require.Error(t, tool.Approve(uuid.New(), ""))
		require.Error(t, tool.Release(uuid.New()))
		require.Error(t, tool.Return(uuid.New(), ""))
		assert.Equal(t, ToolStatusPendingVerification, tool.Status)
	})

	t.Run("cancel refused once the tool is out", func(t *testing.T) {
		tool := toolInStatus(t, ToolStatusBorrowed)
		err := tool.Cancel(uuid.New(), "changed mind")
		require.Error(t, err)
		assert.Equal(t, ToolStatusBorrowed, tool.Status)
	})

	t.Run("return allowed from overdue", func(t *testing.T) {
		tool := toolInStatus(t, ToolStatusOverdue)
		require.NoError(t, tool.Return(uuid.New(), "late"))
		assert.Equal(t, ToolStatusReturned, tool.Status)
	})
}

// ============================================
// Extend tests
// ============================================

func TestBorrowedTool_Extend(t *testing.T) {
	t.Run("updates the expected return date", func(t *testing.T) {
		tool := toolInStatus(t, ToolStatusBorrowed)
		newDate := tool.ExpectedReturn.Add(7 * 24 * time.Hour)

		require.NoError(t, tool.Extend(uuid.New(), newDate, "works delayed"))
		assert.Equal(t, newDate, tool.ExpectedReturn)
		assert.Equal(t, "works delayed", tool.LastExtensionReason)
	})

	t.Run("rejects an earlier or equal date and leaves the date unchanged", func(t *testing.T) {
		tool := toolInStatus(t, ToolStatusBorrowed)
		current := tool.ExpectedReturn

		err := tool.Extend(uuid.New(), current, "same date")
		require.Error(t, err)

		err = tool.Extend(uuid.New(), current.Add(-time.Hour), "earlier")
		require.Error(t, err)
		assert.Equal(t, current, tool.ExpectedReturn)
	})

	t.Run("requires a reason", func(t *testing.T) {
		tool := toolInStatus(t, ToolStatusBorrowed)
		err := tool.Extend(uuid.New(), tool.ExpectedReturn.Add(time.Hour), "")
		require.Error(t, err)
	})

	t.Run("extending an overdue loan into the future clears the overdue flag", func(t *testing.T) {
		tool := toolInStatus(t, ToolStatusOverdue)
		require.NoError(t, tool.Extend(uuid.New(), time.Now().Add(48*time.Hour), "borrower asked for more time"))
		assert.Equal(t, ToolStatusBorrowed, tool.Status)
	})

	t.Run("rejected before release", func(t *testing.T) {
		tool := toolInStatus(t, ToolStatusApproved)
		err := tool.Extend(uuid.New(), tool.ExpectedReturn.Add(time.Hour), "r")
		require.Error(t, err)
	})
}

// ============================================
// MarkOverdue tests
// ============================================

func TestBorrowedTool_MarkOverdue(t *testing.T) {
	t.Run("flags a borrowed tool past its return date", func(t *testing.T) {
		tool := toolInStatus(t, ToolStatusBorrowed)
		tool.ExpectedReturn = time.Now().Add(-time.Hour)

		assert.True(t, tool.MarkOverdue(time.Now()))
		assert.Equal(t, ToolStatusOverdue, tool.Status)
	})

	t.Run("idempotent on repeated sweeps", func(t *testing.T) {
		tool := toolInStatus(t, ToolStatusOverdue)
		assert.False(t, tool.MarkOverdue(time.Now()))
		assert.Equal(t, ToolStatusOverdue, tool.Status)
	})

	t.Run("leaves tools within their loan period alone", func(t *testing.T) {
		tool := toolInStatus(t, ToolStatusBorrowed)
		assert.False(t, tool.MarkOverdue(time.Now()))
		assert.Equal(t, ToolStatusBorrowed, tool.Status)
	})
}

func TestBorrowedTool_IsOverdue(t *testing.T) {
	tool := toolInStatus(t, ToolStatusBorrowed)
	assert.False(t, tool.IsOverdue(time.Now()))

	tool.ExpectedReturn = time.Now().Add(-time.Minute)
	assert.True(t, tool.IsOverdue(time.Now()))
}
