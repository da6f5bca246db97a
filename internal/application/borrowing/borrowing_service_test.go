package borrowing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/toolroom/backend/internal/domain/borrowing"
	"github.com/toolroom/backend/internal/domain/inventory"
	"github.com/toolroom/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) GetEventsByType(eventType string) []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]shared.DomainEvent, 0)
	for _, e := range m.events {
		if e.EventType() == eventType {
			result = append(result, e)
		}
	}
	return result
}

// MockInventoryItemRepository is a mock implementation of InventoryItemRepository
type MockInventoryItemRepository struct {
	mock.Mock
}

func (m *MockInventoryItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.InventoryItem), args.Error(1)
}

func (m *MockInventoryItemRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.InventoryItem), args.Error(1)
}

func (m *MockInventoryItemRepository) FindByProject(ctx context.Context, projectID uuid.UUID, filter shared.Filter) ([]inventory.InventoryItem, error) {
	args := m.Called(ctx, projectID, filter)
	return args.Get(0).([]inventory.InventoryItem), args.Error(1)
}

func (m *MockInventoryItemRepository) Save(ctx context.Context, item *inventory.InventoryItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockInventoryItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockBorrowedToolRepository is a mock implementation of BorrowedToolRepository
type MockBorrowedToolRepository struct {
	mock.Mock
}

func (m *MockBorrowedToolRepository) FindByID(ctx context.Context, id uuid.UUID) (*borrowing.BorrowedTool, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*borrowing.BorrowedTool), args.Error(1)
}

func (m *MockBorrowedToolRepository) FindByReference(ctx context.Context, reference string) (*borrowing.BorrowedTool, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*borrowing.BorrowedTool), args.Error(1)
}

func (m *MockBorrowedToolRepository) FindByStatus(ctx context.Context, status borrowing.ToolStatus, filter shared.Filter) ([]borrowing.BorrowedTool, error) {
	args := m.Called(ctx, status, filter)
	return args.Get(0).([]borrowing.BorrowedTool), args.Error(1)
}

func (m *MockBorrowedToolRepository) FindActiveByItem(ctx context.Context, inventoryItemID uuid.UUID) ([]borrowing.BorrowedTool, error) {
	args := m.Called(ctx, inventoryItemID)
	return args.Get(0).([]borrowing.BorrowedTool), args.Error(1)
}

func (m *MockBorrowedToolRepository) CountByStatus(ctx context.Context, status borrowing.ToolStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBorrowedToolRepository) Save(ctx context.Context, tool *borrowing.BorrowedTool) error {
	args := m.Called(ctx, tool)
	return args.Error(0)
}

func (m *MockBorrowedToolRepository) SaveWithLock(ctx context.Context, tool *borrowing.BorrowedTool) error {
	args := m.Called(ctx, tool)
	return args.Error(0)
}

func (m *MockBorrowedToolRepository) FindDueForSweep(ctx context.Context, cutoff time.Time) ([]borrowing.BorrowedTool, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).([]borrowing.BorrowedTool), args.Error(1)
}

func (m *MockBorrowedToolRepository) FindOverdue(ctx context.Context, filter shared.Filter) ([]borrowing.BorrowedTool, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]borrowing.BorrowedTool), args.Error(1)
}

func (m *MockBorrowedToolRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockSequenceGenerator is a mock implementation of sequence.Generator
type MockSequenceGenerator struct {
	mock.Mock
}

func (m *MockSequenceGenerator) Next(ctx context.Context, prefix, scope string, year int) (string, error) {
	args := m.Called(ctx, prefix, scope, year)
	return args.String(0), args.Error(1)
}

// MockAuditLogger is a mock implementation of shared.AuditLogger
type MockAuditLogger struct {
	mock.Mock
}

func (m *MockAuditLogger) Record(ctx context.Context, entry *shared.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditLogger) FindByEntity(ctx context.Context, entityTable string, entityID uuid.UUID, filter shared.Filter) ([]shared.AuditEntry, error) {
	args := m.Called(ctx, entityTable, entityID, filter)
	return args.Get(0).([]shared.AuditEntry), args.Error(1)
}

type serviceFixture struct {
	service   *Service
	items     *MockInventoryItemRepository
	tools     *MockBorrowedToolRepository
	sequences *MockSequenceGenerator
	audit     *MockAuditLogger
	publisher *MockEventPublisher
}

func newServiceFixture() *serviceFixture {
	items := new(MockInventoryItemRepository)
	tools := new(MockBorrowedToolRepository)
	sequences := new(MockSequenceGenerator)
	audit := new(MockAuditLogger)
	publisher := &MockEventPublisher{}

	scope := &NoOpTransactionScope{
		ItemRepo:    items,
		ToolRepo:    tools,
		SequenceGen: sequences,
		AuditLogger: audit,
	}
	service := NewService(scope, zap.NewNop())
	service.SetEventPublisher(publisher)

	return &serviceFixture{
		service:   service,
		items:     items,
		tools:     tools,
		sequences: sequences,
		audit:     audit,
		publisher: publisher,
	}
}

func durableTool(t *testing.T, projectID uuid.UUID) *inventory.InventoryItem {
	t.Helper()
	item, err := inventory.NewInventoryItem(projectID, "Rotary hammer", false, decimal.NewFromInt(1))
	require.NoError(t, err)
	return item
}

func validRequest(itemID uuid.UUID) CreateLoanRequest {
	return CreateLoanRequest{
		InventoryItemID: itemID,
		Quantity:        decimal.NewFromInt(1),
		BorrowerName:    "J. Mason",
		Purpose:         "Anchor drilling",
		ExpectedReturn:  time.Now().Add(72 * time.Hour),
		ConditionOut:    "good",
	}
}

func TestCreate(t *testing.T) {
	makerID := uuid.New()
	projectID := uuid.New()

	t.Run("opens a request for a free tool", func(t *testing.T) {
		f := newServiceFixture()
		item := durableTool(t, projectID)

		f.items.On("FindByIDForUpdate", mock.Anything, item.ID).Return(item, nil)
		f.tools.On("FindActiveByItem", mock.Anything, item.ID).Return([]borrowing.BorrowedTool{}, nil)
		f.sequences.On("Next", mock.Anything, "BRW", mock.AnythingOfType("string"), mock.AnythingOfType("int")).
			Return("BRW-TEST-2026-0001", nil)
		f.tools.On("Save", mock.Anything, mock.AnythingOfType("*borrowing.BorrowedTool")).Return(nil)
		f.audit.On("Record", mock.Anything, mock.AnythingOfType("*shared.AuditEntry")).Return(nil)

		resp, err := f.service.Create(context.Background(), makerID, validRequest(item.ID))

		require.NoError(t, err)
		assert.Equal(t, string(borrowing.ToolStatusPendingVerification), resp.Status)
		assert.Equal(t, "BRW-TEST-2026-0001", resp.RequestReference)
		assert.Equal(t, makerID, resp.RequestedBy)
		assert.Len(t, f.publisher.GetEventsByType(borrowing.EventTypeToolRequested), 1)
	})

	t.Run("rejects consumables", func(t *testing.T) {
		f := newServiceFixture()
		item, err := inventory.NewInventoryItem(projectID, "Cement 50kg", true, decimal.NewFromInt(100))
		require.NoError(t, err)

		f.items.On("FindByIDForUpdate", mock.Anything, item.ID).Return(item, nil)

		_, err = f.service.Create(context.Background(), makerID, validRequest(item.ID))
		assert.ErrorIs(t, err, shared.ErrWrongWorkflow)
		f.tools.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects a tool with an active loan", func(t *testing.T) {
		f := newServiceFixture()
		item := durableTool(t, projectID)

		existing, err := borrowing.NewBorrowedTool("BRW-TEST-2026-0002", item.ID, projectID, uuid.New(),
			decimal.NewFromInt(1), "K. Tiler", time.Now().Add(24*time.Hour), "")
		require.NoError(t, err)

		f.items.On("FindByIDForUpdate", mock.Anything, item.ID).Return(item, nil)
		f.tools.On("FindActiveByItem", mock.Anything, item.ID).Return([]borrowing.BorrowedTool{*existing}, nil)

		_, err = f.service.Create(context.Background(), makerID, validRequest(item.ID))
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ACTIVE_LOAN_EXISTS", domainErr.Code)
	})

	t.Run("rejects a return date in the past", func(t *testing.T) {
		f := newServiceFixture()
		item := durableTool(t, projectID)

		f.items.On("FindByIDForUpdate", mock.Anything, item.ID).Return(item, nil)
		f.tools.On("FindActiveByItem", mock.Anything, item.ID).Return([]borrowing.BorrowedTool{}, nil)
		f.sequences.On("Next", mock.Anything, "BRW", mock.AnythingOfType("string"), mock.AnythingOfType("int")).
			Return("BRW-TEST-2026-0003", nil)

		req := validRequest(item.ID)
		req.ExpectedReturn = time.Now().Add(-time.Hour)

		_, err := f.service.Create(context.Background(), makerID, req)
		require.Error(t, err)
		f.tools.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func pendingLoan(t *testing.T, makerID, itemID, projectID uuid.UUID) *borrowing.BorrowedTool {
	t.Helper()
	tool, err := borrowing.NewBorrowedTool("BRW-TEST-2026-0010", itemID, projectID, makerID,
		decimal.NewFromInt(1), "J. Mason", time.Now().Add(72*time.Hour), "good")
	require.NoError(t, err)
	tool.ClearDomainEvents()
	return tool
}

func approvedLoan(t *testing.T, makerID, itemID, projectID uuid.UUID) *borrowing.BorrowedTool {
	t.Helper()
	tool := pendingLoan(t, makerID, itemID, projectID)
	require.NoError(t, tool.Verify(uuid.New(), ""))
	require.NoError(t, tool.Approve(uuid.New(), ""))
	tool.ClearDomainEvents()
	return tool
}

func TestLifecycle(t *testing.T) {
	makerID := uuid.New()
	projectID := uuid.New()

	t.Run("maker cannot verify their own request", func(t *testing.T) {
		f := newServiceFixture()
		tool := pendingLoan(t, makerID, uuid.New(), projectID)

		f.tools.On("FindByID", mock.Anything, tool.ID).Return(tool, nil)

		_, err := f.service.Verify(context.Background(), tool.ID, makerID, ReviewRequest{})
		assert.ErrorIs(t, err, shared.ErrSameActor)
	})

	t.Run("release marks the item borrowed", func(t *testing.T) {
		f := newServiceFixture()
		item := durableTool(t, projectID)
		tool := approvedLoan(t, makerID, item.ID, projectID)

		f.tools.On("FindByID", mock.Anything, tool.ID).Return(tool, nil)
		f.tools.On("SaveWithLock", mock.Anything, tool).Return(nil)
		f.items.On("FindByIDForUpdate", mock.Anything, item.ID).Return(item, nil)
		f.items.On("Save", mock.Anything, item).Return(nil)
		f.audit.On("Record", mock.Anything, mock.AnythingOfType("*shared.AuditEntry")).Return(nil)

		resp, err := f.service.Release(context.Background(), tool.ID, uuid.New())

		require.NoError(t, err)
		assert.Equal(t, string(borrowing.ToolStatusBorrowed), resp.Status)
		assert.Equal(t, inventory.ItemStatusBorrowed, item.Status)
		assert.Len(t, f.publisher.GetEventsByType(borrowing.EventTypeToolBorrowed), 1)
	})

	t.Run("return frees the item again", func(t *testing.T) {
		f := newServiceFixture()
		item := durableTool(t, projectID)
		tool := approvedLoan(t, makerID, item.ID, projectID)
		require.NoError(t, tool.Release(uuid.New()))
		require.NoError(t, item.MarkBorrowed())
		tool.ClearDomainEvents()
		item.ClearDomainEvents()

		f.tools.On("FindByID", mock.Anything, tool.ID).Return(tool, nil)
		f.tools.On("SaveWithLock", mock.Anything, tool).Return(nil)
		f.items.On("FindByIDForUpdate", mock.Anything, item.ID).Return(item, nil)
		f.items.On("Save", mock.Anything, item).Return(nil)
		f.audit.On("Record", mock.Anything, mock.AnythingOfType("*shared.AuditEntry")).Return(nil)

		resp, err := f.service.Return(context.Background(), tool.ID, uuid.New(), ReturnRequest{ConditionIn: "scuffed"})

		require.NoError(t, err)
		assert.Equal(t, string(borrowing.ToolStatusReturned), resp.Status)
		assert.Equal(t, "scuffed", resp.ConditionIn)
		assert.Equal(t, inventory.ItemStatusAvailable, item.Status)
	})

	t.Run("cancel works only before release", func(t *testing.T) {
		f := newServiceFixture()
		item := durableTool(t, projectID)
		tool := approvedLoan(t, makerID, item.ID, projectID)
		require.NoError(t, tool.Release(uuid.New()))
		tool.ClearDomainEvents()

		f.tools.On("FindByID", mock.Anything, tool.ID).Return(tool, nil)

		_, err := f.service.Cancel(context.Background(), tool.ID, makerID, CancelRequest{Reason: "no longer needed"})
		require.Error(t, err)
		f.tools.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}

func TestExtend(t *testing.T) {
	makerID := uuid.New()
	projectID := uuid.New()

	borrowedLoan := func(t *testing.T) *borrowing.BorrowedTool {
		t.Helper()
		tool := approvedLoan(t, makerID, uuid.New(), projectID)
		require.NoError(t, tool.Release(uuid.New()))
		tool.ClearDomainEvents()
		return tool
	}

	t.Run("pushes the return date out", func(t *testing.T) {
		f := newServiceFixture()
		tool := borrowedLoan(t)
		newDate := tool.ExpectedReturn.Add(48 * time.Hour)

		f.tools.On("FindByID", mock.Anything, tool.ID).Return(tool, nil)
		f.tools.On("SaveWithLock", mock.Anything, tool).Return(nil)
		f.audit.On("Record", mock.Anything, mock.AnythingOfType("*shared.AuditEntry")).Return(nil)

		resp, err := f.service.Extend(context.Background(), tool.ID, uuid.New(), ExtendRequest{
			NewExpectedReturn: newDate,
			Reason:            "works extended by client",
		})

		require.NoError(t, err)
		assert.True(t, resp.ExpectedReturn.Equal(newDate))
		assert.Len(t, f.publisher.GetEventsByType(borrowing.EventTypeToolExtended), 1)
	})

	t.Run("clears the overdue flag when the new date is in the future", func(t *testing.T) {
		f := newServiceFixture()
		tool := borrowedLoan(t)
		tool.ExpectedReturn = time.Now().Add(-24 * time.Hour)
		require.True(t, tool.MarkOverdue(time.Now()))
		tool.ClearDomainEvents()

		f.tools.On("FindByID", mock.Anything, tool.ID).Return(tool, nil)
		f.tools.On("SaveWithLock", mock.Anything, tool).Return(nil)
		f.audit.On("Record", mock.Anything, mock.AnythingOfType("*shared.AuditEntry")).Return(nil)

		resp, err := f.service.Extend(context.Background(), tool.ID, uuid.New(), ExtendRequest{
			NewExpectedReturn: time.Now().Add(48 * time.Hour),
			Reason:            "borrower unreachable, site closed",
		})

		require.NoError(t, err)
		assert.Equal(t, string(borrowing.ToolStatusBorrowed), resp.Status)
	})

	t.Run("requires a reason", func(t *testing.T) {
		f := newServiceFixture()
		tool := borrowedLoan(t)

		_, err := f.service.Extend(context.Background(), tool.ID, uuid.New(), ExtendRequest{
			NewExpectedReturn: tool.ExpectedReturn.Add(time.Hour),
		})
		require.Error(t, err)
		f.tools.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})
}

// dueLoan builds a BORROWED loan whose expected return already passed
func dueLoan(t *testing.T, reference string) borrowing.BorrowedTool {
	t.Helper()
	tool := approvedLoan(t, uuid.New(), uuid.New(), uuid.New())
	tool.RequestReference = reference
	require.NoError(t, tool.Release(uuid.New()))
	tool.ExpectedReturn = time.Now().Add(-24 * time.Hour)
	tool.ClearDomainEvents()
	return *tool
}

func TestSweepOverdue(t *testing.T) {
	t.Run("flags due loans and publishes overdue events", func(t *testing.T) {
		f := newServiceFixture()
		due := []borrowing.BorrowedTool{dueLoan(t, "BRW-TEST-2026-0020"), dueLoan(t, "BRW-TEST-2026-0021")}

		f.tools.On("FindDueForSweep", mock.Anything, mock.AnythingOfType("time.Time")).Return(due, nil)
		f.tools.On("SaveWithLock", mock.Anything, mock.AnythingOfType("*borrowing.BorrowedTool")).Return(nil)

		flagged, err := f.service.SweepOverdue(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(2), flagged)
		f.tools.AssertNumberOfCalls(t, "SaveWithLock", 2)
		assert.Len(t, f.publisher.GetEventsByType(borrowing.EventTypeToolOverdue), 2)
	})

	t.Run("is a no-op when nothing is overdue", func(t *testing.T) {
		f := newServiceFixture()
		f.tools.On("FindDueForSweep", mock.Anything, mock.AnythingOfType("time.Time")).Return([]borrowing.BorrowedTool{}, nil)

		flagged, err := f.service.SweepOverdue(context.Background())
		require.NoError(t, err)
		assert.Zero(t, flagged)
		f.tools.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
		assert.Empty(t, f.publisher.GetEventsByType(borrowing.EventTypeToolOverdue))
	})

	t.Run("a racing return aborts the sweep without publishing", func(t *testing.T) {
		f := newServiceFixture()
		due := []borrowing.BorrowedTool{dueLoan(t, "BRW-TEST-2026-0022")}

		f.tools.On("FindDueForSweep", mock.Anything, mock.AnythingOfType("time.Time")).Return(due, nil)
		f.tools.On("SaveWithLock", mock.Anything, mock.AnythingOfType("*borrowing.BorrowedTool")).
			Return(shared.ErrConcurrencyConflict)

		_, err := f.service.SweepOverdue(context.Background())
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.Empty(t, f.publisher.GetEventsByType(borrowing.EventTypeToolOverdue))
	})
}

func TestListOverdue(t *testing.T) {
	f := newServiceFixture()
	f.tools.On("FindOverdue", mock.Anything, mock.AnythingOfType("shared.Filter")).
		Return([]borrowing.BorrowedTool{}, nil)
	f.tools.On("CountByStatus", mock.Anything, borrowing.ToolStatusOverdue).Return(int64(7), nil)

	page, err := f.service.ListOverdue(context.Background(), LoanListFilter{PageSize: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(7), page.Total)
	assert.Equal(t, 2, page.TotalPages)
}
