package withdrawal

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/toolroom/backend/internal/application/validation"
	"github.com/toolroom/backend/internal/domain/inventory"
	"github.com/toolroom/backend/internal/domain/sequence"
	"github.com/toolroom/backend/internal/domain/shared"
	"github.com/toolroom/backend/internal/domain/withdrawal"
	"go.uber.org/zap"
)

// ReferencePrefix is the prefix of withdrawal batch references
const ReferencePrefix = "WDR"

// Service orchestrates the maker-verifier-authorizer workflow for
// consumable withdrawals. All state-changing operations run inside a
// transaction scope; domain events are published only after commit.
type Service struct {
	txScope        TransactionScope
	eventPublisher shared.EventPublisher
	dispatcher     shared.Dispatcher
	validate       *validator.Validate
	logger         *zap.Logger
}

// NewService creates a new withdrawal Service
func NewService(txScope TransactionScope, logger *zap.Logger) *Service {
	return &Service{
		txScope:  txScope,
		validate: validation.New(),
		logger:   logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetDispatcher sets the notification dispatcher
func (s *Service) SetDispatcher(dispatcher shared.Dispatcher) {
	s.dispatcher = dispatcher
}

// publishDomainEvents publishes pending events from the given aggregates.
// Called after the transaction commits; publish errors are logged by the
// bus, not propagated.
func (s *Service) publishDomainEvents(ctx context.Context, aggregates ...shared.AggregateRoot) {
	if s.eventPublisher == nil {
		return
	}
	for _, aggregate := range aggregates {
		events := aggregate.GetDomainEvents()
		if len(events) == 0 {
			continue
		}
		_ = s.eventPublisher.Publish(ctx, events...)
		aggregate.ClearDomainEvents()
	}
}

// CreateBatch validates the requested lines against live stock, deducts the
// quantities, and persists the batch, all in one transaction. Inventory
// rows are locked in ascending ID order so that two concurrent requests
// touching the same items cannot deadlock; the first failing line aborts
// the whole request.
func (s *Service) CreateBatch(ctx context.Context, makerID uuid.UUID, req CreateBatchRequest) (*BatchResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validation.Wrap(err)
	}

	var batch *withdrawal.Batch
	var touched []shared.AggregateRoot

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		items, err := s.lockItems(ctx, repos, req.Items)
		if err != nil {
			return err
		}

		first, ok := items[req.Items[0].InventoryItemID]
		if !ok {
			return shared.ErrNotFound
		}
		reference := s.mintReference(ctx, repos, first.ProjectID)

		batch, err = withdrawal.NewBatch(reference, req.ReceiverName, req.ReceiverContact, req.Purpose, makerID)
		if err != nil {
			return err
		}

		// Lines are validated in the order they were requested so the
		// caller always learns about the first bad line. Stock checks come
		// before batch bookkeeping: an unsuitable or short item is reported
		// ahead of a project mismatch.
		for _, line := range req.Items {
			item := items[line.InventoryItemID]
			if err := item.Reserve(line.Quantity, batch.ID); err != nil {
				return err
			}
			if err := batch.AddLine(item.ID, item.ProjectID, line.Quantity, line.Notes); err != nil {
				return err
			}
		}

		for _, item := range items {
			if err := repos.Items().Save(ctx, item); err != nil {
				return err
			}
			touched = append(touched, item)
		}
		if err := repos.Batches().Save(ctx, batch); err != nil {
			return err
		}
		touched = append(touched, batch)

		entry := shared.NewAuditEntry("BATCH_CREATED",
			fmt.Sprintf("Withdrawal batch %s created with %d lines", batch.BatchReference, batch.TotalItems),
			batch.TableName(), batch.ID, makerID)
		return repos.Audit().Record(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, touched...)

	response := ToBatchResponse(batch)
	return &response, nil
}

// lockItems loads every distinct requested item under a row lock, in
// ascending ID order. Sorting before locking is what prevents deadlocks
// between overlapping requests.
func (s *Service) lockItems(ctx context.Context, repos TransactionalRepositories, lines []BatchItemRequest) (map[uuid.UUID]*inventory.InventoryItem, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]bool, len(lines))
	for _, line := range lines {
		if !seen[line.InventoryItemID] {
			seen[line.InventoryItemID] = true
			ids = append(ids, line.InventoryItemID)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})

	items := make(map[uuid.UUID]*inventory.InventoryItem, len(ids))
	for _, id := range ids {
		item, err := repos.Items().FindByIDForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		items[id] = item
	}
	return items, nil
}

// mintReference draws the next reference from the per-project counter.
// When the counter cannot be read the batch still goes through with a
// timestamp-derived reference; losing the pretty number is better than
// losing the withdrawal.
func (s *Service) mintReference(ctx context.Context, repos TransactionalRepositories, projectID uuid.UUID) string {
	scope := ReferenceScope(projectID)
	reference, err := repos.Sequences().Next(ctx, ReferencePrefix, scope, time.Now().Year())
	if err != nil {
		s.logger.Warn("sequence generation failed, falling back to timestamp reference",
			zap.String("scope", scope), zap.Error(err))
		return sequence.FallbackReference(ReferencePrefix, scope, time.Now())
	}
	return reference
}

// Verify records the verifier's sign-off, moving the batch to
// PENDING_APPROVAL. The verifier must not be the maker.
func (s *Service) Verify(ctx context.Context, batchID, verifierID uuid.UUID, req ReviewRequest) (*BatchResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validation.Wrap(err)
	}
	return s.transition(ctx, batchID, verifierID, "BATCH_VERIFIED", func(batch *withdrawal.Batch) error {
		return batch.Verify(verifierID, req.Notes)
	})
}

// Approve records the authorizer's sign-off, moving the batch to APPROVED.
// The approver must be distinct from both the maker and the verifier.
func (s *Service) Approve(ctx context.Context, batchID, approverID uuid.UUID, req ReviewRequest) (*BatchResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validation.Wrap(err)
	}
	return s.transition(ctx, batchID, approverID, "BATCH_APPROVED", func(batch *withdrawal.Batch) error {
		return batch.Approve(approverID, req.Notes)
	})
}

// Release records the physical hand-over of the approved batch. Stock was
// already deducted at creation time, so this is a custody change only.
func (s *Service) Release(ctx context.Context, batchID, releaserID uuid.UUID) (*BatchResponse, error) {
	return s.transition(ctx, batchID, releaserID, "BATCH_RELEASED", func(batch *withdrawal.Batch) error {
		return batch.Release(releaserID)
	})
}

// transition loads the batch, applies the mutation, and persists it with an
// audit entry, all in one transaction.
func (s *Service) transition(ctx context.Context, batchID, actorID uuid.UUID, action string, mutate func(*withdrawal.Batch) error) (*BatchResponse, error) {
	var batch *withdrawal.Batch
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		batch, err = repos.Batches().FindByID(ctx, batchID)
		if err != nil {
			return err
		}
		if err := mutate(batch); err != nil {
			return err
		}
		if err := repos.Batches().SaveWithLock(ctx, batch); err != nil {
			return err
		}
		entry := shared.NewAuditEntry(action,
			fmt.Sprintf("Withdrawal batch %s: %s", batch.BatchReference, action),
			batch.TableName(), batch.ID, actorID)
		return repos.Audit().Record(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, batch)
	s.notifyMaker(ctx, batch, action)

	response := ToBatchResponse(batch)
	return &response, nil
}

// notifyMaker tells the maker that their batch moved. Best effort; a
// failed notification never fails the operation.
func (s *Service) notifyMaker(ctx context.Context, batch *withdrawal.Batch, action string) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Notify(ctx, []uuid.UUID{batch.IssuedBy},
		fmt.Sprintf("Withdrawal %s", batch.BatchReference),
		fmt.Sprintf("Batch %s is now %s", batch.BatchReference, batch.Status))
}

// Cancel aborts a batch that has not yet left the store and puts every
// reserved quantity back on the shelf. Items are locked in ascending ID
// order, same as at creation.
func (s *Service) Cancel(ctx context.Context, batchID, actorID uuid.UUID, req CancelRequest) (*BatchResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validation.Wrap(err)
	}

	var batch *withdrawal.Batch
	var touched []shared.AggregateRoot

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		batch, err = repos.Batches().FindByID(ctx, batchID)
		if err != nil {
			return err
		}
		if err := batch.Cancel(actorID, req.Reason); err != nil {
			return err
		}

		items, err := s.lockLineItems(ctx, repos, batch)
		if err != nil {
			return err
		}
		for idx := range batch.Lines {
			line := &batch.Lines[idx]
			item := items[line.InventoryItemID]
			if err := item.Restock(line.Quantity); err != nil {
				return err
			}
		}
		for _, item := range items {
			if err := repos.Items().Save(ctx, item); err != nil {
				return err
			}
			touched = append(touched, item)
		}

		if err := repos.Batches().SaveWithLock(ctx, batch); err != nil {
			return err
		}
		touched = append(touched, batch)

		entry := shared.NewAuditEntry("BATCH_CANCELLED",
			fmt.Sprintf("Withdrawal batch %s cancelled: %s", batch.BatchReference, req.Reason),
			batch.TableName(), batch.ID, actorID)
		return repos.Audit().Record(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, touched...)
	s.notifyMaker(ctx, batch, "BATCH_CANCELLED")

	response := ToBatchResponse(batch)
	return &response, nil
}

// ReturnLine records unused material coming back against one line and
// restocks the returned quantity.
func (s *Service) ReturnLine(ctx context.Context, batchID, actorID uuid.UUID, req ReturnLineRequest) (*BatchResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validation.Wrap(err)
	}

	var batch *withdrawal.Batch
	var touched []shared.AggregateRoot

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		batch, err = repos.Batches().FindByID(ctx, batchID)
		if err != nil {
			return err
		}
		if err := batch.ReturnLine(req.LineID, req.Quantity, actorID); err != nil {
			return err
		}

		line := batch.GetLine(req.LineID)
		item, err := repos.Items().FindByIDForUpdate(ctx, line.InventoryItemID)
		if err != nil {
			return err
		}
		if err := item.Restock(req.Quantity); err != nil {
			return err
		}
		if err := repos.Items().Save(ctx, item); err != nil {
			return err
		}
		touched = append(touched, item)

		if err := repos.Batches().SaveWithLock(ctx, batch); err != nil {
			return err
		}
		touched = append(touched, batch)

		entry := shared.NewAuditEntry("BATCH_LINE_RETURNED",
			fmt.Sprintf("Withdrawal batch %s: %s returned against line %s", batch.BatchReference, req.Quantity, req.LineID),
			batch.TableName(), batch.ID, actorID)
		return repos.Audit().Record(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, touched...)

	response := ToBatchResponse(batch)
	return &response, nil
}

// lockLineItems locks every item referenced by the batch's lines, in
// ascending ID order
func (s *Service) lockLineItems(ctx context.Context, repos TransactionalRepositories, batch *withdrawal.Batch) (map[uuid.UUID]*inventory.InventoryItem, error) {
	ids := make([]uuid.UUID, 0, len(batch.Lines))
	seen := make(map[uuid.UUID]bool, len(batch.Lines))
	for idx := range batch.Lines {
		id := batch.Lines[idx].InventoryItemID
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})

	items := make(map[uuid.UUID]*inventory.InventoryItem, len(ids))
	for _, id := range ids {
		item, err := repos.Items().FindByIDForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		items[id] = item
	}
	return items, nil
}

// GetByID retrieves a batch by ID
func (s *Service) GetByID(ctx context.Context, batchID uuid.UUID) (*BatchResponse, error) {
	var batch *withdrawal.Batch
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		batch, err = repos.Batches().FindByID(ctx, batchID)
		return err
	})
	if err != nil {
		return nil, err
	}
	response := ToBatchResponse(batch)
	return &response, nil
}

// GetByReference retrieves a batch by its human-readable reference
func (s *Service) GetByReference(ctx context.Context, reference string) (*BatchResponse, error) {
	var batch *withdrawal.Batch
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		batch, err = repos.Batches().FindByReference(ctx, reference)
		return err
	})
	if err != nil {
		return nil, err
	}
	response := ToBatchResponse(batch)
	return &response, nil
}

// List retrieves one page of batches matching the filter, together with
// the total match count
func (s *Service) List(ctx context.Context, filter BatchListFilter) (*shared.Paginated[BatchListItemResponse], error) {
	if err := s.validate.Struct(filter); err != nil {
		return nil, validation.Wrap(err)
	}

	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}

	var batches []withdrawal.Batch
	var total int64
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		switch {
		case filter.Status != "":
			status := withdrawal.BatchStatus(filter.Status)
			if batches, err = repos.Batches().FindByStatus(ctx, status, domainFilter); err != nil {
				return err
			}
			total, err = repos.Batches().CountByStatus(ctx, status)
		case filter.ProjectID != nil:
			if batches, err = repos.Batches().FindByProject(ctx, *filter.ProjectID, domainFilter); err != nil {
				return err
			}
			total, err = repos.Batches().CountByProject(ctx, *filter.ProjectID)
		default:
			if batches, err = repos.Batches().FindByStatus(ctx, "", domainFilter); err != nil {
				return err
			}
			total, err = repos.Batches().CountByStatus(ctx, "")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(ToBatchListItemResponses(batches), total, domainFilter.Page, domainFilter.PageSize)
	return &page, nil
}

// AuditTrail returns the audit entries recorded against a batch, newest
// first
func (s *Service) AuditTrail(ctx context.Context, batchID uuid.UUID, filter shared.Filter) ([]shared.AuditEntry, error) {
	var entries []shared.AuditEntry
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		entries, err = repos.Audit().FindByEntity(ctx, withdrawal.Batch{}.TableName(), batchID, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
