package borrowing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/toolroom/backend/internal/application/validation"
	"github.com/toolroom/backend/internal/domain/borrowing"
	"github.com/toolroom/backend/internal/domain/sequence"
	"github.com/toolroom/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ReferencePrefix is the prefix of borrow request references
const ReferencePrefix = "BRW"

// Service orchestrates the maker-verifier-authorizer workflow for durable
// tool loans. A tool's physical availability changes at release and return,
// not at request time; what the request phase pins down is that no other
// active loan exists for the same item.
type Service struct {
	txScope        TransactionScope
	eventPublisher shared.EventPublisher
	dispatcher     shared.Dispatcher
	validate       *validator.Validate
	logger         *zap.Logger
}

// NewService creates a new borrowing Service
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

// Create opens a borrow request against a durable tool. The item row is
// locked while checking that the tool is loanable and that no other active
// loan exists for it, so two concurrent requests for the same tool cannot
// both succeed.
func (s *Service) Create(ctx context.Context, makerID uuid.UUID, req CreateLoanRequest) (*LoanResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validation.Wrap(err)
	}

	var tool *borrowing.BorrowedTool

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		item, err := repos.Items().FindByIDForUpdate(ctx, req.InventoryItemID)
		if err != nil {
			return err
		}
		if item.IsConsumable {
			return shared.ErrWrongWorkflow
		}

		active, err := repos.Tools().FindActiveByItem(ctx, item.ID)
		if err != nil {
			return err
		}
		if len(active) > 0 {
			return shared.NewDomainError("ACTIVE_LOAN_EXISTS",
				fmt.Sprintf("Item %s already has an active loan (%s)", item.Name, active[0].RequestReference))
		}

		reference := s.mintReference(ctx, repos, item.ProjectID)
		tool, err = borrowing.NewBorrowedTool(reference, item.ID, item.ProjectID, makerID,
			req.Quantity, req.BorrowerName, req.ExpectedReturn, req.ConditionOut)
		if err != nil {
			return err
		}
		tool.BorrowerContact = req.BorrowerContact
		tool.Purpose = req.Purpose

		if err := repos.Tools().Save(ctx, tool); err != nil {
			return err
		}

		entry := shared.NewAuditEntry("LOAN_REQUESTED",
			fmt.Sprintf("Borrow request %s opened for %s", tool.RequestReference, item.Name),
			tool.TableName(), tool.ID, makerID)
		return repos.Audit().Record(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, tool)

	response := ToLoanResponse(tool)
	return &response, nil
}

// mintReference draws the next reference from the per-project counter,
// falling back to a timestamp reference when the counter cannot be read
func (s *Service) mintReference(ctx context.Context, repos TransactionalRepositories, projectID uuid.UUID) string {
	scope := strings.ToUpper(projectID.String()[:8])
	reference, err := repos.Sequences().Next(ctx, ReferencePrefix, scope, time.Now().Year())
	if err != nil {
		s.logger.Warn("sequence generation failed, falling back to timestamp reference",
			zap.String("scope", scope), zap.Error(err))
		return sequence.FallbackReference(ReferencePrefix, scope, time.Now())
	}
	return reference
}

// Verify records the verifier's sign-off. The verifier must not be the
// maker.
func (s *Service) Verify(ctx context.Context, loanID, verifierID uuid.UUID, req ReviewRequest) (*LoanResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validation.Wrap(err)
	}
	return s.transition(ctx, loanID, verifierID, "LOAN_VERIFIED", func(tool *borrowing.BorrowedTool) error {
		return tool.Verify(verifierID, req.Notes)
	})
}

// Approve records the authorizer's sign-off. The approver must be distinct
// from both the maker and the verifier.
func (s *Service) Approve(ctx context.Context, loanID, approverID uuid.UUID, req ReviewRequest) (*LoanResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validation.Wrap(err)
	}
	return s.transition(ctx, loanID, approverID, "LOAN_APPROVED", func(tool *borrowing.BorrowedTool) error {
		return tool.Approve(approverID, req.Notes)
	})
}

// Release hands the tool over and flags the inventory item as out on loan
func (s *Service) Release(ctx context.Context, loanID, releaserID uuid.UUID) (*LoanResponse, error) {
	var tool *borrowing.BorrowedTool
	var touched []shared.AggregateRoot

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		tool, err = repos.Tools().FindByID(ctx, loanID)
		if err != nil {
			return err
		}
		if err := tool.Release(releaserID); err != nil {
			return err
		}

		item, err := repos.Items().FindByIDForUpdate(ctx, tool.InventoryItemID)
		if err != nil {
			return err
		}
		if err := item.MarkBorrowed(); err != nil {
			return err
		}
		if err := repos.Items().Save(ctx, item); err != nil {
			return err
		}
		touched = append(touched, item)

		if err := repos.Tools().SaveWithLock(ctx, tool); err != nil {
			return err
		}
		touched = append(touched, tool)

		entry := shared.NewAuditEntry("LOAN_RELEASED",
			fmt.Sprintf("Loan %s released to %s", tool.RequestReference, tool.BorrowerName),
			tool.TableName(), tool.ID, releaserID)
		return repos.Audit().Record(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, touched...)
	s.notifyMaker(ctx, tool, "LOAN_RELEASED")

	response := ToLoanResponse(tool)
	return &response, nil
}

// Return closes the loan and puts the tool back on the shelf. Works from
// BORROWED and OVERDUE alike.
func (s *Service) Return(ctx context.Context, loanID, returnerID uuid.UUID, req ReturnRequest) (*LoanResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validation.Wrap(err)
	}

	var tool *borrowing.BorrowedTool
	var touched []shared.AggregateRoot

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		tool, err = repos.Tools().FindByID(ctx, loanID)
		if err != nil {
			return err
		}
		if err := tool.Return(returnerID, req.ConditionIn); err != nil {
			return err
		}

		item, err := repos.Items().FindByIDForUpdate(ctx, tool.InventoryItemID)
		if err != nil {
			return err
		}
		if err := item.MarkAvailable(); err != nil {
			return err
		}
		if err := repos.Items().Save(ctx, item); err != nil {
			return err
		}
		touched = append(touched, item)

		if err := repos.Tools().SaveWithLock(ctx, tool); err != nil {
			return err
		}
		touched = append(touched, tool)

		entry := shared.NewAuditEntry("LOAN_RETURNED",
			fmt.Sprintf("Loan %s returned, condition: %s", tool.RequestReference, req.ConditionIn),
			tool.TableName(), tool.ID, returnerID)
		return repos.Audit().Record(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, touched...)
	s.notifyMaker(ctx, tool, "LOAN_RETURNED")

	response := ToLoanResponse(tool)
	return &response, nil
}

// Extend pushes the expected return date out, clearing an overdue flag
// when the new date lies in the future
func (s *Service) Extend(ctx context.Context, loanID, actorID uuid.UUID, req ExtendRequest) (*LoanResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validation.Wrap(err)
	}
	return s.transition(ctx, loanID, actorID, "LOAN_EXTENDED", func(tool *borrowing.BorrowedTool) error {
		return tool.Extend(actorID, req.NewExpectedReturn, req.Reason)
	})
}

// Cancel voids the request before the tool goes out
func (s *Service) Cancel(ctx context.Context, loanID, actorID uuid.UUID, req CancelRequest) (*LoanResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validation.Wrap(err)
	}
	return s.transition(ctx, loanID, actorID, "LOAN_CANCELLED", func(tool *borrowing.BorrowedTool) error {
		return tool.Cancel(actorID, req.Reason)
	})
}

// transition loads the loan, applies the mutation, and persists it with an
// audit entry, all in one transaction
func (s *Service) transition(ctx context.Context, loanID, actorID uuid.UUID, action string, mutate func(*borrowing.BorrowedTool) error) (*LoanResponse, error) {
	var tool *borrowing.BorrowedTool
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		tool, err = repos.Tools().FindByID(ctx, loanID)
		if err != nil {
			return err
		}
		if err := mutate(tool); err != nil {
			return err
		}
		if err := repos.Tools().SaveWithLock(ctx, tool); err != nil {
			return err
		}
		entry := shared.NewAuditEntry(action,
			fmt.Sprintf("Loan %s: %s", tool.RequestReference, action),
			tool.TableName(), tool.ID, actorID)
		return repos.Audit().Record(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, tool)
	s.notifyMaker(ctx, tool, action)

	response := ToLoanResponse(tool)
	return &response, nil
}

func (s *Service) notifyMaker(ctx context.Context, tool *borrowing.BorrowedTool, action string) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Notify(ctx, []uuid.UUID{tool.RequestedBy},
		fmt.Sprintf("Loan %s", tool.RequestReference),
		fmt.Sprintf("Loan %s is now %s", tool.RequestReference, tool.Status))
}

// SweepOverdue flags every loan whose expected return has passed as
// OVERDUE and returns the number of loans flagged. Each flagged loan goes
// through the aggregate so the overdue event reaches subscribers after
// commit. Idempotent; meant to run on a schedule.
func (s *Service) SweepOverdue(ctx context.Context) (int64, error) {
	now := time.Now()
	var flagged []shared.AggregateRoot

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		due, err := repos.Tools().FindDueForSweep(ctx, now)
		if err != nil {
			return err
		}
		for idx := range due {
			tool := &due[idx]
			if !tool.MarkOverdue(now) {
				continue
			}
			if err := repos.Tools().SaveWithLock(ctx, tool); err != nil {
				return err
			}
			flagged = append(flagged, tool)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.publishDomainEvents(ctx, flagged...)

	if len(flagged) > 0 {
		s.logger.Info("flagged overdue loans", zap.Int("count", len(flagged)))
	}
	return int64(len(flagged)), nil
}

// GetByID retrieves a loan by ID
func (s *Service) GetByID(ctx context.Context, loanID uuid.UUID) (*LoanResponse, error) {
	var tool *borrowing.BorrowedTool
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		tool, err = repos.Tools().FindByID(ctx, loanID)
		return err
	})
	if err != nil {
		return nil, err
	}
	response := ToLoanResponse(tool)
	return &response, nil
}

// GetByReference retrieves a loan by its human-readable reference
func (s *Service) GetByReference(ctx context.Context, reference string) (*LoanResponse, error) {
	var tool *borrowing.BorrowedTool
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		tool, err = repos.Tools().FindByReference(ctx, reference)
		return err
	})
	if err != nil {
		return nil, err
	}
	response := ToLoanResponse(tool)
	return &response, nil
}

// List retrieves one page of loans matching the filter, together with the
// total match count
func (s *Service) List(ctx context.Context, filter LoanListFilter) (*shared.Paginated[LoanListItemResponse], error) {
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

	status := borrowing.ToolStatus(filter.Status)
	var tools []borrowing.BorrowedTool
	var total int64
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		if tools, err = repos.Tools().FindByStatus(ctx, status, domainFilter); err != nil {
			return err
		}
		total, err = repos.Tools().CountByStatus(ctx, status)
		return err
	})
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(ToLoanListItemResponses(tools), total, domainFilter.Page, domainFilter.PageSize)
	return &page, nil
}

// ListOverdue retrieves one page of loans currently flagged OVERDUE
func (s *Service) ListOverdue(ctx context.Context, filter LoanListFilter) (*shared.Paginated[LoanListItemResponse], error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}

	var tools []borrowing.BorrowedTool
	var total int64
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		if tools, err = repos.Tools().FindOverdue(ctx, domainFilter); err != nil {
			return err
		}
		total, err = repos.Tools().CountByStatus(ctx, borrowing.ToolStatusOverdue)
		return err
	})
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(ToLoanListItemResponses(tools), total, domainFilter.Page, domainFilter.PageSize)
	return &page, nil
}

// AuditTrail returns the audit entries recorded against a loan, newest
// first
func (s *Service) AuditTrail(ctx context.Context, loanID uuid.UUID, filter shared.Filter) ([]shared.AuditEntry, error) {
	var entries []shared.AuditEntry
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		entries, err = repos.Audit().FindByEntity(ctx, borrowing.BorrowedTool{}.TableName(), loanID, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
