package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codecrafthub/user-service/internal/core/domain"
	"github.com/codecrafthub/user-service/internal/core/port"
	"github.com/codecrafthub/user-service/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// UserService covers the administrative account surface: listing, lookup,
// and soft deletion.
type UserService struct {
	accounts port.AccountRepository
	events   port.EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewUserService constructs a UserService.
func NewUserService(accounts port.AccountRepository, events port.EventPublisher, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{
		accounts: accounts,
		events:   events,
		logger:   log,
		now:      time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *UserService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// ListInput carries filter and pagination parameters.
type ListInput struct {
	Status string
	Search string
	Page   int
	Size   int
}

// ListResult is one page of accounts plus the unpaged total.
type ListResult struct {
	Accounts []domain.Account
	Total    int
	Page     int
	Size     int
}

// List returns a filtered, paginated page of accounts. Password hashes are
// stripped from the results.
func (s *UserService) List(ctx context.Context, input ListInput) (*ListResult, error) {
	filter, page, size, err := buildListFilter(input)
	if err != nil {
		return nil, err
	}

	total, err := s.accounts.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count accounts: %w", err)
	}

	accounts, err := s.accounts.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	for i := range accounts {
		accounts[i].PasswordHash = ""
	}

	return &ListResult{
		Accounts: accounts,
		Total:    total,
		Page:     page,
		Size:     size,
	}, nil
}

// GetByID resolves a single account, soft-deleted ones included so admins
// can inspect them.
func (s *UserService) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrAccountNotFound
	}

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	sanitized := *account
	sanitized.PasswordHash = ""
	return &sanitized, nil
}

// SoftDelete deactivates an account and stamps its deletion time. The row is
// retained; login and lookups by identifier stop matching it.
func (s *UserService) SoftDelete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrAccountNotFound
	}

	now := s.now().UTC()
	if err := s.accounts.SoftDelete(ctx, id, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("soft delete account: %w", err)
	}

	if s.events != nil {
		event := domain.AccountDeactivatedEvent{
			EventID:       uuid.NewString(),
			AccountID:     id,
			DeactivatedAt: now,
		}
		if err := s.events.PublishAccountDeactivated(ctx, event); err != nil {
			s.logger.Warn("publish account deactivated event failed",
				zap.String("account_id", id), zap.Error(err))
		}
	}

	return nil
}

func buildListFilter(input ListInput) (port.ListFilter, int, int, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}
	size := input.Size
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	filter := port.ListFilter{
		Search: strings.TrimSpace(input.Search),
		Offset: (page - 1) * size,
		Limit:  size,
	}

	if raw := strings.TrimSpace(input.Status); raw != "" {
		status := domain.AccountStatus(raw)
		switch status {
		case domain.AccountStatusPending, domain.AccountStatusActive,
			domain.AccountStatusInactive, domain.AccountStatusSuspended:
			filter.Status = &status
		default:
			return port.ListFilter{}, 0, 0, &domain.FieldError{Field: "status", Message: "unknown account status"}
		}
	}

	return filter, page, size, nil
}
