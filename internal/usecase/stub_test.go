package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/codecrafthub/user-service/internal/core/domain"
	"github.com/codecrafthub/user-service/internal/core/port"
	"github.com/codecrafthub/user-service/internal/repository"
)

// memoryAccounts is an in-memory port.AccountRepository used across the
// service tests.
type memoryAccounts struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

var _ port.AccountRepository = (*memoryAccounts)(nil)

func newMemoryAccounts(seed ...domain.Account) *memoryAccounts {
	store := &memoryAccounts{accounts: map[string]*domain.Account{}}
	for _, account := range seed {
		copied := account
		store.accounts[account.ID] = &copied
	}
	return store
}

func (m *memoryAccounts) get(id string) (*domain.Account, error) {
	account, ok := m.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return account, nil
}

func (m *memoryAccounts) snapshot(id string) domain.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return domain.Account{}
	}
	return *account
}

func (m *memoryAccounts) Create(_ context.Context, account domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Email == account.Email {
			return repository.ErrDuplicateEmail
		}
		if existing.Username == account.Username {
			return repository.ErrDuplicateUsername
		}
	}
	copied := account
	m.accounts[account.ID] = &copied
	return nil
}

func (m *memoryAccounts) GetByID(_ context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, err := m.get(id)
	if err != nil {
		return nil, err
	}
	copied := *account
	return &copied, nil
}

func (m *memoryAccounts) GetByIdentifier(_ context.Context, identifier string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	normalized := strings.ToLower(strings.TrimSpace(identifier))
	for _, account := range m.accounts {
		if account.DeletedAt != nil {
			continue
		}
		if account.Email == normalized || account.Username == identifier {
			copied := *account
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryAccounts) FindDuplicate(_ context.Context, email, username string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.accounts {
		if account.Email == email {
			copied := *account
			return &copied, nil
		}
	}
	for _, account := range m.accounts {
		if account.Username == username {
			copied := *account
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryAccounts) FindByVerificationToken(_ context.Context, token string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.accounts {
		if account.VerificationToken != nil && *account.VerificationToken == token {
			copied := *account
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryAccounts) FindByResetTokenHash(_ context.Context, tokenHash string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.accounts {
		if account.ResetTokenHash != nil && *account.ResetTokenHash == tokenHash {
			copied := *account
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryAccounts) SetVerificationToken(_ context.Context, id, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, err := m.get(id)
	if err != nil {
		return err
	}
	account.VerificationToken = &token
	account.VerificationExpiresAt = &expiresAt
	return nil
}

func (m *memoryAccounts) MarkEmailVerified(_ context.Context, id string, verifiedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, err := m.get(id)
	if err != nil {
		return err
	}
	account.EmailVerified = true
	account.VerificationToken = nil
	account.VerificationExpiresAt = nil
	if account.Status == domain.AccountStatusPending {
		account.Status = domain.AccountStatusActive
	}
	account.UpdatedAt = verifiedAt
	return nil
}

func (m *memoryAccounts) SetResetToken(_ context.Context, id, tokenHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, err := m.get(id)
	if err != nil {
		return err
	}
	account.ResetTokenHash = &tokenHash
	account.ResetExpiresAt = &expiresAt
	return nil
}

func (m *memoryAccounts) ResetPassword(_ context.Context, id, passwordHash string, changedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, err := m.get(id)
	if err != nil {
		return err
	}
	account.PasswordHash = passwordHash
	account.ResetTokenHash = nil
	account.ResetExpiresAt = nil
	account.UpdatedAt = changedAt
	return nil
}

func (m *memoryAccounts) UpdatePassword(_ context.Context, id, passwordHash string, changedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, err := m.get(id)
	if err != nil {
		return err
	}
	account.PasswordHash = passwordHash
	account.UpdatedAt = changedAt
	return nil
}

func (m *memoryAccounts) IncrementFailedAttempts(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, err := m.get(id)
	if err != nil {
		return 0, err
	}
	account.FailedAttempts++
	return account.FailedAttempts, nil
}

func (m *memoryAccounts) RestartFailedAttempts(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, err := m.get(id)
	if err != nil {
		return err
	}
	account.FailedAttempts = 1
	account.LockedUntil = nil
	return nil
}

func (m *memoryAccounts) ResetLockout(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, err := m.get(id)
	if err != nil {
		return err
	}
	account.FailedAttempts = 0
	account.LockedUntil = nil
	return nil
}

func (m *memoryAccounts) Lock(_ context.Context, id string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, err := m.get(id)
	if err != nil {
		return err
	}
	account.LockedUntil = &until
	return nil
}

func (m *memoryAccounts) RecordLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, err := m.get(id)
	if err != nil {
		return err
	}
	account.LastLoginAt = &at
	account.LastActiveAt = &at
	return nil
}

func (m *memoryAccounts) UpdateProfile(_ context.Context, id string, update port.ProfileUpdate, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, err := m.get(id)
	if err != nil {
		return err
	}
	if update.FirstName != nil {
		account.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		account.LastName = *update.LastName
	}
	if update.Bio != nil {
		account.Bio = *update.Bio
	}
	if update.AvatarURL != nil {
		account.AvatarURL = update.AvatarURL
	}
	if update.Phone != nil {
		account.Phone = update.Phone
	}
	if update.Location != nil {
		account.Location = update.Location
	}
	account.UpdatedAt = at
	return nil
}

func (m *memoryAccounts) UpdatePreferences(_ context.Context, id string, prefs domain.Preferences, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, err := m.get(id)
	if err != nil {
		return err
	}
	account.Preferences = prefs
	account.UpdatedAt = at
	return nil
}

func (m *memoryAccounts) UpdateLearningProfile(_ context.Context, id string, learning domain.LearningProfile, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, err := m.get(id)
	if err != nil {
		return err
	}
	account.Learning = learning
	account.UpdatedAt = at
	return nil
}

func (m *memoryAccounts) TouchLastActive(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, err := m.get(id)
	if err != nil {
		return err
	}
	account.LastActiveAt = &at
	return nil
}

func (m *memoryAccounts) List(_ context.Context, filter port.ListFilter) ([]domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := m.matching(filter)
	if filter.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (m *memoryAccounts) Count(_ context.Context, filter port.ListFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.matching(filter)), nil
}

func (m *memoryAccounts) matching(filter port.ListFilter) []domain.Account {
	var matched []domain.Account
	for _, account := range m.accounts {
		if filter.Status != nil && account.Status != *filter.Status {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(account.Email, needle) &&
				!strings.Contains(strings.ToLower(account.Username), needle) {
				continue
			}
		}
		matched = append(matched, *account)
	}
	return matched
}

func (m *memoryAccounts) SoftDelete(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, err := m.get(id)
	if err != nil {
		return err
	}
	account.Status = domain.AccountStatusInactive
	account.DeletedAt = &at
	account.UpdatedAt = at
	return nil
}

// captureEvents records every published event so tests can assert on them.
type captureEvents struct {
	mu sync.Mutex

	registered            []domain.AccountRegisteredEvent
	verificationRequested []domain.EmailVerificationRequestedEvent
	verified              []domain.EmailVerifiedEvent
	resetRequested        []domain.PasswordResetRequestedEvent
	passwordChanged       []domain.PasswordChangedEvent
	locked                []domain.AccountLockedEvent
	deactivated           []domain.AccountDeactivatedEvent
}

var _ port.EventPublisher = (*captureEvents)(nil)

func (c *captureEvents) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registered = append(c.registered, event)
	return nil
}

func (c *captureEvents) PublishEmailVerificationRequested(_ context.Context, event domain.EmailVerificationRequestedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verificationRequested = append(c.verificationRequested, event)
	return nil
}

func (c *captureEvents) PublishEmailVerified(_ context.Context, event domain.EmailVerifiedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verified = append(c.verified, event)
	return nil
}

func (c *captureEvents) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetRequested = append(c.resetRequested, event)
	return nil
}

func (c *captureEvents) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.passwordChanged = append(c.passwordChanged, event)
	return nil
}

func (c *captureEvents) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locked = append(c.locked, event)
	return nil
}

func (c *captureEvents) PublishAccountDeactivated(_ context.Context, event domain.AccountDeactivatedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deactivated = append(c.deactivated, event)
	return nil
}

// stubHasher encodes passwords with a recognizable prefix instead of bcrypt.
type stubHasher struct{}

var _ port.PasswordHasher = stubHasher{}

func (stubHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (stubHasher) Verify(password, encoded string) (bool, error) {
	return encoded == "hashed:"+password, nil
}

// stubPolicy rejects passwords shorter than eight characters or matching a
// configured blocked value.
type stubPolicy struct {
	blocked string
}

var _ port.PasswordPolicyValidator = stubPolicy{}

func (p stubPolicy) Validate(password string, _ port.PasswordContext) error {
	if len(password) < 8 {
		return fmt.Errorf("password too short")
	}
	if p.blocked != "" && password == p.blocked {
		return fmt.Errorf("password too weak")
	}
	return nil
}

// stubTokens issues deterministic tokens and resolves whatever claims the
// test configured.
type stubTokens struct {
	accessCounter  int
	refreshCounter int

	refreshClaims *domain.SessionClaims
	refreshErr    error
	accessClaims  *domain.SessionClaims
	accessErr     error
}

var _ port.TokenIssuer = (*stubTokens)(nil)

func (s *stubTokens) IssueAccess(account *domain.Account, rememberMe bool) (string, int64, error) {
	s.accessCounter++
	expiresIn := int64(3600)
	if rememberMe {
		expiresIn = 7200
	}
	return fmt.Sprintf("access-%s-%d", account.ID, s.accessCounter), expiresIn, nil
}

func (s *stubTokens) IssueRefresh(account *domain.Account) (string, error) {
	s.refreshCounter++
	return fmt.Sprintf("refresh-%s-%d", account.ID, s.refreshCounter), nil
}

func (s *stubTokens) VerifyAccess(string) (*domain.SessionClaims, error) {
	if s.accessErr != nil {
		return nil, s.accessErr
	}
	return s.accessClaims, nil
}

func (s *stubTokens) VerifyRefresh(string) (*domain.SessionClaims, error) {
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}
	return s.refreshClaims, nil
}

// memoryRateLimits is an in-memory port.RateLimitStore.
type memoryRateLimits struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	failErr  error
}

var _ port.RateLimitStore = (*memoryRateLimits)(nil)

func newMemoryRateLimits() *memoryRateLimits {
	return &memoryRateLimits{attempts: map[string][]time.Time{}}
}

func rateLimitKey(scope, subject string) string {
	return scope + ":" + subject
}

func (m *memoryRateLimits) TrimWindow(_ context.Context, scope, subject string, window time.Duration, reference time.Time) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := rateLimitKey(scope, subject)
	cutoff := reference.Add(-window)
	kept := m.attempts[key][:0]
	for _, at := range m.attempts[key] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	m.attempts[key] = kept
	return nil
}

func (m *memoryRateLimits) CountAttempts(_ context.Context, scope, subject string, window time.Duration, reference time.Time) (int, error) {
	if m.failErr != nil {
		return 0, m.failErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := reference.Add(-window)
	count := 0
	for _, at := range m.attempts[rateLimitKey(scope, subject)] {
		if at.After(cutoff) {
			count++
		}
	}
	return count, nil
}

func (m *memoryRateLimits) RecordAttempt(_ context.Context, scope, subject string, at time.Time) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := rateLimitKey(scope, subject)
	m.attempts[key] = append(m.attempts[key], at)
	return nil
}

func (m *memoryRateLimits) OldestAttempt(_ context.Context, scope, subject string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	if m.failErr != nil {
		return time.Time{}, false, m.failErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := reference.Add(-window)
	var oldest time.Time
	found := false
	for _, at := range m.attempts[rateLimitKey(scope, subject)] {
		if !at.After(cutoff) {
			continue
		}
		if !found || at.Before(oldest) {
			oldest = at
			found = true
		}
	}
	return oldest, found, nil
}
