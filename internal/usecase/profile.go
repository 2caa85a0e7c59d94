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

var (
	// ErrSkillExists indicates an add for a skill name already present.
	ErrSkillExists = errors.New("skill already exists")
	// ErrSkillNotFound indicates an update or removal for an unknown skill.
	ErrSkillNotFound = errors.New("skill not found")
	// ErrGoalNotFound indicates an update or removal for an unknown goal.
	ErrGoalNotFound = errors.New("learning goal not found")
)

// ProfileService manages the profile, preferences, and learning sub-profile
// of an account.
type ProfileService struct {
	accounts port.AccountRepository
	logger   *zap.Logger
	now      func() time.Time
}

// NewProfileService constructs a ProfileService.
func NewProfileService(accounts port.AccountRepository, log *zap.Logger) *ProfileService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileService{
		accounts: accounts,
		logger:   log,
		now:      time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *ProfileService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// GetProfile returns the account without its credential material.
func (s *ProfileService) GetProfile(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	sanitized := *account
	sanitized.PasswordHash = ""
	return &sanitized, nil
}

// UpdateProfile applies the allow-listed field updates and returns the
// refreshed account.
func (s *ProfileService) UpdateProfile(ctx context.Context, accountID string, update port.ProfileUpdate) (*domain.Account, error) {
	if err := validateProfileUpdate(update); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.accounts.UpdateProfile(ctx, accountID, update, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	return s.GetProfile(ctx, accountID)
}

// UpdatePreferences replaces the stored preferences document.
func (s *ProfileService) UpdatePreferences(ctx context.Context, accountID string, prefs domain.Preferences) (*domain.Account, error) {
	if prefs.Language == "" {
		prefs.Language = "en"
	}
	if prefs.Theme == "" {
		prefs.Theme = "light"
	}

	now := s.now().UTC()
	if err := s.accounts.UpdatePreferences(ctx, accountID, prefs, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("update preferences: %w", err)
	}

	return s.GetProfile(ctx, accountID)
}

// LearningUpdate carries the mutable top-level learning fields. Nil values
// leave the corresponding field untouched.
type LearningUpdate struct {
	Style     *domain.LearningStyle
	Interests *[]string
}

// UpdateLearning changes the learning style and interests.
func (s *ProfileService) UpdateLearning(ctx context.Context, accountID string, update LearningUpdate) (*domain.Account, error) {
	if update.Style != nil && !domain.ValidLearningStyle(*update.Style) {
		return nil, &domain.FieldError{Field: "style", Message: "unknown learning style"}
	}

	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}

	learning := account.Learning
	if update.Style != nil {
		learning.Style = *update.Style
	}
	if update.Interests != nil {
		interests := make([]string, 0, len(*update.Interests))
		for _, interest := range *update.Interests {
			if trimmed := strings.TrimSpace(interest); trimmed != "" {
				interests = append(interests, trimmed)
			}
		}
		learning.Interests = interests
	}

	return s.storeLearning(ctx, accountID, learning)
}

// AddSkill records a new skill. Adding a name that is already present fails
// with ErrSkillExists.
func (s *ProfileService) AddSkill(ctx context.Context, accountID, name string, level domain.SkillLevel) (*domain.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &domain.FieldError{Field: "name", Message: "skill name is required"}
	}
	if !domain.ValidSkillLevel(level) {
		return nil, &domain.FieldError{Field: "level", Message: "unknown skill level"}
	}

	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}

	learning := account.Learning
	if learning.HasSkill(name) {
		return nil, ErrSkillExists
	}
	learning.PutSkill(domain.Skill{Name: name, Level: level, AddedAt: s.now().UTC()})

	return s.storeLearning(ctx, accountID, learning)
}

// UpdateSkill changes the level of an existing skill.
func (s *ProfileService) UpdateSkill(ctx context.Context, accountID, name string, level domain.SkillLevel) (*domain.Account, error) {
	if !domain.ValidSkillLevel(level) {
		return nil, &domain.FieldError{Field: "level", Message: "unknown skill level"}
	}

	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}

	learning := account.Learning
	existing, ok := learning.Skills[domain.SkillKey(name)]
	if !ok {
		return nil, ErrSkillNotFound
	}
	existing.Level = level
	learning.PutSkill(existing)

	return s.storeLearning(ctx, accountID, learning)
}

// RemoveSkill deletes a skill by name.
func (s *ProfileService) RemoveSkill(ctx context.Context, accountID, name string) (*domain.Account, error) {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}

	learning := account.Learning
	if !learning.RemoveSkill(name) {
		return nil, ErrSkillNotFound
	}

	return s.storeLearning(ctx, accountID, learning)
}

// GoalInput carries the caller-supplied learning goal fields.
type GoalInput struct {
	Title       string
	Description string
	TargetDate  *time.Time
}

// AddGoal creates a learning goal with a generated id.
func (s *ProfileService) AddGoal(ctx context.Context, accountID string, input GoalInput) (*domain.Account, string, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, "", &domain.FieldError{Field: "title", Message: "goal title is required"}
	}

	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, "", err
	}

	goal := domain.LearningGoal{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		TargetDate:  input.TargetDate,
		Status:      domain.GoalStatusActive,
		CreatedAt:   s.now().UTC(),
	}

	learning := account.Learning
	learning.PutGoal(goal)

	updated, err := s.storeLearning(ctx, accountID, learning)
	if err != nil {
		return nil, "", err
	}
	return updated, goal.ID, nil
}

// GoalUpdate carries the mutable fields of an existing goal. Nil values
// leave the corresponding field untouched.
type GoalUpdate struct {
	Title       *string
	Description *string
	TargetDate  *time.Time
	Status      *domain.GoalStatus
}

// UpdateGoal applies partial changes to a goal by id.
func (s *ProfileService) UpdateGoal(ctx context.Context, accountID, goalID string, update GoalUpdate) (*domain.Account, error) {
	if update.Status != nil {
		switch *update.Status {
		case domain.GoalStatusActive, domain.GoalStatusCompleted, domain.GoalStatusAbandoned:
		default:
			return nil, &domain.FieldError{Field: "status", Message: "unknown goal status"}
		}
	}

	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}

	learning := account.Learning
	goal, ok := learning.Goals[goalID]
	if !ok {
		return nil, ErrGoalNotFound
	}

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return nil, &domain.FieldError{Field: "title", Message: "goal title is required"}
		}
		goal.Title = title
	}
	if update.Description != nil {
		goal.Description = strings.TrimSpace(*update.Description)
	}
	if update.TargetDate != nil {
		goal.TargetDate = update.TargetDate
	}
	if update.Status != nil {
		goal.Status = *update.Status
	}
	learning.PutGoal(goal)

	return s.storeLearning(ctx, accountID, learning)
}

// RemoveGoal deletes a goal by id.
func (s *ProfileService) RemoveGoal(ctx context.Context, accountID, goalID string) (*domain.Account, error) {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}

	learning := account.Learning
	if _, ok := learning.Goals[goalID]; !ok {
		return nil, ErrGoalNotFound
	}
	delete(learning.Goals, goalID)

	return s.storeLearning(ctx, accountID, learning)
}

// TouchLastActive stamps the account's last activity time. Failures are
// logged, not surfaced; activity tracking never fails a request.
func (s *ProfileService) TouchLastActive(ctx context.Context, accountID string) {
	if err := s.accounts.TouchLastActive(ctx, accountID, s.now().UTC()); err != nil {
		s.logger.Debug("touch last active failed",
			zap.String("account_id", accountID), zap.Error(err))
	}
}

func (s *ProfileService) load(ctx context.Context, accountID string) (*domain.Account, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, ErrAccountNotFound
	}
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if account.DeletedAt != nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

func (s *ProfileService) storeLearning(ctx context.Context, accountID string, learning domain.LearningProfile) (*domain.Account, error) {
	now := s.now().UTC()
	if err := s.accounts.UpdateLearningProfile(ctx, accountID, learning, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("update learning profile: %w", err)
	}
	return s.GetProfile(ctx, accountID)
}

func validateProfileUpdate(update port.ProfileUpdate) error {
	if update.FirstName != nil {
		if err := domain.ValidateName("firstName", *update.FirstName); err != nil {
			return err
		}
	}
	if update.LastName != nil {
		if err := domain.ValidateName("lastName", *update.LastName); err != nil {
			return err
		}
	}
	if update.Bio != nil {
		if err := domain.ValidateBio(*update.Bio); err != nil {
			return err
		}
	}
	return nil
}
