package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/codecrafthub/user-service/internal/core/domain"
	"github.com/codecrafthub/user-service/internal/core/port"
)

func newProfileFixture(seed ...domain.Account) (*ProfileService, *memoryAccounts) {
	store := newMemoryAccounts(seed...)
	svc := NewProfileService(store, nil)
	svc.WithClock(func() time.Time { return authTestTime })
	return svc, store
}

func TestGetProfileStripsCredentials(t *testing.T) {
	svc, _ := newProfileFixture(activeAccount())

	account, err := svc.GetProfile(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if account.PasswordHash != "" {
		t.Fatal("expected password hash to be stripped")
	}
}

func TestGetProfileHidesDeletedAccounts(t *testing.T) {
	account := activeAccount()
	deletedAt := authTestTime.Add(-time.Hour)
	account.DeletedAt = &deletedAt

	svc, _ := newProfileFixture(account)

	if _, err := svc.GetProfile(context.Background(), "acc-1"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestUpdateProfileAppliesPartialChanges(t *testing.T) {
	svc, store := newProfileFixture(activeAccount())

	firstName := "Janet"
	bio := "Lifelong learner."
	account, err := svc.UpdateProfile(context.Background(), "acc-1", port.ProfileUpdate{
		FirstName: &firstName,
		Bio:       &bio,
	})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if account.FirstName != "Janet" || account.Bio != "Lifelong learner." {
		t.Fatalf("unexpected profile %s %q", account.FirstName, account.Bio)
	}
	if account.LastName != "Doe" {
		t.Fatal("expected untouched fields to survive")
	}

	if stored := store.snapshot("acc-1"); !stored.UpdatedAt.Equal(authTestTime) {
		t.Fatalf("expected updated_at stamped, got %v", stored.UpdatedAt)
	}
}

func TestUpdateProfileValidatesFields(t *testing.T) {
	svc, _ := newProfileFixture(activeAccount())

	empty := "  "
	var fieldErr *domain.FieldError
	if _, err := svc.UpdateProfile(context.Background(), "acc-1", port.ProfileUpdate{FirstName: &empty}); !errors.As(err, &fieldErr) {
		t.Fatalf("expected a field error, got %v", err)
	}

	long := make([]byte, 501)
	for i := range long {
		long[i] = 'a'
	}
	bio := string(long)
	if _, err := svc.UpdateProfile(context.Background(), "acc-1", port.ProfileUpdate{Bio: &bio}); !errors.As(err, &fieldErr) || fieldErr.Field != "bio" {
		t.Fatalf("expected a bio field error, got %v", err)
	}
}

func TestUpdatePreferencesFillsDefaults(t *testing.T) {
	svc, _ := newProfileFixture(activeAccount())

	account, err := svc.UpdatePreferences(context.Background(), "acc-1", domain.Preferences{
		Notifications: domain.NotificationPreferences{Email: true},
	})
	if err != nil {
		t.Fatalf("update preferences: %v", err)
	}
	if account.Preferences.Language != "en" || account.Preferences.Theme != "light" {
		t.Fatalf("expected defaults filled, got %+v", account.Preferences)
	}
	if account.Preferences.Notifications.Push {
		t.Fatal("expected the stored document to be replaced, not merged")
	}
}

func TestUpdateLearningStyleAndInterests(t *testing.T) {
	svc, _ := newProfileFixture(activeAccount())

	style := domain.LearningStyleVisual
	interests := []string{" go ", "", "distributed systems"}
	account, err := svc.UpdateLearning(context.Background(), "acc-1", LearningUpdate{
		Style:     &style,
		Interests: &interests,
	})
	if err != nil {
		t.Fatalf("update learning: %v", err)
	}
	if account.Learning.Style != domain.LearningStyleVisual {
		t.Fatalf("unexpected style %s", account.Learning.Style)
	}
	if len(account.Learning.Interests) != 2 || account.Learning.Interests[0] != "go" {
		t.Fatalf("expected trimmed interests, got %v", account.Learning.Interests)
	}

	bogus := domain.LearningStyle("osmosis")
	var fieldErr *domain.FieldError
	if _, err := svc.UpdateLearning(context.Background(), "acc-1", LearningUpdate{Style: &bogus}); !errors.As(err, &fieldErr) {
		t.Fatalf("expected a field error for an unknown style, got %v", err)
	}
}

func TestAddSkillRejectsDuplicates(t *testing.T) {
	svc, _ := newProfileFixture(activeAccount())

	account, err := svc.AddSkill(context.Background(), "acc-1", "Go", domain.SkillLevelIntermediate)
	if err != nil {
		t.Fatalf("add skill: %v", err)
	}
	if !account.Learning.HasSkill("go") {
		t.Fatal("expected the skill to be present under its normalized name")
	}

	// Names are compared case-insensitively.
	if _, err := svc.AddSkill(context.Background(), "acc-1", "GO", domain.SkillLevelBeginner); !errors.Is(err, ErrSkillExists) {
		t.Fatalf("expected ErrSkillExists, got %v", err)
	}
}

func TestUpdateSkillLevel(t *testing.T) {
	svc, _ := newProfileFixture(activeAccount())

	if _, err := svc.AddSkill(context.Background(), "acc-1", "Go", domain.SkillLevelBeginner); err != nil {
		t.Fatalf("add skill: %v", err)
	}

	account, err := svc.UpdateSkill(context.Background(), "acc-1", "go", domain.SkillLevelAdvanced)
	if err != nil {
		t.Fatalf("update skill: %v", err)
	}
	if account.Learning.Skills["go"].Level != domain.SkillLevelAdvanced {
		t.Fatalf("unexpected level %s", account.Learning.Skills["go"].Level)
	}

	if _, err := svc.UpdateSkill(context.Background(), "acc-1", "rust", domain.SkillLevelBeginner); !errors.Is(err, ErrSkillNotFound) {
		t.Fatalf("expected ErrSkillNotFound, got %v", err)
	}
}

func TestRemoveSkill(t *testing.T) {
	svc, _ := newProfileFixture(activeAccount())

	if _, err := svc.AddSkill(context.Background(), "acc-1", "Go", domain.SkillLevelBeginner); err != nil {
		t.Fatalf("add skill: %v", err)
	}

	account, err := svc.RemoveSkill(context.Background(), "acc-1", "GO")
	if err != nil {
		t.Fatalf("remove skill: %v", err)
	}
	if account.Learning.HasSkill("go") {
		t.Fatal("expected the skill to be gone")
	}

	if _, err := svc.RemoveSkill(context.Background(), "acc-1", "go"); !errors.Is(err, ErrSkillNotFound) {
		t.Fatalf("expected ErrSkillNotFound, got %v", err)
	}
}

func TestAddSkillValidatesInput(t *testing.T) {
	svc, _ := newProfileFixture(activeAccount())

	var fieldErr *domain.FieldError
	if _, err := svc.AddSkill(context.Background(), "acc-1", "  ", domain.SkillLevelBeginner); !errors.As(err, &fieldErr) || fieldErr.Field != "name" {
		t.Fatalf("expected a name field error, got %v", err)
	}
	if _, err := svc.AddSkill(context.Background(), "acc-1", "Go", domain.SkillLevel("wizard")); !errors.As(err, &fieldErr) || fieldErr.Field != "level" {
		t.Fatalf("expected a level field error, got %v", err)
	}
}

func TestGoalLifecycle(t *testing.T) {
	svc, _ := newProfileFixture(activeAccount())

	target := authTestTime.Add(30 * 24 * time.Hour)
	account, goalID, err := svc.AddGoal(context.Background(), "acc-1", GoalInput{
		Title:       "Ship a side project",
		Description: "  something small  ",
		TargetDate:  &target,
	})
	if err != nil {
		t.Fatalf("add goal: %v", err)
	}
	if goalID == "" {
		t.Fatal("expected a generated goal id")
	}
	goal := account.Learning.Goals[goalID]
	if goal.Status != domain.GoalStatusActive {
		t.Fatalf("expected an active goal, got %s", goal.Status)
	}
	if goal.Description != "something small" {
		t.Fatalf("expected trimmed description, got %q", goal.Description)
	}

	completed := domain.GoalStatusCompleted
	account, err = svc.UpdateGoal(context.Background(), "acc-1", goalID, GoalUpdate{Status: &completed})
	if err != nil {
		t.Fatalf("update goal: %v", err)
	}
	if account.Learning.Goals[goalID].Status != domain.GoalStatusCompleted {
		t.Fatal("expected the goal to be completed")
	}

	account, err = svc.RemoveGoal(context.Background(), "acc-1", goalID)
	if err != nil {
		t.Fatalf("remove goal: %v", err)
	}
	if _, ok := account.Learning.Goals[goalID]; ok {
		t.Fatal("expected the goal to be removed")
	}

	if _, err := svc.RemoveGoal(context.Background(), "acc-1", goalID); !errors.Is(err, ErrGoalNotFound) {
		t.Fatalf("expected ErrGoalNotFound, got %v", err)
	}
}

func TestUpdateGoalValidation(t *testing.T) {
	svc, _ := newProfileFixture(activeAccount())

	_, goalID, err := svc.AddGoal(context.Background(), "acc-1", GoalInput{Title: "Learn SQL"})
	if err != nil {
		t.Fatalf("add goal: %v", err)
	}

	var fieldErr *domain.FieldError
	empty := " "
	if _, err := svc.UpdateGoal(context.Background(), "acc-1", goalID, GoalUpdate{Title: &empty}); !errors.As(err, &fieldErr) || fieldErr.Field != "title" {
		t.Fatalf("expected a title field error, got %v", err)
	}

	bogus := domain.GoalStatus("paused")
	if _, err := svc.UpdateGoal(context.Background(), "acc-1", goalID, GoalUpdate{Status: &bogus}); !errors.As(err, &fieldErr) || fieldErr.Field != "status" {
		t.Fatalf("expected a status field error, got %v", err)
	}

	if _, err := svc.UpdateGoal(context.Background(), "acc-1", "no-such-goal", GoalUpdate{}); !errors.Is(err, ErrGoalNotFound) {
		t.Fatalf("expected ErrGoalNotFound, got %v", err)
	}
}

func TestTouchLastActive(t *testing.T) {
	svc, store := newProfileFixture(activeAccount())

	svc.TouchLastActive(context.Background(), "acc-1")

	stored := store.snapshot("acc-1")
	if stored.LastActiveAt == nil || !stored.LastActiveAt.Equal(authTestTime) {
		t.Fatalf("expected last active at %v, got %v", authTestTime, stored.LastActiveAt)
	}

	// Unknown accounts are ignored; activity tracking never fails a request.
	svc.TouchLastActive(context.Background(), "missing")
}
