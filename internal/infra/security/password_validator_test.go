package security

import (
	"errors"
	"testing"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

func TestDefaultPasswordValidatorSuccess(t *testing.T) {
	validator := DefaultPasswordValidator()

	password := "C0mplex!Passphrase#2025"
	if strength := zxcvbn.PasswordStrength(password, nil); strength.Score < defaultMinZxcvbnScore {
		t.Fatalf("test password unexpectedly weak: score=%d", strength.Score)
	}
	if err := validator.Validate(password); err != nil {
		t.Fatalf("expected password to pass validation, got %v", err)
	}
}

func TestDefaultPasswordValidatorViolations(t *testing.T) {
	validator := DefaultPasswordValidator()

	assertViolation := func(password, expectedCode string) {
		err := validator.Validate(password)
		if err == nil {
			t.Fatalf("expected validation error for %s", expectedCode)
		}
		var vErr *PasswordValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected PasswordValidationError, got %T", err)
		}
		if vErr.Code != expectedCode {
			t.Fatalf("expected %s code, got %s", expectedCode, vErr.Code)
		}
	}

	assertViolation("Short1!", "min_length")
	assertViolation("lowercasepassword", "character_classes")
	assertViolation("Password123", "weak_password")
}

func TestCustomPasswordValidator(t *testing.T) {
	validator := NewPasswordValidator(
		MinLengthRule(4),
		RequireCharacterClassesRule(2),
		RequireDifferentFrom("Existing1"),
	)

	if err := validator.Validate("Existing1"); err == nil {
		t.Fatalf("expected validation error when new password equals comparator")
	}

	if err := validator.Validate("diff"); err == nil {
		t.Fatalf("expected validation error for single character class")
	}

	if err := validator.Validate("Diff1"); err != nil {
		t.Fatalf("expected password to pass custom validation, got %v", err)
	}
}

func TestPasswordStrengthRuleUsesContextInputs(t *testing.T) {
	rule := RequirePasswordStrengthRule(3, "jane.doe@example.com", "janedoe")

	if err := rule.Validate("janedoe2024"); err == nil {
		t.Fatalf("expected password built from user inputs to be rejected")
	}
}
