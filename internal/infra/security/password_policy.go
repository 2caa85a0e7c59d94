package security

import (
	"fmt"

	"github.com/codecrafthub/user-service/internal/core/port"
	"github.com/codecrafthub/user-service/internal/infra/config"
)

const (
	defaultMinPasswordLength   = 8
	defaultMinCharacterClasses = 3
	defaultMinZxcvbnScore      = 2
)

// DefaultPasswordValidator returns the built-in validator enforcing the
// service password policy with length, character class, and zxcvbn strength checks.
func DefaultPasswordValidator() *PasswordValidator {
	return NewPasswordValidator(
		MinLengthRule(defaultMinPasswordLength),
		RequireCharacterClassesRule(defaultMinCharacterClasses),
		RequirePasswordStrengthRule(defaultMinZxcvbnScore),
	)
}

// PasswordPolicy adapts the password validator to the port-level policy
// interface, feeding account attributes into the strength check so a
// password cannot simply echo the email or username.
type PasswordPolicy struct {
	minLength int
	minScore  int
}

// NewPasswordPolicy builds a policy from the security settings; zero values
// fall back to the built-in defaults.
func NewPasswordPolicy(cfg config.SecuritySettings) *PasswordPolicy {
	minLength := cfg.MinPasswordLength
	if minLength <= 0 {
		minLength = defaultMinPasswordLength
	}
	minScore := cfg.MinPasswordStrength
	if minScore <= 0 {
		minScore = defaultMinZxcvbnScore
	}
	return &PasswordPolicy{minLength: minLength, minScore: minScore}
}

// Validate applies the configured rules to ensure the password meets policy requirements.
func (p *PasswordPolicy) Validate(password string, ctx port.PasswordContext) error {
	if p == nil {
		return fmt.Errorf("password policy not configured")
	}

	inputs := make([]string, 0, 2)
	if ctx.Username != "" {
		inputs = append(inputs, ctx.Username)
	}
	if ctx.Email != "" {
		inputs = append(inputs, ctx.Email)
	}

	validator := NewPasswordValidator(
		MinLengthRule(p.minLength),
		RequireCharacterClassesRule(defaultMinCharacterClasses),
		RequirePasswordStrengthRule(p.minScore, inputs...),
	)

	return validator.Validate(password)
}

var _ port.PasswordPolicyValidator = (*PasswordPolicy)(nil)
