package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codecrafthub/user-service/internal/core/domain"
	"github.com/codecrafthub/user-service/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response carrying the request trace ID.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: middleware.GetTraceID(c),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// AccountSummary is the minimal account view returned by auth endpoints.
type AccountSummary struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Username      string     `json:"username"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	FullName      string     `json:"full_name"`
	Status        string     `json:"status"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
}

// AccountDetail extends AccountSummary with the profile document.
type AccountDetail struct {
	AccountSummary
	Bio          string                 `json:"bio,omitempty"`
	AvatarURL    *string                `json:"avatar_url,omitempty"`
	Phone        *string                `json:"phone,omitempty"`
	Location     *domain.Location       `json:"location,omitempty"`
	Preferences  domain.Preferences     `json:"preferences"`
	Learning     domain.LearningProfile `json:"learning_profile"`
	LastActiveAt *time.Time             `json:"last_active_at,omitempty"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// RegisterRequest defines the account registration payload.
type RegisterRequest struct {
	Email     string `json:"email" binding:"required"`
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
}

// RegisterResponse contains the created account and its initial token pair.
type RegisterResponse struct {
	Message      string         `json:"message"`
	Account      AccountSummary `json:"user"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	TokenType    string         `json:"token_type"`
	ExpiresIn    int64          `json:"expires_in"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

// LoginResponse describes the response returned for a successful login.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	TokenType    string         `json:"token_type"`
	ExpiresIn    int64          `json:"expires_in"`
	User         AccountSummary `json:"user"`
}

// RefreshRequest represents the payload to refresh an access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshResponse contains tokens issued by the refresh endpoint.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// VerifyEmailRequest holds the email verification payload.
type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// ResendVerificationRequest identifies the account needing a new token.
type ResendVerificationRequest struct {
	Email string `json:"email" binding:"required"`
}

// ResendVerificationResponse reports the new token expiry.
type ResendVerificationResponse struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ForgotPasswordRequest initiates a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

// ResetPasswordRequest consumes a reset token.
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePasswordRequest captures an authenticated password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// ProfileUpdateRequest carries the mutable profile fields. Absent fields are
// left untouched.
type ProfileUpdateRequest struct {
	FirstName *string          `json:"first_name,omitempty"`
	LastName  *string          `json:"last_name,omitempty"`
	Bio       *string          `json:"bio,omitempty"`
	AvatarURL *string          `json:"avatar_url,omitempty"`
	Phone     *string          `json:"phone,omitempty"`
	Location  *domain.Location `json:"location,omitempty"`
}

// PreferencesRequest replaces the stored preferences document.
type PreferencesRequest struct {
	Language      string                         `json:"language"`
	Theme         string                         `json:"theme"`
	Notifications domain.NotificationPreferences `json:"notifications"`
	Privacy       domain.PrivacyPreferences      `json:"privacy"`
}

// LearningUpdateRequest changes the learning style and interests.
type LearningUpdateRequest struct {
	Style     *string   `json:"style,omitempty"`
	Interests *[]string `json:"interests,omitempty"`
}

// SkillRequest adds or updates a declared skill.
type SkillRequest struct {
	Name  string `json:"name" binding:"required"`
	Level string `json:"level" binding:"required"`
}

// GoalCreateRequest creates a learning goal.
type GoalCreateRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	TargetDate  *time.Time `json:"target_date,omitempty"`
}

// GoalCreateResponse returns the refreshed profile and the new goal id.
type GoalCreateResponse struct {
	GoalID  string        `json:"goal_id"`
	Profile AccountDetail `json:"profile"`
}

// GoalUpdateRequest applies partial changes to a goal.
type GoalUpdateRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	TargetDate  *time.Time `json:"target_date,omitempty"`
	Status      *string    `json:"status,omitempty"`
}

// UserListResponse wraps one page of accounts for the admin surface.
type UserListResponse struct {
	Users []AccountSummary `json:"users"`
	Total int              `json:"total"`
	Page  int              `json:"page"`
	Size  int              `json:"size"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// newAccountSummary converts a domain account to the API summary view.
func newAccountSummary(account *domain.Account) AccountSummary {
	summary := AccountSummary{
		ID:            account.ID,
		Email:         account.Email,
		Username:      account.Username,
		FirstName:     account.FirstName,
		LastName:      account.LastName,
		FullName:      account.FullName(),
		Status:        string(account.Status),
		EmailVerified: account.EmailVerified,
		CreatedAt:     account.CreatedAt,
	}
	if account.LastLoginAt != nil {
		summary.LastLoginAt = account.LastLoginAt
	}
	return summary
}

// newAccountDetail converts a domain account to the full API profile view.
func newAccountDetail(account *domain.Account) AccountDetail {
	return AccountDetail{
		AccountSummary: newAccountSummary(account),
		Bio:            account.Bio,
		AvatarURL:      account.AvatarURL,
		Phone:          account.Phone,
		Location:       account.Location,
		Preferences:    account.Preferences,
		Learning:       account.Learning,
		LastActiveAt:   account.LastActiveAt,
		UpdatedAt:      account.UpdatedAt,
	}
}
