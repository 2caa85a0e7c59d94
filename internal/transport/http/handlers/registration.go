package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codecrafthub/user-service/internal/core/domain"
	"github.com/codecrafthub/user-service/internal/usecase"
)

// RegistrationHandler exposes account creation and email verification endpoints.
type RegistrationHandler struct {
	registration *usecase.RegistrationService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registration *usecase.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registration: registration}
}

// RegisterRoutes binds registration endpoints, applying optional middleware
// ahead of register.
func (h *RegistrationHandler) RegisterRoutes(r *gin.RouterGroup, registerMiddlewares ...gin.HandlerFunc) {
	if len(registerMiddlewares) > 0 {
		chain := append([]gin.HandlerFunc{}, registerMiddlewares...)
		chain = append(chain, h.Register)
		r.POST("/register", chain...)
	} else {
		r.POST("/register", h.Register)
	}

	r.POST("/verify-email", h.VerifyEmail)
	r.POST("/resend-verification", h.ResendVerification)
}

// Register godoc
// @Summary Register a new account
// @Description Creates a pending account, emits a verification token, and returns an initial token pair.
// @Tags Registration
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request"
// @Success 201 {object} RegisterResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	result, err := h.registration.Register(c.Request.Context(), usecase.RegisterInput{
		Email:     strings.TrimSpace(req.Email),
		Username:  strings.TrimSpace(req.Username),
		Password:  req.Password,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
	})
	if err != nil {
		h.respondRegisterError(c, err)
		return
	}

	c.JSON(http.StatusCreated, RegisterResponse{
		Message:      "account created, verification email sent",
		Account:      newAccountSummary(&result.Account),
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    result.ExpiresIn,
	})
}

// VerifyEmail godoc
// @Summary Verify an email address
// @Description Consumes a verification token and activates the pending account.
// @Tags Registration
// @Accept json
// @Produce json
// @Param request body VerifyEmailRequest true "Verification request"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/verify-email [post]
func (h *RegistrationHandler) VerifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "verification token is required"))
		return
	}

	// Expired and unknown tokens answer alike so callers cannot tell whether
	// a guessed token ever existed.
	if _, err := h.registration.VerifyEmail(c.Request.Context(), req.Token); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrVerificationTokenInvalid, Status: http.StatusBadRequest, Message: "verification token is invalid or expired"},
			{Err: usecase.ErrVerificationTokenExpired, Status: http.StatusBadRequest, Message: "verification token is invalid or expired"},
		}, http.StatusInternalServerError, "failed to verify email")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "email verified"})
}

// ResendVerification godoc
// @Summary Resend the verification email
// @Description Issues a fresh verification token, replacing any previous one.
// @Tags Registration
// @Accept json
// @Produce json
// @Param request body ResendVerificationRequest true "Resend request"
// @Success 200 {object} ResendVerificationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/resend-verification [post]
func (h *RegistrationHandler) ResendVerification(c *gin.Context) {
	var req ResendVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email is required"))
		return
	}

	expiresAt, err := h.registration.ResendVerification(c.Request.Context(), req.Email)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrAlreadyVerified, Status: http.StatusBadRequest, Message: "email is already verified"},
		}, http.StatusInternalServerError, "failed to resend verification")
		return
	}

	c.JSON(http.StatusOK, ResendVerificationResponse{
		Message:   "verification email sent",
		ExpiresAt: expiresAt,
	})
}

func (h *RegistrationHandler) respondRegisterError(c *gin.Context, err error) {
	var fieldErr *domain.FieldError
	if errors.As(err, &fieldErr) {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, fieldErr.Error()))
		return
	}

	switch {
	case errors.Is(err, usecase.ErrEmailTaken):
		c.JSON(http.StatusConflict, NewErrorResponse(c, "email already registered"))
	case errors.Is(err, usecase.ErrUsernameTaken):
		c.JSON(http.StatusConflict, NewErrorResponse(c, "username already taken"))
	case errors.Is(err, usecase.ErrPasswordPolicyViolation):
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "password does not meet requirements"))
	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to register account"))
	}
}
