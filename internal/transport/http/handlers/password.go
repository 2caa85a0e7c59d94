package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codecrafthub/user-service/internal/core/domain"
	"github.com/codecrafthub/user-service/internal/transport/http/middleware"
	"github.com/codecrafthub/user-service/internal/usecase"
)

// PasswordHandler exposes password reset and change endpoints.
type PasswordHandler struct {
	passwords *usecase.PasswordService
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(passwords *usecase.PasswordService) *PasswordHandler {
	return &PasswordHandler{passwords: passwords}
}

// ForgotPassword godoc
// @Summary Request a password reset
// @Description Sends a reset token to the address if an account exists. Always responds with success.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "Reset request"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} middleware.ProblemDetails
// @Router /api/v1/auth/forgot-password [post]
func (h *PasswordHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email is required"))
		return
	}

	err := h.passwords.ForgotPassword(c.Request.Context(), usecase.ForgotPasswordInput{
		Email: req.Email,
		IP:    c.ClientIP(),
	})
	if err != nil {
		var rateErr *usecase.RateLimitExceededError
		if errors.As(err, &rateErr) {
			respondRateLimitExceeded(c, rateErr)
			return
		}
		var fieldErr *domain.FieldError
		if errors.As(err, &fieldErr) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, fieldErr.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to process reset request"))
		return
	}

	// Same message whether or not the address is registered.
	c.JSON(http.StatusOK, MessageResponse{Message: "if the email is registered, a reset link has been sent"})
}

// ResetPassword godoc
// @Summary Complete a password reset
// @Description Consumes a reset token and installs the new password. Each token works once.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Reset confirmation"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/reset-password [post]
func (h *PasswordHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "token and new_password are required"))
		return
	}

	if err := h.passwords.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		var fieldErr *domain.FieldError
		if errors.As(err, &fieldErr) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, fieldErr.Error()))
			return
		}
		// Expired and unknown tokens answer alike so callers cannot tell
		// whether a guessed token ever existed.
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrResetTokenInvalid, Status: http.StatusBadRequest, Message: "reset token is invalid or expired"},
			{Err: usecase.ErrResetTokenExpired, Status: http.StatusBadRequest, Message: "reset token is invalid or expired"},
			{Err: usecase.ErrNewPasswordInvalid, Status: http.StatusBadRequest, Message: "new password does not meet requirements"},
		}, http.StatusInternalServerError, "failed to reset password")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password has been reset"})
}

// ChangePassword godoc
// @Summary Change the current account's password
// @Description Verifies the current password and installs the new one.
// @Tags Password
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param request body ChangePasswordRequest true "Password change request"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/change-password [post]
func (h *PasswordHandler) ChangePassword(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "current_password and new_password are required"))
		return
	}

	err := h.passwords.ChangePassword(c.Request.Context(), usecase.ChangePasswordInput{
		AccountID:       accountID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		var fieldErr *domain.FieldError
		if errors.As(err, &fieldErr) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, fieldErr.Error()))
			return
		}
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrCurrentPasswordInvalid, Status: http.StatusUnauthorized, Message: "current password is incorrect"},
			{Err: usecase.ErrNewPasswordInvalid, Status: http.StatusBadRequest, Message: "new password does not meet requirements"},
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to change password")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password changed"})
}
