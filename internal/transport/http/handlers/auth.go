package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codecrafthub/user-service/internal/transport/http/middleware"
	"github.com/codecrafthub/user-service/internal/usecase"
)

const (
	rateLimitProblemType  = "https://users.codecrafthub.example.com/errors/rate-limit-exceeded"
	rateLimitProblemTitle = "Rate Limit Exceeded"
)

// AuthHandler exposes session endpoints: login, refresh, logout, and the
// authenticated account view.
type AuthHandler struct {
	auth     *usecase.AuthService
	profiles *usecase.ProfileService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, profiles *usecase.ProfileService) *AuthHandler {
	return &AuthHandler{
		auth:     auth,
		profiles: profiles,
	}
}

// RegisterRoutes binds session routes, applying optional middleware ahead of login.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, loginMiddlewares ...gin.HandlerFunc) {
	if len(loginMiddlewares) > 0 {
		chain := append([]gin.HandlerFunc{}, loginMiddlewares...)
		chain = append(chain, h.login)
		r.POST("/login", chain...)
	} else {
		r.POST("/login", h.login)
	}

	r.POST("/refresh", h.refresh)
	r.POST("/logout", middleware.RequireAuth(h.auth), h.logout)
	r.GET("/me", middleware.RequireAuth(h.auth), h.me)
}

// Login godoc
// @Summary Authenticate with credentials
// @Description Validates the identifier (email or username) and password, returning access and refresh tokens.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 423 {object} ErrorResponse
// @Failure 429 {object} middleware.ProblemDetails
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "identifier and password are required"))
		return
	}

	pair, account, err := h.auth.Login(c.Request.Context(), strings.TrimSpace(req.Identifier), req.Password, req.RememberMe)
	if err != nil {
		h.respondLoginError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
		User:         newAccountSummary(account),
	})
}

// Refresh godoc
// @Summary Refresh an access token
// @Description Issues a new access token for a valid refresh token. The refresh token itself is returned unchanged.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh request"
// @Success 200 {object} RefreshResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "refresh_token is required"))
		return
	}

	pair, _, err := h.auth.RefreshAccessToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidRefreshToken, Status: http.StatusUnauthorized, Message: "invalid refresh token"},
			{Err: usecase.ErrExpiredRefreshToken, Status: http.StatusUnauthorized, Message: "refresh token expired"},
			{Err: usecase.ErrInactiveAccount, Status: http.StatusUnauthorized, Message: "account is not active"},
		}, http.StatusInternalServerError, "failed to refresh token")
		return
	}

	c.JSON(http.StatusOK, RefreshResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
	})
}

// Logout godoc
// @Summary Logout the current session
// @Description Tokens are stateless; logout acknowledges so clients discard their pair.
// @Tags Authentication
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) logout(c *gin.Context) {
	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

// Me godoc
// @Summary Current account
// @Description Returns the full profile of the authenticated account.
// @Tags Authentication
// @Produce json
// @Success 200 {object} AccountDetail
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) me(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	account, err := h.profiles.GetProfile(c.Request.Context(), accountID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to load account")
		return
	}

	h.profiles.TouchLastActive(c.Request.Context(), accountID)

	c.JSON(http.StatusOK, newAccountDetail(account))
}

func (h *AuthHandler) respondLoginError(c *gin.Context, err error) {
	var rateErr *usecase.RateLimitExceededError
	if errors.As(err, &rateErr) {
		respondRateLimitExceeded(c, rateErr)
		return
	}

	RespondWithMappedError(c, err, []ErrorCase{
		{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
		{Err: usecase.ErrAccountLocked, Status: http.StatusLocked, Message: "account temporarily locked due to failed login attempts"},
		{Err: usecase.ErrInactiveAccount, Status: http.StatusUnauthorized, Message: "account is not active"},
	}, http.StatusInternalServerError, "authentication failed")
}

func respondRateLimitExceeded(c *gin.Context, rateErr *usecase.RateLimitExceededError) {
	retryAfter := int(rateErr.RetryAfter / time.Second)
	if rateErr.RetryAfter%time.Second != 0 {
		retryAfter++
	}
	if retryAfter < 0 {
		retryAfter = 0
	}

	detail := "Too many attempts. Try again later."
	if rateErr.RetryAfter > 0 {
		detail = fmt.Sprintf("Too many attempts. Try again in %d seconds.", retryAfter)
	}

	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	problem := middleware.ProblemDetails{
		Type:       rateLimitProblemType,
		Title:      rateLimitProblemTitle,
		Status:     http.StatusTooManyRequests,
		Detail:     detail,
		Instance:   instance,
		RetryAfter: retryAfter,
		TraceID:    middleware.GetTraceID(c),
	}

	c.JSON(http.StatusTooManyRequests, problem)
}
