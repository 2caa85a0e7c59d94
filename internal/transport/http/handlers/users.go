package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/codecrafthub/user-service/internal/core/domain"
	"github.com/codecrafthub/user-service/internal/usecase"
)

// UserHandler exposes the administrative account surface.
type UserHandler struct {
	users *usecase.UserService
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(users *usecase.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// RegisterRoutes binds admin routes. The group is expected to carry the auth
// middleware already.
func (h *UserHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.List)
	r.GET("/:id", h.Get)
	r.DELETE("/:id", h.Delete)
}

// List godoc
// @Summary List accounts
// @Description Returns a filtered, paginated page of accounts.
// @Tags Users
// @Produce json
// @Param status query string false "Filter by account status"
// @Param search query string false "Match against email, username, or name"
// @Param page query int false "Page number, starting at 1"
// @Param size query int false "Page size"
// @Success 200 {object} UserListResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/users [get]
func (h *UserHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	result, err := h.users.List(c.Request.Context(), usecase.ListInput{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Page:   page,
		Size:   size,
	})
	if err != nil {
		var fieldErr *domain.FieldError
		if errors.As(err, &fieldErr) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, fieldErr.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list accounts"))
		return
	}

	users := make([]AccountSummary, 0, len(result.Accounts))
	for i := range result.Accounts {
		users = append(users, newAccountSummary(&result.Accounts[i]))
	}

	c.JSON(http.StatusOK, UserListResponse{
		Users: users,
		Total: result.Total,
		Page:  result.Page,
		Size:  result.Size,
	})
}

// Get godoc
// @Summary Get an account by id
// @Tags Users
// @Produce json
// @Param id path string true "Account id"
// @Success 200 {object} AccountDetail
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	account, err := h.users.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to load account")
		return
	}

	c.JSON(http.StatusOK, newAccountDetail(account))
}

// Delete godoc
// @Summary Soft delete an account
// @Description Deactivates the account and stamps its deletion time. The row is retained.
// @Tags Users
// @Produce json
// @Param id path string true "Account id"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.users.SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to delete account")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "account deactivated"})
}
