package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codecrafthub/user-service/internal/core/domain"
	"github.com/codecrafthub/user-service/internal/core/port"
	"github.com/codecrafthub/user-service/internal/transport/http/middleware"
	"github.com/codecrafthub/user-service/internal/usecase"
)

// ProfileHandler exposes the authenticated profile surface: profile fields,
// preferences, and the learning sub-profile.
type ProfileHandler struct {
	profiles *usecase.ProfileService
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(profiles *usecase.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// RegisterRoutes binds profile routes. The group is expected to carry the
// auth middleware already.
func (h *ProfileHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.Get)
	r.PUT("", h.Update)
	r.PUT("/preferences", h.UpdatePreferences)
	r.PUT("/learning", h.UpdateLearning)
	r.POST("/learning/skills", h.AddSkill)
	r.PUT("/learning/skills/:name", h.UpdateSkill)
	r.DELETE("/learning/skills/:name", h.RemoveSkill)
	r.POST("/learning/goals", h.AddGoal)
	r.PUT("/learning/goals/:id", h.UpdateGoal)
	r.DELETE("/learning/goals/:id", h.RemoveGoal)
}

// Get returns the full profile of the authenticated account.
func (h *ProfileHandler) Get(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	account, err := h.profiles.GetProfile(c.Request.Context(), accountID)
	if err != nil {
		h.respond(c, nil, err, "failed to load profile")
		return
	}

	h.profiles.TouchLastActive(c.Request.Context(), accountID)

	c.JSON(http.StatusOK, newAccountDetail(account))
}

// Update applies partial profile field changes.
func (h *ProfileHandler) Update(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid profile payload"))
		return
	}

	account, err := h.profiles.UpdateProfile(c.Request.Context(), accountID, port.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
		Phone:     req.Phone,
		Location:  req.Location,
	})
	h.respond(c, account, err, "failed to update profile")
}

// UpdatePreferences replaces the preferences document.
func (h *ProfileHandler) UpdatePreferences(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req PreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid preferences payload"))
		return
	}

	account, err := h.profiles.UpdatePreferences(c.Request.Context(), accountID, domain.Preferences{
		Language:      req.Language,
		Theme:         req.Theme,
		Notifications: req.Notifications,
		Privacy:       req.Privacy,
	})
	h.respond(c, account, err, "failed to update preferences")
}

// UpdateLearning changes the learning style and interests.
func (h *ProfileHandler) UpdateLearning(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req LearningUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid learning payload"))
		return
	}

	update := usecase.LearningUpdate{Interests: req.Interests}
	if req.Style != nil {
		style := domain.LearningStyle(*req.Style)
		update.Style = &style
	}

	account, err := h.profiles.UpdateLearning(c.Request.Context(), accountID, update)
	h.respond(c, account, err, "failed to update learning profile")
}

// AddSkill records a new skill.
func (h *ProfileHandler) AddSkill(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req SkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "name and level are required"))
		return
	}

	account, err := h.profiles.AddSkill(c.Request.Context(), accountID, req.Name, domain.SkillLevel(req.Level))
	if err != nil {
		h.respond(c, nil, err, "failed to add skill")
		return
	}

	c.JSON(http.StatusCreated, newAccountDetail(account))
}

// UpdateSkill changes the level of an existing skill.
func (h *ProfileHandler) UpdateSkill(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req struct {
		Level string `json:"level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "level is required"))
		return
	}

	account, err := h.profiles.UpdateSkill(c.Request.Context(), accountID, c.Param("name"), domain.SkillLevel(req.Level))
	h.respond(c, account, err, "failed to update skill")
}

// RemoveSkill deletes a skill by name.
func (h *ProfileHandler) RemoveSkill(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	account, err := h.profiles.RemoveSkill(c.Request.Context(), accountID, c.Param("name"))
	h.respond(c, account, err, "failed to remove skill")
}

// AddGoal creates a learning goal.
func (h *ProfileHandler) AddGoal(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req GoalCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "title is required"))
		return
	}

	account, goalID, err := h.profiles.AddGoal(c.Request.Context(), accountID, usecase.GoalInput{
		Title:       req.Title,
		Description: req.Description,
		TargetDate:  req.TargetDate,
	})
	if err != nil {
		h.respond(c, nil, err, "failed to add goal")
		return
	}

	c.JSON(http.StatusCreated, GoalCreateResponse{
		GoalID:  goalID,
		Profile: newAccountDetail(account),
	})
}

// UpdateGoal applies partial goal changes.
func (h *ProfileHandler) UpdateGoal(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req GoalUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid goal payload"))
		return
	}

	update := usecase.GoalUpdate{
		Title:       req.Title,
		Description: req.Description,
		TargetDate:  req.TargetDate,
	}
	if req.Status != nil {
		status := domain.GoalStatus(*req.Status)
		update.Status = &status
	}

	account, err := h.profiles.UpdateGoal(c.Request.Context(), accountID, c.Param("id"), update)
	h.respond(c, account, err, "failed to update goal")
}

// RemoveGoal deletes a goal by id.
func (h *ProfileHandler) RemoveGoal(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	account, err := h.profiles.RemoveGoal(c.Request.Context(), accountID, c.Param("id"))
	h.respond(c, account, err, "failed to remove goal")
}

func (h *ProfileHandler) respond(c *gin.Context, account *domain.Account, err error, fallback string) {
	if err != nil {
		var fieldErr *domain.FieldError
		if errors.As(err, &fieldErr) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, fieldErr.Error()))
			return
		}
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrSkillExists, Status: http.StatusConflict, Message: "skill already exists"},
			{Err: usecase.ErrSkillNotFound, Status: http.StatusNotFound, Message: "skill not found"},
			{Err: usecase.ErrGoalNotFound, Status: http.StatusNotFound, Message: "goal not found"},
		}, http.StatusInternalServerError, fallback)
		return
	}

	c.JSON(http.StatusOK, newAccountDetail(account))
}
