package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MaezenDigital/Enemamar-backend/internal/http/middleware"
	"github.com/MaezenDigital/Enemamar-backend/internal/service"
)

// UserHandler exposes profile and administrative user endpoints.
type UserHandler struct {
	Users *service.UserService
}

// NewUserHandler wires dependencies.
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{Users: users}
}

func (h *UserHandler) Me(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Authentication required."})
		return
	}
	user, err := h.Users.Get(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": service.NewUserViewModel(user)})
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Authentication required."})
		return
	}
	var req struct {
		Username  *string `json:"username"`
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
		Email     *string `json:"email"`
		AvatarURL *string `json:"avatar_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c)
		return
	}

	user, err := h.Users.UpdateProfile(c.Request.Context(), identity.UserID, service.ProfileUpdate{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Profile updated.", "data": service.NewUserViewModel(user)})
}

func (h *UserHandler) List(c *gin.Context) {
	params := listParams(c)
	var isActive *bool
	if raw := c.Query("is_active"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "is_active must be true or false."})
			return
		}
		isActive = &parsed
	}

	users, total, err := h.Users.List(c.Request.Context(), params, c.Query("role"), isActive)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, service.NewUserViewModels(users), total, params)
}

func (h *UserHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

func (h *UserHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *UserHandler) setActive(c *gin.Context, active bool) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Users.SetActive(c.Request.Context(), userID, active); err != nil {
		respondError(c, err)
		return
	}
	detail := "User activated."
	if !active {
		detail = "User deactivated."
	}
	c.JSON(http.StatusOK, gin.H{"detail": detail})
}

func (h *UserHandler) UpdateRole(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Role string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c)
		return
	}
	if err := h.Users.UpdateRole(c.Request.Context(), userID, req.Role); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Role updated."})
}

func (h *UserHandler) Delete(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Users.Delete(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "User deleted."})
}
