package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MaezenDigital/Enemamar-backend/internal/service"
)

// AuthHandler exposes signup, login and credential recovery endpoints.
type AuthHandler struct {
	Auth *service.AuthService
}

// NewAuthHandler wires dependencies.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req struct {
		Username  string `json:"username"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		Phone     string `json:"phone_number"`
		Password  string `json:"password"`
		Role      string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c)
		return
	}
	if strings.TrimSpace(req.Phone) == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Phone number and password are required."})
		return
	}

	user, err := h.Auth.Signup(c.Request.Context(), service.SignupInput{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Password:  req.Password,
		Role:      req.Role,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"detail": "Account created. Verify your phone number with the code we sent.",
		"data":   service.NewUserViewModel(user),
	})
}

func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req struct {
		Phone string `json:"phone_number"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c)
		return
	}
	if err := h.Auth.SendOTP(c.Request.Context(), req.Phone); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Verification code sent."})
}

func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req struct {
		Phone string `json:"phone_number"`
		Code  string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c)
		return
	}
	tokens, err := h.Auth.VerifyOTP(c.Request.Context(), req.Phone, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Account verified.", "data": tokens})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Phone    string `json:"phone_number"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c)
		return
	}
	identifier := strings.TrimSpace(req.Email)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Phone)
	}
	if identifier == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Email or phone number plus password are required."})
		return
	}

	tokens, err := h.Auth.Login(c.Request.Context(), identifier, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Logged in.", "data": tokens})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	token := refreshTokenFrom(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_grant", "error_description": "Refresh token missing."})
		return
	}
	tokens, err := h.Auth.Refresh(c.Request.Context(), token)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Token refreshed.", "data": tokens})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.Auth.Logout(c.Request.Context(), refreshTokenFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Logged out."})
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Phone string `json:"phone_number"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c)
		return
	}
	if err := h.Auth.ForgotPassword(c.Request.Context(), req.Phone); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Reset code sent."})
}

func (h *AuthHandler) VerifyResetOTP(c *gin.Context) {
	var req struct {
		Phone string `json:"phone_number"`
		Code  string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c)
		return
	}
	resetToken, err := h.Auth.VerifyResetOTP(c.Request.Context(), req.Phone, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Code verified.", "data": gin.H{"reset_token": resetToken}})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		ResetToken string `json:"reset_token"`
		Password   string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c)
		return
	}
	if err := h.Auth.ResetPassword(c.Request.Context(), req.ResetToken, req.Password); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Password updated."})
}

// refreshTokenFrom accepts the refresh token from the Refresh-Token
// header or the request body.
func refreshTokenFrom(c *gin.Context) string {
	if header := strings.TrimSpace(c.GetHeader("Refresh-Token")); header != "" {
		return header
	}
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		return ""
	}
	return strings.TrimSpace(req.RefreshToken)
}
