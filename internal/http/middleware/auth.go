package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MaezenDigital/Enemamar-backend/internal/domain"
	"github.com/MaezenDigital/Enemamar-backend/internal/jwt"
)

const identityKey = "identity"

// Identity is the authenticated caller attached to the request.
type Identity struct {
	UserID int64
	Role   string
	Email  string
	Phone  string
}

// Auth validates Authorization headers and attaches the caller identity.
type Auth struct {
	JWT *jwt.Generator
}

// RequireAuth ensures the request carries a valid bearer token.
func (m *Auth) RequireAuth(c *gin.Context) {
	identity, ok := m.resolve(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Valid bearer token required."})
		return
	}
	c.Set(identityKey, identity)
	c.Next()
}

// RequireRole ensures the caller is authenticated and holds one of the
// given roles. Authentication failures are 401; role failures are 403.
func (m *Auth) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			identity, ok = m.resolve(c)
			if !ok {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Valid bearer token required."})
				return
			}
			c.Set(identityKey, identity)
		}
		for _, role := range roles {
			if identity.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "error_description": "Insufficient role."})
	}
}

// RequireAdmin allows admins only.
func (m *Auth) RequireAdmin() gin.HandlerFunc {
	return m.RequireRole(domain.RoleAdmin)
}

// RequireAdminOrInstructor allows admins and instructors.
func (m *Auth) RequireAdminOrInstructor() gin.HandlerFunc {
	return m.RequireRole(domain.RoleAdmin, domain.RoleInstructor)
}

// OptionalAuth attaches the identity when a valid token is present and
// lets every request through regardless.
func (m *Auth) OptionalAuth(c *gin.Context) {
	if identity, ok := m.resolve(c); ok {
		c.Set(identityKey, identity)
	}
	c.Next()
}

func (m *Auth) resolve(c *gin.Context) (Identity, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return Identity{}, false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return Identity{}, false
	}
	std, custom, err := m.JWT.ValidateAccessToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return Identity{}, false
	}
	userID, err := jwt.Subject(std)
	if err != nil {
		return Identity{}, false
	}
	return Identity{
		UserID: userID,
		Role:   custom.Role,
		Email:  custom.Email,
		Phone:  custom.Phone,
	}, true
}

// GetIdentity exposes the authenticated caller to handlers.
func GetIdentity(c *gin.Context) (Identity, bool) {
	value, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	identity, ok := value.(Identity)
	return identity, ok
}
