package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// ResidentIDHeader identifies the calling resident. Identity is
	// established upstream; this service trusts the header.
	ResidentIDHeader = "X-Resident-ID"

	// ResidentRoleHeader carries the caller's role
	ResidentRoleHeader = "X-Resident-Role"

	// ResidentIDKey is the key used to store the resident ID in the context
	ResidentIDKey = "resident_id"

	// ResidentRoleKey is the key used to store the role in the context
	ResidentRoleKey = "resident_role"

	// RoleAdmin marks callers allowed on admin routes
	RoleAdmin = "admin"
)

// Principal middleware extracts the caller's identity headers into the
// context. Requests without a valid resident ID are rejected.
func Principal() gin.HandlerFunc {
	return func(c *gin.Context) {
		idHeader := c.GetHeader(ResidentIDHeader)
		if idHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "UNAUTHORIZED", "message": "Missing " + ResidentIDHeader + " header"},
			})
			return
		}

		residentID, err := uuid.Parse(idHeader)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "UNAUTHORIZED", "message": "Invalid " + ResidentIDHeader + " header"},
			})
			return
		}

		c.Set(ResidentIDKey, residentID)
		c.Set(ResidentRoleKey, c.GetHeader(ResidentRoleHeader))

		c.Next()
	}
}

// RequireAdmin rejects callers whose role is not admin
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetResidentRole(c) != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{"code": "FORBIDDEN", "message": "Admin role required"},
			})
			return
		}
		c.Next()
	}
}

// GetResidentID retrieves the authenticated resident ID from the gin context
func GetResidentID(c *gin.Context) (uuid.UUID, bool) {
	if v, exists := c.Get(ResidentIDKey); exists {
		if id, ok := v.(uuid.UUID); ok {
			return id, true
		}
	}
	return uuid.Nil, false
}

// GetResidentRole retrieves the caller's role from the gin context
func GetResidentRole(c *gin.Context) string {
	if v, exists := c.Get(ResidentRoleKey); exists {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}
