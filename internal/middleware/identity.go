package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// UserIDHeader carries the authenticated caller's id, set by the edge proxy
	UserIDHeader = "X-User-ID"

	// UserIDKey is the key used to store the caller id in the context
	UserIDKey = "user_id"
)

// Identity extracts the caller id from the request header. Requests without a
// valid id are rejected before any handler runs; this service trusts the edge
// to authenticate and only needs to know who is acting.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(UserIDHeader)
		userID, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Missing or invalid " + UserIDHeader + " header",
				},
			})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// GetUserID retrieves the caller id stored by Identity
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	if v, exists := c.Get(UserIDKey); exists {
		if id, ok := v.(uuid.UUID); ok {
			return id, true
		}
	}
	return uuid.Nil, false
}
