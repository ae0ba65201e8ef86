package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arovia-health/arovia-api/internal/auth"
	"github.com/arovia-health/arovia-api/internal/models"
	"github.com/arovia-health/arovia-api/internal/store"
)

const accountKey = "account"

// Auth validates the bearer token and resolves the account from the store on
// every request. Resolving fresh means a deleted account's token stops
// working immediately and a suspended account is rejected before its token
// expires.
func Auth(tokens *auth.Tokens, users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authorization header required"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		userID, err := tokens.Verify(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token is not valid"})
			return
		}

		id, err := primitive.ObjectIDFromHex(userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token is not valid"})
			return
		}

		account, err := users.FindByID(c.Request.Context(), id)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Account no longer exists"})
			return
		}
		if !account.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Account is suspended"})
			return
		}

		c.Set(accountKey, account)
		c.Next()
	}
}

// RequireRole gates a route on the stored role of the resolved account, not
// on anything embedded in the token.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		account := CurrentUser(c)
		if account == nil || account.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Access denied"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the account resolved by Auth, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(accountKey)
	if !ok {
		return nil
	}
	account, _ := v.(*models.User)
	return account
}
