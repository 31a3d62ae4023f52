package delivery

import (
	"net/http"
	"strings"

	authdomain "autosend-backend/internal/auth/domain"
	"autosend-backend/internal/auth/usecase"

	"github.com/gin-gonic/gin"
)

func AuthMiddleware(tokenUsecase usecase.TokenUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authenticate(c, tokenUsecase) == nil {
			return
		}
		c.Next()
	}
}

// AdminMiddleware is AuthMiddleware restricted to the admin role
func AdminMiddleware(tokenUsecase usecase.TokenUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := authenticate(c, tokenUsecase)
		if principal == nil {
			return
		}
		if !principal.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// authenticate validates the bearer token, storing the principal on success
// and aborting with 401 otherwise
func authenticate(c *gin.Context, tokenUsecase usecase.TokenUsecase) *authdomain.Principal {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
		c.Abort()
		return nil
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
		c.Abort()
		return nil
	}

	principal, err := tokenUsecase.ValidateToken(parts[1])
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		c.Abort()
		return nil
	}

	c.Set("principal", principal)
	c.Set("userID", principal.UserID)
	return principal
}
