package testutil

import (
	"strings"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"

	"github.com/bits-his/nibbes-api/middleware"
)

// MockValidatedClaims builds the validated-claims payload the Auth0
// middleware would produce for a token carrying the given role and scopes
func MockValidatedClaims(subject, role string, scopes []string) *validator.ValidatedClaims {
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Subject: subject,
		},
		CustomClaims: &middleware.CustomClaims{
			Scope: strings.Join(scopes, " "),
			Role:  role,
		},
	}
}

// MockAuthMiddleware simulates EnsureValidToken, setting up the request
// context exactly as the real middleware does for an authenticated user
func MockAuthMiddleware(auth0ID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", auth0ID)
		c.Set("access_token", "mock-token")
		c.Set("validated_claims", MockValidatedClaims(auth0ID, role, nil))
		c.Next()
	}
}
