package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/qss-platform/resident-service/pkg/util"
)

const claimsContextKey = "auth_claims"

// RequireToken guards dashboard routes with a bearer token check.
func RequireToken(tokens *TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return util.NewUnauthorized("missing authorization header")
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return util.NewUnauthorized("malformed authorization header")
		}
		claims, err := tokens.Verify(parts[1])
		if err != nil {
			return util.NewUnauthorized(err.Error())
		}
		c.Locals(claimsContextKey, claims)
		return c.Next()
	}
}

// ClaimsFromContext returns the verified claims set by RequireToken.
func ClaimsFromContext(c *fiber.Ctx) (*Claims, bool) {
	claims, ok := c.Locals(claimsContextKey).(*Claims)
	return claims, ok
}
