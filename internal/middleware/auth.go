package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ugcstudio/api/internal/auth"
	"github.com/ugcstudio/api/pkg/response"
)

const (
	sessionKey         = "session"
	sessionRejectedKey = "session_rejected"
)

// InvalidTokenMessage is returned when an action needs a session and the
// presented token did not verify.
const InvalidTokenMessage = "Invalid or expired token"

// AuthMiddleware verifies session tokens issued by the validate action
type AuthMiddleware struct {
	jwtSecret string
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{jwtSecret: jwtSecret}
}

// Session validates a Bearer token when one is present. Requests without a
// usable token pass through and authenticate by password instead; a token
// that fails to verify is only remembered so handlers can report it.
func (m *AuthMiddleware) Session() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Next()
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return response.Unauthorized(c, "Invalid authorization header format")
		}

		claims, err := auth.ValidateSessionToken(parts[1], m.jwtSecret)
		if err != nil {
			c.Locals(sessionRejectedKey, true)
			return c.Next()
		}

		c.Locals(sessionKey, claims)
		return c.Next()
	}
}

// GetSession returns the verified session claims, or nil.
func GetSession(c *fiber.Ctx) *auth.SessionClaims {
	if claims, ok := c.Locals(sessionKey).(*auth.SessionClaims); ok {
		return claims
	}
	return nil
}

// SessionRejected reports whether the request carried a token that failed
// verification.
func SessionRejected(c *fiber.Ctx) bool {
	rejected, _ := c.Locals(sessionRejectedKey).(bool)
	return rejected
}
