package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/qaboard/qa-service/internal/domain"
	apperrors "github.com/qaboard/qa-service/pkg/util/errorutil"
)

const identityKey = "auth_identity"

// Authenticate resolves the caller from the raw credential header value. An empty value
// means the client sent no credential.
func Authenticate(rawHeader string, provider TokenProvider) (domain.Identity, error) {
	if strings.TrimSpace(rawHeader) == "" {
		return domain.Identity{}, apperrors.AuthTokenMissingOrInvalid()
	}
	return provider.Validate(rawHeader)
}

// AuthMiddleware validates the credential header on protected routes.
type AuthMiddleware struct {
	tokens TokenProvider
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens TokenProvider) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle rejects the request unless it carries a valid token, then stores the identity
// for handlers.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	identity, err := Authenticate(c.Get(fiber.HeaderAuthorization), m.tokens)
	if err != nil {
		return err
	}
	c.Locals(identityKey, identity)
	return c.Next()
}

// IdentityFromContext retrieves the authenticated caller.
func IdentityFromContext(c *fiber.Ctx) (domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(domain.Identity)
	return identity, ok
}
