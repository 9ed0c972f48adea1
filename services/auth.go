package services

import (
	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/usmle-trivia/quiz_api/shared"
)

// AuthService owns the bearer-token middleware. Identity (registration,
// credentials) lives with an external collaborator; this service only
// verifies tokens it issued or that share the signing secret.
type AuthService struct {
	context.DefaultService

	jwtSvc *JWTService
}

const AUTH_SVC = "auth_svc"

func (svc AuthService) Id() string {
	return AUTH_SVC
}

func (svc *AuthService) Configure(ctx *context.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *AuthService) Start() error {
	svc.jwtSvc = svc.Service(JWT_SVC).(*JWTService)
	return nil
}

// RequiredAuth rejects requests without a valid bearer token and stashes the
// caller's user id in locals under shared.UserID.
func (svc *AuthService) RequiredAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := svc.jwtSvc.ExtractTokenFromHeader(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return shared.NewUnauthorizedError(err, "Unauthorized")
		}

		userID, err := svc.jwtSvc.VerifyJWTToken(token)
		if err != nil {
			return shared.NewUnauthorizedError(err, "Unauthorized")
		}

		c.Locals(shared.UserID, userID)
		return c.Next()
	}
}

// OptionalAuth stashes the caller's user id when a valid bearer token is
// present and lets the request through either way.
func (svc *AuthService) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := svc.jwtSvc.ExtractTokenFromHeader(c.Get(fiber.HeaderAuthorization))
		if err == nil {
			if userID, err := svc.jwtSvc.VerifyJWTToken(token); err == nil {
				c.Locals(shared.UserID, userID)
			}
		}
		return c.Next()
	}
}
