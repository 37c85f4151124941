package middleware

import (
	"ProjectIVR/internal/entity"
	jwtPkg "ProjectIVR/pkg/jwt"
	"os"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

type tokenMiddleware struct {
	warnOnce sync.Once
}

func newTokenMiddleware() *tokenMiddleware {
	return &tokenMiddleware{}
}

// NewTokenMiddleware guards admin routes. With no signing secret configured
// the routes are open, which is only meant for local development.
func (m *middleware) NewTokenMiddleware(ctx *fiber.Ctx) error {
	if os.Getenv(jwtPkg.AccessTokenSecret) == "" {
		m.token.warnOnce.Do(func() {
			m.log.Warn("JWT_ACCESS_TOKEN_SECRET is not set, admin routes are unauthenticated")
		})
		return ctx.Next()
	}

	authHeader := ctx.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		m.log.WithFields(logrus.Fields{
			"path":      ctx.Path(),
			"client_ip": ctx.IP(),
		}).Warn("Authorization header missing or malformed")
		return unauthorized(ctx)
	}

	token, err := jwtPkg.VerifyTokenHeader(ctx, jwtPkg.AccessTokenSecret)
	if err != nil {
		m.log.WithFields(logrus.Fields{
			"path":  ctx.Path(),
			"error": err.Error(),
		}).Warn("Token verification failed")
		return unauthorized(ctx)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return unauthorized(ctx)
	}

	id, _ := claims["id"].(string)
	email, _ := claims["email"].(string)
	username, _ := claims["username"].(string)
	if id == "" || username == "" {
		m.log.WithFields(logrus.Fields{
			"path": ctx.Path(),
		}).Warn("Token claims are missing required fields")
		return unauthorized(ctx)
	}

	ctx.Locals("operator", entity.Operator{
		ID:       id,
		Email:    email,
		Username: username,
	})

	m.log.WithFields(logrus.Fields{
		"operator": username,
		"path":     ctx.Path(),
	}).Debug("Authentication successful")
	return ctx.Next()
}

func unauthorized(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Unauthorized, access token invalid or expired",
	})
}
