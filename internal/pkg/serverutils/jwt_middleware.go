// FILE: internal/pkg/serverutils/jwt_middleware.go
package serverutils

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	LocalUserID = "user_id"
	LocalEmail  = "email"
)

// NewJwtMiddleware verifies HMAC-signed bearer tokens issued by the identity
// provider and stores the (user_id, email) principal in ctx.Locals.
func NewJwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get("Authorization")
		if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse("Missing token", "UNAUTHORIZED", nil))
		}
		tokenStr := authHeader[7:]

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})

		if err != nil || !token.Valid {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse("Invalid token", "UNAUTHORIZED", nil))
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse("Invalid claims", "UNAUTHORIZED", nil))
		}

		userId, _ := claims["user_id"].(string)
		if userId == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse("Invalid claims", "UNAUTHORIZED", nil))
		}
		email, _ := claims["email"].(string)

		ctx.Locals(LocalUserID, userId)
		ctx.Locals(LocalEmail, email)
		return ctx.Next()
	}
}

// CurrentUserID returns the authenticated user id set by NewJwtMiddleware.
func CurrentUserID(ctx *fiber.Ctx) (string, error) {
	userId, ok := ctx.Locals(LocalUserID).(string)
	if !ok || userId == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Missing principal")
	}
	return userId, nil
}
