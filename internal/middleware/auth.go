package middleware

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bms/internal/models"
	"bms/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

// UserLookup memuat user dari token. Diimplementasikan oleh
// repository.UserRepository.
type UserLookup interface {
	GetByID(ctx context.Context, id int) (*models.User, error)
}

func unauthorized(c *fiber.Ctx, message string) error {
	logger.SecurityLogger.Warn("Unauthorized request",
		zap.String("reason", message),
		zap.String("path", c.Path()),
		zap.String("ip", c.IP()),
	)
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": message,
		"success": false,
		"status":  fiber.StatusUnauthorized,
	})
}

// UseToken memvalidasi Bearer token lalu menyimpan userID, role dan user
// aktif ke c.Locals. Untuk upgrade WebSocket token boleh dikirim lewat
// query ?token=.
func UseToken(secret []byte, users UserLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Query("token")
		if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return unauthorized(c, "Invalid token format")
			}
			raw = parts[1]
		}
		if raw == "" {
			return unauthorized(c, "No token provided")
		}

		token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			return unauthorized(c, "Invalid token")
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return unauthorized(c, "Invalid token claims")
		}
		if exp, ok := claims["exp"].(float64); !ok || int64(exp) < time.Now().Unix() {
			return unauthorized(c, "Token expired")
		}
		userID, ok := claims["user_id"].(float64)
		if !ok {
			return unauthorized(c, "Invalid user ID in token")
		}

		// Role diambil dari database, bukan dari token, supaya perubahan
		// role langsung berlaku.
		user, err := users.GetByID(c.UserContext(), int(userID))
		if err != nil || !user.IsActive {
			return unauthorized(c, "User not found or inactive")
		}

		c.Locals("userID", user.ID)
		c.Locals("role", string(user.Role))
		c.Locals("user", user)
		return c.Next()
	}
}
