package handlers

import (
	"bms/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email,max=320"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// Register membuat user baru dengan role user.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	user, err := h.Auth.Register(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	logger.AuditLogger.Info("User registered", zap.Int("user_id", user.ID))
	return respond(c, fiber.StatusCreated, "User registered successfully", user)
}

// Login memeriksa kredensial dan mengembalikan JWT.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	token, user, err := h.Auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	logger.AuditLogger.Info("User logged in", zap.Int("user_id", user.ID))
	return respond(c, fiber.StatusOK, "Login successful", fiber.Map{
		"token": token,
		"user":  user,
	})
}
