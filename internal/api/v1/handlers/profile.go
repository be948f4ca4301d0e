package handlers

import (
	"bms/internal/service"
	"bms/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// updateProfileRequest hanya berisi field yang boleh diubah sendiri.
type updateProfileRequest struct {
	Email    *string `json:"email" validate:"omitempty,email,max=320"`
	Password *string `json:"password" validate:"omitempty,min=6,max=72"`
}

type joinByCodeRequest struct {
	Code string `json:"code" validate:"required,len=8"`
}

func (h *Handler) GetProfile(c *fiber.Ctx) error {
	u := actor(c)
	return respond(c, fiber.StatusOK, "Profile retrieved successfully", u)
}

func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	user, err := h.Profile.Update(c.UserContext(), actor(c), service.ProfileInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, err)
	}

	logger.AuditLogger.Info("Profile updated", zap.Int("user_id", user.ID))
	return respond(c, fiber.StatusOK, "Profile updated successfully", user)
}

func (h *Handler) DeleteProfile(c *fiber.Ctx) error {
	u := actor(c)
	if err := h.Profile.Delete(c.UserContext(), u); err != nil {
		return respondError(c, err)
	}

	logger.AuditLogger.Info("Profile deleted", zap.Int("user_id", u.ID))
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) JoinByCode(c *fiber.Ctx) error {
	var req joinByCodeRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	msg, err := h.Profile.JoinByCode(c.UserContext(), actor(c), req.Code)
	if err != nil {
		return respondError(c, err)
	}

	logger.AuditLogger.Info("User joined team by code", zap.Int("user_id", actor(c).ID))
	return respond(c, fiber.StatusOK, msg, nil)
}

func (h *Handler) AverageEvaluation(c *fiber.Ctx) error {
	avg, err := h.Profile.AverageEvaluation(c.UserContext(), actor(c), c.Query("from"), c.Query("to"))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "Average evaluation calculated", fiber.Map{"average_score": avg})
}
