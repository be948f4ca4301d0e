package handlers

import (
	"bms/internal/models"
	"bms/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type createTeamRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type addMemberRequest struct {
	UserID int `json:"user_id" validate:"required,gt=0"`
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=manager user"`
}

func (h *Handler) CreateTeam(c *fiber.Ctx) error {
	var req createTeamRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	team, err := h.Teams.Create(c.UserContext(), actor(c), req.Name)
	if err != nil {
		return respondError(c, err)
	}

	logger.AuditLogger.Info("Team created", zap.Int("team_id", team.ID), zap.Int("admin_id", team.AdminID))
	return respond(c, fiber.StatusCreated, "Team created successfully", team)
}

func (h *Handler) GetTeam(c *fiber.Ctx) error {
	teamID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	team, err := h.Teams.Get(c.UserContext(), actor(c), teamID)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "Team retrieved successfully", team)
}

func (h *Handler) AddTeamMember(c *fiber.Ctx) error {
	teamID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req addMemberRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	if err := h.Teams.AddMember(c.UserContext(), actor(c), teamID, req.UserID); err != nil {
		return respondError(c, err)
	}

	logger.AuditLogger.Info("Team member added", zap.Int("team_id", teamID), zap.Int("user_id", req.UserID))
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) RemoveTeamMember(c *fiber.Ctx) error {
	teamID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	userID, err := paramID(c, "userId")
	if err != nil {
		return respondError(c, err)
	}

	if err := h.Teams.RemoveMember(c.UserContext(), actor(c), teamID, userID); err != nil {
		return respondError(c, err)
	}

	logger.AuditLogger.Info("Team member removed", zap.Int("team_id", teamID), zap.Int("user_id", userID))
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) UpdateTeamMemberRole(c *fiber.Ctx) error {
	teamID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	userID, err := paramID(c, "userId")
	if err != nil {
		return respondError(c, err)
	}
	var req updateRoleRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	if err := h.Teams.UpdateMemberRole(c.UserContext(), actor(c), teamID, userID, models.Role(req.Role)); err != nil {
		return respondError(c, err)
	}

	logger.AuditLogger.Info("Team member role updated",
		zap.Int("team_id", teamID),
		zap.Int("user_id", userID),
		zap.String("role", req.Role),
	)
	return c.SendStatus(fiber.StatusNoContent)
}
