package handlers

import (
	"time"

	"bms/internal/service"
	"bms/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type createMeetingRequest struct {
	Title        string    `json:"title" validate:"required,max=200"`
	StartTime    time.Time `json:"start_time" validate:"required"`
	EndTime      time.Time `json:"end_time" validate:"required"`
	Participants []int     `json:"participants" validate:"dive,gt=0"`
}

type updateMeetingRequest struct {
	Title        *string    `json:"title" validate:"omitempty,min=1,max=200"`
	StartTime    *time.Time `json:"start_time"`
	EndTime      *time.Time `json:"end_time"`
	Participants []int      `json:"participants" validate:"omitempty,dive,gt=0"`
}

func (h *Handler) ListMeetings(c *fiber.Ctx) error {
	meetings, err := h.Meetings.List(c.UserContext(), actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "Meetings retrieved successfully", meetings)
}

func (h *Handler) GetMeeting(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	meeting, err := h.Meetings.Get(c.UserContext(), actor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "Meeting retrieved successfully", meeting)
}

func (h *Handler) CreateMeeting(c *fiber.Ctx) error {
	var req createMeetingRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	meeting, err := h.Meetings.Create(c.UserContext(), actor(c), service.MeetingInput{
		Title:        req.Title,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Participants: req.Participants,
	})
	if err != nil {
		return respondError(c, err)
	}

	logger.AuditLogger.Info("Meeting created", zap.Int("meeting_id", meeting.ID), zap.Ints("participants", meeting.Participants))
	return respond(c, fiber.StatusCreated, "Meeting created successfully", meeting)
}

func (h *Handler) UpdateMeeting(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req updateMeetingRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	meeting, err := h.Meetings.Update(c.UserContext(), actor(c), id, service.MeetingUpdate{
		Title:        req.Title,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Participants: req.Participants,
	})
	if err != nil {
		return respondError(c, err)
	}

	logger.AuditLogger.Info("Meeting updated", zap.Int("meeting_id", id))
	return respond(c, fiber.StatusOK, "Meeting updated successfully", meeting)
}

func (h *Handler) DeleteMeeting(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := h.Meetings.Delete(c.UserContext(), actor(c), id); err != nil {
		return respondError(c, err)
	}

	logger.AuditLogger.Info("Meeting deleted", zap.Int("meeting_id", id))
	return c.SendStatus(fiber.StatusNoContent)
}
