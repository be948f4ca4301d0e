package handlers

import (
	"time"

	"bms/internal/models"
	"bms/internal/repository"
	"bms/internal/service"
	"bms/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Task handlers

type createTaskRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description *string    `json:"description"`
	Status      string     `json:"status" validate:"omitempty,oneof=open in_progress done"`
	AssigneeID  int        `json:"assignee_id" validate:"required,gt=0"`
	Deadline    *time.Time `json:"deadline"`
}

// updateTaskRequest: field yang tidak dikirim tidak diubah.
type updateTaskRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description"`
	Status      *string    `json:"status" validate:"omitempty,oneof=open in_progress done"`
	AssigneeID  *int       `json:"assignee_id" validate:"omitempty,gt=0"`
	Deadline    *time.Time `json:"deadline"`
}

type commentRequest struct {
	Text string `json:"text" validate:"required"`
}

type evaluationRequest struct {
	Score int `json:"score" validate:"required,min=1,max=5"`
}

func (h *Handler) ListTasks(c *fiber.Ctx) error {
	tasks, err := h.Tasks.List(c.UserContext(), actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "Tasks retrieved successfully", tasks)
}

func (h *Handler) CreateTask(c *fiber.Ctx) error {
	var req createTaskRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	task, err := h.Tasks.Create(c.UserContext(), actor(c), service.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Deadline:    req.Deadline,
		AssigneeID:  req.AssigneeID,
		Status:      models.TaskStatus(req.Status),
	})
	if err != nil {
		return respondError(c, err)
	}

	logger.AuditLogger.Info("Task created successfully", zap.Int("task_id", task.ID))
	return respond(c, fiber.StatusCreated, "Task created successfully", task)
}

func (h *Handler) GetTask(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	task, err := h.Tasks.Get(c.UserContext(), actor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "Task retrieved successfully", task)
}

func (h *Handler) UpdateTask(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req updateTaskRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	upd := repository.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
		Deadline:    req.Deadline,
	}
	if req.Status != nil {
		status := models.TaskStatus(*req.Status)
		upd.Status = &status
	}

	task, err := h.Tasks.Update(c.UserContext(), actor(c), id, upd)
	if err != nil {
		return respondError(c, err)
	}

	logger.AuditLogger.Info("Task updated successfully", zap.Int("task_id", id))
	return respond(c, fiber.StatusOK, "Task updated successfully", task)
}

func (h *Handler) DeleteTask(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := h.Tasks.Delete(c.UserContext(), actor(c), id); err != nil {
		return respondError(c, err)
	}

	logger.AuditLogger.Info("Task deleted successfully", zap.Int("task_id", id))
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) AddComment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req commentRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	comment, err := h.Tasks.AddComment(c.UserContext(), actor(c), id, req.Text)
	if err != nil {
		return respondError(c, err)
	}

	logger.AuditLogger.Info("Comment added", zap.Int("task_id", id), zap.Int("comment_id", comment.ID))
	return respond(c, fiber.StatusCreated, "Comment added successfully", comment)
}

func (h *Handler) ListComments(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	comments, err := h.Tasks.ListComments(c.UserContext(), actor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "Comments retrieved successfully", comments)
}

func (h *Handler) AddEvaluation(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req evaluationRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	evaluation, err := h.Tasks.AddEvaluation(c.UserContext(), actor(c), id, req.Score)
	if err != nil {
		return respondError(c, err)
	}

	logger.AuditLogger.Info("Evaluation added", zap.Int("task_id", id), zap.Int("score", req.Score))
	return respond(c, fiber.StatusCreated, "Evaluation added successfully", evaluation)
}

func (h *Handler) ListEvaluations(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	evaluations, err := h.Tasks.ListEvaluations(c.UserContext(), actor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "Evaluations retrieved successfully", evaluations)
}
