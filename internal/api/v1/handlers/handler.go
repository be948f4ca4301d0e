package handlers

import (
	"context"
	"errors"
	"strings"

	"bms/internal/apperr"
	"bms/internal/config"
	"bms/internal/metrics"
	"bms/internal/models"
	"bms/internal/repository"
	"bms/internal/service"
	"bms/pkg/logger"

	"github.com/getsentry/sentry-go"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuthService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
}

type TeamService interface {
	Create(ctx context.Context, actor models.User, name string) (*models.Team, error)
	Get(ctx context.Context, actor models.User, teamID int) (*models.Team, error)
	AddMember(ctx context.Context, actor models.User, teamID, userID int) error
	RemoveMember(ctx context.Context, actor models.User, teamID, userID int) error
	UpdateMemberRole(ctx context.Context, actor models.User, teamID, userID int, role models.Role) error
}

type TaskService interface {
	List(ctx context.Context, actor models.User) ([]models.Task, error)
	Create(ctx context.Context, actor models.User, in service.TaskInput) (*models.Task, error)
	Get(ctx context.Context, actor models.User, id int) (*models.Task, error)
	Update(ctx context.Context, actor models.User, id int, upd repository.TaskUpdate) (*models.Task, error)
	Delete(ctx context.Context, actor models.User, id int) error
	AddComment(ctx context.Context, actor models.User, taskID int, text string) (*models.Comment, error)
	ListComments(ctx context.Context, actor models.User, taskID int) ([]models.Comment, error)
	AddEvaluation(ctx context.Context, actor models.User, taskID, score int) (*models.Evaluation, error)
	ListEvaluations(ctx context.Context, actor models.User, taskID int) ([]models.Evaluation, error)
}

type MeetingService interface {
	List(ctx context.Context, actor models.User) ([]models.Meeting, error)
	Get(ctx context.Context, actor models.User, id int) (*models.Meeting, error)
	Create(ctx context.Context, actor models.User, in service.MeetingInput) (*models.Meeting, error)
	Update(ctx context.Context, actor models.User, id int, upd service.MeetingUpdate) (*models.Meeting, error)
	Delete(ctx context.Context, actor models.User, id int) error
}

type ProfileService interface {
	Update(ctx context.Context, actor models.User, in service.ProfileInput) (*models.User, error)
	Delete(ctx context.Context, actor models.User) error
	JoinByCode(ctx context.Context, actor models.User, code string) (string, error)
	AverageEvaluation(ctx context.Context, actor models.User, from, to string) (*float64, error)
}

type CalendarService interface {
	Daily(ctx context.Context, teamID *int, userID int, date string) (string, error)
	Monthly(ctx context.Context, teamID *int, userID, year, month int) (string, error)
}

// Handler mengumpulkan semua use case yang dipanggil oleh route API v1.
type Handler struct {
	Auth     AuthService
	Teams    TeamService
	Tasks    TaskService
	Meetings MeetingService
	Profile  ProfileService
	Calendar CalendarService
}

// actor mengambil user yang sudah dimuat oleh middleware.UseToken.
func actor(c *fiber.Ctx) models.User {
	if u, ok := c.Locals("user").(*models.User); ok && u != nil {
		return *u
	}
	return models.User{}
}

func respond(c *fiber.Ctx, status int, message string, data interface{}) error {
	body := fiber.Map{
		"message": message,
		"success": status < 400,
		"status":  status,
	}
	if data != nil {
		body["data"] = data
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, message string) error {
	return respond(c, fiber.StatusBadRequest, message, nil)
}

// respondError memetakan error dari service ke status HTTP.
func respondError(c *fiber.Ctx, err error) error {
	var (
		validationErr *apperr.ValidationError
		conflictErr   *apperr.ConflictError
		forbiddenErr  *apperr.ForbiddenError
		notFoundErr   *apperr.NotFoundError
	)
	switch {
	case errors.As(err, &validationErr):
		return badRequest(c, validationErr.Message)
	case errors.As(err, &conflictErr):
		if len(conflictErr.BusyUserIDs) > 0 {
			return respond(c, fiber.StatusBadRequest, conflictErr.Message, fiber.Map{"busy_user_ids": conflictErr.BusyUserIDs})
		}
		return badRequest(c, conflictErr.Message)
	case errors.As(err, &forbiddenErr):
		metrics.PolicyDenials.WithLabelValues(routePath(c)).Inc()
		logger.SecurityLogger.Warn("Policy denial",
			zap.Int("user_id", actor(c).ID),
			zap.String("path", c.Path()),
			zap.String("reason", forbiddenErr.Reason),
		)
		return respond(c, fiber.StatusForbidden, forbiddenErr.Reason, nil)
	case errors.As(err, &notFoundErr):
		return respond(c, fiber.StatusNotFound, notFoundErr.Message, nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		logger.SecurityLogger.Warn("Failed login", zap.String("ip", c.IP()))
		return respond(c, fiber.StatusUnauthorized, "Invalid email or password", nil)
	}

	logger.ErrorLogger.Error("Unhandled error",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Any("request_id", c.Locals("requestID")),
		zap.Error(err),
	)
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("path", c.Path())
		if id, ok := c.Locals("requestID").(string); ok {
			scope.SetTag("request_id", id)
		}
		sentry.CaptureException(err)
	})
	return respond(c, fiber.StatusInternalServerError, "Internal server error", nil)
}

func routePath(c *fiber.Ctx) string {
	if r := c.Route(); r != nil && r.Path != "" {
		return r.Path
	}
	return c.Path()
}

// parseBody membaca JSON body lalu memvalidasinya.
func parseBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.Validation("Bad request")
	}
	if msg := validateStruct(dst); msg != "" {
		return apperr.Validation(msg)
	}
	return nil
}

// validateStruct mengembalikan pesan validasi yang bisa dibaca, atau ""
// jika valid.
func validateStruct(s interface{}) string {
	err := config.Validate.Struct(s)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	var msgs []string
	for _, fe := range verrs {
		field := fe.Field()
		param := fe.Param()
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min":
			msgs = append(msgs, field+" must be at least "+param)
		case "max":
			msgs = append(msgs, field+" must be at most "+param)
		case "email":
			msgs = append(msgs, field+" must be a valid email")
		case "len":
			msgs = append(msgs, field+" must be exactly "+param+" characters")
		case "oneof":
			msgs = append(msgs, field+" must be one of: "+param)
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

// paramID membaca parameter path bertipe int positif.
func paramID(c *fiber.Ctx, name string) (int, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("Invalid " + name)
	}
	return id, nil
}
