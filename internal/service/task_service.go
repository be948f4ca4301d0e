package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"bms/internal/apperr"
	"bms/internal/models"
	"bms/internal/policy"
	"bms/internal/repository"
	"bms/pkg/logger"

	"go.uber.org/zap"
)

type TaskService struct {
	tasks TaskStore
	users UserStore
	cache TaskCache
}

// NewTaskService wires the task use cases. cache may be nil.
func NewTaskService(tasks TaskStore, users UserStore, cache TaskCache) *TaskService {
	return &TaskService{tasks: tasks, users: users, cache: cache}
}

type TaskInput struct {
	Title       string
	Description *string
	Deadline    *time.Time
	AssigneeID  int
	Status      models.TaskStatus
}

// List returns tasks the actor created or is assigned to. Users without
// a team get an empty list.
func (s *TaskService) List(ctx context.Context, actor models.User) ([]models.Task, error) {
	if actor.TeamID == nil {
		return []models.Task{}, nil
	}
	return s.tasks.ListForUser(ctx, actor.ID)
}

func (s *TaskService) Create(ctx context.Context, actor models.User, in TaskInput) (*models.Task, error) {
	if err := policy.CanCreateTask(actor); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = models.StatusOpen
	}
	if !in.Status.Valid() {
		return nil, apperr.Validation(msgBadStatus)
	}
	if err := s.requireUser(ctx, in.AssigneeID); err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Status:      in.Status,
		CreatorID:   actor.ID,
		AssigneeID:  &in.AssigneeID,
		Deadline:    utcPtr(in.Deadline),
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Get serves the task body from cache when possible. The team ids the
// access check reads are always taken from the user store, so membership
// changes apply immediately.
func (s *TaskService) Get(ctx context.Context, actor models.User, id int) (*models.Task, error) {
	task := s.cached(ctx, id)
	if task != nil {
		if err := s.refreshTeams(ctx, task); err != nil {
			return nil, err
		}
	} else {
		var err error
		task, err = s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, task); err != nil {
				logger.ErrorLogger.Error("Error caching task", zap.Int("task_id", id), zap.Error(err))
			}
		}
	}
	if err := policy.CanViewTask(actor, *task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) Update(ctx context.Context, actor models.User, id int, upd repository.TaskUpdate) (*models.Task, error) {
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanUpdateTask(actor, *task); err != nil {
		return nil, err
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, apperr.Validation(msgBadStatus)
	}
	if upd.AssigneeID != nil {
		if err := s.requireUser(ctx, *upd.AssigneeID); err != nil {
			return nil, err
		}
	}
	upd.Deadline = utcPtr(upd.Deadline)

	updated, err := s.tasks.Update(ctx, id, upd)
	if err != nil {
		return nil, notFound(err, "task", msgTaskNotFound)
	}
	s.invalidate(ctx, id)
	return updated, nil
}

func (s *TaskService) Delete(ctx context.Context, actor models.User, id int) error {
	task, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.CanDeleteTask(actor, *task); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return notFound(err, "task", msgTaskNotFound)
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *TaskService) AddComment(ctx context.Context, actor models.User, taskID int, text string) (*models.Comment, error) {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanComment(actor, *task); err != nil {
		return nil, err
	}
	comment := &models.Comment{Text: text, AuthorID: &actor.ID, TaskID: taskID}
	if err := s.tasks.AddComment(ctx, comment); err != nil {
		return nil, err
	}
	s.invalidate(ctx, taskID)
	return comment, nil
}

func (s *TaskService) ListComments(ctx context.Context, actor models.User, taskID int) ([]models.Comment, error) {
	if _, err := s.Get(ctx, actor, taskID); err != nil {
		return nil, err
	}
	return s.tasks.ListComments(ctx, taskID)
}

// AddEvaluation enforces at most one evaluation per task. The existence
// check and the insert are separate steps; the unique index on task_id
// rejects a concurrent second insert with the same error.
func (s *TaskService) AddEvaluation(ctx context.Context, actor models.User, taskID, score int) (*models.Evaluation, error) {
	if score < 1 || score > 5 {
		return nil, apperr.Validation(msgBadScore)
	}
	task, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	exists, err := s.tasks.EvaluationExists(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanEvaluate(actor, *task, exists); err != nil {
		return nil, err
	}

	evaluation := &models.Evaluation{Score: score, EvaluatorID: &actor.ID, TaskID: taskID}
	if err := s.tasks.AddEvaluation(ctx, evaluation); err != nil {
		if isDuplicate(err, repository.ConstraintEvaluationTask) {
			return nil, apperr.Conflict(policy.ReasonEvaluated)
		}
		return nil, err
	}
	s.invalidate(ctx, taskID)
	return evaluation, nil
}

func (s *TaskService) ListEvaluations(ctx context.Context, actor models.User, taskID int) ([]models.Evaluation, error) {
	if _, err := s.Get(ctx, actor, taskID); err != nil {
		return nil, err
	}
	return s.tasks.ListEvaluations(ctx, taskID)
}

func (s *TaskService) load(ctx context.Context, id int) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "task", msgTaskNotFound)
	}
	return task, nil
}

// refreshTeams reloads the creator's and assignee's team ids for a cached
// task. A missing creator means the task went with it (ON DELETE CASCADE);
// a missing assignee was unset (ON DELETE SET NULL).
func (s *TaskService) refreshTeams(ctx context.Context, task *models.Task) error {
	creator, err := s.users.GetByID(ctx, task.CreatorID)
	if errors.Is(err, repository.ErrNotFound) {
		s.invalidate(ctx, task.ID)
		return apperr.NotFound("task", msgTaskNotFound)
	}
	if err != nil {
		return err
	}
	task.CreatorTeamID = creator.TeamID

	task.AssigneeTeamID = nil
	if task.AssigneeID == nil {
		return nil
	}
	assignee, err := s.users.GetByID(ctx, *task.AssigneeID)
	if errors.Is(err, repository.ErrNotFound) {
		task.AssigneeID = nil
		return nil
	}
	if err != nil {
		return err
	}
	task.AssigneeTeamID = assignee.TeamID
	return nil
}

func (s *TaskService) requireUser(ctx context.Context, id int) error {
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return notFound(err, "user", msgUserNotFound)
	}
	return nil
}

func (s *TaskService) cached(ctx context.Context, id int) *models.Task {
	if s.cache == nil {
		return nil
	}
	task, err := s.cache.Get(ctx, id)
	if err != nil {
		logger.ErrorLogger.Error("Error reading task cache", zap.Int("task_id", id), zap.Error(err))
		return nil
	}
	return task
}

func (s *TaskService) invalidate(ctx context.Context, id int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		logger.ErrorLogger.Error("Error invalidating task cache", zap.Int("task_id", id), zap.Error(err))
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
