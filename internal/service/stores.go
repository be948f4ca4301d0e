// Package service implements the use cases behind the HTTP handlers:
// it loads entities, applies the access policy and writes changes.
package service

import (
	"context"
	"time"

	"bms/internal/models"
	"bms/internal/repository"
)

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id int, upd repository.ProfileUpdate) (*models.User, error)
	Delete(ctx context.Context, id int) error
	SetTeam(ctx context.Context, userID int, teamID *int) error
	JoinTeam(ctx context.Context, userID, teamID int) (bool, error)
	RemoveFromTeam(ctx context.Context, userID, teamID int) error
	SetRole(ctx context.Context, userID int, role models.Role) error
	ExistingIDs(ctx context.Context, ids []int) ([]int, error)
}

type TeamStore interface {
	Create(ctx context.Context, team *models.Team) error
	GetByID(ctx context.Context, id int) (*models.Team, error)
	GetByInviteCode(ctx context.Context, code string) (*models.Team, error)
	InviteCodeExists(ctx context.Context, code string) (bool, error)
}

type TaskStore interface {
	Create(ctx context.Context, t *models.Task) error
	GetByID(ctx context.Context, id int) (*models.Task, error)
	ListForUser(ctx context.Context, userID int) ([]models.Task, error)
	Update(ctx context.Context, id int, upd repository.TaskUpdate) (*models.Task, error)
	Delete(ctx context.Context, id int) error
	AddComment(ctx context.Context, c *models.Comment) error
	ListComments(ctx context.Context, taskID int) ([]models.Comment, error)
	AddEvaluation(ctx context.Context, e *models.Evaluation) error
	ListEvaluations(ctx context.Context, taskID int) ([]models.Evaluation, error)
	EvaluationExists(ctx context.Context, taskID int) (bool, error)
	AverageScore(ctx context.Context, userID int, from, to time.Time) (*float64, error)
}

// TaskCache is a read-through cache of single tasks. Get returns nil on
// a miss.
type TaskCache interface {
	Get(ctx context.Context, id int) (*models.Task, error)
	Set(ctx context.Context, task *models.Task) error
	Invalidate(ctx context.Context, id int) error
}

type MeetingStore interface {
	GetByID(ctx context.Context, id int) (*models.Meeting, error)
	ListForUser(ctx context.Context, userID int) ([]models.Meeting, error)
	Delete(ctx context.Context, id int) error
	InTx(ctx context.Context, fn func(tx repository.MeetingTx) error) error
}

// MeetingEvent names published to MeetingNotifier.
const (
	EventMeetingCreated = "meeting.created"
	EventMeetingUpdated = "meeting.updated"
	EventMeetingDeleted = "meeting.deleted"
)

// MeetingNotifier receives meeting changes after they are committed.
type MeetingNotifier interface {
	Publish(event string, meeting models.Meeting)
}

type noopNotifier struct{}

func (noopNotifier) Publish(string, models.Meeting) {}
