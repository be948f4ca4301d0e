package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"bms/internal/apperr"
	"bms/internal/models"
	"bms/internal/repository"
	"bms/pkg/crypto"
)

type ProfileService struct {
	users UserStore
	teams TeamStore
	tasks TaskStore
}

func NewProfileService(users UserStore, teams TeamStore, tasks TaskStore) *ProfileService {
	return &ProfileService{users: users, teams: teams, tasks: tasks}
}

// ProfileInput lists the only fields a user may change on themselves.
// Role, team and activity are managed elsewhere.
type ProfileInput struct {
	Email    *string
	Password *string
}

func (s *ProfileService) Update(ctx context.Context, actor models.User, in ProfileInput) (*models.User, error) {
	var upd repository.ProfileUpdate
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		upd.Email = &email
	}
	if in.Password != nil {
		hashed, err := crypto.HashPassword(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		upd.HashedPassword = &hashed
	}

	u, err := s.users.UpdateProfile(ctx, actor.ID, upd)
	if err != nil {
		if isDuplicate(err, repository.ConstraintUserEmail) {
			return nil, apperr.Conflict(msgEmailTaken)
		}
		return nil, notFound(err, "user", msgUserNotFound)
	}
	return u, nil
}

func (s *ProfileService) Delete(ctx context.Context, actor models.User) error {
	return notFound(s.users.Delete(ctx, actor.ID), "user", msgUserNotFound)
}

// JoinByCode puts a team-less user into the team owning code and returns
// the confirmation message.
func (s *ProfileService) JoinByCode(ctx context.Context, actor models.User, code string) (string, error) {
	if actor.TeamID != nil {
		return "", apperr.Conflict(msgAlreadyInTeam)
	}
	team, err := s.teams.GetByInviteCode(ctx, code)
	if err != nil {
		return "", notFound(err, "team", msgInviteNotFound)
	}
	joined, err := s.users.JoinTeam(ctx, actor.ID, team.ID)
	if err != nil {
		return "", err
	}
	if !joined {
		return "", apperr.Conflict(msgAlreadyInTeam)
	}
	return fmt.Sprintf("Вы успешно присоединились к команде '%s'.", team.Name), nil
}

// AverageEvaluation averages the scores of evaluations created between
// the start of from and the end of to (both YYYY-MM-DD, inclusive) on
// tasks assigned to the actor. nil means there were none.
func (s *ProfileService) AverageEvaluation(ctx context.Context, actor models.User, from, to string) (*float64, error) {
	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		return nil, apperr.Validation(msgBadDate)
	}
	end, err := time.Parse("2006-01-02", to)
	if err != nil {
		return nil, apperr.Validation(msgBadDate)
	}
	if start.After(end) {
		return nil, apperr.Validation(msgBadPeriod)
	}
	endOfDay := end.AddDate(0, 0, 1).Add(-time.Microsecond)

	avg, err := s.tasks.AverageScore(ctx, actor.ID, start, endOfDay)
	if err != nil || avg == nil {
		return nil, err
	}
	rounded := math.Round(*avg*100) / 100
	return &rounded, nil
}
