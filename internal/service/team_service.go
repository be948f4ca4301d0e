package service

import (
	"context"

	"bms/internal/apperr"
	"bms/internal/invite"
	"bms/internal/models"
	"bms/internal/policy"
	"bms/internal/repository"
)

type TeamService struct {
	teams   TeamStore
	users   UserStore
	invites *invite.Generator
}

func NewTeamService(teams TeamStore, users UserStore, invites *invite.Generator) *TeamService {
	return &TeamService{teams: teams, users: users, invites: invites}
}

// Create makes actor the admin of a new team with a fresh invite code.
// The unique index on invite_code backs up the generator's lookup; a
// collision between the lookup and the insert gets one more code.
func (s *TeamService) Create(ctx context.Context, actor models.User, name string) (*models.Team, error) {
	if err := policy.CanCreateTeam(actor); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		code, err := s.invites.Generate(ctx)
		if err != nil {
			return nil, err
		}
		team := &models.Team{Name: name, InviteCode: &code, AdminID: actor.ID}
		err = s.teams.Create(ctx, team)
		switch {
		case err == nil:
			return team, nil
		case isDuplicate(err, repository.ConstraintTeamName):
			return nil, apperr.Conflict(msgTeamNameTaken)
		case isDuplicate(err, repository.ConstraintTeamInviteCode):
			lastErr = err
			continue
		default:
			return nil, err
		}
	}
	return nil, lastErr
}

func (s *TeamService) load(ctx context.Context, actor models.User, teamID int) (*models.Team, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, notFound(err, "team", msgTeamNotFound)
	}
	if err := policy.CanManageTeam(actor, *team); err != nil {
		return nil, err
	}
	return team, nil
}

func (s *TeamService) loadUser(ctx context.Context, userID int) (*models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user", msgUserNotFound)
	}
	return u, nil
}

func (s *TeamService) Get(ctx context.Context, actor models.User, teamID int) (*models.Team, error) {
	return s.load(ctx, actor, teamID)
}

// AddMember moves the user into the team, leaving any previous team.
func (s *TeamService) AddMember(ctx context.Context, actor models.User, teamID, userID int) error {
	team, err := s.load(ctx, actor, teamID)
	if err != nil {
		return err
	}
	if _, err := s.loadUser(ctx, userID); err != nil {
		return err
	}
	return notFound(s.users.SetTeam(ctx, userID, &team.ID), "user", msgUserNotFound)
}

// RemoveMember is a no-op when the user is not in the team.
func (s *TeamService) RemoveMember(ctx context.Context, actor models.User, teamID, userID int) error {
	team, err := s.load(ctx, actor, teamID)
	if err != nil {
		return err
	}
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if !u.InTeam(team.ID) {
		return nil
	}
	return s.users.RemoveFromTeam(ctx, userID, team.ID)
}

func (s *TeamService) UpdateMemberRole(ctx context.Context, actor models.User, teamID, userID int, role models.Role) error {
	if role != models.RoleManager && role != models.RoleUser {
		return apperr.Validation(msgBadRole)
	}
	team, err := s.load(ctx, actor, teamID)
	if err != nil {
		return err
	}
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := policy.CanChangeMemberRole(*team, *u); err != nil {
		return err
	}
	return notFound(s.users.SetRole(ctx, userID, role), "user", msgUserNotFound)
}
