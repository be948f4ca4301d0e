package repository

import (
	"context"

	"bms/internal/models"
)

// Unique constraint names, see Schema.
const (
	ConstraintTeamName       = "teams_name_key"
	ConstraintTeamInviteCode = "teams_invite_code_key"
	ConstraintUserEmail      = "users_email_key"
	ConstraintEvaluationTask = "evaluations_task_id_key"
)

type TeamRepository struct {
	db DBTX
}

func NewTeamRepository(db DBTX) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) Create(ctx context.Context, team *models.Team) error {
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO teams (name, invite_code, admin_id) VALUES ($1, $2, $3) RETURNING id",
		team.Name, team.InviteCode, team.AdminID,
	).Scan(&team.ID)
	if err != nil {
		return mapError(err)
	}
	team.Members = []int{}
	return nil
}

// GetByID loads the team with its member ids.
func (r *TeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	var team models.Team
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, invite_code, admin_id FROM teams WHERE id = $1", id,
	).Scan(&team.ID, &team.Name, &team.InviteCode, &team.AdminID)
	if err != nil {
		return nil, mapError(err)
	}

	members, err := selectIDs(ctx, r.db,
		"SELECT id FROM users WHERE team_id = ANY($1) ORDER BY id", []int{id})
	if err != nil {
		return nil, err
	}
	team.Members = members
	if team.Members == nil {
		team.Members = []int{}
	}
	return &team, nil
}

func (r *TeamRepository) GetByInviteCode(ctx context.Context, code string) (*models.Team, error) {
	var team models.Team
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, invite_code, admin_id FROM teams WHERE invite_code = $1", code,
	).Scan(&team.ID, &team.Name, &team.InviteCode, &team.AdminID)
	if err != nil {
		return nil, mapError(err)
	}
	return &team, nil
}

func (r *TeamRepository) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM teams WHERE invite_code = $1)", code,
	).Scan(&exists)
	return exists, mapError(err)
}
