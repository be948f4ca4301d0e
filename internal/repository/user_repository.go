package repository

import (
	"context"
	"fmt"
	"strings"

	"bms/internal/models"
)

const userColumns = "id, email, hashed_password, role, is_active, team_id, created_at"

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.Role, &u.IsActive, &u.TeamID, &u.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (email, hashed_password, role) VALUES ($1, $2, $3)
		 RETURNING id, is_active, created_at`,
		u.Email, u.HashedPassword, u.Role,
	).Scan(&u.ID, &u.IsActive, &u.CreatedAt)
	return mapError(err)
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email))
}

// ProfileUpdate is the set of columns a user may change on themselves.
type ProfileUpdate struct {
	Email          *string
	HashedPassword *string
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id int, upd ProfileUpdate) (*models.User, error) {
	sets := []string{}
	args := []interface{}{}
	if upd.Email != nil {
		args = append(args, *upd.Email)
		sets = append(sets, fmt.Sprintf("email = $%d", len(args)))
	}
	if upd.HashedPassword != nil {
		args = append(args, *upd.HashedPassword)
		sets = append(sets, fmt.Sprintf("hashed_password = $%d", len(args)))
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), userColumns)
	return scanUser(r.db.QueryRowContext(ctx, query, args...))
}

func (r *UserRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return mapError(err)
	}
	return rowsAffected(res)
}

// SetTeam moves the user into teamID, or out of any team when nil.
func (r *UserRepository) SetTeam(ctx context.Context, userID int, teamID *int) error {
	res, err := r.db.ExecContext(ctx, "UPDATE users SET team_id = $1 WHERE id = $2", teamID, userID)
	if err != nil {
		return mapError(err)
	}
	return rowsAffected(res)
}

// JoinTeam sets the team only if the user has none yet. It reports
// false when the user already belongs to a team.
func (r *UserRepository) JoinTeam(ctx context.Context, userID, teamID int) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET team_id = $1 WHERE id = $2 AND team_id IS NULL", teamID, userID)
	if err != nil {
		return false, mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RemoveFromTeam clears the membership if the user is in teamID.
func (r *UserRepository) RemoveFromTeam(ctx context.Context, userID, teamID int) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE users SET team_id = NULL WHERE id = $1 AND team_id = $2", userID, teamID)
	return mapError(err)
}

func (r *UserRepository) SetRole(ctx context.Context, userID int, role models.Role) error {
	res, err := r.db.ExecContext(ctx, "UPDATE users SET role = $1 WHERE id = $2", role, userID)
	if err != nil {
		return mapError(err)
	}
	return rowsAffected(res)
}

// ExistingIDs returns which of ids belong to a user.
func (r *UserRepository) ExistingIDs(ctx context.Context, ids []int) ([]int, error) {
	return selectIDs(ctx, r.db, "SELECT id FROM users WHERE id = ANY($1) ORDER BY id", ids)
}

func selectIDs(ctx context.Context, db DBTX, query string, ids []int) ([]int, error) {
	rows, err := db.QueryContext(ctx, query, int64s(ids))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var found []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found = append(found, id)
	}
	return found, rows.Err()
}
