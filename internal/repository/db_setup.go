package repository

import (
	"context"
	"database/sql"
	"fmt"

	"bms/internal/models"
	"bms/pkg/crypto"
)

// Schema spells out every ON DELETE rule instead of relying on defaults.
const Schema = `
CREATE TABLE IF NOT EXISTS teams (
    id SERIAL PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    invite_code VARCHAR(20),
    admin_id INT NOT NULL,
    CONSTRAINT teams_name_key UNIQUE (name),
    CONSTRAINT teams_invite_code_key UNIQUE (invite_code)
);

CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    email VARCHAR(320) NOT NULL,
    hashed_password VARCHAR(1024) NOT NULL,
    role VARCHAR(20) NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    team_id INT REFERENCES teams (id) ON DELETE SET NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT users_email_key UNIQUE (email)
);

DO $$
BEGIN
    IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'teams_admin_id_fkey') THEN
        ALTER TABLE teams ADD CONSTRAINT teams_admin_id_fkey
            FOREIGN KEY (admin_id) REFERENCES users (id) ON DELETE CASCADE;
    END IF;
END$$;

CREATE TABLE IF NOT EXISTS tasks (
    id SERIAL PRIMARY KEY,
    title VARCHAR(200) NOT NULL,
    description TEXT,
    status VARCHAR(20) NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'in_progress', 'done')),
    creator_id INT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
    assignee_id INT REFERENCES users (id) ON DELETE SET NULL,
    deadline TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS comments (
    id SERIAL PRIMARY KEY,
    text TEXT NOT NULL,
    author_id INT REFERENCES users (id) ON DELETE SET NULL,
    task_id INT NOT NULL REFERENCES tasks (id) ON DELETE CASCADE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS evaluations (
    id SERIAL PRIMARY KEY,
    score INT NOT NULL CHECK (score BETWEEN 1 AND 5),
    evaluator_id INT REFERENCES users (id) ON DELETE SET NULL,
    task_id INT NOT NULL REFERENCES tasks (id) ON DELETE CASCADE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT evaluations_task_id_key UNIQUE (task_id)
);

CREATE TABLE IF NOT EXISTS meetings (
    id SERIAL PRIMARY KEY,
    title VARCHAR(200) NOT NULL,
    start_time TIMESTAMPTZ NOT NULL,
    end_time TIMESTAMPTZ NOT NULL,
    creator_id INT NOT NULL REFERENCES users (id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS meeting_participants (
    meeting_id INT NOT NULL REFERENCES meetings (id) ON DELETE CASCADE,
    user_id INT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
    PRIMARY KEY (meeting_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_tasks_deadline ON tasks (deadline);
CREATE INDEX IF NOT EXISTS idx_meetings_start_time ON meetings (start_time);
CREATE INDEX IF NOT EXISTS idx_meeting_participants_user ON meeting_participants (user_id);
`

func CreateTableIfNotExists(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// CreateAdminUser seeds the first admin unless the email is already taken.
func CreateAdminUser(ctx context.Context, db *sql.DB, email, password string) (bool, error) {
	hashed, err := crypto.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	res, err := db.ExecContext(ctx,
		`INSERT INTO users (email, hashed_password, role) VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO NOTHING`,
		email, hashed, models.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("insert admin: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func DeleteAllTable(ctx context.Context, db *sql.DB) error {
	query := `
    DROP TABLE IF EXISTS meeting_participants;
    DROP TABLE IF EXISTS meetings;
    DROP TABLE IF EXISTS evaluations;
    DROP TABLE IF EXISTS comments;
    DROP TABLE IF EXISTS tasks;
    ALTER TABLE IF EXISTS teams DROP CONSTRAINT IF EXISTS teams_admin_id_fkey;
    DROP TABLE IF EXISTS users;
    DROP TABLE IF EXISTS teams;
    `
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}
	return nil
}
