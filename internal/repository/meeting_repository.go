package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bms/internal/models"

	"github.com/lib/pq"
)

const meetingSelect = `
SELECT m.id, m.title, m.start_time, m.end_time, m.creator_id,
       COALESCE((SELECT array_agg(p.user_id ORDER BY p.user_id)
                 FROM meeting_participants p WHERE p.meeting_id = m.id), '{}')
FROM meetings m`

// MeetingTx is the part of the meeting store available inside a
// transaction opened by InTx.
type MeetingTx interface {
	MeetingsForUsersBetween(ctx context.Context, userIDs []int, start, end time.Time) ([]models.Meeting, error)
	LockUsers(ctx context.Context, ids []int) ([]int, error)
	Create(ctx context.Context, m *models.Meeting) error
	Update(ctx context.Context, m *models.Meeting) error
}

type MeetingRepository struct {
	conn *sql.DB
	db   DBTX
}

func NewMeetingRepository(conn *sql.DB) *MeetingRepository {
	return &MeetingRepository{conn: conn, db: conn}
}

// InTx runs fn inside one transaction and commits when fn returns nil.
func (r *MeetingRepository) InTx(ctx context.Context, fn func(tx MeetingTx) error) error {
	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&MeetingRepository{conn: r.conn, db: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func scanMeeting(row interface{ Scan(...interface{}) error }) (*models.Meeting, error) {
	var m models.Meeting
	var participants pq.Int64Array
	if err := row.Scan(&m.ID, &m.Title, &m.StartTime, &m.EndTime, &m.CreatorID, &participants); err != nil {
		return nil, mapError(err)
	}
	m.Participants = ints(participants)
	return &m, nil
}

func (r *MeetingRepository) queryMeetings(ctx context.Context, query string, args ...interface{}) ([]models.Meeting, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	meetings := []models.Meeting{}
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, *m)
	}
	return meetings, rows.Err()
}

func (r *MeetingRepository) GetByID(ctx context.Context, id int) (*models.Meeting, error) {
	return scanMeeting(r.db.QueryRowContext(ctx, meetingSelect+" WHERE m.id = $1", id))
}

// ListForUser returns the meetings userID takes part in.
func (r *MeetingRepository) ListForUser(ctx context.Context, userID int) ([]models.Meeting, error) {
	return r.queryMeetings(ctx, meetingSelect+`
WHERE EXISTS (SELECT 1 FROM meeting_participants p WHERE p.meeting_id = m.id AND p.user_id = $1)
ORDER BY m.start_time`, userID)
}

// MeetingsForUsersBetween returns meetings with a participant in userIDs
// whose interval intersects [start, end].
func (r *MeetingRepository) MeetingsForUsersBetween(ctx context.Context, userIDs []int, start, end time.Time) ([]models.Meeting, error) {
	return r.queryMeetings(ctx, meetingSelect+`
WHERE m.start_time <= $3 AND m.end_time >= $2
  AND EXISTS (SELECT 1 FROM meeting_participants p WHERE p.meeting_id = m.id AND p.user_id = ANY($1))`,
		int64s(userIDs), start, end)
}

// MeetingsStartingBetween returns meetings of userID starting in [from, to).
func (r *MeetingRepository) MeetingsStartingBetween(ctx context.Context, userID int, from, to time.Time) ([]models.Meeting, error) {
	return r.queryMeetings(ctx, meetingSelect+`
WHERE m.start_time >= $2 AND m.start_time < $3
  AND EXISTS (SELECT 1 FROM meeting_participants p WHERE p.meeting_id = m.id AND p.user_id = $1)
ORDER BY m.start_time`, userID, from, to)
}

// LockUsers takes row locks on the given users in id order and returns
// the ids that exist. Two transactions scheduling a shared participant
// are serialized on that user's row.
func (r *MeetingRepository) LockUsers(ctx context.Context, ids []int) ([]int, error) {
	return selectIDs(ctx, r.db, "SELECT id FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE", ids)
}

func (r *MeetingRepository) Create(ctx context.Context, m *models.Meeting) error {
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO meetings (title, start_time, end_time, creator_id) VALUES ($1, $2, $3, $4) RETURNING id",
		m.Title, m.StartTime, m.EndTime, m.CreatorID,
	).Scan(&m.ID)
	if err != nil {
		return mapError(err)
	}
	return r.insertParticipants(ctx, m.ID, m.Participants)
}

// Update overwrites the meeting columns and replaces its participants.
func (r *MeetingRepository) Update(ctx context.Context, m *models.Meeting) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE meetings SET title = $1, start_time = $2, end_time = $3 WHERE id = $4",
		m.Title, m.StartTime, m.EndTime, m.ID)
	if err != nil {
		return mapError(err)
	}
	if err := rowsAffected(res); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM meeting_participants WHERE meeting_id = $1", m.ID); err != nil {
		return mapError(err)
	}
	return r.insertParticipants(ctx, m.ID, m.Participants)
}

func (r *MeetingRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM meetings WHERE id = $1", id)
	if err != nil {
		return mapError(err)
	}
	return rowsAffected(res)
}

func (r *MeetingRepository) insertParticipants(ctx context.Context, meetingID int, userIDs []int) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO meeting_participants (meeting_id, user_id)
		 SELECT $1, unnest($2::int[]) ON CONFLICT DO NOTHING`,
		meetingID, int64s(userIDs))
	return mapError(err)
}
