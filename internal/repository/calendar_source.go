package repository

import (
	"context"
	"time"

	"bms/internal/models"
)

// CalendarSource feeds the calendar views from the task and meeting
// tables.
type CalendarSource struct {
	Tasks    *TaskRepository
	Meetings *MeetingRepository
}

func (s CalendarSource) TasksDueBetween(ctx context.Context, teamID int, from, to time.Time) ([]models.Task, error) {
	return s.Tasks.TasksDueBetween(ctx, teamID, from, to)
}

func (s CalendarSource) MeetingsStartingBetween(ctx context.Context, userID int, from, to time.Time) ([]models.Meeting, error) {
	return s.Meetings.MeetingsStartingBetween(ctx, userID, from, to)
}
