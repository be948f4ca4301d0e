// Package calendar renders the plain-text daily and monthly views of a
// user's tasks and meetings.
package calendar

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"bms/internal/apperr"
	"bms/internal/models"
)

const (
	NoTeamText   = "Вы не состоите в команде."
	NoEventsText = "Событий нет."

	MsgDateFormat = "Неверный формат даты, ожидается YYYY-MM-DD"
	MsgMonthRange = "Месяц должен быть от 1 до 12"
	MsgYearRange  = "Год должен быть от 1 до 9999"

	dailyHeader   = "Время      | Тип     | Заголовок"
	monthlyHeader = "Дата       | Задач | Встреч"
	noTime        = "--:--"
)

// Source provides the rows a view is built from. Times are compared in
// UTC; to is exclusive.
type Source interface {
	// TasksDueBetween returns tasks with a deadline in [from, to) whose
	// creator or assignee belongs to teamID.
	TasksDueBetween(ctx context.Context, teamID int, from, to time.Time) ([]models.Task, error)
	// MeetingsStartingBetween returns meetings starting in [from, to)
	// that userID takes part in.
	MeetingsStartingBetween(ctx context.Context, userID int, from, to time.Time) ([]models.Meeting, error)
}

type Aggregator struct {
	source Source
}

func NewAggregator(source Source) *Aggregator {
	return &Aggregator{source: source}
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate accepts an ISO date, optionally followed by a time of day,
// and returns midnight UTC of that date.
func ParseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, apperr.Validation(MsgDateFormat)
}

// Daily renders the events of one date for the user. teamID nil means
// the user is not on a team and yields NoTeamText.
func (a *Aggregator) Daily(ctx context.Context, teamID *int, userID int, date string) (string, error) {
	day, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	if teamID == nil {
		return NoTeamText, nil
	}

	next := day.AddDate(0, 0, 1)
	tasks, err := a.source.TasksDueBetween(ctx, *teamID, day, next)
	if err != nil {
		return "", fmt.Errorf("load tasks: %w", err)
	}
	meetings, err := a.source.MeetingsStartingBetween(ctx, userID, day, next)
	if err != nil {
		return "", fmt.Errorf("load meetings: %w", err)
	}
	return RenderDaily(tasks, meetings), nil
}

// RenderDaily lays out tasks by deadline, then meetings by start time.
func RenderDaily(tasks []models.Task, meetings []models.Meeting) string {
	lines := []string{dailyHeader, strings.Repeat("-", 40)}

	tasks = append([]models.Task(nil), tasks...)
	sort.SliceStable(tasks, func(i, j int) bool {
		return deadlineKey(tasks[i]).Before(deadlineKey(tasks[j]))
	})
	for _, t := range tasks {
		tm := noTime
		if t.Deadline != nil {
			tm = t.Deadline.UTC().Format("15:04")
		}
		lines = append(lines, fmt.Sprintf("%-10s| Задача  | %s", tm, t.Title))
	}

	meetings = append([]models.Meeting(nil), meetings...)
	sort.SliceStable(meetings, func(i, j int) bool {
		return meetings[i].StartTime.Before(meetings[j].StartTime)
	})
	for _, m := range meetings {
		lines = append(lines, fmt.Sprintf("%-10s| Встреча| %s", m.StartTime.UTC().Format("15:04"), m.Title))
	}

	if len(lines) == 2 {
		lines = append(lines, NoEventsText)
	}
	return strings.Join(lines, "\n")
}

// Tasks without a deadline sort before everything else.
func deadlineKey(t models.Task) time.Time {
	if t.Deadline == nil {
		return time.Time{}
	}
	return *t.Deadline
}

// Monthly renders one row per day of the month with task and meeting
// counts.
func (a *Aggregator) Monthly(ctx context.Context, teamID *int, userID, year, month int) (string, error) {
	if month < 1 || month > 12 {
		return "", apperr.Validation(MsgMonthRange)
	}
	if year < 1 || year > 9999 {
		return "", apperr.Validation(MsgYearRange)
	}
	if teamID == nil {
		return NoTeamText, nil
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)

	tasks, err := a.source.TasksDueBetween(ctx, *teamID, first, next)
	if err != nil {
		return "", fmt.Errorf("load tasks: %w", err)
	}
	meetings, err := a.source.MeetingsStartingBetween(ctx, userID, first, next)
	if err != nil {
		return "", fmt.Errorf("load meetings: %w", err)
	}
	return RenderMonthly(first, tasks, meetings), nil
}

// RenderMonthly counts events per day of the month starting at first.
func RenderMonthly(first time.Time, tasks []models.Task, meetings []models.Meeting) string {
	days := first.AddDate(0, 1, -1).Day()
	taskCount := make([]int, days+1)
	meetingCount := make([]int, days+1)

	for _, t := range tasks {
		if t.Deadline == nil {
			continue
		}
		if d := t.Deadline.UTC(); sameMonth(d, first) {
			taskCount[d.Day()]++
		}
	}
	for _, m := range meetings {
		if s := m.StartTime.UTC(); sameMonth(s, first) {
			meetingCount[s.Day()]++
		}
	}

	lines := []string{monthlyHeader, strings.Repeat("-", utf8.RuneCountInString(monthlyHeader))}
	for day := 1; day <= days; day++ {
		date := time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
		lines = append(lines, fmt.Sprintf("%-10s| %s | %s",
			date.Format("2006-01-02"),
			center(strconv.Itoa(taskCount[day]), 5),
			center(strconv.Itoa(meetingCount[day]), 6),
		))
	}
	return strings.Join(lines, "\n")
}

func sameMonth(t, first time.Time) bool {
	return t.Year() == first.Year() && t.Month() == first.Month()
}

// center pads s to width, putting the odd space on the right.
func center(s string, width int) string {
	pad := width - utf8.RuneCountInString(s)
	if pad <= 0 {
		return s
	}
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}
