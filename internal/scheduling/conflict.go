// Package scheduling detects meeting time overlaps between participants.
package scheduling

import (
	"context"
	"fmt"
	"time"

	"bms/internal/apperr"
	"bms/internal/models"
)

// MeetingSource loads meetings that may collide with a window.
// Implementations must return at least every meeting with a participant
// in userIDs whose interval intersects [start, end]; extra rows are
// filtered out by the Checker.
type MeetingSource interface {
	MeetingsForUsersBetween(ctx context.Context, userIDs []int, start, end time.Time) ([]models.Meeting, error)
}

type Checker struct {
	source MeetingSource
}

func NewChecker(source MeetingSource) *Checker {
	return &Checker{source: source}
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) share any
// instant. Intervals that only touch do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// CheckTimeConflicts returns *apperr.ConflictError listing every user in
// userIDs that already has a meeting overlapping [start, end). The
// meeting with id excludeMeetingID, if given, is ignored.
func (c *Checker) CheckTimeConflicts(ctx context.Context, userIDs []int, start, end time.Time, excludeMeetingID *int) error {
	if len(userIDs) == 0 {
		return nil
	}

	meetings, err := c.source.MeetingsForUsersBetween(ctx, userIDs, start, end)
	if err != nil {
		return fmt.Errorf("load meetings: %w", err)
	}

	wanted := make(map[int]struct{}, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = struct{}{}
	}

	var busy []int
	for _, m := range meetings {
		if excludeMeetingID != nil && m.ID == *excludeMeetingID {
			continue
		}
		if !Overlaps(m.StartTime, m.EndTime, start, end) {
			continue
		}
		for _, p := range m.Participants {
			if _, ok := wanted[p]; ok {
				busy = append(busy, p)
			}
		}
	}

	if len(busy) > 0 {
		return apperr.BusyUsers(busy)
	}
	return nil
}
