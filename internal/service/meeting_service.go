package service

import (
	"context"
	"sort"
	"time"

	"bms/internal/apperr"
	"bms/internal/metrics"
	"bms/internal/models"
	"bms/internal/policy"
	"bms/internal/repository"
	"bms/internal/scheduling"
)

type MeetingService struct {
	meetings MeetingStore
	notifier MeetingNotifier
}

// NewMeetingService wires the meeting use cases. notifier may be nil.
func NewMeetingService(meetings MeetingStore, notifier MeetingNotifier) *MeetingService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &MeetingService{meetings: meetings, notifier: notifier}
}

type MeetingInput struct {
	Title        string
	StartTime    time.Time
	EndTime      time.Time
	Participants []int
}

// MeetingUpdate holds the optional fields of a partial update. A nil
// Participants keeps the current set.
type MeetingUpdate struct {
	Title        *string
	StartTime    *time.Time
	EndTime      *time.Time
	Participants []int
}

func (s *MeetingService) List(ctx context.Context, actor models.User) ([]models.Meeting, error) {
	return s.meetings.ListForUser(ctx, actor.ID)
}

func (s *MeetingService) Get(ctx context.Context, actor models.User, id int) (*models.Meeting, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanViewMeeting(actor, *m); err != nil {
		return nil, err
	}
	return m, nil
}

// Create schedules a meeting for the participants plus the creator. The
// whole meeting is rejected if any participant is busy.
func (s *MeetingService) Create(ctx context.Context, actor models.User, in MeetingInput) (*models.Meeting, error) {
	if err := policy.CanCreateMeeting(actor); err != nil {
		return nil, err
	}
	m := &models.Meeting{
		Title:        in.Title,
		StartTime:    in.StartTime.UTC(),
		EndTime:      in.EndTime.UTC(),
		CreatorID:    actor.ID,
		Participants: withCreator(in.Participants, actor.ID),
	}
	if !m.StartTime.Before(m.EndTime) {
		return nil, apperr.Validation(msgBadInterval)
	}

	err := s.meetings.InTx(ctx, func(tx repository.MeetingTx) error {
		if err := s.schedule(ctx, tx, m, nil); err != nil {
			return err
		}
		return tx.Create(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(EventMeetingCreated, *m)
	return m, nil
}

// Update applies the given fields. Participants, new or kept, always
// include the creator, and the new slot is checked against every other
// meeting of the participants.
func (s *MeetingService) Update(ctx context.Context, actor models.User, id int, upd MeetingUpdate) (*models.Meeting, error) {
	if err := policy.CanModifyMeetings(actor, policy.MeetingUpdate); err != nil {
		return nil, err
	}
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanModifyMeeting(actor, *m, policy.MeetingUpdate); err != nil {
		return nil, err
	}

	if upd.Title != nil {
		m.Title = *upd.Title
	}
	if upd.StartTime != nil {
		m.StartTime = upd.StartTime.UTC()
	}
	if upd.EndTime != nil {
		m.EndTime = upd.EndTime.UTC()
	}
	if upd.Participants != nil {
		m.Participants = withCreator(upd.Participants, m.CreatorID)
	} else {
		m.Participants = withCreator(m.Participants, m.CreatorID)
	}
	if !m.StartTime.Before(m.EndTime) {
		return nil, apperr.Validation(msgBadInterval)
	}

	err = s.meetings.InTx(ctx, func(tx repository.MeetingTx) error {
		if err := s.schedule(ctx, tx, m, &m.ID); err != nil {
			return err
		}
		return notFound(tx.Update(ctx, m), "meeting", msgMeetingNotFound)
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(EventMeetingUpdated, *m)
	return m, nil
}

func (s *MeetingService) Delete(ctx context.Context, actor models.User, id int) error {
	if err := policy.CanModifyMeetings(actor, policy.MeetingDelete); err != nil {
		return err
	}
	m, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.CanModifyMeeting(actor, *m, policy.MeetingDelete); err != nil {
		return err
	}
	if err := s.meetings.Delete(ctx, id); err != nil {
		return notFound(err, "meeting", msgMeetingNotFound)
	}
	s.notifier.Publish(EventMeetingDeleted, *m)
	return nil
}

// schedule locks the participants, runs the conflict check and then
// verifies that every participant exists, in that order.
func (s *MeetingService) schedule(ctx context.Context, tx repository.MeetingTx, m *models.Meeting, exclude *int) error {
	found, err := tx.LockUsers(ctx, m.Participants)
	if err != nil {
		return err
	}
	err = scheduling.NewChecker(tx).CheckTimeConflicts(ctx, m.Participants, m.StartTime, m.EndTime, exclude)
	if err != nil {
		if apperr.IsConflict(err) {
			metrics.SchedulingConflicts.Inc()
		}
		return err
	}
	if len(found) != len(m.Participants) {
		return apperr.NotFound("user", msgParticipantsMissing)
	}
	return nil
}

func (s *MeetingService) load(ctx context.Context, id int) (*models.Meeting, error) {
	m, err := s.meetings.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "meeting", msgMeetingNotFound)
	}
	return m, nil
}

// withCreator returns the sorted, deduplicated ids with creatorID added.
func withCreator(ids []int, creatorID int) []int {
	set := map[int]struct{}{creatorID: {}}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	out := make([]int, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
