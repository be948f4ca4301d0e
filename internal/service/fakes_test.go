package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"bms/internal/models"
	"bms/internal/repository"
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

type memUsers struct {
	mu     sync.Mutex
	users  map[int]*models.User
	nextID int
}

func newMemUsers(users ...models.User) *memUsers {
	m := &memUsers{users: map[int]*models.User{}, nextID: 100}
	for _, u := range users {
		u := u
		m.users[u.ID] = &u
	}
	return m
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return &repository.DuplicateError{Constraint: repository.ConstraintUserEmail}
		}
	}
	m.nextID++
	u.ID = m.nextID
	u.IsActive = true
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id int) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) UpdateProfile(_ context.Context, id int, upd repository.ProfileUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if upd.Email != nil {
		for _, other := range m.users {
			if other.ID != id && other.Email == *upd.Email {
				return nil, &repository.DuplicateError{Constraint: repository.ConstraintUserEmail}
			}
		}
		u.Email = *upd.Email
	}
	if upd.HashedPassword != nil {
		u.HashedPassword = *upd.HashedPassword
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) Delete(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memUsers) SetTeam(_ context.Context, userID int, teamID *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.TeamID = teamID
	return nil
}

func (m *memUsers) JoinTeam(_ context.Context, userID, teamID int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.TeamID != nil {
		return false, nil
	}
	u.TeamID = intPtr(teamID)
	return true, nil
}

func (m *memUsers) RemoveFromTeam(_ context.Context, userID, teamID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok && u.InTeam(teamID) {
		u.TeamID = nil
	}
	return nil
}

func (m *memUsers) SetRole(_ context.Context, userID int, role models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.Role = role
	return nil
}

func (m *memUsers) ExistingIDs(_ context.Context, ids []int) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found []int
	for _, id := range ids {
		if _, ok := m.users[id]; ok {
			found = append(found, id)
		}
	}
	sort.Ints(found)
	return found, nil
}

func (m *memUsers) teamOf(id int) *int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u.TeamID
	}
	return nil
}

type memTeams struct {
	teams  map[int]*models.Team
	users  *memUsers
	nextID int
	// createErrs are returned by successive Create calls before storing.
	createErrs []error
}

func newMemTeams(users *memUsers, teams ...models.Team) *memTeams {
	m := &memTeams{teams: map[int]*models.Team{}, users: users, nextID: 10}
	for _, t := range teams {
		t := t
		m.teams[t.ID] = &t
	}
	return m
}

func (m *memTeams) Create(_ context.Context, team *models.Team) error {
	if len(m.createErrs) > 0 {
		err := m.createErrs[0]
		m.createErrs = m.createErrs[1:]
		if err != nil {
			return err
		}
	}
	for _, t := range m.teams {
		if t.Name == team.Name {
			return &repository.DuplicateError{Constraint: repository.ConstraintTeamName}
		}
	}
	m.nextID++
	team.ID = m.nextID
	team.Members = []int{}
	cp := *team
	m.teams[team.ID] = &cp
	return nil
}

func (m *memTeams) GetByID(_ context.Context, id int) (*models.Team, error) {
	t, ok := m.teams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	cp.Members = []int{}
	m.users.mu.Lock()
	for _, u := range m.users.users {
		if u.InTeam(id) {
			cp.Members = append(cp.Members, u.ID)
		}
	}
	m.users.mu.Unlock()
	sort.Ints(cp.Members)
	return &cp, nil
}

func (m *memTeams) GetByInviteCode(_ context.Context, code string) (*models.Team, error) {
	for _, t := range m.teams {
		if t.InviteCode != nil && *t.InviteCode == code {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memTeams) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	_, err := m.GetByInviteCode(ctx, code)
	return err == nil, nil
}

type memTasks struct {
	mu          sync.Mutex
	users       *memUsers
	tasks       map[int]*models.Task
	comments    []models.Comment
	evaluations []models.Evaluation
	nextID      int
	getCalls    int
	// raceEvaluation makes EvaluationExists report false even when an
	// evaluation exists, as a concurrent request would observe.
	raceEvaluation bool
}

func newMemTasks(users *memUsers) *memTasks {
	return &memTasks{users: users, tasks: map[int]*models.Task{}}
}

func (m *memTasks) hydrate(t models.Task) *models.Task {
	t.CreatorTeamID = m.users.teamOf(t.CreatorID)
	if t.AssigneeID != nil {
		t.AssigneeTeamID = m.users.teamOf(*t.AssigneeID)
	}
	t.Comments = []models.Comment{}
	t.Evaluations = []models.Evaluation{}
	for _, c := range m.comments {
		if c.TaskID == t.ID {
			t.Comments = append(t.Comments, c)
		}
	}
	for _, e := range m.evaluations {
		if e.TaskID == t.ID {
			t.Evaluations = append(t.Evaluations, e)
		}
	}
	return &t
}

func (m *memTasks) put(t models.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID] = &t
	if t.ID > m.nextID {
		m.nextID = t.ID
	}
}

func (m *memTasks) Create(_ context.Context, t *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	t.CreatedAt = time.Now()
	cp := *t
	m.tasks[t.ID] = &cp
	*t = *m.hydrate(cp)
	return nil
}

func (m *memTasks) GetByID(_ context.Context, id int) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	t, ok := m.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return m.hydrate(*t), nil
}

func (m *memTasks) ListForUser(_ context.Context, userID int) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Task{}
	for _, t := range m.tasks {
		if t.CreatorID == userID || (t.AssigneeID != nil && *t.AssigneeID == userID) {
			out = append(out, *m.hydrate(*t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memTasks) Update(_ context.Context, id int, upd repository.TaskUpdate) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Description != nil {
		t.Description = upd.Description
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.AssigneeID != nil {
		t.AssigneeID = upd.AssigneeID
	}
	if upd.Deadline != nil {
		t.Deadline = upd.Deadline
	}
	return m.hydrate(*t), nil
}

func (m *memTasks) Delete(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *memTasks) AddComment(_ context.Context, c *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = len(m.comments) + 1
	c.CreatedAt = time.Now()
	m.comments = append(m.comments, *c)
	return nil
}

func (m *memTasks) ListComments(_ context.Context, taskID int) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Comment{}
	for _, c := range m.comments {
		if c.TaskID == taskID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memTasks) AddEvaluation(_ context.Context, e *models.Evaluation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.evaluations {
		if existing.TaskID == e.TaskID {
			return &repository.DuplicateError{Constraint: repository.ConstraintEvaluationTask}
		}
	}
	e.ID = len(m.evaluations) + 1
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	m.evaluations = append(m.evaluations, *e)
	return nil
}

func (m *memTasks) ListEvaluations(_ context.Context, taskID int) ([]models.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Evaluation{}
	for _, e := range m.evaluations {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memTasks) EvaluationExists(_ context.Context, taskID int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.raceEvaluation {
		return false, nil
	}
	for _, e := range m.evaluations {
		if e.TaskID == taskID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memTasks) AverageScore(_ context.Context, userID int, from, to time.Time) (*float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum, n float64
	for _, e := range m.evaluations {
		t, ok := m.tasks[e.TaskID]
		if !ok || t.AssigneeID == nil || *t.AssigneeID != userID {
			continue
		}
		if e.CreatedAt.Before(from) || e.CreatedAt.After(to) {
			continue
		}
		sum += float64(e.Score)
		n++
	}
	if n == 0 {
		return nil, nil
	}
	avg := sum / n
	return &avg, nil
}

type memCache struct {
	entries map[int]models.Task
	sets    int
}

func newMemCache() *memCache { return &memCache{entries: map[int]models.Task{}} }

func (c *memCache) Get(_ context.Context, id int) (*models.Task, error) {
	t, ok := c.entries[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (c *memCache) Set(_ context.Context, task *models.Task) error {
	c.sets++
	c.entries[task.ID] = *task
	return nil
}

func (c *memCache) Invalidate(_ context.Context, id int) error {
	delete(c.entries, id)
	return nil
}

// memMeetings implements MeetingStore and repository.MeetingTx on one
// map. InTx runs fn directly; beforeWrite, if set, runs between the
// conflict check and the write.
type memMeetings struct {
	mu          sync.Mutex
	users       *memUsers
	meetings    map[int]*models.Meeting
	nextID      int
	beforeWrite func()
}

func newMemMeetings(users *memUsers, meetings ...models.Meeting) *memMeetings {
	m := &memMeetings{users: users, meetings: map[int]*models.Meeting{}}
	for _, mt := range meetings {
		m.insert(mt)
	}
	return m
}

func (m *memMeetings) insert(mt models.Meeting) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mt.ID == 0 {
		m.nextID++
		mt.ID = m.nextID
	} else if mt.ID > m.nextID {
		m.nextID = mt.ID
	}
	m.meetings[mt.ID] = &mt
}

func (m *memMeetings) InTx(_ context.Context, fn func(tx repository.MeetingTx) error) error {
	return fn(m)
}

func (m *memMeetings) GetByID(_ context.Context, id int) (*models.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt, ok := m.meetings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *mt
	cp.Participants = append([]int(nil), mt.Participants...)
	return &cp, nil
}

func (m *memMeetings) ListForUser(_ context.Context, userID int) ([]models.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Meeting{}
	for _, mt := range m.meetings {
		if mt.HasParticipant(userID) {
			out = append(out, *mt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *memMeetings) Delete(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.meetings[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.meetings, id)
	return nil
}

func (m *memMeetings) MeetingsForUsersBetween(_ context.Context, userIDs []int, start, end time.Time) ([]models.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Meeting
	for _, mt := range m.meetings {
		if mt.StartTime.After(end) || mt.EndTime.Before(start) {
			continue
		}
		for _, id := range userIDs {
			if mt.HasParticipant(id) {
				out = append(out, *mt)
				break
			}
		}
	}
	return out, nil
}

func (m *memMeetings) LockUsers(ctx context.Context, ids []int) ([]int, error) {
	return m.users.ExistingIDs(ctx, ids)
}

func (m *memMeetings) Create(_ context.Context, mt *models.Meeting) error {
	if m.beforeWrite != nil {
		m.beforeWrite()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	mt.ID = m.nextID
	cp := *mt
	m.meetings[mt.ID] = &cp
	return nil
}

func (m *memMeetings) Update(_ context.Context, mt *models.Meeting) error {
	if m.beforeWrite != nil {
		m.beforeWrite()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.meetings[mt.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *mt
	m.meetings[mt.ID] = &cp
	return nil
}

type recordedEvent struct {
	name    string
	meeting models.Meeting
}

type recordingNotifier struct {
	events []recordedEvent
}

func (n *recordingNotifier) Publish(event string, meeting models.Meeting) {
	n.events = append(n.events, recordedEvent{name: event, meeting: meeting})
}
