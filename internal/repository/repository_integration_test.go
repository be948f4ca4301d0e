package repository

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"bms/internal/apperr"
	"bms/internal/models"
	"bms/internal/scheduling"

	"github.com/go-redis/redis/v8"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testDB    *sql.DB
	testRedis *redis.Client
)

// TestMain starts PostgreSQL and Redis in Docker. Without Docker, or with
// -short, the integration tests are skipped.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	pool, err := dockertest.NewPool("")
	if err == nil {
		err = pool.Client.Ping()
	}
	if err != nil {
		log.Printf("docker unavailable, skipping integration tests: %v", err)
		os.Exit(m.Run())
	}
	pool.MaxWait = 2 * time.Minute

	noRestart := func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	}

	pg, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env:        []string{"POSTGRES_PASSWORD=secret", "POSTGRES_USER=bms", "POSTGRES_DB=bms_test"},
	}, noRestart)
	if err != nil {
		log.Fatalf("could not start postgres: %v", err)
	}
	_ = pg.Expire(300)

	dsn := fmt.Sprintf("host=localhost port=%s user=bms password=secret dbname=bms_test sslmode=disable", pg.GetPort("5432/tcp"))
	if err := pool.Retry(func() error {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return err
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return err
		}
		testDB = db
		return nil
	}); err != nil {
		_ = pool.Purge(pg)
		log.Fatalf("could not connect to postgres: %v", err)
	}
	if err := CreateTableIfNotExists(context.Background(), testDB); err != nil {
		_ = pool.Purge(pg)
		log.Fatalf("could not create schema: %v", err)
	}

	rd, err := pool.RunWithOptions(&dockertest.RunOptions{Repository: "redis", Tag: "7-alpine"}, noRestart)
	if err == nil {
		_ = rd.Expire(300)
		_ = pool.Retry(func() error {
			client := redis.NewClient(&redis.Options{Addr: "localhost:" + rd.GetPort("6379/tcp")})
			if err := client.Ping(context.Background()).Err(); err != nil {
				client.Close()
				return err
			}
			testRedis = client
			return nil
		})
	}

	code := m.Run()

	_ = DeleteAllTable(context.Background(), testDB)
	testDB.Close()
	_ = pool.Purge(pg)
	if rd != nil {
		if testRedis != nil {
			testRedis.Close()
		}
		_ = pool.Purge(rd)
	}
	os.Exit(code)
}

func requireDB(t *testing.T) *sql.DB {
	t.Helper()
	if testDB == nil {
		t.Skip("integration database not available")
	}
	_, err := testDB.Exec(`TRUNCATE meeting_participants, meetings, evaluations, comments, tasks, users, teams RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return testDB
}

func mustUser(t *testing.T, users *UserRepository, email string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Email: email, HashedPassword: "x", Role: role}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func TestSchemaIsIdempotent(t *testing.T) {
	db := requireDB(t)
	require.NoError(t, CreateTableIfNotExists(context.Background(), db))

	created, err := CreateAdminUser(context.Background(), db, "admin@example.com", "admin123")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = CreateAdminUser(context.Background(), db, "admin@example.com", "admin123")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestUsersAndTeams(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	users, teams := NewUserRepository(db), NewTeamRepository(db)

	admin := mustUser(t, users, "admin@example.com", models.RoleAdmin)
	member := mustUser(t, users, "member@example.com", models.RoleUser)
	assert.True(t, member.IsActive)

	err := users.Create(ctx, &models.User{Email: "member@example.com", HashedPassword: "x", Role: models.RoleUser})
	var dup *DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, ConstraintUserEmail, dup.Constraint)

	code := "AB12CD34"
	team := &models.Team{Name: "Core", InviteCode: &code, AdminID: admin.ID}
	require.NoError(t, teams.Create(ctx, team))

	err = teams.Create(ctx, &models.Team{Name: "Core", AdminID: admin.ID})
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, ConstraintTeamName, dup.Constraint)

	exists, err := teams.InviteCodeExists(ctx, code)
	require.NoError(t, err)
	assert.True(t, exists)

	joined, err := users.JoinTeam(ctx, member.ID, team.ID)
	require.NoError(t, err)
	assert.True(t, joined)
	joined, err = users.JoinTeam(ctx, member.ID, team.ID)
	require.NoError(t, err)
	assert.False(t, joined)

	got, err := teams.GetByInviteCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, team.ID, got.ID)

	got, err = teams.GetByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{member.ID}, got.Members)

	_, err = teams.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

// Deleting a user: tasks they created and teams they administer go,
// assignments and comment authorship become NULL.
func TestDeletionRules(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	users, teams, tasks := NewUserRepository(db), NewTeamRepository(db), NewTaskRepository(db)

	admin := mustUser(t, users, "admin@example.com", models.RoleAdmin)
	worker := mustUser(t, users, "worker@example.com", models.RoleUser)
	team := &models.Team{Name: "Core", AdminID: admin.ID}
	require.NoError(t, teams.Create(ctx, team))
	require.NoError(t, users.SetTeam(ctx, worker.ID, &team.ID))

	own := &models.Task{Title: "admin task", Status: models.StatusOpen, CreatorID: admin.ID, AssigneeID: &worker.ID}
	require.NoError(t, tasks.Create(ctx, own))
	assigned := &models.Task{Title: "worker task", Status: models.StatusDone, CreatorID: worker.ID, AssigneeID: &admin.ID}
	require.NoError(t, tasks.Create(ctx, assigned))
	require.NoError(t, tasks.AddComment(ctx, &models.Comment{Text: "hi", AuthorID: &admin.ID, TaskID: assigned.ID}))
	require.NoError(t, tasks.AddEvaluation(ctx, &models.Evaluation{Score: 5, EvaluatorID: &admin.ID, TaskID: assigned.ID}))

	require.NoError(t, users.Delete(ctx, admin.ID))

	_, err := tasks.GetByID(ctx, own.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = teams.GetByID(ctx, team.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	left, err := tasks.GetByID(ctx, assigned.ID)
	require.NoError(t, err)
	assert.Nil(t, left.AssigneeID)
	require.Len(t, left.Comments, 1)
	assert.Nil(t, left.Comments[0].AuthorID)
	require.Len(t, left.Evaluations, 1)
	assert.Nil(t, left.Evaluations[0].EvaluatorID)

	u, err := users.GetByID(ctx, worker.ID)
	require.NoError(t, err)
	assert.Nil(t, u.TeamID)

	require.NoError(t, tasks.Delete(ctx, assigned.ID))
	comments, err := tasks.ListComments(ctx, assigned.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestEvaluationUniquePerTask(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	users, tasks := NewUserRepository(db), NewTaskRepository(db)

	manager := mustUser(t, users, "m@example.com", models.RoleManager)
	task := &models.Task{Title: "t", Status: models.StatusDone, CreatorID: manager.ID}
	require.NoError(t, tasks.Create(ctx, task))

	require.NoError(t, tasks.AddEvaluation(ctx, &models.Evaluation{Score: 4, EvaluatorID: &manager.ID, TaskID: task.ID}))
	err := tasks.AddEvaluation(ctx, &models.Evaluation{Score: 2, EvaluatorID: &manager.ID, TaskID: task.ID})
	var dup *DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, ConstraintEvaluationTask, dup.Constraint)

	exists, err := tasks.EvaluationExists(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAverageScore(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	users, tasks := NewUserRepository(db), NewTaskRepository(db)

	manager := mustUser(t, users, "m@example.com", models.RoleManager)
	worker := mustUser(t, users, "w@example.com", models.RoleUser)
	for _, score := range []int{5, 4} {
		task := &models.Task{Title: "t", Status: models.StatusDone, CreatorID: manager.ID, AssigneeID: &worker.ID}
		require.NoError(t, tasks.Create(ctx, task))
		require.NoError(t, tasks.AddEvaluation(ctx, &models.Evaluation{Score: score, EvaluatorID: &manager.ID, TaskID: task.ID}))
	}

	now := time.Now().UTC()
	avg, err := tasks.AverageScore(ctx, worker.ID, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.InDelta(t, 4.5, *avg, 0.001)

	avg, err = tasks.AverageScore(ctx, manager.ID, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Nil(t, avg)
}

// Meetings 10:00-11:00 for {1,2}: 10:30-11:30 for {2,3} names user 2,
// 11:00-12:00 is free.
func TestMeetingConflictQuery(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	users, meetings := NewUserRepository(db), NewMeetingRepository(db)

	u1 := mustUser(t, users, "u1@example.com", models.RoleManager)
	u2 := mustUser(t, users, "u2@example.com", models.RoleUser)
	u3 := mustUser(t, users, "u3@example.com", models.RoleUser)
	at := func(h, m int) time.Time { return time.Date(2025, 3, 10, h, m, 0, 0, time.UTC) }

	m1 := &models.Meeting{Title: "m1", StartTime: at(10, 0), EndTime: at(11, 0), CreatorID: u1.ID, Participants: []int{u1.ID, u2.ID}}
	require.NoError(t, meetings.InTx(ctx, func(tx MeetingTx) error { return tx.Create(ctx, m1) }))

	checker := scheduling.NewChecker(meetings)
	err := checker.CheckTimeConflicts(ctx, []int{u2.ID, u3.ID}, at(10, 30), at(11, 30), nil)
	var conflict *apperr.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, []int{u2.ID}, conflict.BusyUserIDs)

	assert.NoError(t, checker.CheckTimeConflicts(ctx, []int{u2.ID, u3.ID}, at(11, 0), at(12, 0), nil))
	assert.NoError(t, checker.CheckTimeConflicts(ctx, []int{u1.ID}, at(10, 15), at(10, 45), &m1.ID))

	got, err := meetings.GetByID(ctx, m1.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{u1.ID, u2.ID}, got.Participants)
	assert.True(t, got.StartTime.Equal(at(10, 0)))

	m1.Participants = []int{u1.ID, u3.ID}
	require.NoError(t, meetings.InTx(ctx, func(tx MeetingTx) error { return tx.Update(ctx, m1) }))
	list, err := meetings.ListForUser(ctx, u2.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	starting, err := meetings.MeetingsStartingBetween(ctx, u3.ID, at(0, 0), at(23, 59))
	require.NoError(t, err)
	assert.Len(t, starting, 1)
}

func TestMeetingTxRollsBack(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	users, meetings := NewUserRepository(db), NewMeetingRepository(db)
	u1 := mustUser(t, users, "u1@example.com", models.RoleManager)

	boom := errors.New("boom")
	err := meetings.InTx(ctx, func(tx MeetingTx) error {
		found, err := tx.LockUsers(ctx, []int{u1.ID, 999})
		if err != nil {
			return err
		}
		assert.Equal(t, []int{u1.ID}, found)
		m := &models.Meeting{Title: "x", StartTime: time.Now(), EndTime: time.Now().Add(time.Hour), CreatorID: u1.ID, Participants: []int{u1.ID}}
		if err := tx.Create(ctx, m); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	list, err := meetings.ListForUser(ctx, u1.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTasksDueBetweenByTeam(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	users, teams, tasks := NewUserRepository(db), NewTeamRepository(db), NewTaskRepository(db)

	admin := mustUser(t, users, "admin@example.com", models.RoleAdmin)
	inTeam := mustUser(t, users, "in@example.com", models.RoleUser)
	outside := mustUser(t, users, "out@example.com", models.RoleUser)
	team := &models.Team{Name: "Core", AdminID: admin.ID}
	require.NoError(t, teams.Create(ctx, team))
	require.NoError(t, users.SetTeam(ctx, inTeam.ID, &team.ID))

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	nine := day.Add(9 * time.Hour)
	nextDay := day.AddDate(0, 0, 1)
	for _, task := range []*models.Task{
		{Title: "due", Status: models.StatusOpen, CreatorID: inTeam.ID, Deadline: &nine},
		{Title: "tomorrow", Status: models.StatusOpen, CreatorID: inTeam.ID, Deadline: &nextDay},
		{Title: "other team", Status: models.StatusOpen, CreatorID: outside.ID, Deadline: &nine},
	} {
		require.NoError(t, tasks.Create(ctx, task))
	}

	due, err := CalendarSource{Tasks: tasks}.TasksDueBetween(ctx, team.ID, day, nextDay)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "due", due[0].Title)
}

func TestTaskCache(t *testing.T) {
	if testRedis == nil {
		t.Skip("integration redis not available")
	}
	ctx := context.Background()
	cache := NewTaskCache(testRedis, time.Minute)
	require.NoError(t, testRedis.FlushDB(ctx).Err())

	miss, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, miss)

	team := 3
	require.NoError(t, cache.Set(ctx, &models.Task{ID: 1, Title: "t", Status: models.StatusOpen, CreatorID: 2, CreatorTeamID: &team}))
	hit, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "t", hit.Title)
	assert.Nil(t, hit.CreatorTeamID, "team ids are reloaded, never cached")

	ttl, err := testRedis.TTL(ctx, "task:1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, cache.Invalidate(ctx, 1))
	miss, err = cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, miss)
}
