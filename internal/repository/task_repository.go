package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bms/internal/models"
)

const taskSelect = `
SELECT t.id, t.title, t.description, t.status, t.creator_id, t.assignee_id,
       t.deadline, t.created_at, c.team_id, a.team_id
FROM tasks t
JOIN users c ON c.id = t.creator_id
LEFT JOIN users a ON a.id = t.assignee_id`

type TaskRepository struct {
	db DBTX
}

func NewTaskRepository(db DBTX) *TaskRepository {
	return &TaskRepository{db: db}
}

func scanTask(row interface{ Scan(...interface{}) error }) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.CreatorID, &t.AssigneeID,
		&t.Deadline, &t.CreatedAt, &t.CreatorTeamID, &t.AssigneeTeamID)
	if err != nil {
		return nil, mapError(err)
	}
	t.Comments = []models.Comment{}
	t.Evaluations = []models.Evaluation{}
	return &t, nil
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...interface{}) ([]models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepository) Create(ctx context.Context, t *models.Task) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO tasks (title, description, status, creator_id, assignee_id, deadline)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		t.Title, t.Description, t.Status, t.CreatorID, t.AssigneeID, t.Deadline,
	).Scan(&t.ID)
	if err != nil {
		return mapError(err)
	}
	created, err := r.GetByID(ctx, t.ID)
	if err != nil {
		return err
	}
	*t = *created
	return nil
}

// GetByID loads the task with its comments and evaluations.
func (r *TaskRepository) GetByID(ctx context.Context, id int) (*models.Task, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx, taskSelect+" WHERE t.id = $1", id))
	if err != nil {
		return nil, err
	}
	tasks := []models.Task{*t}
	if err := r.attachChildren(ctx, tasks); err != nil {
		return nil, err
	}
	return &tasks[0], nil
}

// ListForUser returns tasks the user created or is assigned to.
func (r *TaskRepository) ListForUser(ctx context.Context, userID int) ([]models.Task, error) {
	tasks, err := r.queryTasks(ctx,
		taskSelect+" WHERE t.creator_id = $1 OR t.assignee_id = $1 ORDER BY t.id", userID)
	if err != nil {
		return nil, err
	}
	if err := r.attachChildren(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// TaskUpdate holds the optional columns of a partial task update.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *models.TaskStatus
	AssigneeID  *int
	Deadline    *time.Time
}

func (r *TaskRepository) Update(ctx context.Context, id int, upd TaskUpdate) (*models.Task, error) {
	sets := []string{}
	args := []interface{}{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if upd.AssigneeID != nil {
		add("assignee_id", *upd.AssigneeID)
	}
	if upd.Deadline != nil {
		add("deadline", *upd.Deadline)
	}

	if len(sets) > 0 {
		args = append(args, id)
		query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
		res, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, mapError(err)
		}
		if err := rowsAffected(res); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

func (r *TaskRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return mapError(err)
	}
	return rowsAffected(res)
}

// TasksDueBetween returns tasks due in [from, to) whose creator or
// assignee belongs to teamID.
func (r *TaskRepository) TasksDueBetween(ctx context.Context, teamID int, from, to time.Time) ([]models.Task, error) {
	return r.queryTasks(ctx, taskSelect+`
WHERE t.deadline IS NOT NULL
  AND t.deadline >= $2 AND t.deadline < $3
  AND (c.team_id = $1 OR a.team_id = $1)
ORDER BY t.deadline`, teamID, from, to)
}

func (r *TaskRepository) AddComment(ctx context.Context, c *models.Comment) error {
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO comments (text, author_id, task_id) VALUES ($1, $2, $3) RETURNING id, created_at",
		c.Text, c.AuthorID, c.TaskID,
	).Scan(&c.ID, &c.CreatedAt)
	return mapError(err)
}

func (r *TaskRepository) ListComments(ctx context.Context, taskID int) ([]models.Comment, error) {
	byTask, err := r.commentsFor(ctx, []int{taskID})
	if err != nil {
		return nil, err
	}
	if byTask[taskID] == nil {
		return []models.Comment{}, nil
	}
	return byTask[taskID], nil
}

func (r *TaskRepository) AddEvaluation(ctx context.Context, e *models.Evaluation) error {
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO evaluations (score, evaluator_id, task_id) VALUES ($1, $2, $3) RETURNING id, created_at",
		e.Score, e.EvaluatorID, e.TaskID,
	).Scan(&e.ID, &e.CreatedAt)
	return mapError(err)
}

func (r *TaskRepository) ListEvaluations(ctx context.Context, taskID int) ([]models.Evaluation, error) {
	byTask, err := r.evaluationsFor(ctx, []int{taskID})
	if err != nil {
		return nil, err
	}
	if byTask[taskID] == nil {
		return []models.Evaluation{}, nil
	}
	return byTask[taskID], nil
}

func (r *TaskRepository) EvaluationExists(ctx context.Context, taskID int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM evaluations WHERE task_id = $1)", taskID,
	).Scan(&exists)
	return exists, mapError(err)
}

// AverageScore averages evaluations created in [from, to] on tasks
// assigned to userID. It returns nil when there are none.
func (r *TaskRepository) AverageScore(ctx context.Context, userID int, from, to time.Time) (*float64, error) {
	var avg *float64
	err := r.db.QueryRowContext(ctx, `
SELECT AVG(e.score)::float8
FROM evaluations e
JOIN tasks t ON t.id = e.task_id
WHERE t.assignee_id = $1 AND e.created_at >= $2 AND e.created_at <= $3`,
		userID, from, to,
	).Scan(&avg)
	if err != nil {
		return nil, mapError(err)
	}
	return avg, nil
}

func (r *TaskRepository) attachChildren(ctx context.Context, tasks []models.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	ids := make([]int, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}

	comments, err := r.commentsFor(ctx, ids)
	if err != nil {
		return err
	}
	evaluations, err := r.evaluationsFor(ctx, ids)
	if err != nil {
		return err
	}
	for i := range tasks {
		if c := comments[tasks[i].ID]; c != nil {
			tasks[i].Comments = c
		}
		if e := evaluations[tasks[i].ID]; e != nil {
			tasks[i].Evaluations = e
		}
	}
	return nil
}

func (r *TaskRepository) commentsFor(ctx context.Context, taskIDs []int) (map[int][]models.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, text, author_id, task_id, created_at FROM comments WHERE task_id = ANY($1) ORDER BY id",
		int64s(taskIDs))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := map[int][]models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.Text, &c.AuthorID, &c.TaskID, &c.CreatedAt); err != nil {
			return nil, err
		}
		out[c.TaskID] = append(out[c.TaskID], c)
	}
	return out, rows.Err()
}

func (r *TaskRepository) evaluationsFor(ctx context.Context, taskIDs []int) (map[int][]models.Evaluation, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, score, evaluator_id, task_id, created_at FROM evaluations WHERE task_id = ANY($1) ORDER BY id",
		int64s(taskIDs))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := map[int][]models.Evaluation{}
	for rows.Next() {
		var e models.Evaluation
		if err := rows.Scan(&e.ID, &e.Score, &e.EvaluatorID, &e.TaskID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out[e.TaskID] = append(out[e.TaskID], e)
	}
	return out, rows.Err()
}
