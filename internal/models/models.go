package models

import "time"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	default:
		return false
	}
}

type TaskStatus string

const (
	StatusOpen       TaskStatus = "open"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusDone:
		return true
	default:
		return false
	}
}

type User struct {
	ID             int       `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	Role           Role      `json:"role"`
	IsActive       bool      `json:"is_active"`
	TeamID         *int      `json:"team_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// InTeam reports whether the user currently belongs to teamID.
func (u User) InTeam(teamID int) bool {
	return u.TeamID != nil && *u.TeamID == teamID
}

type Team struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	InviteCode *string `json:"invite_code"`
	AdminID    int     `json:"admin_id"`
	Members    []int   `json:"members"`
}

type Task struct {
	ID          int          `json:"id"`
	Title       string       `json:"title"`
	Description *string      `json:"description"`
	Status      TaskStatus   `json:"status"`
	CreatorID   int          `json:"creator_id"`
	AssigneeID  *int         `json:"assignee_id"`
	Deadline    *time.Time   `json:"deadline"`
	CreatedAt   time.Time    `json:"created_at"`
	Comments    []Comment    `json:"comments"`
	Evaluations []Evaluation `json:"evaluations"`

	// Team of the creator and of the assignee at load time.
	CreatorTeamID  *int `json:"-"`
	AssigneeTeamID *int `json:"-"`
}

type Comment struct {
	ID        int       `json:"id"`
	Text      string    `json:"text"`
	AuthorID  *int      `json:"author_id"`
	TaskID    int       `json:"task_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Evaluation struct {
	ID          int       `json:"id"`
	Score       int       `json:"score"`
	EvaluatorID *int      `json:"evaluator_id"`
	TaskID      int       `json:"task_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type Meeting struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	CreatorID    int       `json:"creator_id"`
	Participants []int     `json:"participants"`
}

// HasParticipant reports whether userID takes part in the meeting.
func (m Meeting) HasParticipant(userID int) bool {
	for _, id := range m.Participants {
		if id == userID {
			return true
		}
	}
	return false
}
