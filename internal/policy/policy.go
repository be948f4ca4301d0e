// Package policy contains the access decisions for teams, tasks,
// comments, evaluations and meetings. Every function returns nil to
// allow, or a typed error from apperr to deny.
package policy

import (
	"bms/internal/apperr"
	"bms/internal/models"
)

const (
	ReasonCreateTeam  = "Только администратор системы может создавать команду"
	ReasonManageTeam  = "Недостаточно прав для выполнения операции"
	ReasonUpdateTask  = "Нет прав на изменение задачи"
	ReasonDeleteTask  = "Нет прав на удаление задачи"
	ReasonViewTask    = "Нет доступа к задаче"
	ReasonComment     = "Нет доступа к комментированию задачи"
	ReasonEvaluate    = "Нет прав на выставление оценки"
	ReasonViewMeeting = "Нет доступа к встрече"
	ReasonNotInTeam   = "Пользователь не состоит в этой команде"
	ReasonTeamAdmin   = "Нельзя менять роль администратора команды"
	ReasonTaskNotDone = "Задача ещё не завершена"
	ReasonEvaluated   = "Оценка уже существует"
)

type MeetingAction string

const (
	MeetingCreate MeetingAction = "create"
	MeetingUpdate MeetingAction = "update"
	MeetingDelete MeetingAction = "delete"
)

var managerOnly = map[MeetingAction]string{
	MeetingCreate: "Только менеджер может создавать встречи",
	MeetingUpdate: "Только менеджер может обновлять встречи",
	MeetingDelete: "Только менеджер может удалять встречи",
}

var creatorOnly = map[MeetingAction]string{
	MeetingUpdate: "Можно редактировать только свои встречи",
	MeetingDelete: "Можно удалять только свои встречи",
}

func CanCreateTeam(actor models.User) error {
	if actor.Role != models.RoleAdmin {
		return apperr.Forbidden(ReasonCreateTeam)
	}
	return nil
}

// CanManageTeam gates reading a team and changing its membership.
// Both conditions are required: a global admin who is not this team's
// admin is denied.
func CanManageTeam(actor models.User, team models.Team) error {
	if actor.Role != models.RoleAdmin || team.AdminID != actor.ID {
		return apperr.Forbidden(ReasonManageTeam)
	}
	return nil
}

// CanChangeMemberRole checks the target of a role update. It assumes
// CanManageTeam already passed for the actor.
func CanChangeMemberRole(team models.Team, target models.User) error {
	if !target.InTeam(team.ID) {
		return apperr.Validation(ReasonNotInTeam)
	}
	if target.ID == team.AdminID {
		return apperr.Validation(ReasonTeamAdmin)
	}
	return nil
}

// CanCreateTask allows every authenticated user.
func CanCreateTask(actor models.User) error {
	return nil
}

func CanUpdateTask(actor models.User, task models.Task) error {
	switch {
	case actor.Role == models.RoleAdmin:
		return nil
	case actor.Role == models.RoleManager && sameTeam(actor.TeamID, task.CreatorTeamID):
		return nil
	case actor.ID == task.CreatorID:
		return nil
	}
	return apperr.Forbidden(ReasonUpdateTask)
}

func CanDeleteTask(actor models.User, task models.Task) error {
	if actor.Role == models.RoleAdmin || actor.ID == task.CreatorID {
		return nil
	}
	return apperr.Forbidden(ReasonDeleteTask)
}

func CanComment(actor models.User, task models.Task) error {
	if actor.Role == models.RoleAdmin || inTaskTeams(actor, task) {
		return nil
	}
	return apperr.Forbidden(ReasonComment)
}

// CanViewTask extends the comment rule with the task's own creator and
// assignee, who may have left the team since.
func CanViewTask(actor models.User, task models.Task) error {
	if actor.ID == task.CreatorID || (task.AssigneeID != nil && *task.AssigneeID == actor.ID) {
		return nil
	}
	if actor.Role == models.RoleAdmin || inTaskTeams(actor, task) {
		return nil
	}
	return apperr.Forbidden(ReasonViewTask)
}

// CanEvaluate checks, in order: task completion, evaluator role, and
// that no evaluation exists yet.
func CanEvaluate(actor models.User, task models.Task, exists bool) error {
	if task.Status != models.StatusDone {
		return apperr.Validation(ReasonTaskNotDone)
	}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleManager {
		return apperr.Forbidden(ReasonEvaluate)
	}
	if exists {
		return apperr.Conflict(ReasonEvaluated)
	}
	return nil
}

func CanCreateMeeting(actor models.User) error {
	if actor.Role != models.RoleManager {
		return apperr.Forbidden(managerOnly[MeetingCreate])
	}
	return nil
}

// CanModifyMeetings is the role half of CanModifyMeeting. It needs no
// meeting, so callers run it before the lookup.
func CanModifyMeetings(actor models.User, action MeetingAction) error {
	if actor.Role != models.RoleManager {
		return apperr.Forbidden(managerOnly[action])
	}
	return nil
}

// CanModifyMeeting gates update and delete: the actor must be a
// manager and the meeting's creator.
func CanModifyMeeting(actor models.User, meeting models.Meeting, action MeetingAction) error {
	if err := CanModifyMeetings(actor, action); err != nil {
		return err
	}
	if meeting.CreatorID != actor.ID {
		return apperr.Forbidden(creatorOnly[action])
	}
	return nil
}

func CanViewMeeting(actor models.User, meeting models.Meeting) error {
	if meeting.CreatorID == actor.ID || meeting.HasParticipant(actor.ID) {
		return nil
	}
	return apperr.Forbidden(ReasonViewMeeting)
}

// A user without a team never shares a team with anyone.
func sameTeam(a, b *int) bool {
	return a != nil && b != nil && *a == *b
}

func inTaskTeams(actor models.User, task models.Task) bool {
	return sameTeam(actor.TeamID, task.CreatorTeamID) || sameTeam(actor.TeamID, task.AssigneeTeamID)
}
