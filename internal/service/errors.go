package service

import (
	"errors"

	"bms/internal/apperr"
	"bms/internal/repository"
)

const (
	msgTeamNotFound        = "Команда не найдена"
	msgTaskNotFound        = "Задача не найдена"
	msgMeetingNotFound     = "Встреча не найдена"
	msgUserNotFound        = "Пользователь не найден"
	msgParticipantsMissing = "Один или несколько участников не найдены"
	msgTeamNameTaken       = "Команда с таким названием уже существует"
	msgEmailTaken          = "Пользователь с таким email уже существует"
	msgAlreadyInTeam       = "Вы уже в команде."
	msgInviteNotFound      = "Команда с таким кодом не найдена."
	msgBadPeriod           = "Некорректный период: 'from' позже 'to'"
	msgBadDate             = "Неверный формат даты, ожидается YYYY-MM-DD"
	msgBadInterval         = "Время начала должно быть раньше времени окончания"
	msgBadScore            = "Оценка должна быть от 1 до 5"
	msgBadRole             = "Недопустимая роль"
	msgBadStatus           = "Недопустимый статус задачи"
)

// notFound turns repository.ErrNotFound into a typed not-found error and
// passes anything else through.
func notFound(err error, resource, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(resource, msg)
	}
	return err
}

func isDuplicate(err error, constraint string) bool {
	var dup *repository.DuplicateError
	return errors.As(err, &dup) && dup.Constraint == constraint
}
