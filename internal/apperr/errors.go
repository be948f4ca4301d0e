// Package apperr holds the typed failures that services return and
// handlers translate into HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError covers scheduling overlaps and duplicate resources.
type ConflictError struct {
	Message     string
	BusyUserIDs []int
}

func (e *ConflictError) Error() string { return e.Message }

type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string { return e.Reason }

type NotFoundError struct {
	Resource string
	Message  string
}

func (e *NotFoundError) Error() string { return e.Message }

func Validation(msg string) error { return &ValidationError{Message: msg} }

func Conflict(msg string) error { return &ConflictError{Message: msg} }

func Forbidden(reason string) error { return &ForbiddenError{Reason: reason} }

func NotFound(resource, msg string) error {
	return &NotFoundError{Resource: resource, Message: msg}
}

// BusyUsers builds the scheduling conflict error for the given users.
// Ids are deduplicated and sorted.
func BusyUsers(ids []int) *ConflictError {
	seen := make(map[int]struct{}, len(ids))
	unique := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	sort.Ints(unique)

	parts := make([]string, len(unique))
	for i, id := range unique {
		parts[i] = strconv.Itoa(id)
	}
	return &ConflictError{
		Message:     fmt.Sprintf("Пользователи с ID %s уже заняты в это время", strings.Join(parts, ", ")),
		BusyUserIDs: unique,
	}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsForbidden(err error) bool {
	var target *ForbiddenError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
