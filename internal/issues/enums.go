package issues

import (
	"errors"
	"strings"
)

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusClosed     Status = "CLOSED"
)

var (
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidStatus   = errors.New("invalid status")
)

func canonical(s string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_")
}

// ParsePriority accepts any casing, e.g. "high" -> PriorityHigh.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(canonical(s)); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	}
	return "", ErrInvalidPriority
}

// ParseStatus accepts any casing and "-" for "_", e.g. "in-progress".
func ParseStatus(s string) (Status, error) {
	switch st := Status(canonical(s)); st {
	case StatusOpen, StatusInProgress, StatusClosed:
		return st, nil
	}
	return "", ErrInvalidStatus
}
