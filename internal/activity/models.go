package activity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventUserRegistered  EventType = "USER_REGISTERED"
	EventLoginSucceeded  EventType = "LOGIN_SUCCEEDED"
	EventLoginFailed     EventType = "LOGIN_FAILED"
	EventTokenRefreshed  EventType = "TOKEN_REFRESHED"
	EventPasswordChanged EventType = "PASSWORD_CHANGED"
	EventIssueCreated    EventType = "ISSUE_CREATED"
	EventIssueUpdated    EventType = "ISSUE_UPDATED"
	EventIssueDeleted    EventType = "ISSUE_DELETED"
)

// Event is one entry of the activity stream.
type Event struct {
	ID         uuid.UUID         `json:"id"`
	Type       EventType         `json:"type"`
	ActorID    string            `json:"actor_id,omitempty"`
	ActorEmail string            `json:"actor_email,omitempty"`
	SubjectID  string            `json:"subject_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func NewEvent(eventType EventType, actorID, actorEmail string) *Event {
	return &Event{
		ID:         uuid.New(),
		Type:       eventType,
		ActorID:    actorID,
		ActorEmail: actorEmail,
		OccurredAt: time.Now().UTC(),
	}
}

// WithSubject sets the resource the event is about.
func (e *Event) WithSubject(id string) *Event {
	e.SubjectID = id
	return e
}

func (e *Event) WithMeta(key, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// PartitionKey keeps one actor's events ordered on a single partition.
func (e *Event) PartitionKey() string {
	if e.ActorID != "" {
		return e.ActorID
	}
	return e.ActorEmail
}
