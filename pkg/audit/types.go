package audit

import (
	"context"
	"time"
)

// EventType identifies the kind of audit event
type EventType string

const (
	EventLoginSuccess EventType = "login.success"
	EventLoginFailure EventType = "login.failure"
	EventLogout       EventType = "logout"
	EventSingleLogout EventType = "logout.single"
	EventUserCreated  EventType = "user.created"
)

// Event is one entry in the audit trail
type Event struct {
	ID         int64     `json:"id"`
	Type       EventType `json:"type"`
	Principal  string    `json:"principal,omitempty"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Recorder persists audit events
type Recorder interface {
	Record(ctx context.Context, event *Event) error
}
