// Package models - transition_event.go defines the TransitionEvent model, the
// append-only audit record written for every lifecycle status change.
package models

import "time"

// TransitionEvent is an immutable record of a single lifecycle transition.
// Events are never updated or deleted, and they intentionally carry no foreign
// key to the projects table: when a project is hard-deleted its transition
// history must remain queryable by project ID.
type TransitionEvent struct {
	ID         string          `json:"id"`
	ProjectID  string          `json:"project_id"`
	ActorID    string          `json:"actor_id"`
	FromStatus LifecycleStatus `json:"from_status"`
	ToStatus   LifecycleStatus `json:"to_status"`
	Reason     *string         `json:"reason,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
