// Package models - project.go defines the Project model for index entries and the
// LifecycleStatus value type that drives the quarantine state machine.
package models

import "time"

// LifecycleStatus represents the lifecycle state of a project. It is a string
// value type so status values are stored and compared directly against the
// projects.lifecycle_status column. The allowed transitions form a small state
// machine enforced by the lifecycle service.
type LifecycleStatus string

const (
	// StatusNormal is the initial state of every project: publicly listed and
	// mutable by its owner.
	StatusNormal LifecycleStatus = "normal"
	// StatusQuarantineEnter marks a project flagged by an administrator on
	// suspicion of malware. The project is hidden from the public index and
	// owner mutations are rejected. All releases and metadata are preserved.
	StatusQuarantineEnter LifecycleStatus = "quarantine_enter"
	// StatusQuarantineExit marks a project cleared after investigation.
	// Behaviorally identical to StatusNormal; kept as a distinct value so the
	// transition history records that the project went through quarantine.
	StatusQuarantineExit LifecycleStatus = "quarantine_exit"
)

// Valid reports whether s is one of the three known status values.
func (s LifecycleStatus) Valid() bool {
	switch s {
	case StatusNormal, StatusQuarantineEnter, StatusQuarantineExit:
		return true
	}
	return false
}

// Visible reports whether a project in this status appears in the public index feed.
func (s LifecycleStatus) Visible() bool {
	return s != StatusQuarantineEnter
}

// BlocksMutation reports whether this status rejects owner-initiated writes
// (new releases, metadata edits). Administrators are exempt from this check;
// that exemption is applied by the caller, not here.
func (s LifecycleStatus) BlocksMutation() bool {
	return s == StatusQuarantineEnter
}

// CanTransitionTo reports whether the edge s -> to is a legal transition.
// The only legal edges are:
//
//	normal          -> quarantine_enter
//	quarantine_exit -> quarantine_enter
//	quarantine_enter -> quarantine_exit
func (s LifecycleStatus) CanTransitionTo(to LifecycleStatus) bool {
	switch to {
	case StatusQuarantineEnter:
		return s == StatusNormal || s == StatusQuarantineExit
	case StatusQuarantineExit:
		return s == StatusQuarantineEnter
	}
	return false
}

// Project represents a named package entry in the index. The name is unique
// and immutable once claimed; everything else is owner-editable metadata.
type Project struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	LifecycleStatus LifecycleStatus `json:"lifecycle_status"`
	Description     *string         `json:"description,omitempty"`
	Homepage        *string         `json:"homepage,omitempty"`
	OwnerID         *string         `json:"owner_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	// Joined fields (not stored in the projects table)
	OwnerName *string `json:"owner_name,omitempty"`
}

// ProjectIndexEntry is returned by the public index feed and carries the
// latest release and release count fetched in a single query to avoid N+1
// lookups on the listing path.
type ProjectIndexEntry struct {
	Project
	LatestVersion *string `json:"latest_version,omitempty"`
	ReleaseCount  int64   `json:"release_count"`
}
