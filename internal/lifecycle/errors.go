package lifecycle

import (
	"errors"
	"fmt"

	"github.com/pkgindex/pkgindex/internal/db/models"
)

// Sentinel errors returned by the lifecycle service.
var (
	// ErrProjectNotFound is returned when the named project does not exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrReasonRequired is returned when a quarantine request carries no reason.
	ErrReasonRequired = errors.New("a reason is required to quarantine a project")
)

// InvalidTransitionError is returned when the requested status change is not
// a legal edge of the lifecycle state machine.
type InvalidTransitionError struct {
	From models.LifecycleStatus
	To   models.LifecycleStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid lifecycle transition from %q to %q", e.From, e.To)
}

// ProjectQuarantinedError is returned when a mutation is attempted against a
// quarantined project by a non-admin actor.
type ProjectQuarantinedError struct {
	ProjectName string
}

func (e *ProjectQuarantinedError) Error() string {
	return fmt.Sprintf("project %q is quarantined and cannot be modified", e.ProjectName)
}
