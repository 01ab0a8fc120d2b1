package events

import (
	"github.com/maxaizer/autoapply/internal/domain/models"
)

var ApplicationTransitionedTopic = "ApplicationTransitionedEvent"

// ApplicationTransitioned is published after every committed lifecycle change.
// From is empty for newly created applications.
type ApplicationTransitioned struct {
	Application models.PendingApplication
	From        models.ApplicationStatus
	To          models.ApplicationStatus
	Activity    models.ActivityEvent
}

func (e ApplicationTransitioned) IsCreation() bool {
	return e.From == ""
}
