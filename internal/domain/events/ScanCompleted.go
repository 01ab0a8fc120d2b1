package events

import "github.com/maxaizer/autoapply/internal/domain/models"

var ScanCompletedTopic = "ScanCompletedEvent"

type ScanCompleted struct {
	Report models.ScanReport
}
