package services

import (
	"context"
	"fmt"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/autoapply/internal/domain/events"
	"github.com/maxaizer/autoapply/internal/domain/models"
	"github.com/maxaizer/autoapply/internal/logger"
	log "github.com/sirupsen/logrus"
)

type notificationRepository interface {
	Add(ctx context.Context, record *models.NotificationRecord) error
	MarkActioned(ctx context.Context, applicationID string) error
}

// Notifier turns lifecycle events into user notifications.
type Notifier struct {
	notifications notificationRepository
}

func NewNotifier(bus EventBus.Bus, notifications notificationRepository) (*Notifier, error) {
	n := &Notifier{notifications: notifications}
	if err := bus.Subscribe(events.ApplicationTransitionedTopic, n.onApplicationTransitioned); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Notifier) onApplicationTransitioned(event events.ApplicationTransitioned) {
	ctx := context.Background()
	app := event.Application

	if event.From == models.StatusPendingApproval && (event.To == models.StatusApproved || event.To == models.StatusRejected) {
		if err := n.notifications.MarkActioned(ctx, app.ID); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to mark notifications actioned: %v", err)
		}
	}

	record, ok := NotificationFor(event)
	if !ok {
		return
	}
	if err := n.notifications.Add(ctx, &record); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to add notification for %s: %v", app.ID, err)
	}
}

// NotificationFor builds the user-facing record for an event. Not every transition produces one.
func NotificationFor(event events.ApplicationTransitioned) (models.NotificationRecord, bool) {
	app := event.Application
	record := models.NotificationRecord{
		UserID:        app.UserID,
		ApplicationID: app.ID,
		Kind:          string(event.To),
	}
	job := fmt.Sprintf("%s at %s", app.JobTitle, app.JobCompany)

	switch {
	case event.IsCreation() && event.To == models.StatusPendingApproval:
		record.Title = "New application awaiting approval"
		record.Body = fmt.Sprintf("%s, match %.0f%%. Recipient %s. Expires %s.",
			job, app.MatchScore*100, app.RecipientEmail, app.ExpiresAt.Format("2006-01-02 15:04"))
		if app.RecipientGuessed {
			record.Body += " The recipient address is a guess and has not been verified."
		}
	case event.To == models.StatusSubmitted:
		record.Title = "Application sent"
		record.Body = fmt.Sprintf("%s was sent to %s.", job, app.RecipientEmail)
	case event.To == models.StatusFailed:
		record.Title = "Application failed"
		record.Body = fmt.Sprintf("%s could not be delivered: %s", job, app.SubmissionError)
	case event.To == models.StatusExpired:
		record.Title = "Application expired"
		record.Body = fmt.Sprintf("%s expired without a decision.", job)
	default:
		return models.NotificationRecord{}, false
	}
	return record, true
}
