package services

import (
	"context"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/autoapply/internal/domain/events"
	"github.com/maxaizer/autoapply/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockNotifications struct {
	mock.Mock
}

func (m *mockNotifications) Add(ctx context.Context, record *models.NotificationRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *mockNotifications) MarkActioned(ctx context.Context, applicationID string) error {
	return m.Called(ctx, applicationID).Error(0)
}

func transitioned(from, to models.ApplicationStatus) events.ApplicationTransitioned {
	return events.ApplicationTransitioned{
		Application: models.PendingApplication{
			ID: "app-1", UserID: 7, JobTitle: "Junior Developer", JobCompany: "Acme",
			RecipientEmail: "hr@acme.io", MatchScore: 0.82, ExpiresAt: time.Now().Add(72 * time.Hour),
			SubmissionError: "mailbox full",
		},
		From: from,
		To:   to,
	}
}

func Test_NotificationFor_WhenCreatedWithGuessedRecipient_ShouldWarn(t *testing.T) {
	event := transitioned("", models.StatusPendingApproval)
	event.Application.RecipientGuessed = true

	record, ok := NotificationFor(event)

	require.True(t, ok)
	assert.Equal(t, int64(7), record.UserID)
	assert.Contains(t, record.Body, "match 82%")
	assert.Contains(t, record.Body, "has not been verified")
}

func Test_NotificationFor_WhenApproved_ShouldSkip(t *testing.T) {
	_, ok := NotificationFor(transitioned(models.StatusPendingApproval, models.StatusApproved))
	assert.False(t, ok)

	record, ok := NotificationFor(transitioned(models.StatusApproved, models.StatusFailed))
	require.True(t, ok)
	assert.Contains(t, record.Body, "mailbox full")
}

func Test_Notifier_WhenDecided_ShouldMarkActioned(t *testing.T) {
	bus := EventBus.New()
	repo := &mockNotifications{}
	repo.On("MarkActioned", mock.Anything, "app-1").Return(nil).Once()
	repo.On("Add", mock.Anything, mock.MatchedBy(func(r *models.NotificationRecord) bool {
		return r.Kind == string(models.StatusSubmitted)
	})).Return(nil).Once()

	_, err := NewNotifier(bus, repo)
	require.NoError(t, err)

	bus.Publish(events.ApplicationTransitionedTopic, transitioned(models.StatusPendingApproval, models.StatusApproved))
	bus.Publish(events.ApplicationTransitionedTopic, transitioned(models.StatusApproved, models.StatusSubmitted))

	repo.AssertExpectations(t)
}
