package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/autoapply/internal/domain/events"
	"github.com/maxaizer/autoapply/internal/domain/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	args := m.Called(ctx, channel, message)
	return redis.NewIntResult(1, args.Error(0))
}

func Test_EventRelay_ShouldPublishTransitionAsJSON(t *testing.T) {
	bus := EventBus.New()
	publisher := &mockPublisher{}

	var payload []byte
	publisher.On("Publish", mock.Anything, "autoapply:applications", mock.Anything).
		Run(func(args mock.Arguments) { payload = args.Get(2).([]byte) }).
		Return(nil).Once()

	_, err := NewEventRelay(bus, publisher, "autoapply:applications")
	require.NoError(t, err)

	bus.Publish(events.ApplicationTransitionedTopic, events.ApplicationTransitioned{
		Application: models.PendingApplication{ID: "app-1", UserID: 7, JobTitle: "Junior Developer", JobCompany: "Acme"},
		From:        models.StatusApproved,
		To:          models.StatusSubmitted,
		Activity:    models.ActivitySubmitted,
	})

	publisher.AssertExpectations(t)
	var msg RelayMessage
	require.NoError(t, json.Unmarshal(payload, &msg))
	assert.Equal(t, "app-1", msg.ApplicationID)
	assert.Equal(t, "APPROVED", msg.From)
	assert.Equal(t, "SUBMITTED", msg.To)
	assert.Equal(t, "submitted", msg.Activity)
}

func Test_EventRelay_WhenPublishFails_ShouldNotPanic(t *testing.T) {
	bus := EventBus.New()
	publisher := &mockPublisher{}
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	_, err := NewEventRelay(bus, publisher, "ch")
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		bus.Publish(events.ApplicationTransitionedTopic, events.ApplicationTransitioned{To: models.StatusExpired})
	})
}
