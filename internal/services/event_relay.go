package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/autoapply/internal/domain/events"
	"github.com/maxaizer/autoapply/internal/logger"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RelayMessage is the JSON published for every lifecycle transition.
type RelayMessage struct {
	ApplicationID string    `json:"application_id"`
	UserID        int64     `json:"user_id"`
	JobTitle      string    `json:"job_title"`
	Company       string    `json:"company"`
	From          string    `json:"from,omitempty"`
	To            string    `json:"to"`
	Activity      string    `json:"activity"`
	At            time.Time `json:"at"`
}

// EventRelay forwards lifecycle events to a redis channel for other consumers of the platform.
type EventRelay struct {
	client  redisPublisher
	channel string
	timeout time.Duration
}

func NewEventRelay(bus EventBus.Bus, client redisPublisher, channel string) (*EventRelay, error) {
	r := &EventRelay{client: client, channel: channel, timeout: 5 * time.Second}
	if err := bus.Subscribe(events.ApplicationTransitionedTopic, r.onApplicationTransitioned); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *EventRelay) onApplicationTransitioned(event events.ApplicationTransitioned) {
	payload, err := json.Marshal(RelayMessage{
		ApplicationID: event.Application.ID,
		UserID:        event.Application.UserID,
		JobTitle:      event.Application.JobTitle,
		Company:       event.Application.JobCompany,
		From:          string(event.From),
		To:            string(event.To),
		Activity:      string(event.Activity),
		At:            event.Application.UpdatedAt,
	})
	if err != nil {
		log.Errorf("failed to encode relay message: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err = r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeRedis).
			Errorf("failed to publish event for application %s: %v", event.Application.ID, err)
	}
}
