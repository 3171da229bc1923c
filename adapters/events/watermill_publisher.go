package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/layer-3/warden/ports"
)

// Topics for session lifecycle events
const (
	TopicLogin     = "session.login"
	TopicRefreshed = "session.refreshed"
	TopicLogout    = "session.logout"
)

// SessionEvent is the payload published on every lifecycle topic
type SessionEvent struct {
	PrincipalID int64     `json:"principal_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLogin announces a newly authenticated principal
func (p *WatermillPublisher) PublishLogin(ctx context.Context, principalID int64) error {
	return p.publish(TopicLogin, principalID)
}

// PublishRefreshed announces a successful token rotation
func (p *WatermillPublisher) PublishRefreshed(ctx context.Context, principalID int64) error {
	return p.publish(TopicRefreshed, principalID)
}

// PublishLogout announces an explicit session termination
func (p *WatermillPublisher) PublishLogout(ctx context.Context, principalID int64) error {
	return p.publish(TopicLogout, principalID)
}

func (p *WatermillPublisher) publish(topic string, principalID int64) error {
	event := SessionEvent{
		PrincipalID: principalID,
		OccurredAt:  time.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	msg.Metadata.Set("principal_id", strconv.FormatInt(principalID, 10))

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
