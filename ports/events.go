package ports

import "context"

// EventPublisher notifies other instances about session lifecycle changes
type EventPublisher interface {
	// PublishLogin announces a newly authenticated principal
	PublishLogin(ctx context.Context, principalID int64) error

	// PublishRefreshed announces a successful token rotation
	PublishRefreshed(ctx context.Context, principalID int64) error

	// PublishLogout announces an explicit session termination
	PublishLogout(ctx context.Context, principalID int64) error
}
