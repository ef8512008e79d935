package ports

import "context"

// EventPublisher notifies sibling services of auth lifecycle events
type EventPublisher interface {
	// PublishWalletLogin publishes a successful wallet verification
	PublishWalletLogin(ctx context.Context, address, challengeID string) error

	// PublishEmailVerified publishes a successful email verification
	PublishEmailVerified(ctx context.Context, email string) error

	// PublishSessionRefreshed publishes a session re-issuance
	PublishSessionRefreshed(ctx context.Context, subjectID, sessionID string) error
}
