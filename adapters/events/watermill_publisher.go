package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/willvault/auth/ports"
)

const (
	// TopicWalletLogin carries successful wallet verifications
	TopicWalletLogin = "auth.wallet.login"

	// TopicEmailVerified carries successful email verifications
	TopicEmailVerified = "auth.email.verified"

	// TopicSessionRefreshed carries session re-issuances
	TopicSessionRefreshed = "auth.session.refreshed"
)

// WalletLoginEvent represents a successful wallet verification
type WalletLoginEvent struct {
	Address     string `json:"address"`
	ChallengeID string `json:"challenge_id"`
}

// EmailVerifiedEvent represents a successful email verification
type EmailVerifiedEvent struct {
	Email string `json:"email"`
}

// SessionRefreshedEvent represents a session re-issuance
type SessionRefreshedEvent struct {
	SubjectID string `json:"subject_id"`
	SessionID string `json:"session_id"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishWalletLogin publishes a successful wallet verification
func (p *WatermillPublisher) PublishWalletLogin(ctx context.Context, address, challengeID string) error {
	return p.publish(TopicWalletLogin, WalletLoginEvent{Address: address, ChallengeID: challengeID})
}

// PublishEmailVerified publishes a successful email verification
func (p *WatermillPublisher) PublishEmailVerified(ctx context.Context, email string) error {
	return p.publish(TopicEmailVerified, EmailVerifiedEvent{Email: email})
}

// PublishSessionRefreshed publishes a session re-issuance
func (p *WatermillPublisher) PublishSessionRefreshed(ctx context.Context, subjectID, sessionID string) error {
	return p.publish(TopicSessionRefreshed, SessionRefreshedEvent{SubjectID: subjectID, SessionID: sessionID})
}

func (p *WatermillPublisher) publish(topic string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// NopPublisher discards every event; used in tests and single-service
// deployments without a broker
type NopPublisher struct{}

func (NopPublisher) PublishWalletLogin(ctx context.Context, address, challengeID string) error {
	return nil
}

func (NopPublisher) PublishEmailVerified(ctx context.Context, email string) error {
	return nil
}

func (NopPublisher) PublishSessionRefreshed(ctx context.Context, subjectID, sessionID string) error {
	return nil
}
