package syncengine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Jitera-Sales/wire-sync/internal/models"
	"github.com/Jitera-Sales/wire-sync/internal/repositories"
)

// EventProcessor applies decoded update events to local state. Every apply is
// idempotent: replaying an event after a crash must land on the same state.
type EventProcessor struct {
	connections   repositories.ConnectionsRepository
	conversations repositories.ConversationsRepository
	teams         repositories.TeamsRepository
	logger        *slog.Logger
}

func NewEventProcessor(
	connections repositories.ConnectionsRepository,
	conversations repositories.ConversationsRepository,
	teams repositories.TeamsRepository,
	logger *slog.Logger,
) *EventProcessor {
	return &EventProcessor{
		connections:   connections,
		conversations: conversations,
		teams:         teams,
		logger:        logger,
	}
}

// Process applies one envelope. It reports whether the event was applied;
// undecodable and unsupported events are skipped without error so the cursor
// keeps moving past them.
func (p *EventProcessor) Process(ctx context.Context, envelope models.UpdateEventEnvelope) (bool, error) {
	if envelope.DecodeError != nil {
		p.logger.Warn("skipping undecodable event",
			"cursor", envelope.Cursor,
			"error", envelope.DecodeError)
		return false, nil
	}
	if envelope.Event == nil {
		return false, nil
	}

	switch e := envelope.Event.(type) {
	case models.ConversationCreateEvent:
		conv := e.Conversation
		if conv.ID.IsZero() {
			conv.ID = e.ConversationID
		}
		if err := p.conversations.StoreConversation(ctx, conv); err != nil {
			return false, fmt.Errorf("failed to apply conversation create: %w", err)
		}

	case models.ConversationDeleteEvent:
		if err := p.conversations.DeleteConversation(ctx, e.ConversationID); err != nil {
			return false, fmt.Errorf("failed to apply conversation delete: %w", err)
		}

	case models.ConversationMemberJoinEvent:
		if err := p.conversations.AddMembers(ctx, e.ConversationID, e.Members); err != nil {
			return false, fmt.Errorf("failed to apply member join: %w", err)
		}

	case models.ConversationMemberLeaveEvent:
		if err := p.conversations.RemoveMembers(ctx, e.ConversationID, e.UserIDs); err != nil {
			return false, fmt.Errorf("failed to apply member leave: %w", err)
		}

	case models.ConversationProteusMessageAddEvent:
		msg := models.EncryptedMessage{
			ID:              models.DeriveMessageID(e.ConversationID, e.SenderID, e.SenderClient, e.Timestamp, e.Ciphertext),
			ConversationID:  e.ConversationID,
			SenderID:        e.SenderID,
			SenderClient:    e.SenderClient,
			RecipientClient: e.RecipientClient,
			Ciphertext:      e.Ciphertext,
			ExternalData:    e.ExternalData,
			ReceivedAt:      e.Timestamp,
		}
		if err := p.conversations.StoreIncomingMessage(ctx, msg); err != nil {
			return false, fmt.Errorf("failed to store incoming message: %w", err)
		}

	case models.UserConnectionEvent:
		if err := p.connections.StoreConnection(ctx, e.Connection); err != nil {
			return false, fmt.Errorf("failed to apply connection update: %w", err)
		}

	case models.TeamMemberJoinEvent:
		if err := p.teams.AddTeamMember(ctx, e.TeamID, e.UserID); err != nil {
			return false, fmt.Errorf("failed to apply team member join: %w", err)
		}

	case models.TeamMemberLeaveEvent:
		if err := p.teams.RemoveTeamMember(ctx, e.TeamID, e.UserID); err != nil {
			return false, fmt.Errorf("failed to apply team member leave: %w", err)
		}

	case models.TeamMemberUpdateEvent:
		if err := p.teams.StoreTeamMemberNeedsBackendUpdate(ctx, e.TeamID, e.MembershipID); err != nil {
			return false, fmt.Errorf("failed to apply team member update: %w", err)
		}

	case models.UnknownEvent:
		p.logger.Debug("skipping unsupported event type", "type", e.Type, "cursor", envelope.Cursor)
		return false, nil

	default:
		p.logger.Debug("skipping event without processor", "type", envelope.Event.EventType())
		return false, nil
	}

	return true, nil
}
