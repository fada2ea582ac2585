package models

import (
	"time"
)

// EventType is the wire discriminant of an update event.
type EventType string

const (
	EventConversationCreate            EventType = "conversation.create"
	EventConversationDelete            EventType = "conversation.delete"
	EventConversationMemberJoin        EventType = "conversation.member-join"
	EventConversationMemberLeave       EventType = "conversation.member-leave"
	EventConversationProteusMessageAdd EventType = "conversation.otr-message-add"
	EventUserConnection                EventType = "user.connection"
	EventTeamMemberJoin                EventType = "team.member-join"
	EventTeamMemberLeave               EventType = "team.member-leave"
	EventTeamMemberUpdate              EventType = "team.member-update"
)

// Event is one decoded update event. The variant set is closed: new backend
// event types extend it with new variants, existing variants never change
// shape. Unsupported discriminants decode to UnknownEvent.
type Event interface {
	EventType() EventType
}

// UpdateEventEnvelope pairs an event with the cursor that addresses it in
// the server-side event log. The cursor must be persisted only after the
// event it accompanies has been applied, never before.
type UpdateEventEnvelope struct {
	Cursor string
	Event  Event

	// DecodeError is set instead of Event when the payload for a known
	// event type was malformed. The envelope still advances the cursor;
	// the broken event is skipped, not fatal.
	DecodeError error
}

type ConversationCreateEvent struct {
	ConversationID QualifiedID
	SenderID       QualifiedID
	Timestamp      time.Time
	Conversation   Conversation
}

func (ConversationCreateEvent) EventType() EventType { return EventConversationCreate }

type ConversationDeleteEvent struct {
	ConversationID QualifiedID
	SenderID       QualifiedID
	Timestamp      time.Time
}

func (ConversationDeleteEvent) EventType() EventType { return EventConversationDelete }

type ConversationMemberJoinEvent struct {
	ConversationID QualifiedID
	SenderID       QualifiedID
	Timestamp      time.Time
	Members        []Member
}

func (ConversationMemberJoinEvent) EventType() EventType { return EventConversationMemberJoin }

type ConversationMemberLeaveEvent struct {
	ConversationID QualifiedID
	SenderID       QualifiedID
	Timestamp      time.Time
	UserIDs        []QualifiedID
}

func (ConversationMemberLeaveEvent) EventType() EventType { return EventConversationMemberLeave }

type ConversationProteusMessageAddEvent struct {
	ConversationID  QualifiedID
	SenderID        QualifiedID
	Timestamp       time.Time
	Ciphertext      string
	ExternalData    *string
	SenderClient    string
	RecipientClient string
}

func (ConversationProteusMessageAddEvent) EventType() EventType {
	return EventConversationProteusMessageAdd
}

type UserConnectionEvent struct {
	SenderID   QualifiedID
	Timestamp  time.Time
	Connection Connection
}

func (UserConnectionEvent) EventType() EventType { return EventUserConnection }

type TeamMemberJoinEvent struct {
	TeamID    QualifiedID
	UserID    QualifiedID
	Timestamp time.Time
}

func (TeamMemberJoinEvent) EventType() EventType { return EventTeamMemberJoin }

type TeamMemberLeaveEvent struct {
	TeamID    QualifiedID
	UserID    QualifiedID
	Timestamp time.Time
}

func (TeamMemberLeaveEvent) EventType() EventType { return EventTeamMemberLeave }

// TeamMemberUpdateEvent signals that a membership changed remotely. The
// payload carries no detail, only the membership id, so processing flags the
// local record for the next bulk pull.
type TeamMemberUpdateEvent struct {
	TeamID       QualifiedID
	MembershipID QualifiedID
	Timestamp    time.Time
}

func (TeamMemberUpdateEvent) EventType() EventType { return EventTeamMemberUpdate }

// UnknownEvent stands in for any discriminant this client does not support
// yet. Processors skip it; the cursor still advances.
type UnknownEvent struct {
	Type string
}

func (e UnknownEvent) EventType() EventType { return EventType(e.Type) }
