package backend

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Jitera-Sales/wire-sync/internal/models"
)

// EventDecodeError reports a malformed payload for a known event type,
// naming the field that was missing or mismatched.
type EventDecodeError struct {
	EventType string
	Field     string
	Err       error
}

func (e *EventDecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s: field %q: %v", e.EventType, e.Field, e.Err)
	}
	return fmt.Sprintf("decode %s: missing field %q", e.EventType, e.Field)
}

func (e *EventDecodeError) Unwrap() error { return e.Err }

type eventDecoder func(raw json.RawMessage) (models.Event, error)

// decoderRegistry dispatches on the event type discriminant. Discriminants
// absent from the table decode to UnknownEvent: the client must stay
// forward-compatible with event types introduced by newer backend
// deployments, so an unknown type is never an error.
var decoderRegistry = map[models.EventType]eventDecoder{
	models.EventConversationCreate:            decodeConversationCreate,
	models.EventConversationDelete:            decodeConversationDelete,
	models.EventConversationMemberJoin:        decodeConversationMemberJoin,
	models.EventConversationMemberLeave:       decodeConversationMemberLeave,
	models.EventConversationProteusMessageAdd: decodeConversationProteusMessageAdd,
	models.EventUserConnection:                decodeUserConnection,
	models.EventTeamMemberJoin:                decodeTeamMemberJoin,
	models.EventTeamMemberLeave:               decodeTeamMemberLeave,
	models.EventTeamMemberUpdate:              decodeTeamMemberUpdate,
}

// DecodeEvent turns a raw keyed event payload into a typed domain event.
func DecodeEvent(raw json.RawMessage) (models.Event, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, &EventDecodeError{EventType: "unknown", Field: "type", Err: err}
	}
	if head.Type == "" {
		return nil, &EventDecodeError{EventType: "unknown", Field: "type"}
	}

	decode, ok := decoderRegistry[models.EventType(head.Type)]
	if !ok {
		return models.UnknownEvent{Type: head.Type}, nil
	}
	return decode(raw)
}

// conversationEventPayload is the common outer shape of conversation
// events. v0 backends send bare ids, v1+ qualified pairs; both are accepted
// so one decoder serves every generation.
type conversationEventPayload struct {
	Type                  string              `json:"type"`
	QualifiedConversation *qualifiedIDPayload `json:"qualified_conversation"`
	Conversation          *uuid.UUID          `json:"conversation"`
	QualifiedFrom         *qualifiedIDPayload `json:"qualified_from"`
	From                  *uuid.UUID          `json:"from"`
	Time                  time.Time           `json:"time"`
	Data                  json.RawMessage     `json:"data"`
}

func (p conversationEventPayload) conversationID() (models.QualifiedID, error) {
	switch {
	case p.QualifiedConversation != nil:
		return p.QualifiedConversation.model(), nil
	case p.Conversation != nil:
		return models.QualifiedID{ID: *p.Conversation}, nil
	}
	return models.QualifiedID{}, &EventDecodeError{EventType: p.Type, Field: "qualified_conversation"}
}

func (p conversationEventPayload) senderID() (models.QualifiedID, error) {
	switch {
	case p.QualifiedFrom != nil:
		return p.QualifiedFrom.model(), nil
	case p.From != nil:
		return models.QualifiedID{ID: *p.From}, nil
	}
	return models.QualifiedID{}, &EventDecodeError{EventType: p.Type, Field: "qualified_from"}
}

func decodeConversationOuter(raw json.RawMessage, eventType string) (conversationEventPayload, models.QualifiedID, models.QualifiedID, error) {
	var payload conversationEventPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, models.QualifiedID{}, models.QualifiedID{}, &EventDecodeError{EventType: eventType, Field: "data", Err: err}
	}
	conversationID, err := payload.conversationID()
	if err != nil {
		return payload, models.QualifiedID{}, models.QualifiedID{}, err
	}
	senderID, err := payload.senderID()
	if err != nil {
		return payload, models.QualifiedID{}, models.QualifiedID{}, err
	}
	return payload, conversationID, senderID, nil
}

func decodeConversationCreate(raw json.RawMessage) (models.Event, error) {
	payload, conversationID, senderID, err := decodeConversationOuter(raw, string(models.EventConversationCreate))
	if err != nil {
		return nil, err
	}
	if len(payload.Data) == 0 {
		return nil, &EventDecodeError{EventType: payload.Type, Field: "data"}
	}

	var conversation conversationPayload
	if err := json.Unmarshal(payload.Data, &conversation); err != nil {
		return nil, &EventDecodeError{EventType: payload.Type, Field: "data", Err: err}
	}

	snapshot := conversation.model(true)
	if snapshot.ID.IsZero() {
		snapshot.ID = conversationID
	}

	return models.ConversationCreateEvent{
		ConversationID: conversationID,
		SenderID:       senderID,
		Timestamp:      payload.Time,
		Conversation:   snapshot,
	}, nil
}

func decodeConversationDelete(raw json.RawMessage) (models.Event, error) {
	payload, conversationID, senderID, err := decodeConversationOuter(raw, string(models.EventConversationDelete))
	if err != nil {
		return nil, err
	}
	return models.ConversationDeleteEvent{
		ConversationID: conversationID,
		SenderID:       senderID,
		Timestamp:      payload.Time,
	}, nil
}

func decodeConversationMemberJoin(raw json.RawMessage) (models.Event, error) {
	payload, conversationID, senderID, err := decodeConversationOuter(raw, string(models.EventConversationMemberJoin))
	if err != nil {
		return nil, err
	}

	var data struct {
		Users []conversationMemberPayload `json:"users"`
	}
	if err := json.Unmarshal(payload.Data, &data); err != nil {
		return nil, &EventDecodeError{EventType: payload.Type, Field: "data.users", Err: err}
	}
	if data.Users == nil {
		return nil, &EventDecodeError{EventType: payload.Type, Field: "data.users"}
	}

	members := make([]models.Member, 0, len(data.Users))
	for _, user := range data.Users {
		member := user.model()
		if member.UserID.IsZero() {
			return nil, &EventDecodeError{EventType: payload.Type, Field: "data.users.qualified_id"}
		}
		members = append(members, member)
	}

	return models.ConversationMemberJoinEvent{
		ConversationID: conversationID,
		SenderID:       senderID,
		Timestamp:      payload.Time,
		Members:        members,
	}, nil
}

func decodeConversationMemberLeave(raw json.RawMessage) (models.Event, error) {
	payload, conversationID, senderID, err := decodeConversationOuter(raw, string(models.EventConversationMemberLeave))
	if err != nil {
		return nil, err
	}

	var data struct {
		QualifiedUserIDs []qualifiedIDPayload `json:"qualified_user_ids"`
		UserIDs          []uuid.UUID          `json:"user_ids"`
	}
	if err := json.Unmarshal(payload.Data, &data); err != nil {
		return nil, &EventDecodeError{EventType: payload.Type, Field: "data.qualified_user_ids", Err: err}
	}

	var userIDs []models.QualifiedID
	switch {
	case len(data.QualifiedUserIDs) > 0:
		for _, id := range data.QualifiedUserIDs {
			userIDs = append(userIDs, id.model())
		}
	case len(data.UserIDs) > 0:
		for _, id := range data.UserIDs {
			userIDs = append(userIDs, models.QualifiedID{ID: id})
		}
	default:
		return nil, &EventDecodeError{EventType: payload.Type, Field: "data.qualified_user_ids"}
	}

	return models.ConversationMemberLeaveEvent{
		ConversationID: conversationID,
		SenderID:       senderID,
		Timestamp:      payload.Time,
		UserIDs:        userIDs,
	}, nil
}

func decodeConversationProteusMessageAdd(raw json.RawMessage) (models.Event, error) {
	payload, conversationID, senderID, err := decodeConversationOuter(raw, string(models.EventConversationProteusMessageAdd))
	if err != nil {
		return nil, err
	}

	var data struct {
		Text      string  `json:"text"`
		Data      *string `json:"data"`
		Sender    string  `json:"sender"`
		Recipient string  `json:"recipient"`
	}
	if err := json.Unmarshal(payload.Data, &data); err != nil {
		return nil, &EventDecodeError{EventType: payload.Type, Field: "data", Err: err}
	}
	if data.Text == "" {
		return nil, &EventDecodeError{EventType: payload.Type, Field: "data.text"}
	}
	if data.Sender == "" {
		return nil, &EventDecodeError{EventType: payload.Type, Field: "data.sender"}
	}

	return models.ConversationProteusMessageAddEvent{
		ConversationID:  conversationID,
		SenderID:        senderID,
		Timestamp:       payload.Time,
		Ciphertext:      data.Text,
		ExternalData:    data.Data,
		SenderClient:    data.Sender,
		RecipientClient: data.Recipient,
	}, nil
}

func decodeUserConnection(raw json.RawMessage) (models.Event, error) {
	var payload struct {
		Type       string             `json:"type"`
		From       *uuid.UUID         `json:"from"`
		Time       time.Time          `json:"time"`
		Connection *connectionPayload `json:"connection"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &EventDecodeError{EventType: string(models.EventUserConnection), Field: "connection", Err: err}
	}
	if payload.Connection == nil {
		return nil, &EventDecodeError{EventType: payload.Type, Field: "connection"}
	}

	connection := payload.Connection.model()
	var senderID models.QualifiedID
	if payload.From != nil {
		senderID = models.QualifiedID{ID: *payload.From}
	} else {
		senderID = connection.SenderID
	}

	return models.UserConnectionEvent{
		SenderID:   senderID,
		Timestamp:  payload.Time,
		Connection: connection,
	}, nil
}

// teamEventPayload is the common outer shape of team events. Team ids are
// never federated on the wire, so they arrive bare.
type teamEventPayload struct {
	Type string     `json:"type"`
	Team *uuid.UUID `json:"team"`
	Time time.Time  `json:"time"`
	Data struct {
		User *uuid.UUID `json:"user"`
	} `json:"data"`
}

func decodeTeamOuter(raw json.RawMessage, eventType string) (teamEventPayload, models.QualifiedID, models.QualifiedID, error) {
	var payload teamEventPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, models.QualifiedID{}, models.QualifiedID{}, &EventDecodeError{EventType: eventType, Field: "data", Err: err}
	}
	if payload.Team == nil {
		return payload, models.QualifiedID{}, models.QualifiedID{}, &EventDecodeError{EventType: eventType, Field: "team"}
	}
	if payload.Data.User == nil {
		return payload, models.QualifiedID{}, models.QualifiedID{}, &EventDecodeError{EventType: eventType, Field: "data.user"}
	}
	teamID := models.QualifiedID{ID: *payload.Team}
	userID := models.QualifiedID{ID: *payload.Data.User}
	return payload, teamID, userID, nil
}

func decodeTeamMemberJoin(raw json.RawMessage) (models.Event, error) {
	payload, teamID, userID, err := decodeTeamOuter(raw, string(models.EventTeamMemberJoin))
	if err != nil {
		return nil, err
	}
	return models.TeamMemberJoinEvent{TeamID: teamID, UserID: userID, Timestamp: payload.Time}, nil
}

func decodeTeamMemberLeave(raw json.RawMessage) (models.Event, error) {
	payload, teamID, userID, err := decodeTeamOuter(raw, string(models.EventTeamMemberLeave))
	if err != nil {
		return nil, err
	}
	return models.TeamMemberLeaveEvent{TeamID: teamID, UserID: userID, Timestamp: payload.Time}, nil
}

func decodeTeamMemberUpdate(raw json.RawMessage) (models.Event, error) {
	payload, teamID, userID, err := decodeTeamOuter(raw, string(models.EventTeamMemberUpdate))
	if err != nil {
		return nil, err
	}
	return models.TeamMemberUpdateEvent{TeamID: teamID, MembershipID: userID, Timestamp: payload.Time}, nil
}
