package backend

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jitera-Sales/wire-sync/internal/models"
)

func mustDecode(t *testing.T, payload map[string]any) models.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	event, err := DecodeEvent(raw)
	require.NoError(t, err)
	return event
}

func decodeErr(t *testing.T, payload map[string]any) *EventDecodeError {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	_, err = DecodeEvent(raw)
	require.Error(t, err)
	var decodeError *EventDecodeError
	require.ErrorAs(t, err, &decodeError)
	return decodeError
}

func TestDecodeEvent_ConversationCreate(t *testing.T) {
	conv := uuid.New()
	member := uuid.New()

	// ACT
	event := mustDecode(t, map[string]any{
		"type":                   "conversation.create",
		"qualified_conversation": map[string]any{"id": conv, "domain": "alpha.example.com"},
		"qualified_from":         map[string]any{"id": uuid.New(), "domain": "alpha.example.com"},
		"time":                   "2026-08-01T10:00:00Z",
		"data": map[string]any{
			"qualified_id": map[string]any{"id": conv, "domain": "alpha.example.com"},
			"name":         "design",
			"members": map[string]any{
				"others": []map[string]any{{
					"qualified_id":      map[string]any{"id": member, "domain": "alpha.example.com"},
					"conversation_role": "wire_member",
				}},
			},
		},
	})

	// ASSERT
	create, ok := event.(models.ConversationCreateEvent)
	require.True(t, ok)
	assert.Equal(t, conv, create.ConversationID.ID)
	assert.Equal(t, "design", *create.Conversation.Name)
	require.Len(t, create.Conversation.Members, 1)
	assert.Equal(t, member, create.Conversation.Members[0].UserID.ID)
	assert.Equal(t, "wire_member", create.Conversation.Members[0].Role)
	assert.Equal(t, time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC), create.Timestamp)
}

func TestDecodeEvent_MemberJoinAndLeave(t *testing.T) {
	conv := uuid.New()
	user := uuid.New()
	outer := map[string]any{
		"qualified_conversation": map[string]any{"id": conv, "domain": "alpha.example.com"},
		"qualified_from":         map[string]any{"id": uuid.New(), "domain": "alpha.example.com"},
		"time":                   "2026-08-01T10:00:00Z",
	}

	join := map[string]any{"type": "conversation.member-join", "data": map[string]any{
		"users": []map[string]any{{
			"qualified_id":      map[string]any{"id": user, "domain": "beta.example.com"},
			"conversation_role": "wire_admin",
		}},
	}}
	leave := map[string]any{"type": "conversation.member-leave", "data": map[string]any{
		"qualified_user_ids": []map[string]any{{"id": user, "domain": "beta.example.com"}},
	}}
	for k, v := range outer {
		join[k] = v
		leave[k] = v
	}

	// ACT
	joinEvent := mustDecode(t, join).(models.ConversationMemberJoinEvent)
	leaveEvent := mustDecode(t, leave).(models.ConversationMemberLeaveEvent)

	// ASSERT
	require.Len(t, joinEvent.Members, 1)
	assert.Equal(t, user, joinEvent.Members[0].UserID.ID)
	assert.Equal(t, "wire_admin", joinEvent.Members[0].Role)
	require.Len(t, leaveEvent.UserIDs, 1)
	assert.Equal(t, "beta.example.com", leaveEvent.UserIDs[0].Domain)
}

func TestDecodeEvent_ProteusMessageAdd(t *testing.T) {
	conv := uuid.New()

	// ACT
	event := mustDecode(t, map[string]any{
		"type":                   "conversation.otr-message-add",
		"qualified_conversation": map[string]any{"id": conv, "domain": "alpha.example.com"},
		"qualified_from":         map[string]any{"id": uuid.New(), "domain": "alpha.example.com"},
		"time":                   "2026-08-01T10:00:00Z",
		"data": map[string]any{
			"text":      "b64-ciphertext",
			"sender":    "client-a",
			"recipient": "client-b",
		},
	})

	// ASSERT: ciphertext stays opaque
	message, ok := event.(models.ConversationProteusMessageAddEvent)
	require.True(t, ok)
	assert.Equal(t, "b64-ciphertext", message.Ciphertext)
	assert.Equal(t, "client-a", message.SenderClient)
	assert.Equal(t, "client-b", message.RecipientClient)
	assert.Nil(t, message.ExternalData)
}

func TestDecodeEvent_UserConnection(t *testing.T) {
	receiver := uuid.New()

	// ACT
	event := mustDecode(t, map[string]any{
		"type": "user.connection",
		"time": "2026-08-01T10:00:00Z",
		"connection": map[string]any{
			"qualified_to":           map[string]any{"id": receiver, "domain": "beta.example.com"},
			"qualified_conversation": map[string]any{"id": uuid.New(), "domain": "beta.example.com"},
			"status":                 "accepted",
			"last_update":            "2026-08-01T09:59:00Z",
		},
	})

	// ASSERT
	connection, ok := event.(models.UserConnectionEvent)
	require.True(t, ok)
	assert.Equal(t, receiver, connection.Connection.ReceiverID.ID)
	assert.Equal(t, models.ConnectionStatusAccepted, connection.Connection.Status)
}

func TestDecodeEvent_TeamEvents(t *testing.T) {
	team := uuid.New()
	user := uuid.New()

	for _, eventType := range []string{"team.member-join", "team.member-leave", "team.member-update"} {
		event := mustDecode(t, map[string]any{
			"type": eventType,
			"team": team,
			"time": "2026-08-01T10:00:00Z",
			"data": map[string]any{"user": user},
		})

		switch e := event.(type) {
		case models.TeamMemberJoinEvent:
			assert.Equal(t, team, e.TeamID.ID)
			assert.Equal(t, user, e.UserID.ID)
		case models.TeamMemberLeaveEvent:
			assert.Equal(t, user, e.UserID.ID)
		case models.TeamMemberUpdateEvent:
			assert.Equal(t, user, e.MembershipID.ID)
		default:
			t.Fatalf("unexpected event type %T", event)
		}
	}
}

func TestDecodeEvent_LegacyBareIdentifiers(t *testing.T) {
	conv := uuid.New()
	sender := uuid.New()

	// ACT: v0 events carry bare UUIDs instead of qualified pairs
	event := mustDecode(t, map[string]any{
		"type":         "conversation.delete",
		"conversation": conv,
		"from":         sender,
		"time":         "2026-08-01T10:00:00Z",
	})

	// ASSERT
	deleted, ok := event.(models.ConversationDeleteEvent)
	require.True(t, ok)
	assert.Equal(t, conv, deleted.ConversationID.ID)
	assert.Empty(t, deleted.ConversationID.Domain)
	assert.Equal(t, sender, deleted.SenderID.ID)
}

func TestDecodeEvent_UnknownDiscriminant(t *testing.T) {
	// ACT
	event := mustDecode(t, map[string]any{"type": "call.state", "data": map[string]any{}})

	// ASSERT
	unknown, ok := event.(models.UnknownEvent)
	require.True(t, ok)
	assert.Equal(t, "call.state", unknown.Type)
}

func TestDecodeEvent_MissingFieldsAreNamed(t *testing.T) {
	conv := map[string]any{"id": uuid.New(), "domain": "alpha.example.com"}
	from := map[string]any{"id": uuid.New(), "domain": "alpha.example.com"}

	cases := []struct {
		payload map[string]any
		field   string
	}{
		{map[string]any{"data": map[string]any{}}, "type"},
		{map[string]any{"type": "conversation.delete", "qualified_from": from}, "qualified_conversation"},
		{map[string]any{"type": "conversation.delete", "qualified_conversation": conv}, "qualified_from"},
		{map[string]any{"type": "conversation.member-join", "qualified_conversation": conv,
			"qualified_from": from, "data": map[string]any{}}, "data.users"},
		{map[string]any{"type": "conversation.otr-message-add", "qualified_conversation": conv,
			"qualified_from": from, "data": map[string]any{"sender": "c"}}, "data.text"},
		{map[string]any{"type": "conversation.otr-message-add", "qualified_conversation": conv,
			"qualified_from": from, "data": map[string]any{"text": "x"}}, "data.sender"},
		{map[string]any{"type": "user.connection", "time": "2026-08-01T10:00:00Z"}, "connection"},
		{map[string]any{"type": "team.member-join", "data": map[string]any{"user": uuid.New()}}, "team"},
		{map[string]any{"type": "team.member-join", "team": uuid.New(), "data": map[string]any{}}, "data.user"},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%v/%s", tc.payload["type"], tc.field), func(t *testing.T) {
			// ACT
			err := decodeErr(t, tc.payload)

			// ASSERT: the error names the offending field
			assert.Equal(t, tc.field, err.Field)
		})
	}
}
