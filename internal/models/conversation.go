package models

import (
	"time"

	"github.com/google/uuid"
)

// Member is one participant of a conversation.
type Member struct {
	UserID QualifiedID `json:"user_id"`
	Role   string      `json:"role"`
}

// Conversation is the local snapshot of a remote conversation. The MLS
// fields (CipherSuite, Epoch, EpochTimestamp) and access roles only exist on
// newer backend generations and stay nil on older ones.
type Conversation struct {
	ID          QualifiedID `json:"id"`
	Name        *string     `json:"name,omitempty"`
	TeamID      *uuid.UUID  `json:"team_id,omitempty"`
	Members     []Member    `json:"members"`
	AccessRoles []string    `json:"access_roles,omitempty"`
	CipherSuite *uint16     `json:"cipher_suite,omitempty"`
	Epoch       *uint64     `json:"epoch,omitempty"`
	EpochTime   *time.Time  `json:"epoch_time,omitempty"`

	// NeedsBackendUpdate marks a locally created stub whose full state is
	// still unknown; the next bulk pull repopulates it.
	NeedsBackendUpdate bool `json:"needs_backend_update,omitempty"`
}

// ConversationFetchResult partitions a bulk conversation fetch. A single
// request may resolve some identifiers and fail others, so partial failure
// must never be treated as total failure.
type ConversationFetchResult struct {
	Found    []Conversation `json:"found"`
	NotFound []QualifiedID  `json:"not_found"`
	Failed   []QualifiedID  `json:"failed"`
}

// EncryptedMessage is an incoming Proteus message whose ciphertext stays
// opaque to the sync engine. ID is derived deterministically from the
// payload so that re-applying the same event upserts instead of duplicating.
type EncryptedMessage struct {
	ID              uuid.UUID   `json:"id"`
	ConversationID  QualifiedID `json:"conversation_id"`
	SenderID        QualifiedID `json:"sender_id"`
	SenderClient    string      `json:"sender_client"`
	RecipientClient string      `json:"recipient_client"`
	Ciphertext      string      `json:"ciphertext"`
	ExternalData    *string     `json:"external_data,omitempty"`
	ReceivedAt      time.Time   `json:"received_at"`
}

// DeriveMessageID computes a stable id for an incoming message. The backend
// does not assign message ids, so the id is hashed from the fields that
// uniquely address one delivery. Re-decoding the same event yields the same
// id, which is what makes message storage idempotent.
func DeriveMessageID(conversationID, senderID QualifiedID, senderClient string, receivedAt time.Time, ciphertext string) uuid.UUID {
	name := conversationID.String() + "|" + senderID.String() + "|" + senderClient + "|" +
		receivedAt.UTC().Format(time.RFC3339Nano) + "|" + ciphertext
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name))
}
