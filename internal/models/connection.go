package models

import (
	"time"
)

// ConnectionStatus is the remote lifecycle state of a connection between the
// self user and another user.
type ConnectionStatus string

const (
	ConnectionStatusPending                 ConnectionStatus = "pending"
	ConnectionStatusSent                    ConnectionStatus = "sent"
	ConnectionStatusAccepted                ConnectionStatus = "accepted"
	ConnectionStatusBlocked                 ConnectionStatus = "blocked"
	ConnectionStatusIgnored                 ConnectionStatus = "ignored"
	ConnectionStatusCancelled               ConnectionStatus = "cancelled"
	ConnectionStatusMissingLegalholdConsent ConnectionStatus = "missing-legalhold-consent"
)

func (s ConnectionStatus) Valid() bool {
	switch s {
	case ConnectionStatusPending,
		ConnectionStatusSent,
		ConnectionStatusAccepted,
		ConnectionStatusBlocked,
		ConnectionStatusIgnored,
		ConnectionStatusCancelled,
		ConnectionStatusMissingLegalholdConsent:
		return true
	}
	return false
}

// Connection links the self user to another user through a one-to-one
// conversation. Records with any required identifier missing are rejected at
// the record level during a pull, never at the batch level.
type Connection struct {
	SenderID       QualifiedID      `json:"sender_id"`
	ReceiverID     QualifiedID      `json:"receiver_id"`
	ConversationID QualifiedID      `json:"conversation_id"`
	LastUpdate     time.Time        `json:"last_update"`
	Status         ConnectionStatus `json:"status"`
}
