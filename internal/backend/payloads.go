package backend

import (
	"time"

	"github.com/google/uuid"

	"github.com/Jitera-Sales/wire-sync/internal/models"
)

// qualifiedIDPayload is the id+domain pair used by v1+ payloads.
type qualifiedIDPayload struct {
	ID     uuid.UUID `json:"id"`
	Domain string    `json:"domain"`
}

func (p qualifiedIDPayload) model() models.QualifiedID {
	return models.QualifiedID{ID: p.ID, Domain: p.Domain}
}

// connectionPayload covers both generations of the connection shape: legacy
// bare UUIDs (v0) and qualified pairs (v1+). Absent identifiers stay zero;
// record-level validation happens in the repository, not here, so one broken
// record cannot abort a page.
type connectionPayload struct {
	From                  *uuid.UUID          `json:"from"`
	To                    *uuid.UUID          `json:"to"`
	QualifiedTo           *qualifiedIDPayload `json:"qualified_to"`
	Conversation          *uuid.UUID          `json:"conversation"`
	QualifiedConversation *qualifiedIDPayload `json:"qualified_conversation"`
	LastUpdate            time.Time           `json:"last_update"`
	Status                string              `json:"status"`
}

func (p connectionPayload) model() models.Connection {
	var conn models.Connection
	if p.From != nil {
		conn.SenderID = models.QualifiedID{ID: *p.From}
	}
	switch {
	case p.QualifiedTo != nil:
		conn.ReceiverID = p.QualifiedTo.model()
	case p.To != nil:
		conn.ReceiverID = models.QualifiedID{ID: *p.To}
	}
	switch {
	case p.QualifiedConversation != nil:
		conn.ConversationID = p.QualifiedConversation.model()
	case p.Conversation != nil:
		conn.ConversationID = models.QualifiedID{ID: *p.Conversation}
	}
	conn.LastUpdate = p.LastUpdate
	conn.Status = models.ConnectionStatus(p.Status)
	return conn
}

type conversationMemberPayload struct {
	QualifiedID *qualifiedIDPayload `json:"qualified_id"`
	ID          *uuid.UUID          `json:"id"`
	Role        string              `json:"conversation_role"`
}

func (p conversationMemberPayload) model() models.Member {
	var m models.Member
	switch {
	case p.QualifiedID != nil:
		m.UserID = p.QualifiedID.model()
	case p.ID != nil:
		m.UserID = models.QualifiedID{ID: *p.ID}
	}
	m.Role = p.Role
	return m
}

type conversationMembersPayload struct {
	Others []conversationMemberPayload `json:"others"`
}

// conversationPayload is the full conversation shape. The MLS and access
// role fields only appear on v5 responses; convert gates them so older
// adapters ignore stray fields.
type conversationPayload struct {
	QualifiedID *qualifiedIDPayload         `json:"qualified_id"`
	ID          *uuid.UUID                  `json:"id"`
	Name        *string                     `json:"name"`
	Team        *uuid.UUID                  `json:"team"`
	Members     *conversationMembersPayload `json:"members"`
	AccessRoles []string                    `json:"access_roles"`
	CipherSuite *uint16                     `json:"cipher_suite"`
	Epoch       *uint64                     `json:"epoch"`
	EpochTime   *time.Time                  `json:"epoch_timestamp"`
}

func (p conversationPayload) model(withMLSFields bool) models.Conversation {
	var conv models.Conversation
	switch {
	case p.QualifiedID != nil:
		conv.ID = p.QualifiedID.model()
	case p.ID != nil:
		conv.ID = models.QualifiedID{ID: *p.ID}
	}
	conv.Name = p.Name
	conv.TeamID = p.Team
	if p.Members != nil {
		conv.Members = make([]models.Member, 0, len(p.Members.Others))
		for _, member := range p.Members.Others {
			conv.Members = append(conv.Members, member.model())
		}
	}
	if withMLSFields {
		conv.AccessRoles = p.AccessRoles
		conv.CipherSuite = p.CipherSuite
		conv.Epoch = p.Epoch
		conv.EpochTime = p.EpochTime
	}
	return conv
}
