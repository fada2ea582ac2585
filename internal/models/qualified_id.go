package models

import (
	"github.com/google/uuid"
)

// QualifiedID names a remote entity by an opaque id plus the backend domain
// that owns it. Two QualifiedIDs are equal iff both fields match. When
// federation is disabled the domain is ignored entirely and identity is
// id-only.
type QualifiedID struct {
	ID     uuid.UUID `json:"id"`
	Domain string    `json:"domain"`
}

func NewQualifiedID(id uuid.UUID, domain string) QualifiedID {
	return QualifiedID{ID: id, Domain: domain}
}

// Key returns the local identity key for the active federation mode. With
// federation disabled the domain never participates in identity, even when
// the backend payload carried one.
func (q QualifiedID) Key(federationEnabled bool) string {
	if federationEnabled {
		return q.ID.String() + "@" + q.Domain
	}
	return q.ID.String()
}

func (q QualifiedID) IsZero() bool {
	return q.ID == uuid.Nil
}

func (q QualifiedID) String() string {
	if q.Domain == "" {
		return q.ID.String()
	}
	return q.ID.String() + "@" + q.Domain
}
