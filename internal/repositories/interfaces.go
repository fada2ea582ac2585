package repositories

import (
	"context"
	"errors"

	"github.com/Jitera-Sales/wire-sync/internal/models"
)

var ErrNotFound = errors.New("not found")

// PullResult summarizes one bulk pull: how many records were stored and how
// many were rejected at the record level. Record rejections never abort the
// batch they arrived in.
type PullResult struct {
	Stored int
	Failed int
}

func (r *PullResult) add(other PullResult) {
	r.Stored += other.Stored
	r.Failed += other.Failed
}

// ConnectionsRepository owns local connection state.
type ConnectionsRepository interface {
	// PullConnections fetches the full connection list and upserts it.
	PullConnections(ctx context.Context) (PullResult, error)
	// StoreConnection applies a single connection snapshot from an event.
	StoreConnection(ctx context.Context, conn models.Connection) error
}

// ConversationsRepository owns local conversation and message state.
type ConversationsRepository interface {
	PullConversations(ctx context.Context) (PullResult, error)
	StoreConversation(ctx context.Context, conv models.Conversation) error
	DeleteConversation(ctx context.Context, id models.QualifiedID) error
	AddMembers(ctx context.Context, id models.QualifiedID, members []models.Member) error
	RemoveMembers(ctx context.Context, id models.QualifiedID, userIDs []models.QualifiedID) error
	StoreIncomingMessage(ctx context.Context, msg models.EncryptedMessage) error
}

// TeamsRepository owns local team and membership state.
type TeamsRepository interface {
	PullTeams(ctx context.Context) (PullResult, error)
	AddTeamMember(ctx context.Context, teamID, userID models.QualifiedID) error
	RemoveTeamMember(ctx context.Context, teamID, userID models.QualifiedID) error
	StoreTeamMemberNeedsBackendUpdate(ctx context.Context, teamID, userID models.QualifiedID) error
}

// CursorRepository persists the last-applied event cursor per client device.
type CursorRepository interface {
	// LastEventCursor returns ErrNotFound before the first sync.
	LastEventCursor(ctx context.Context) (string, error)
	StoreEventCursor(ctx context.Context, cursor string) error
}

// BackendInfoRepository reads the shared backend metadata, caching where the
// implementation sees fit.
type BackendInfoRepository interface {
	GetBackendInfo(ctx context.Context) (models.BackendInfo, error)
}

// Store contracts consumed by the repositories. Every batch method is
// transactionally scoped: the records of one call either all commit or none
// do. The federated flag fixes the identity scheme for the call; records
// are matched by QualifiedID when it is set and by bare id otherwise.

type ConnectionStore interface {
	UpsertConnections(ctx context.Context, federated bool, conns []models.Connection) error
}

type ConversationStore interface {
	// UpsertConversations replaces the stored snapshot, including the
	// member set, and clears needs_backend_update.
	UpsertConversations(ctx context.Context, federated bool, convs []models.Conversation) error
	// EnsureConversationStub creates a minimal placeholder flagged
	// needs_backend_update if the conversation is unknown; it never
	// touches an existing record.
	EnsureConversationStub(ctx context.Context, federated bool, id models.QualifiedID) error
	// FlagConversationNeedsBackendUpdate creates-or-marks the record.
	FlagConversationNeedsBackendUpdate(ctx context.Context, federated bool, id models.QualifiedID) error
	DeleteConversation(ctx context.Context, federated bool, id models.QualifiedID) error
	AddConversationMembers(ctx context.Context, federated bool, id models.QualifiedID, members []models.Member) error
	RemoveConversationMembers(ctx context.Context, federated bool, id models.QualifiedID, userIDs []models.QualifiedID) error
	UpsertMessage(ctx context.Context, federated bool, msg models.EncryptedMessage) error
}

type TeamStore interface {
	UpsertTeams(ctx context.Context, federated bool, teams []models.Team) error
	// UpsertMemberships stores confirmed backend state and clears
	// needs_backend_update on every record it writes.
	UpsertMemberships(ctx context.Context, federated bool, memberships []models.Membership) error
	// FlagMembershipNeedsBackendUpdate creates-or-marks a membership stub.
	FlagMembershipNeedsBackendUpdate(ctx context.Context, federated bool, teamID, userID models.QualifiedID) error
	DeleteMembership(ctx context.Context, federated bool, teamID, userID models.QualifiedID) error
}
