package repositories

import (
	"context"
	"errors"

	"github.com/Jitera-Sales/wire-sync/internal/backend"
	"github.com/Jitera-Sales/wire-sync/internal/models"
)

// In-memory fakes for the store and API contracts. Record-keyed maps use the
// same identity keys the real store would, so federation-mode tests exercise
// the actual key scheme.

func pagerOf[T any](pages ...[]T) *backend.Pager[T] {
	i := 0
	return backend.NewPager("", func(ctx context.Context, start string) (backend.Page[T], error) {
		if i >= len(pages) {
			return backend.Page[T]{}, nil
		}
		page := backend.Page[T]{Elements: pages[i]}
		i++
		if i < len(pages) {
			page.HasMore = true
			page.NextStart = "page"
		}
		return page, nil
	})
}

type fakeConnectionsAPI struct {
	pages [][]models.Connection
}

func (f *fakeConnectionsAPI) GetConnections() *backend.Pager[backend.ConnectionRecord] {
	return pagerOf(f.pages...)
}

type fakeConnectionStore struct {
	connections map[string]models.Connection
	failures    int
	batches     int
}

func newFakeConnectionStore() *fakeConnectionStore {
	return &fakeConnectionStore{connections: make(map[string]models.Connection)}
}

func (f *fakeConnectionStore) UpsertConnections(ctx context.Context, federated bool, conns []models.Connection) error {
	f.batches++
	if f.failures > 0 {
		f.failures--
		return errors.New("storage unavailable")
	}
	for _, conn := range conns {
		f.connections[conn.ReceiverID.Key(federated)] = conn
	}
	return nil
}

type fakeConversationsAPI struct {
	idPages [][]models.QualifiedID
	results map[string]models.ConversationFetchResult
	calls   [][]models.QualifiedID
}

func (f *fakeConversationsAPI) GetConversationIdentifiers() *backend.Pager[models.QualifiedID] {
	return pagerOf(f.idPages...)
}

func (f *fakeConversationsAPI) GetConversations(ctx context.Context, ids []models.QualifiedID) (models.ConversationFetchResult, error) {
	f.calls = append(f.calls, ids)
	if f.results == nil {
		return models.ConversationFetchResult{Found: nil}, nil
	}
	var result models.ConversationFetchResult
	for _, id := range ids {
		partial, ok := f.results[id.Key(true)]
		if !ok {
			result.NotFound = append(result.NotFound, id)
			continue
		}
		result.Found = append(result.Found, partial.Found...)
		result.NotFound = append(result.NotFound, partial.NotFound...)
		result.Failed = append(result.Failed, partial.Failed...)
	}
	return result, nil
}

type fakeConversationStore struct {
	conversations map[string]models.Conversation
	members       map[string]map[string]models.Member
	messages      map[string]models.EncryptedMessage
	flagged       map[string]bool
	stubs         map[string]bool
	deleted       []string
}

func newFakeConversationStore() *fakeConversationStore {
	return &fakeConversationStore{
		conversations: make(map[string]models.Conversation),
		members:       make(map[string]map[string]models.Member),
		messages:      make(map[string]models.EncryptedMessage),
		flagged:       make(map[string]bool),
		stubs:         make(map[string]bool),
	}
}

func (f *fakeConversationStore) UpsertConversations(ctx context.Context, federated bool, convs []models.Conversation) error {
	for _, conv := range convs {
		key := conv.ID.Key(federated)
		conv.NeedsBackendUpdate = false
		f.conversations[key] = conv
		f.flagged[key] = false
		memberSet := make(map[string]models.Member, len(conv.Members))
		for _, member := range conv.Members {
			memberSet[member.UserID.Key(federated)] = member
		}
		f.members[key] = memberSet
	}
	return nil
}

func (f *fakeConversationStore) EnsureConversationStub(ctx context.Context, federated bool, id models.QualifiedID) error {
	key := id.Key(federated)
	if _, exists := f.conversations[key]; !exists {
		f.conversations[key] = models.Conversation{ID: id, NeedsBackendUpdate: true}
		f.stubs[key] = true
	}
	return nil
}

func (f *fakeConversationStore) FlagConversationNeedsBackendUpdate(ctx context.Context, federated bool, id models.QualifiedID) error {
	f.flagged[id.Key(federated)] = true
	return nil
}

func (f *fakeConversationStore) DeleteConversation(ctx context.Context, federated bool, id models.QualifiedID) error {
	key := id.Key(federated)
	delete(f.conversations, key)
	delete(f.members, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeConversationStore) AddConversationMembers(ctx context.Context, federated bool, id models.QualifiedID, members []models.Member) error {
	key := id.Key(federated)
	if f.members[key] == nil {
		f.members[key] = make(map[string]models.Member)
	}
	for _, member := range members {
		f.members[key][member.UserID.Key(federated)] = member
	}
	return nil
}

func (f *fakeConversationStore) RemoveConversationMembers(ctx context.Context, federated bool, id models.QualifiedID, userIDs []models.QualifiedID) error {
	key := id.Key(federated)
	for _, userID := range userIDs {
		delete(f.members[key], userID.Key(federated))
	}
	return nil
}

func (f *fakeConversationStore) UpsertMessage(ctx context.Context, federated bool, msg models.EncryptedMessage) error {
	f.messages[msg.ID.String()] = msg
	return nil
}

type fakeTeamsAPI struct {
	teamPages   [][]models.Team
	memberships map[string][]models.Membership
}

func (f *fakeTeamsAPI) GetTeams() *backend.Pager[models.Team] {
	return pagerOf(f.teamPages...)
}

func (f *fakeTeamsAPI) GetTeamMembers(ctx context.Context, teamID models.QualifiedID) ([]models.Membership, error) {
	return f.memberships[teamID.ID.String()], nil
}

type fakeTeamStore struct {
	teams       map[string]models.Team
	memberships map[string]models.Membership
	flagged     map[string]bool
}

func newFakeTeamStore() *fakeTeamStore {
	return &fakeTeamStore{
		teams:       make(map[string]models.Team),
		memberships: make(map[string]models.Membership),
		flagged:     make(map[string]bool),
	}
}

func membershipKey(federated bool, teamID, userID models.QualifiedID) string {
	return teamID.Key(federated) + "/" + userID.Key(federated)
}

func (f *fakeTeamStore) UpsertTeams(ctx context.Context, federated bool, teams []models.Team) error {
	for _, team := range teams {
		f.teams[team.ID.Key(federated)] = team
	}
	return nil
}

func (f *fakeTeamStore) UpsertMemberships(ctx context.Context, federated bool, memberships []models.Membership) error {
	for _, m := range memberships {
		key := membershipKey(federated, m.TeamID, m.UserID)
		m.NeedsBackendUpdate = false
		f.memberships[key] = m
		f.flagged[key] = false
	}
	return nil
}

func (f *fakeTeamStore) FlagMembershipNeedsBackendUpdate(ctx context.Context, federated bool, teamID, userID models.QualifiedID) error {
	key := membershipKey(federated, teamID, userID)
	if _, exists := f.memberships[key]; !exists {
		f.memberships[key] = models.Membership{TeamID: teamID, UserID: userID, NeedsBackendUpdate: true}
	}
	f.flagged[key] = true
	return nil
}

func (f *fakeTeamStore) DeleteMembership(ctx context.Context, federated bool, teamID, userID models.QualifiedID) error {
	delete(f.memberships, membershipKey(federated, teamID, userID))
	return nil
}
