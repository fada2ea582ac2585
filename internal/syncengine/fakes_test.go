package syncengine

import (
	"context"
	"fmt"

	"github.com/Jitera-Sales/wire-sync/internal/backend"
	"github.com/Jitera-Sales/wire-sync/internal/models"
	"github.com/Jitera-Sales/wire-sync/internal/repositories"
)

// recordingRepos implements the three state repositories and logs every call
// in order, so tests can assert both effects and sequencing.
type recordingRepos struct {
	calls    []string
	pulls    []string
	failCall string
}

func (r *recordingRepos) record(call string) error {
	r.calls = append(r.calls, call)
	if r.failCall != "" && call == r.failCall {
		return fmt.Errorf("injected failure at %s", call)
	}
	return nil
}

func (r *recordingRepos) PullConnections(ctx context.Context) (repositories.PullResult, error) {
	r.pulls = append(r.pulls, "connections")
	return repositories.PullResult{Stored: 1}, nil
}

func (r *recordingRepos) StoreConnection(ctx context.Context, conn models.Connection) error {
	return r.record("connection " + conn.ReceiverID.ID.String())
}

func (r *recordingRepos) PullConversations(ctx context.Context) (repositories.PullResult, error) {
	r.pulls = append(r.pulls, "conversations")
	return repositories.PullResult{Stored: 2}, nil
}

func (r *recordingRepos) StoreConversation(ctx context.Context, conv models.Conversation) error {
	return r.record("create " + conv.ID.ID.String())
}

func (r *recordingRepos) DeleteConversation(ctx context.Context, id models.QualifiedID) error {
	return r.record("delete " + id.ID.String())
}

func (r *recordingRepos) AddMembers(ctx context.Context, id models.QualifiedID, members []models.Member) error {
	return r.record(fmt.Sprintf("join %s %d", id.ID, len(members)))
}

func (r *recordingRepos) RemoveMembers(ctx context.Context, id models.QualifiedID, userIDs []models.QualifiedID) error {
	return r.record(fmt.Sprintf("leave %s %d", id.ID, len(userIDs)))
}

func (r *recordingRepos) StoreIncomingMessage(ctx context.Context, msg models.EncryptedMessage) error {
	return r.record("message " + msg.ConversationID.ID.String())
}

func (r *recordingRepos) PullTeams(ctx context.Context) (repositories.PullResult, error) {
	r.pulls = append(r.pulls, "teams")
	return repositories.PullResult{Stored: 3}, nil
}

func (r *recordingRepos) AddTeamMember(ctx context.Context, teamID, userID models.QualifiedID) error {
	return r.record("team-join " + userID.ID.String())
}

func (r *recordingRepos) RemoveTeamMember(ctx context.Context, teamID, userID models.QualifiedID) error {
	return r.record("team-leave " + userID.ID.String())
}

func (r *recordingRepos) StoreTeamMemberNeedsBackendUpdate(ctx context.Context, teamID, userID models.QualifiedID) error {
	return r.record("team-update " + userID.ID.String())
}

func (r *recordingRepos) set() RepositorySet {
	return RepositorySet{Connections: r, Conversations: r, Teams: r}
}

type fakeCursorRepo struct {
	cursor  string
	hasOne  bool
	history []string
}

func (f *fakeCursorRepo) LastEventCursor(ctx context.Context) (string, error) {
	if !f.hasOne {
		return "", repositories.ErrNotFound
	}
	return f.cursor, nil
}

func (f *fakeCursorRepo) StoreEventCursor(ctx context.Context, cursor string) error {
	f.cursor = cursor
	f.hasOne = true
	f.history = append(f.history, cursor)
	return nil
}

type fakeBackendInfo struct {
	info models.BackendInfo
}

func (f *fakeBackendInfo) GetBackendInfo(ctx context.Context) (models.BackendInfo, error) {
	return f.info, nil
}

type fakeEventsAPI struct {
	last      models.UpdateEventEnvelope
	lastErr   error
	pages     [][]models.UpdateEventEnvelope
	sinceSeen []string
}

func (f *fakeEventsAPI) GetLastEventEnvelope(ctx context.Context, selfClientID string) (models.UpdateEventEnvelope, error) {
	return f.last, f.lastErr
}

func (f *fakeEventsAPI) GetEventsSince(selfClientID, sinceCursor string) *backend.Pager[models.UpdateEventEnvelope] {
	f.sinceSeen = append(f.sinceSeen, sinceCursor)
	i := 0
	return backend.NewPager(sinceCursor, func(ctx context.Context, start string) (backend.Page[models.UpdateEventEnvelope], error) {
		if i >= len(f.pages) {
			return backend.Page[models.UpdateEventEnvelope]{}, nil
		}
		page := backend.Page[models.UpdateEventEnvelope]{Elements: f.pages[i]}
		i++
		if i < len(f.pages) {
			page.HasMore = true
			page.NextStart = fmt.Sprintf("page-%d", i)
		}
		return page, nil
	})
}
