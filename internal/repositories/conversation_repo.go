package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Jitera-Sales/wire-sync/internal/backend"
	"github.com/Jitera-Sales/wire-sync/internal/models"
)

// Identifiers per bulk conversation fetch.
const conversationFetchChunk = 100

type conversationsRepository struct {
	api       backend.ConversationsAPI
	store     ConversationStore
	federated bool
	logger    *slog.Logger
}

func NewConversationsRepository(api backend.ConversationsAPI, store ConversationStore, federated bool, logger *slog.Logger) ConversationsRepository {
	return &conversationsRepository{
		api:       api,
		store:     store,
		federated: federated,
		logger:    logger,
	}
}

// PullConversations walks the identifier listing, bulk-fetches state in
// chunks and reconciles each tri-partitioned result. Ids the backend
// explicitly reports missing are deleted locally; ids it reports as errored
// keep their local record flagged for the next pull.
func (r *conversationsRepository) PullConversations(ctx context.Context) (PullResult, error) {
	var result PullResult

	pager := r.api.GetConversationIdentifiers()
	var pending []models.QualifiedID
	for pager.More() {
		ids, err := pager.NextPage(ctx)
		if err != nil {
			return result, fmt.Errorf("failed to fetch conversation identifiers: %w", err)
		}
		pending = append(pending, ids...)

		for len(pending) >= conversationFetchChunk {
			chunk := pending[:conversationFetchChunk]
			pending = pending[conversationFetchChunk:]
			chunkResult, err := r.fetchAndStore(ctx, chunk)
			result.add(chunkResult)
			if err != nil {
				return result, err
			}
		}
	}
	if len(pending) > 0 {
		chunkResult, err := r.fetchAndStore(ctx, pending)
		result.add(chunkResult)
		if err != nil {
			return result, err
		}
	}

	return result, nil
}

func (r *conversationsRepository) fetchAndStore(ctx context.Context, ids []models.QualifiedID) (PullResult, error) {
	var result PullResult

	fetched, err := r.api.GetConversations(ctx, ids)
	if err != nil {
		return result, fmt.Errorf("failed to fetch conversations: %w", err)
	}

	valid := make([]models.Conversation, 0, len(fetched.Found))
	for _, conv := range fetched.Found {
		if conv.ID.IsZero() {
			r.logger.Warn("skipping conversation record without id")
			result.Failed++
			continue
		}
		valid = append(valid, conv)
	}

	if len(valid) > 0 {
		if err := r.upsertWithRetry(ctx, valid); err != nil {
			return result, fmt.Errorf("failed to store conversations: %w", err)
		}
		result.Stored += len(valid)
	}

	for _, id := range fetched.NotFound {
		if err := r.store.DeleteConversation(ctx, r.federated, id); err != nil {
			return result, fmt.Errorf("failed to delete missing conversation %s: %w", id, err)
		}
	}

	// Errored ids (guest links, unreachable federated backends) stay local;
	// the dirty flag queues them for the next pull.
	for _, id := range fetched.Failed {
		r.logger.Warn("conversation fetch failed remotely", "conversation", id.String())
		if err := r.store.FlagConversationNeedsBackendUpdate(ctx, r.federated, id); err != nil {
			return result, fmt.Errorf("failed to flag conversation %s: %w", id, err)
		}
	}

	return result, nil
}

func (r *conversationsRepository) StoreConversation(ctx context.Context, conv models.Conversation) error {
	if conv.ID.IsZero() {
		return fmt.Errorf("conversation missing id")
	}
	return r.upsertWithRetry(ctx, []models.Conversation{conv})
}

func (r *conversationsRepository) DeleteConversation(ctx context.Context, id models.QualifiedID) error {
	return r.store.DeleteConversation(ctx, r.federated, id)
}

// AddMembers upserts membership rows. A join for a conversation not pulled
// yet creates a minimal stub flagged needs_backend_update instead of
// dropping the event.
func (r *conversationsRepository) AddMembers(ctx context.Context, id models.QualifiedID, members []models.Member) error {
	if err := r.store.EnsureConversationStub(ctx, r.federated, id); err != nil {
		return fmt.Errorf("failed to ensure conversation stub: %w", err)
	}
	return r.store.AddConversationMembers(ctx, r.federated, id, members)
}

func (r *conversationsRepository) RemoveMembers(ctx context.Context, id models.QualifiedID, userIDs []models.QualifiedID) error {
	return r.store.RemoveConversationMembers(ctx, r.federated, id, userIDs)
}

func (r *conversationsRepository) StoreIncomingMessage(ctx context.Context, msg models.EncryptedMessage) error {
	if err := r.store.EnsureConversationStub(ctx, r.federated, msg.ConversationID); err != nil {
		return fmt.Errorf("failed to ensure conversation stub: %w", err)
	}
	return r.store.UpsertMessage(ctx, r.federated, msg)
}

func (r *conversationsRepository) upsertWithRetry(ctx context.Context, convs []models.Conversation) error {
	err := r.store.UpsertConversations(ctx, r.federated, convs)
	if err == nil || ctx.Err() != nil {
		return err
	}
	r.logger.Warn("retrying conversation batch after storage failure", "error", err)
	return r.store.UpsertConversations(ctx, r.federated, convs)
}
