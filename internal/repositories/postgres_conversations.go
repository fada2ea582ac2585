package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Jitera-Sales/wire-sync/internal/models"
)

// UpsertConversations replaces each conversation snapshot, member set
// included, and clears needs_backend_update. One transaction per batch.
func (s *PostgresStore) UpsertConversations(ctx context.Context, federated bool, convs []models.Conversation) error {
	if len(convs) == 0 {
		return nil
	}

	upsert := `INSERT INTO conversations
	               (conversation_key, conversation_id, domain, name, team_id,
	                access_roles, cipher_suite, epoch, epoch_time, needs_backend_update)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE)
	           ON CONFLICT (conversation_key) DO UPDATE
	           SET name                 = EXCLUDED.name,
	               team_id              = EXCLUDED.team_id,
	               access_roles         = EXCLUDED.access_roles,
	               cipher_suite         = EXCLUDED.cipher_suite,
	               epoch                = EXCLUDED.epoch,
	               epoch_time           = EXCLUDED.epoch_time,
	               needs_backend_update = FALSE`

	return s.withTx(ctx, func(tx pgx.Tx) error {
		for _, conv := range convs {
			key := conv.ID.Key(federated)
			_, err := tx.Exec(ctx, upsert,
				key,
				conv.ID.ID,
				conv.ID.Domain,
				conv.Name,
				conv.TeamID,
				conv.AccessRoles,
				conv.CipherSuite,
				conv.Epoch,
				conv.EpochTime,
			)
			if err != nil {
				return fmt.Errorf("failed to upsert conversation %s: %w", conv.ID, err)
			}

			if _, err := tx.Exec(ctx,
				`DELETE FROM conversation_members WHERE conversation_key = $1`, key); err != nil {
				return fmt.Errorf("failed to clear members of %s: %w", conv.ID, err)
			}
			if err := insertMembers(ctx, tx, federated, key, conv.Members); err != nil {
				return fmt.Errorf("failed to store members of %s: %w", conv.ID, err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) EnsureConversationStub(ctx context.Context, federated bool, id models.QualifiedID) error {
	query := `INSERT INTO conversations (conversation_key, conversation_id, domain, needs_backend_update)
	          VALUES ($1, $2, $3, TRUE)
	          ON CONFLICT (conversation_key) DO NOTHING`

	if _, err := s.pool.Exec(ctx, query, id.Key(federated), id.ID, id.Domain); err != nil {
		return fmt.Errorf("failed to ensure conversation stub %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) FlagConversationNeedsBackendUpdate(ctx context.Context, federated bool, id models.QualifiedID) error {
	query := `INSERT INTO conversations (conversation_key, conversation_id, domain, needs_backend_update)
	          VALUES ($1, $2, $3, TRUE)
	          ON CONFLICT (conversation_key) DO UPDATE SET needs_backend_update = TRUE`

	if _, err := s.pool.Exec(ctx, query, id.Key(federated), id.ID, id.Domain); err != nil {
		return fmt.Errorf("failed to flag conversation %s: %w", id, err)
	}
	return nil
}

// DeleteConversation removes the row; members and messages cascade.
func (s *PostgresStore) DeleteConversation(ctx context.Context, federated bool, id models.QualifiedID) error {
	query := `DELETE FROM conversations WHERE conversation_key = $1`

	if _, err := s.pool.Exec(ctx, query, id.Key(federated)); err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) AddConversationMembers(ctx context.Context, federated bool, id models.QualifiedID, members []models.Member) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := insertMembers(ctx, tx, federated, id.Key(federated), members); err != nil {
			return fmt.Errorf("failed to add members to %s: %w", id, err)
		}
		return nil
	})
}

func (s *PostgresStore) RemoveConversationMembers(ctx context.Context, federated bool, id models.QualifiedID, userIDs []models.QualifiedID) error {
	query := `DELETE FROM conversation_members WHERE conversation_key = $1 AND user_key = $2`

	return s.withTx(ctx, func(tx pgx.Tx) error {
		key := id.Key(federated)
		for _, userID := range userIDs {
			if _, err := tx.Exec(ctx, query, key, userID.Key(federated)); err != nil {
				return fmt.Errorf("failed to remove member %s from %s: %w", userID, id, err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) UpsertMessage(ctx context.Context, federated bool, msg models.EncryptedMessage) error {
	query := `INSERT INTO messages
	              (id, conversation_key, sender_id, sender_domain, sender_client,
	               recipient_client, ciphertext, external_data, received_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		msg.ID,
		msg.ConversationID.Key(federated),
		msg.SenderID.ID,
		msg.SenderID.Domain,
		msg.SenderClient,
		msg.RecipientClient,
		msg.Ciphertext,
		msg.ExternalData,
		msg.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert message %s: %w", msg.ID, err)
	}
	return nil
}

func insertMembers(ctx context.Context, tx pgx.Tx, federated bool, conversationKey string, members []models.Member) error {
	query := `INSERT INTO conversation_members (conversation_key, user_key, user_id, user_domain, role)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (conversation_key, user_key) DO UPDATE SET role = EXCLUDED.role`

	for _, member := range members {
		_, err := tx.Exec(ctx, query,
			conversationKey,
			member.UserID.Key(federated),
			member.UserID.ID,
			member.UserID.Domain,
			member.Role,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
