package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Jitera-Sales/wire-sync/internal/models"
)

// UpsertConnections writes one page of connections in a single transaction.
func (s *PostgresStore) UpsertConnections(ctx context.Context, federated bool, conns []models.Connection) error {
	if len(conns) == 0 {
		return nil
	}

	query := `INSERT INTO connections
	              (receiver_key, sender_id, sender_domain, receiver_id, receiver_domain,
	               conversation_id, conversation_domain, status, last_update)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          ON CONFLICT (receiver_key) DO UPDATE
	          SET sender_id           = EXCLUDED.sender_id,
	              sender_domain       = EXCLUDED.sender_domain,
	              conversation_id     = EXCLUDED.conversation_id,
	              conversation_domain = EXCLUDED.conversation_domain,
	              status              = EXCLUDED.status,
	              last_update         = EXCLUDED.last_update`

	return s.withTx(ctx, func(tx pgx.Tx) error {
		for _, conn := range conns {
			_, err := tx.Exec(ctx, query,
				conn.ReceiverID.Key(federated),
				conn.SenderID.ID,
				conn.SenderID.Domain,
				conn.ReceiverID.ID,
				conn.ReceiverID.Domain,
				conn.ConversationID.ID,
				conn.ConversationID.Domain,
				string(conn.Status),
				conn.LastUpdate,
			)
			if err != nil {
				return fmt.Errorf("failed to upsert connection %s: %w", conn.ReceiverID, err)
			}
		}
		return nil
	})
}
