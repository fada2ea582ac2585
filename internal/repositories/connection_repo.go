package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Jitera-Sales/wire-sync/internal/backend"
	"github.com/Jitera-Sales/wire-sync/internal/models"
)

type connectionsRepository struct {
	api       backend.ConnectionsAPI
	store     ConnectionStore
	federated bool
	logger    *slog.Logger
}

// NewConnectionsRepository builds a connections repository bound to the
// federation mode in effect for this sync run. The flag is fixed at
// construction; a repository never switches identity schemes mid-session.
func NewConnectionsRepository(api backend.ConnectionsAPI, store ConnectionStore, federated bool, logger *slog.Logger) ConnectionsRepository {
	return &connectionsRepository{
		api:       api,
		store:     store,
		federated: federated,
		logger:    logger,
	}
}

func (r *connectionsRepository) PullConnections(ctx context.Context) (PullResult, error) {
	var result PullResult

	pager := r.api.GetConnections()
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return result, fmt.Errorf("failed to fetch connections page: %w", err)
		}

		valid := make([]models.Connection, 0, len(page))
		for _, conn := range page {
			if err := validateConnection(conn); err != nil {
				r.logger.Warn("skipping malformed connection record",
					"receiver", conn.ReceiverID.String(),
					"error", err)
				result.Failed++
				continue
			}
			valid = append(valid, conn)
		}

		if len(valid) == 0 {
			continue
		}
		if err := r.upsertWithRetry(ctx, valid); err != nil {
			return result, fmt.Errorf("failed to store connections page: %w", err)
		}
		result.Stored += len(valid)
	}

	return result, nil
}

func (r *connectionsRepository) StoreConnection(ctx context.Context, conn models.Connection) error {
	if err := validateConnection(conn); err != nil {
		return err
	}
	return r.upsertWithRetry(ctx, []models.Connection{conn})
}

// upsertWithRetry retries a rolled-back batch exactly once before surfacing
// the storage failure.
func (r *connectionsRepository) upsertWithRetry(ctx context.Context, conns []models.Connection) error {
	err := r.store.UpsertConnections(ctx, r.federated, conns)
	if err == nil || ctx.Err() != nil {
		return err
	}
	r.logger.Warn("retrying connection batch after storage failure", "error", err)
	return r.store.UpsertConnections(ctx, r.federated, conns)
}

func validateConnection(conn models.Connection) error {
	if conn.ReceiverID.IsZero() {
		return fmt.Errorf("connection missing receiver id")
	}
	if conn.ConversationID.IsZero() {
		return fmt.Errorf("connection missing conversation id")
	}
	if !conn.Status.Valid() {
		return fmt.Errorf("connection has unknown status %q", conn.Status)
	}
	return nil
}
