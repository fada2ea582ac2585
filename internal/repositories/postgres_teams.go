package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Jitera-Sales/wire-sync/internal/models"
)

func (s *PostgresStore) UpsertTeams(ctx context.Context, federated bool, teams []models.Team) error {
	if len(teams) == 0 {
		return nil
	}

	query := `INSERT INTO teams (team_key, team_id, domain, name, needs_backend_update)
	          VALUES ($1, $2, $3, $4, FALSE)
	          ON CONFLICT (team_key) DO UPDATE
	          SET name = EXCLUDED.name, needs_backend_update = FALSE`

	return s.withTx(ctx, func(tx pgx.Tx) error {
		for _, team := range teams {
			_, err := tx.Exec(ctx, query,
				team.ID.Key(federated),
				team.ID.ID,
				team.ID.Domain,
				team.Name,
			)
			if err != nil {
				return fmt.Errorf("failed to upsert team %s: %w", team.ID, err)
			}
		}
		return nil
	})
}

// UpsertMemberships writes confirmed backend state, clearing the dirty flag
// join events set on their stubs.
func (s *PostgresStore) UpsertMemberships(ctx context.Context, federated bool, memberships []models.Membership) error {
	if len(memberships) == 0 {
		return nil
	}

	query := `INSERT INTO memberships
	              (team_key, user_key, team_id, team_domain, user_id, user_domain,
	               permissions, needs_backend_update)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)
	          ON CONFLICT (team_key, user_key) DO UPDATE
	          SET permissions = EXCLUDED.permissions, needs_backend_update = FALSE`

	return s.withTx(ctx, func(tx pgx.Tx) error {
		for _, m := range memberships {
			_, err := tx.Exec(ctx, query,
				m.TeamID.Key(federated),
				m.UserID.Key(federated),
				m.TeamID.ID,
				m.TeamID.Domain,
				m.UserID.ID,
				m.UserID.Domain,
				int64(m.Permissions),
			)
			if err != nil {
				return fmt.Errorf("failed to upsert membership %s/%s: %w", m.TeamID, m.UserID, err)
			}
		}
		return nil
	})
}

// FlagMembershipNeedsBackendUpdate creates a permissionless stub or marks the
// existing row dirty; permissions already on record are left untouched.
func (s *PostgresStore) FlagMembershipNeedsBackendUpdate(ctx context.Context, federated bool, teamID, userID models.QualifiedID) error {
	query := `INSERT INTO memberships
	              (team_key, user_key, team_id, team_domain, user_id, user_domain, needs_backend_update)
	          VALUES ($1, $2, $3, $4, $5, $6, TRUE)
	          ON CONFLICT (team_key, user_key) DO UPDATE SET needs_backend_update = TRUE`

	_, err := s.pool.Exec(ctx, query,
		teamID.Key(federated),
		userID.Key(federated),
		teamID.ID,
		teamID.Domain,
		userID.ID,
		userID.Domain,
	)
	if err != nil {
		return fmt.Errorf("failed to flag membership %s/%s: %w", teamID, userID, err)
	}
	return nil
}

func (s *PostgresStore) DeleteMembership(ctx context.Context, federated bool, teamID, userID models.QualifiedID) error {
	query := `DELETE FROM memberships WHERE team_key = $1 AND user_key = $2`

	if _, err := s.pool.Exec(ctx, query, teamID.Key(federated), userID.Key(federated)); err != nil {
		return fmt.Errorf("failed to delete membership %s/%s: %w", teamID, userID, err)
	}
	return nil
}
