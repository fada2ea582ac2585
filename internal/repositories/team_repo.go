package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Jitera-Sales/wire-sync/internal/backend"
	"github.com/Jitera-Sales/wire-sync/internal/models"
)

type teamsRepository struct {
	api       backend.TeamsAPI
	store     TeamStore
	federated bool
	logger    *slog.Logger
}

func NewTeamsRepository(api backend.TeamsAPI, store TeamStore, federated bool, logger *slog.Logger) TeamsRepository {
	return &teamsRepository{
		api:       api,
		store:     store,
		federated: federated,
		logger:    logger,
	}
}

// PullTeams upserts every team and its confirmed membership list. Writing
// confirmed memberships clears needs_backend_update, resolving the stubs
// event processing left behind.
func (r *teamsRepository) PullTeams(ctx context.Context) (PullResult, error) {
	var result PullResult

	pager := r.api.GetTeams()
	for pager.More() {
		teams, err := pager.NextPage(ctx)
		if err != nil {
			return result, fmt.Errorf("failed to fetch teams page: %w", err)
		}

		valid := make([]models.Team, 0, len(teams))
		for _, team := range teams {
			if team.ID.IsZero() {
				r.logger.Warn("skipping team record without id")
				result.Failed++
				continue
			}
			valid = append(valid, team)
		}
		if len(valid) == 0 {
			continue
		}

		if err := r.store.UpsertTeams(ctx, r.federated, valid); err != nil {
			return result, fmt.Errorf("failed to store teams page: %w", err)
		}
		result.Stored += len(valid)

		for _, team := range valid {
			memberships, err := r.api.GetTeamMembers(ctx, team.ID)
			if err != nil {
				return result, fmt.Errorf("failed to fetch members of team %s: %w", team.ID, err)
			}

			confirmed := make([]models.Membership, 0, len(memberships))
			for _, membership := range memberships {
				if membership.UserID.IsZero() {
					r.logger.Warn("skipping membership record without user id", "team", team.ID.String())
					result.Failed++
					continue
				}
				confirmed = append(confirmed, membership)
			}
			if len(confirmed) == 0 {
				continue
			}
			if err := r.store.UpsertMemberships(ctx, r.federated, confirmed); err != nil {
				return result, fmt.Errorf("failed to store memberships of team %s: %w", team.ID, err)
			}
			result.Stored += len(confirmed)
		}
	}

	return result, nil
}

// AddTeamMember records a join as a stub: the event does not carry
// permissions, so the full record waits for the next pull.
func (r *teamsRepository) AddTeamMember(ctx context.Context, teamID, userID models.QualifiedID) error {
	return r.store.FlagMembershipNeedsBackendUpdate(ctx, r.federated, teamID, userID)
}

func (r *teamsRepository) RemoveTeamMember(ctx context.Context, teamID, userID models.QualifiedID) error {
	return r.store.DeleteMembership(ctx, r.federated, teamID, userID)
}

func (r *teamsRepository) StoreTeamMemberNeedsBackendUpdate(ctx context.Context, teamID, userID models.QualifiedID) error {
	return r.store.FlagMembershipNeedsBackendUpdate(ctx, r.federated, teamID, userID)
}
