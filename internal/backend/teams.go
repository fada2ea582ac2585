package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/Jitera-Sales/wire-sync/internal/models"
)

// TeamsAPI pulls team and membership state. Team payloads never changed
// across backend generations beyond the path prefix.
type TeamsAPI interface {
	GetTeams() *Pager[models.Team]
	GetTeamMembers(ctx context.Context, teamID models.QualifiedID) ([]models.Membership, error)
}

type teamsAPI struct {
	client   *Client
	pageSize int
}

func NewTeamsAPI(client *Client) TeamsAPI {
	return &teamsAPI{client: client, pageSize: 100}
}

type teamPayload struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type teamListPayload struct {
	Teams   []teamPayload `json:"teams"`
	HasMore bool          `json:"has_more"`
}

func (a *teamsAPI) GetTeams() *Pager[models.Team] {
	return NewPager("", func(ctx context.Context, start string) (Page[models.Team], error) {
		query := url.Values{}
		query.Set("size", strconv.Itoa(a.pageSize))
		if start != "" {
			query.Set("start", start)
		}

		code, body, err := a.client.Do(ctx, http.MethodGet, "/teams", query, nil)
		if err != nil {
			return Page[models.Team]{}, err
		}

		return NewResponseParser[Page[models.Team]]().
			Success(http.StatusOK, decodeJSON(func(w teamListPayload) (Page[models.Team], error) {
				page := Page[models.Team]{HasMore: w.HasMore}
				page.Elements = make([]models.Team, 0, len(w.Teams))
				for _, team := range w.Teams {
					page.Elements = append(page.Elements, models.Team{
						ID:   models.QualifiedID{ID: team.ID},
						Name: team.Name,
					})
				}
				if w.HasMore && len(w.Teams) > 0 {
					page.NextStart = w.Teams[len(w.Teams)-1].ID.String()
				}
				return page, nil
			})).
			Failure(http.StatusBadRequest, ErrInvalidParameters).
			Parse(code, body)
	})
}

type teamMemberPayload struct {
	User        uuid.UUID `json:"user"`
	Permissions struct {
		Self uint64 `json:"self"`
	} `json:"permissions"`
}

type teamMemberListPayload struct {
	Members []teamMemberPayload `json:"members"`
}

func (a *teamsAPI) GetTeamMembers(ctx context.Context, teamID models.QualifiedID) ([]models.Membership, error) {
	code, body, err := a.client.Do(ctx, http.MethodGet, "/teams/"+teamID.ID.String()+"/members", nil, nil)
	if err != nil {
		return nil, err
	}

	return NewResponseParser[[]models.Membership]().
		Success(http.StatusOK, decodeJSON(func(w teamMemberListPayload) ([]models.Membership, error) {
			memberships := make([]models.Membership, 0, len(w.Members))
			for _, member := range w.Members {
				memberships = append(memberships, models.Membership{
					TeamID:      teamID,
					UserID:      models.QualifiedID{ID: member.User},
					Permissions: member.Permissions.Self,
				})
			}
			return memberships, nil
		})).
		FailureLabel(http.StatusForbidden, "no-team-member", ErrAccessDenied).
		Failure(http.StatusNotFound, ErrNotFound).
		Parse(code, body)
}
