package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Jitera-Sales/wire-sync/internal/models"
)

// ConnectionsAPI drains the self user's connections, one page per fetch.
type ConnectionsAPI interface {
	GetConnections() *Pager[ConnectionRecord]
}

// ConnectionRecord is one element of a connections page, converted to the
// domain shape but not yet validated.
type ConnectionRecord = models.Connection

type connectionsAPI struct {
	client   *Client
	pageSize int
	fetch    PageFetcher[ConnectionRecord]
}

// NewConnectionsAPI selects the operation strategies for the client's
// version: v0 uses the legacy GET walk with bare ids, v1+ the paging-state
// POST with qualified ids. v4 raised the page size cap.
func NewConnectionsAPI(client *Client) ConnectionsAPI {
	api := &connectionsAPI{client: client, pageSize: 200}
	if client.Version() >= V4 {
		api.pageSize = 500
	}
	if client.Version().SupportsQualifiedIDs() {
		api.fetch = api.fetchQualifiedPage
	} else {
		api.fetch = api.fetchLegacyPage
	}
	return api
}

func (a *connectionsAPI) GetConnections() *Pager[ConnectionRecord] {
	return NewPager("", a.fetch)
}

type legacyConnectionListPayload struct {
	Connections []connectionPayload `json:"connections"`
	HasMore     bool                `json:"has_more"`
}

func (a *connectionsAPI) fetchLegacyPage(ctx context.Context, start string) (Page[ConnectionRecord], error) {
	query := url.Values{}
	query.Set("size", strconv.Itoa(a.pageSize))
	if start != "" {
		query.Set("start", start)
	}

	code, body, err := a.client.Do(ctx, http.MethodGet, "/connections", query, nil)
	if err != nil {
		return Page[ConnectionRecord]{}, err
	}

	return NewResponseParser[Page[ConnectionRecord]]().
		Success(http.StatusOK, decodeJSON(func(w legacyConnectionListPayload) (Page[ConnectionRecord], error) {
			return connectionPage(w.Connections, w.HasMore), nil
		})).
		Failure(http.StatusBadRequest, ErrInvalidParameters).
		Parse(code, body)
}

type connectionListRequest struct {
	PagingState string `json:"paging_state,omitempty"`
	Size        int    `json:"size"`
}

type connectionListPayload struct {
	Connections []connectionPayload `json:"connections"`
	HasMore     bool                `json:"has_more"`
	PagingState string              `json:"paging_state"`
}

func (a *connectionsAPI) fetchQualifiedPage(ctx context.Context, start string) (Page[ConnectionRecord], error) {
	request := connectionListRequest{PagingState: start, Size: a.pageSize}

	code, body, err := a.client.Do(ctx, http.MethodPost, "/list-connections", nil, request)
	if err != nil {
		return Page[ConnectionRecord]{}, err
	}

	return NewResponseParser[Page[ConnectionRecord]]().
		Success(http.StatusOK, decodeJSON(func(w connectionListPayload) (Page[ConnectionRecord], error) {
			page := connectionPage(w.Connections, w.HasMore)
			page.NextStart = w.PagingState
			return page, nil
		})).
		Failure(http.StatusBadRequest, ErrInvalidParameters).
		Parse(code, body)
}

func connectionPage(payloads []connectionPayload, hasMore bool) Page[ConnectionRecord] {
	page := Page[ConnectionRecord]{HasMore: hasMore}
	page.Elements = make([]ConnectionRecord, 0, len(payloads))
	for _, p := range payloads {
		page.Elements = append(page.Elements, p.model())
	}
	// The legacy walk resumes from the receiver id of the last element.
	if hasMore && len(page.Elements) > 0 {
		page.NextStart = page.Elements[len(page.Elements)-1].ReceiverID.ID.String()
	}
	return page
}
