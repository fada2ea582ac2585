package backend

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/google/uuid"

	"github.com/Jitera-Sales/wire-sync/internal/models"
)

// ConversationsAPI lists conversation identifiers and bulk-fetches
// conversation state. GetConversations returns a tri-partitioned result; a
// single request may resolve some identifiers and fail others, and callers
// must not treat partial failure as total failure.
type ConversationsAPI interface {
	GetConversationIdentifiers() *Pager[models.QualifiedID]
	GetConversations(ctx context.Context, ids []models.QualifiedID) (models.ConversationFetchResult, error)
}

type conversationsAPI struct {
	client   *Client
	pageSize int

	fetchIdentifierPage PageFetcher[models.QualifiedID]
	listPath            string
	listParser          func() *ResponseParser[models.ConversationFetchResult]
}

// NewConversationsAPI composes the per-version strategy table. Only the
// operations that changed in a generation are replaced:
//
//	v0: legacy GET ids walk, POST /conversations/list/v2, bare ids
//	v1: qualified ids, POST /conversations/list-ids
//	v2: bulk fetch moves to POST /conversations/list
//	v3: 403 gains the access-denied label
//	v5: conversation payloads gain access roles and MLS metadata
func NewConversationsAPI(client *Client) ConversationsAPI {
	api := &conversationsAPI{client: client, pageSize: 100}

	if client.Version().SupportsQualifiedIDs() {
		api.fetchIdentifierPage = api.fetchQualifiedIdentifierPage
	} else {
		api.fetchIdentifierPage = api.fetchLegacyIdentifierPage
	}

	api.listPath = "/conversations/list/v2"
	if client.Version() >= V2 {
		api.listPath = "/conversations/list"
	}

	api.listParser = api.baseListParser
	if client.Version() >= V3 {
		api.listParser = api.labelledListParser
	}

	return api
}

func (a *conversationsAPI) GetConversationIdentifiers() *Pager[models.QualifiedID] {
	return NewPager("", a.fetchIdentifierPage)
}

// Legacy identifier walk (v0): pagination by item identity. The client
// supplies the last identifier it saw and windows the returned set itself.

type legacyIDListPayload struct {
	Conversations []uuid.UUID `json:"conversations"`
	HasMore       bool        `json:"has_more"`
}

func (a *conversationsAPI) fetchLegacyIdentifierPage(ctx context.Context, start string) (Page[models.QualifiedID], error) {
	query := url.Values{}
	query.Set("size", strconv.Itoa(a.pageSize))
	if start != "" {
		query.Set("start", start)
	}

	code, body, err := a.client.Do(ctx, http.MethodGet, "/conversations/ids", query, nil)
	if err != nil {
		return Page[models.QualifiedID]{}, err
	}

	return NewResponseParser[Page[models.QualifiedID]]().
		Success(http.StatusOK, decodeJSON(func(w legacyIDListPayload) (Page[models.QualifiedID], error) {
			return legacyIdentifierWindow(w.Conversations, start, a.pageSize), nil
		})).
		Failure(http.StatusBadRequest, ErrInvalidParameters).
		Parse(code, body)
}

// legacyIdentifierWindow applies the marker-resumption policy of the legacy
// ids endpoint, which hands back the remaining identifier set starting at
// (and sometimes still including) the last-seen marker:
//
//   - marker found: resume at index+1, clamped to the last index when the
//     marker was the final element. The clamp re-yields one element; a
//     duplicate is harmless under upsert, a silent gap is not.
//   - marker missing (deleted or never existed): terminate with an empty
//     page. Guessing a resumption offset would silently drop or duplicate
//     conversations.
//
// hasMore compares the last element of the window against the last element
// of the full remaining set.
func legacyIdentifierWindow(ids []uuid.UUID, marker string, size int) Page[models.QualifiedID] {
	start := 0
	if marker != "" {
		m, err := uuid.Parse(marker)
		idx := -1
		if err == nil {
			idx = slices.Index(ids, m)
		}
		if idx < 0 {
			return Page[models.QualifiedID]{HasMore: false}
		}
		start = idx + 1
		if start >= len(ids) {
			start = len(ids) - 1
		}
	}

	end := min(start+size, len(ids))
	window := ids[start:end]

	page := Page[models.QualifiedID]{}
	page.Elements = make([]models.QualifiedID, 0, len(window))
	for _, id := range window {
		page.Elements = append(page.Elements, models.QualifiedID{ID: id})
	}
	if len(window) > 0 && window[len(window)-1] != ids[len(ids)-1] {
		page.HasMore = true
		page.NextStart = window[len(window)-1].String()
	}
	return page
}

// Qualified identifier listing (v1+): opaque server paging state.

type qualifiedIDListRequest struct {
	PagingState string `json:"paging_state,omitempty"`
	Size        int    `json:"size"`
}

type qualifiedIDListPayload struct {
	QualifiedConversations []qualifiedIDPayload `json:"qualified_conversations"`
	HasMore                bool                 `json:"has_more"`
	PagingState            string               `json:"paging_state"`
}

func (a *conversationsAPI) fetchQualifiedIdentifierPage(ctx context.Context, start string) (Page[models.QualifiedID], error) {
	request := qualifiedIDListRequest{PagingState: start, Size: a.pageSize}

	code, body, err := a.client.Do(ctx, http.MethodPost, "/conversations/list-ids", nil, request)
	if err != nil {
		return Page[models.QualifiedID]{}, err
	}

	return NewResponseParser[Page[models.QualifiedID]]().
		Success(http.StatusOK, decodeJSON(func(w qualifiedIDListPayload) (Page[models.QualifiedID], error) {
			page := Page[models.QualifiedID]{HasMore: w.HasMore, NextStart: w.PagingState}
			page.Elements = make([]models.QualifiedID, 0, len(w.QualifiedConversations))
			for _, id := range w.QualifiedConversations {
				page.Elements = append(page.Elements, id.model())
			}
			return page, nil
		})).
		Failure(http.StatusBadRequest, ErrInvalidParameters).
		Parse(code, body)
}

// Bulk conversation fetch.

type conversationListRequest struct {
	IDs          []uuid.UUID          `json:"ids,omitempty"`
	QualifiedIDs []qualifiedIDPayload `json:"qualified_ids,omitempty"`
}

type conversationListPayload struct {
	Found    []conversationPayload `json:"found"`
	NotFound []qualifiedIDPayload  `json:"not_found"`
	Failed   []qualifiedIDPayload  `json:"failed"`
}

func (a *conversationsAPI) GetConversations(ctx context.Context, ids []models.QualifiedID) (models.ConversationFetchResult, error) {
	if len(ids) == 0 {
		return models.ConversationFetchResult{}, ErrInvalidParameters
	}

	var request conversationListRequest
	if a.client.Version().SupportsQualifiedIDs() {
		request.QualifiedIDs = make([]qualifiedIDPayload, 0, len(ids))
		for _, id := range ids {
			request.QualifiedIDs = append(request.QualifiedIDs, qualifiedIDPayload{ID: id.ID, Domain: id.Domain})
		}
	} else {
		request.IDs = make([]uuid.UUID, 0, len(ids))
		for _, id := range ids {
			request.IDs = append(request.IDs, id.ID)
		}
	}

	code, body, err := a.client.Do(ctx, http.MethodPost, a.listPath, nil, request)
	if err != nil {
		return models.ConversationFetchResult{}, err
	}

	return a.listParser().Parse(code, body)
}

func (a *conversationsAPI) baseListParser() *ResponseParser[models.ConversationFetchResult] {
	withMLSFields := a.client.Version() >= V5
	return NewResponseParser[models.ConversationFetchResult]().
		Success(http.StatusOK, decodeJSON(func(w conversationListPayload) (models.ConversationFetchResult, error) {
			var result models.ConversationFetchResult
			result.Found = make([]models.Conversation, 0, len(w.Found))
			for _, conv := range w.Found {
				result.Found = append(result.Found, conv.model(withMLSFields))
			}
			for _, id := range w.NotFound {
				result.NotFound = append(result.NotFound, id.model())
			}
			for _, id := range w.Failed {
				result.Failed = append(result.Failed, id.model())
			}
			return result, nil
		})).
		Failure(http.StatusBadRequest, ErrInvalidParameters)
}

// labelledListParser extends the base registrations with the access-denied
// label introduced in v3; everything else is inherited unchanged.
func (a *conversationsAPI) labelledListParser() *ResponseParser[models.ConversationFetchResult] {
	return a.baseListParser().
		FailureLabel(http.StatusForbidden, "access-denied", ErrAccessDenied)
}
