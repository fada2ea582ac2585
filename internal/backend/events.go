package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Jitera-Sales/wire-sync/internal/models"
)

// Page size of the event stream, as served by every backend generation.
const eventPageSize = 500

// UpdateEventsAPI exposes the ordered, cursor-addressable event log.
type UpdateEventsAPI interface {
	// GetLastEventEnvelope fetches the newest event for this client. Its
	// cursor is the slow-sync baseline: everything before it is covered by
	// the bulk pulls that follow.
	GetLastEventEnvelope(ctx context.Context, selfClientID string) (models.UpdateEventEnvelope, error)

	// GetEventsSince drains the log after the given cursor, oldest first.
	GetEventsSince(selfClientID, sinceCursor string) *Pager[models.UpdateEventEnvelope]
}

type updateEventsAPI struct {
	client       *Client
	streamParser func() *ResponseParser[Page[models.UpdateEventEnvelope]]
}

// NewUpdateEventsAPI wires the notifications endpoints. The wire shape never
// changed across generations; v3 only added the invalid-client label for an
// existing 400.
func NewUpdateEventsAPI(client *Client) UpdateEventsAPI {
	api := &updateEventsAPI{client: client}
	api.streamParser = api.baseStreamParser
	if client.Version() >= V3 {
		api.streamParser = api.labelledStreamParser
	}
	return api
}

// notificationPayload is one notification: a cursor plus the batch of raw
// events it carries.
type notificationPayload struct {
	ID      string            `json:"id"`
	Payload []json.RawMessage `json:"payload"`
}

type notificationListPayload struct {
	Notifications []notificationPayload `json:"notifications"`
	HasMore       bool                  `json:"has_more"`
}

func (a *updateEventsAPI) GetLastEventEnvelope(ctx context.Context, selfClientID string) (models.UpdateEventEnvelope, error) {
	query := url.Values{}
	query.Set("client", selfClientID)

	code, body, err := a.client.Do(ctx, http.MethodGet, "/notifications/last", query, nil)
	if err != nil {
		return models.UpdateEventEnvelope{}, err
	}

	return NewResponseParser[models.UpdateEventEnvelope]().
		Success(http.StatusOK, decodeJSON(func(w notificationPayload) (models.UpdateEventEnvelope, error) {
			envelope := models.UpdateEventEnvelope{Cursor: w.ID}
			if len(w.Payload) > 0 {
				event, decodeErr := DecodeEvent(w.Payload[0])
				envelope.Event = event
				envelope.DecodeError = decodeErr
			}
			return envelope, nil
		})).
		Failure(http.StatusBadRequest, ErrInvalidClient).
		FailureLabel(http.StatusNotFound, "not-found", ErrNotFound).
		Parse(code, body)
}

func (a *updateEventsAPI) GetEventsSince(selfClientID, sinceCursor string) *Pager[models.UpdateEventEnvelope] {
	return NewPager(sinceCursor, func(ctx context.Context, start string) (Page[models.UpdateEventEnvelope], error) {
		query := url.Values{}
		query.Set("client", selfClientID)
		query.Set("size", strconv.Itoa(eventPageSize))
		if start != "" {
			query.Set("since", start)
		}

		code, body, err := a.client.Do(ctx, http.MethodGet, "/notifications", query, nil)
		if err != nil {
			return Page[models.UpdateEventEnvelope]{}, err
		}

		return a.streamParser().Parse(code, body)
	})
}

func (a *updateEventsAPI) baseStreamParser() *ResponseParser[Page[models.UpdateEventEnvelope]] {
	return NewResponseParser[Page[models.UpdateEventEnvelope]]().
		Success(http.StatusOK, decodeJSON(func(w notificationListPayload) (Page[models.UpdateEventEnvelope], error) {
			return flattenNotifications(w), nil
		})).
		Failure(http.StatusBadRequest, ErrInvalidParameters).
		Failure(http.StatusNotFound, ErrNotFound)
}

func (a *updateEventsAPI) labelledStreamParser() *ResponseParser[Page[models.UpdateEventEnvelope]] {
	return a.baseStreamParser().
		FailureLabel(http.StatusBadRequest, "invalid-client", ErrInvalidClient)
}

// flattenNotifications turns each notification into one envelope per event,
// all sharing the notification's cursor. A malformed event yields an
// envelope with DecodeError set: the broken record is isolated, the cursor
// still advances.
func flattenNotifications(w notificationListPayload) Page[models.UpdateEventEnvelope] {
	page := Page[models.UpdateEventEnvelope]{HasMore: w.HasMore}
	for _, notification := range w.Notifications {
		for _, raw := range notification.Payload {
			envelope := models.UpdateEventEnvelope{Cursor: notification.ID}
			event, err := DecodeEvent(raw)
			envelope.Event = event
			envelope.DecodeError = err
			page.Elements = append(page.Elements, envelope)
		}
	}
	if w.HasMore && len(w.Notifications) > 0 {
		page.NextStart = w.Notifications[len(w.Notifications)-1].ID
	}
	return page
}
