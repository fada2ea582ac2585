package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jitera-Sales/wire-sync/internal/models"
)

func makeUUIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func TestLegacyIdentifierWindow_FirstPage(t *testing.T) {
	ids := makeUUIDs(5)

	// ACT
	page := legacyIdentifierWindow(ids, "", 3)

	// ASSERT
	require.Len(t, page.Elements, 3)
	assert.Equal(t, ids[0], page.Elements[0].ID)
	assert.True(t, page.HasMore)
	assert.Equal(t, ids[2].String(), page.NextStart)
}

func TestLegacyIdentifierWindow_ResumesAfterMarker(t *testing.T) {
	ids := makeUUIDs(5)

	// ACT: the server returns the remaining set including the marker
	page := legacyIdentifierWindow(ids, ids[1].String(), 3)

	// ASSERT: resumption starts one past the marker
	require.Len(t, page.Elements, 3)
	assert.Equal(t, ids[2], page.Elements[0].ID)
	assert.Equal(t, ids[4], page.Elements[2].ID)
	assert.False(t, page.HasMore)
}

func TestLegacyIdentifierWindow_MarkerAsLastElementClamps(t *testing.T) {
	ids := makeUUIDs(3)

	// ACT: marker is the final element of the remaining set
	page := legacyIdentifierWindow(ids, ids[2].String(), 3)

	// ASSERT: the clamp re-yields the marker element once and terminates.
	// One duplicate is harmless under upsert; a dropped element is not.
	require.Len(t, page.Elements, 1)
	assert.Equal(t, ids[2], page.Elements[0].ID)
	assert.False(t, page.HasMore)
}

func TestLegacyIdentifierWindow_MarkerNotFoundTerminates(t *testing.T) {
	ids := makeUUIDs(3)

	// ACT: the marker conversation was deleted between pages
	page := legacyIdentifierWindow(ids, uuid.NewString(), 3)

	// ASSERT: empty terminal page, no guessed resumption offset
	assert.Empty(t, page.Elements)
	assert.False(t, page.HasMore)
}

func TestLegacyIdentifierWindow_EmptySet(t *testing.T) {
	page := legacyIdentifierWindow(nil, "", 3)

	assert.Empty(t, page.Elements)
	assert.False(t, page.HasMore)
}

func TestGetConversations_TriPartition(t *testing.T) {
	found := uuid.New()
	missing := uuid.New()
	failed := uuid.New()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// ASSERT: v2+ uses the consolidated list path with qualified ids
		assert.Equal(t, "/v2/conversations/list", r.URL.Path)

		var request struct {
			QualifiedIDs []qualifiedIDPayload `json:"qualified_ids"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		assert.Len(t, request.QualifiedIDs, 3)

		json.NewEncoder(w).Encode(map[string]any{
			"found": []map[string]any{{
				"qualified_id": map[string]any{"id": found, "domain": "alpha.example.com"},
				"name":         "roadmap",
			}},
			"not_found": []map[string]any{{"id": missing, "domain": "alpha.example.com"}},
			"failed":    []map[string]any{{"id": failed, "domain": "beta.example.com"}},
		})
	})

	api := NewConversationsAPI(newTestClient(t, V2, handler))

	// ACT
	result, err := api.GetConversations(context.Background(), []models.QualifiedID{
		{ID: found, Domain: "alpha.example.com"},
		{ID: missing, Domain: "alpha.example.com"},
		{ID: failed, Domain: "beta.example.com"},
	})

	// ASSERT: partial failure stays partial
	require.NoError(t, err)
	require.Len(t, result.Found, 1)
	assert.Equal(t, found, result.Found[0].ID.ID)
	assert.Equal(t, "roadmap", *result.Found[0].Name)
	require.Len(t, result.NotFound, 1)
	assert.Equal(t, missing, result.NotFound[0].ID)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, failed, result.Failed[0].ID)
}

func TestGetConversations_EmptyInput(t *testing.T) {
	api := NewConversationsAPI(newTestClient(t, V2, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty input")
	})))

	// ACT
	_, err := api.GetConversations(context.Background(), nil)

	// ASSERT
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

func TestGetConversations_LegacyRequestShape(t *testing.T) {
	id := uuid.New()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// ASSERT: v0 has no path prefix and sends bare ids
		assert.Equal(t, "/conversations/list/v2", r.URL.Path)

		var request struct {
			IDs []uuid.UUID `json:"ids"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		assert.Equal(t, []uuid.UUID{id}, request.IDs)

		json.NewEncoder(w).Encode(map[string]any{
			"found": []map[string]any{{"id": id}},
		})
	})

	api := NewConversationsAPI(newTestClient(t, V0, handler))

	// ACT
	result, err := api.GetConversations(context.Background(), []models.QualifiedID{{ID: id}})

	// ASSERT
	require.NoError(t, err)
	require.Len(t, result.Found, 1)
	assert.Equal(t, id, result.Found[0].ID.ID)
}

func TestGetConversations_AccessDeniedLabel(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]any{"code": 403, "label": "access-denied"})
	})

	v3 := NewConversationsAPI(newTestClient(t, V3, handler))
	v2 := NewConversationsAPI(newTestClient(t, V2, handler))
	ids := []models.QualifiedID{{ID: uuid.New()}}

	// ACT
	_, errV3 := v3.GetConversations(context.Background(), ids)
	_, errV2 := v2.GetConversations(context.Background(), ids)

	// ASSERT: the label mapping exists from v3 on; v2 treats 403 as unexpected
	assert.ErrorIs(t, errV3, ErrAccessDenied)
	var unexpected *UnexpectedResponseError
	assert.ErrorAs(t, errV2, &unexpected)
}

func TestGetConversations_MLSFieldsGatedByVersion(t *testing.T) {
	id := uuid.New()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"found": []map[string]any{{
				"qualified_id": map[string]any{"id": id, "domain": "alpha.example.com"},
				"access_roles": []string{"team_member"},
				"cipher_suite": 1,
				"epoch":        42,
			}},
		})
	})

	v5 := NewConversationsAPI(newTestClient(t, V5, handler))
	v2 := NewConversationsAPI(newTestClient(t, V2, handler))
	ids := []models.QualifiedID{{ID: id, Domain: "alpha.example.com"}}

	// ACT
	resultV5, err := v5.GetConversations(context.Background(), ids)
	require.NoError(t, err)
	resultV2, err := v2.GetConversations(context.Background(), ids)
	require.NoError(t, err)

	// ASSERT
	require.Len(t, resultV5.Found, 1)
	require.NotNil(t, resultV5.Found[0].Epoch)
	assert.Equal(t, uint64(42), *resultV5.Found[0].Epoch)
	assert.Equal(t, []string{"team_member"}, resultV5.Found[0].AccessRoles)

	require.Len(t, resultV2.Found, 1)
	assert.Nil(t, resultV2.Found[0].Epoch)
	assert.Nil(t, resultV2.Found[0].AccessRoles)
}

func TestGetConversationIdentifiers_QualifiedPaging(t *testing.T) {
	first := makeUUIDs(2)
	second := makeUUIDs(1)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/conversations/list-ids", r.URL.Path)

		var request qualifiedIDListRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))

		respond := func(ids []uuid.UUID, hasMore bool, state string) {
			payload := make([]map[string]any, 0, len(ids))
			for _, id := range ids {
				payload = append(payload, map[string]any{"id": id, "domain": "alpha.example.com"})
			}
			json.NewEncoder(w).Encode(map[string]any{
				"qualified_conversations": payload,
				"has_more":                hasMore,
				"paging_state":            state,
			})
		}

		if request.PagingState == "" {
			respond(first, true, "state-1")
		} else {
			assert.Equal(t, "state-1", request.PagingState)
			respond(second, false, "")
		}
	})

	api := NewConversationsAPI(newTestClient(t, V1, handler))

	// ACT
	pager := api.GetConversationIdentifiers()
	var all []models.QualifiedID
	for pager.More() {
		page, err := pager.NextPage(context.Background())
		require.NoError(t, err)
		all = append(all, page...)
	}

	// ASSERT
	require.Len(t, all, 3)
	assert.Equal(t, first[0], all[0].ID)
	assert.Equal(t, second[0], all[2].ID)
	assert.Equal(t, "alpha.example.com", all[0].Domain)
}
