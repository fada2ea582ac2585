package backend

import (
	"context"
	"net/http"

	"github.com/Jitera-Sales/wire-sync/internal/models"
)

// BackendInfoAPI reads the globally shared backend metadata, including the
// federation flag every repository keys its identity scheme on.
type BackendInfoAPI interface {
	GetBackendInfo(ctx context.Context) (models.BackendInfo, error)
}

type backendInfoAPI struct {
	client *Client
}

func NewBackendInfoAPI(client *Client) BackendInfoAPI {
	return &backendInfoAPI{client: client}
}

type backendInfoPayload struct {
	Domain     string `json:"domain"`
	Federation bool   `json:"federation"`
	Supported  []int  `json:"supported"`
}

// GetBackendInfo hits the unversioned api-version endpoint. Backends old
// enough to lack it (v0-only deployments) answer 404; that maps to a
// federation-less v0 backend rather than an error.
func (a *backendInfoAPI) GetBackendInfo(ctx context.Context) (models.BackendInfo, error) {
	code, body, err := a.client.DoUnversioned(ctx, http.MethodGet, "/api-version")
	if err != nil {
		return models.BackendInfo{}, err
	}

	if code == http.StatusNotFound {
		return models.BackendInfo{SupportedVersions: []int{0}}, nil
	}

	return NewResponseParser[models.BackendInfo]().
		Success(http.StatusOK, decodeJSON(func(w backendInfoPayload) (models.BackendInfo, error) {
			return models.BackendInfo{
				Domain:            w.Domain,
				FederationEnabled: w.Federation,
				SupportedVersions: w.Supported,
			}, nil
		})).
		Parse(code, body)
}
