package models

// BackendInfo is the globally shared backend metadata advertised by the
// unversioned api-version endpoint.
type BackendInfo struct {
	Domain            string `json:"domain"`
	FederationEnabled bool   `json:"federation"`
	SupportedVersions []int  `json:"supported"`
}
