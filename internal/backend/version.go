package backend

import (
	"fmt"
	"strconv"
	"strings"
)

// APIVersion tags one backend protocol generation. Operations that changed
// between generations are selected per version in the API constructors; an
// operation not overridden for a version behaves exactly as it did on the
// version before it.
type APIVersion int

const (
	V0 APIVersion = iota
	V1
	V2
	V3
	V4
	V5
)

const maxSupportedVersion = V5

func ParseAPIVersion(s string) (APIVersion, error) {
	s = strings.TrimPrefix(strings.TrimSpace(strings.ToLower(s)), "v")
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || APIVersion(n) > maxSupportedVersion {
		return V0, fmt.Errorf("unsupported api version %q", s)
	}
	return APIVersion(n), nil
}

// PathPrefix is the version qualifier prepended to every request path. v0
// predates versioned paths and has none.
func (v APIVersion) PathPrefix() string {
	if v == V0 {
		return ""
	}
	return fmt.Sprintf("/v%d", v)
}

func (v APIVersion) String() string {
	return fmt.Sprintf("v%d", v)
}

// SupportsQualifiedIDs reports whether payloads carry id+domain pairs
// instead of bare UUIDs. Federation-aware identifiers appeared in v1.
func (v APIVersion) SupportsQualifiedIDs() bool {
	return v >= V1
}
