package domain

import (
	"fmt"
	"slices"
	"strings"
)

// APIVersion selects which path layout of the remote service to target.
// The zero value addresses the unversioned routes ({server_url}/upload).
type APIVersion string

// Supported API versions.
const (
	APIVersionUnversioned APIVersion = ""
	APIVersionV1          APIVersion = "v1"
	APIVersionV2          APIVersion = "v2"
)

// ParseAPIVersion validates and returns an APIVersion. Both "2" and "v2" are accepted.
func ParseAPIVersion(s string) (APIVersion, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s != "" && !strings.HasPrefix(s, "v") {
		s = "v" + s
	}
	v := APIVersion(s)
	if !slices.Contains(SupportedVersions(), v) {
		return "", fmt.Errorf("unknown API version: %s", s)
	}
	return v, nil
}

// String returns the string representation of the API version.
func (v APIVersion) String() string {
	return string(v)
}

// IsNil returns true if the API version is empty.
func (v APIVersion) IsNil() bool {
	return v == ""
}

// SupportedVersions returns all currently supported API versions.
func SupportedVersions() []APIVersion {
	return []APIVersion{APIVersionUnversioned, APIVersionV1, APIVersionV2}
}
