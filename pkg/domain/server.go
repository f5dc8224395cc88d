package domain

import (
	"net/url"
	"strings"

	dErrors "smileid/pkg/domain-errors"
)

// Servers holds the well-known base URLs of the verification service.
var Servers = struct {
	Test string
	Live string
}{
	Test: "https://3eydmgh10d.execute-api.us-west-2.amazonaws.com/test",
	Live: "https://la7am6gdm8.execute-api.us-west-2.amazonaws.com/prod",
}

// ResolveServerURL maps a server selector to a base URL.
// "0" and "test" select the sandbox, "1" and "live" select production,
// anything else must be an absolute http(s) URL.
func ResolveServerURL(selector string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(selector)) {
	case "":
		return "", dErrors.New(dErrors.CodeInvalidInput, "server_url cannot be empty")
	case "0", "test", "sandbox":
		return Servers.Test, nil
	case "1", "live", "prod", "production":
		return Servers.Live, nil
	}
	u, err := url.Parse(strings.TrimSpace(selector))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "server_url %q is not a known server or absolute URL", selector)
	}
	return strings.TrimRight(u.String(), "/"), nil
}
