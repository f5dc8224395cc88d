package webapi

import (
	"strings"

	"smileid/pkg/domain"
)

// Endpoints holds the path templates of one API version. Templates may use
// the {server_url} and {api_version} placeholders.
type Endpoints struct {
	Version        domain.APIVersion
	Services       string
	Upload         string
	JobStatus      string
	IDVerification string
}

// EndpointsFor returns the templates for an API version. The unversioned
// layout addresses {server_url}/upload; versioned layouts add the version
// segment, e.g. {server_url}/v1/upload.
func EndpointsFor(v domain.APIVersion) Endpoints {
	prefix := "{server_url}"
	if !v.IsNil() {
		prefix += "/{api_version}"
	}
	return Endpoints{
		Version:        v,
		Services:       prefix + "/services",
		Upload:         prefix + "/upload",
		JobStatus:      prefix + "/job_status",
		IDVerification: prefix + "/id_verification",
	}
}

// Resolve expands a template against a base URL.
func (e Endpoints) Resolve(template, serverURL string) string {
	return strings.NewReplacer(
		"{server_url}", strings.TrimRight(serverURL, "/"),
		"{api_version}", e.Version.String(),
	).Replace(template)
}
