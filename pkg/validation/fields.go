// Package validation checks id info against a country and document schema
// before anything is signed or sent.
package validation

import (
	"slices"
	"sort"
	"strings"

	dErrors "smileid/pkg/domain-errors"
)

// IDInfo is validated id information: field name to non-typed string value.
type IDInfo map[string]string

// Country returns the country code.
func (i IDInfo) Country() string { return i["country"] }

// IDType returns the document type.
func (i IDInfo) IDType() string { return i["id_type"] }

var (
	baseFields     = []string{"country", "id_type", "id_number"}
	optionalFields = []string{"first_name", "middle_name", "last_name", "dob", "phone_number"}
)

// Validate checks data against schema and returns the accepted fields.
// A nil schema falls back to DefaultSchema. Missing required fields are
// reported together as one sorted, comma-joined list.
func Validate(data map[string]any, schema Schema) (IDInfo, error) {
	if schema == nil {
		schema = DefaultSchema()
	}

	info := IDInfo{}
	for _, field := range baseFields {
		raw, ok := data[field]
		if !ok || raw == nil {
			return nil, dErrors.Newf(dErrors.CodeInvalidInput, "key %s cannot be empty", field)
		}
		s, ok := raw.(string)
		if !ok {
			return nil, dErrors.Newf(dErrors.CodeInvalidInput, "key %s must be a string", field)
		}
		if strings.TrimSpace(s) == "" {
			return nil, dErrors.Newf(dErrors.CodeInvalidInput, "key %s cannot be empty", field)
		}
		info[field] = s
	}

	for _, field := range optionalFields {
		raw, ok := data[field]
		if !ok || raw == nil {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			return nil, dErrors.Newf(dErrors.CodeInvalidInput, "key %s must be a string", field)
		}
		info[field] = s
	}

	// Schema entries may name fields beyond the well-known set (e.g. "company").
	for field, raw := range data {
		if _, seen := info[field]; seen || slices.Contains(bookkeepingFields, field) {
			continue
		}
		if s, ok := raw.(string); ok {
			info[field] = s
		}
	}

	country, idType := info.Country(), info.IDType()
	types, ok := schema[country]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid country %s", country)
	}
	if _, ok := types[idType]; !ok {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid id_type %s for country %s", idType, country)
	}

	required, _ := schema.Required(country, idType)
	var missing []string
	for _, field := range required {
		if strings.TrimSpace(info[field]) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, dErrors.Newf(dErrors.CodeInvalidInput,
			"the following fields are required for %s %s: %s", country, idType, strings.Join(missing, ","))
	}

	return info, nil
}

// Redacted returns a copy of info safe for logs: id_number keeps its last four characters.
func Redacted(info IDInfo) map[string]string {
	out := make(map[string]string, len(info))
	for k, v := range info {
		if k == "id_number" {
			v = mask(v)
		}
		out[k] = v
	}
	return out
}

func mask(v string) string {
	if len(v) <= 4 {
		return strings.Repeat("*", len(v))
	}
	return strings.Repeat("*", len(v)-4) + v[len(v)-4:]
}
