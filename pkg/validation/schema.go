package validation

import (
	"slices"
	"sort"
)

// Schema maps country code -> id type -> fields required for that document.
type Schema map[string]map[string][]string

// bookkeeping fields live on PartnerParams, never in id info.
var bookkeepingFields = []string{"user_id", "job_id"}

// DefaultSchema returns a compiled-in snapshot of the service's field
// requirements. Each call returns a fresh copy the caller may modify.
func DefaultSchema() Schema {
	base := func(extra ...string) []string {
		return append([]string{"country", "id_type", "id_number", "user_id", "job_id"}, extra...)
	}
	return Schema{
		"GH": {
			"SSNIT":           base(),
			"VOTER_ID":        base(),
			"DRIVERS_LICENSE": base(),
			"PASSPORT":        base(),
		},
		"NG": {
			"NIN":             base(),
			"CAC":             base("company"),
			"TIN":             base(),
			"VOTER_ID":        base(),
			"BVN":             base(),
			"PHONE_NUMBER":    base("first_name", "last_name"),
			"DRIVERS_LICENSE": base("first_name", "last_name", "dob"),
			"PASSPORT":        base("first_name", "last_name", "dob"),
		},
		"KE": {
			"NATIONAL_ID": base(),
			"ALIEN_CARD":  base(),
			"PASSPORT":    base(),
		},
		"ZA": {
			"NATIONAL_ID":          base(),
			"NATIONAL_ID_NO_PHOTO": base(),
		},
	}
}

// Countries returns the schema's country codes in sorted order.
func (s Schema) Countries() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Required returns the fields required for a country and id type, excluding
// the partner bookkeeping fields. ok is false when the pair is unknown.
func (s Schema) Required(country, idType string) (fields []string, ok bool) {
	types, ok := s[country]
	if !ok {
		return nil, false
	}
	all, ok := types[idType]
	if !ok {
		return nil, false
	}
	fields = make([]string, 0, len(all))
	for _, f := range all {
		if !slices.Contains(bookkeepingFields, f) {
			fields = append(fields, f)
		}
	}
	return fields, true
}
