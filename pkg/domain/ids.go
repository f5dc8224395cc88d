package domain

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "smileid/pkg/domain-errors"
)

// maxIDLength bounds caller supplied correlation identifiers.
const maxIDLength = 256

// PartnerID is the numeric account identifier assigned to a partner.
// Invariant: non-empty and made of ASCII digits only.
type PartnerID string

// ParsePartnerID validates a partner id at the SDK boundary.
func ParsePartnerID(s string) (PartnerID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "partner_id cannot be empty")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", dErrors.Newf(dErrors.CodeInvalidInput, "partner_id %q must be numeric", s)
		}
	}
	return PartnerID(s), nil
}

// String returns the partner id exactly as configured.
func (p PartnerID) String() string {
	return string(p)
}

// Canonical returns the numeric form used when hashing ("001" -> "1").
func (p PartnerID) Canonical() string {
	n, err := strconv.ParseUint(string(p), 10, 64)
	if err != nil {
		// Longer than uint64: strip leading zeros textually.
		trimmed := strings.TrimLeft(string(p), "0")
		if trimmed == "" {
			return "0"
		}
		return trimmed
	}
	return strconv.FormatUint(n, 10)
}

// JobID is the partner's correlation id for a single job.
type JobID string

// UserID is the partner's identifier for the person being verified.
type UserID string

// NewJobID generates a fresh job id.
func NewJobID() JobID {
	return JobID(uuid.NewString())
}

// NewUserID generates a fresh user id.
func NewUserID() UserID {
	return UserID(uuid.NewString())
}

// ParseJobID validates a caller supplied job id.
func ParseJobID(s string) (JobID, error) {
	if err := validateCorrelationID("job_id", s); err != nil {
		return "", err
	}
	return JobID(s), nil
}

// ParseUserID validates a caller supplied user id.
func ParseUserID(s string) (UserID, error) {
	if err := validateCorrelationID("user_id", s); err != nil {
		return "", err
	}
	return UserID(s), nil
}

func (j JobID) String() string  { return string(j) }
func (u UserID) String() string { return string(u) }

// IsNil returns true if the job id is empty.
func (j JobID) IsNil() bool { return j == "" }

// IsNil returns true if the user id is empty.
func (u UserID) IsNil() bool { return u == "" }

func validateCorrelationID(field, s string) error {
	if strings.TrimSpace(s) == "" {
		return dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be empty", field)
	}
	if len(s) > maxIDLength {
		return dErrors.Newf(dErrors.CodeInvalidInput, "%s exceeds %d characters", field, maxIDLength)
	}
	if !utf8.ValidString(s) {
		return dErrors.Newf(dErrors.CodeInvalidInput, "%s must be valid UTF-8", field)
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return dErrors.Newf(dErrors.CodeInvalidInput, "%s contains control characters", field)
		}
	}
	return nil
}
