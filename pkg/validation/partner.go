package validation

import (
	"encoding/json"
	"fmt"
	"strconv"

	"smileid/pkg/domain"
	dErrors "smileid/pkg/domain-errors"
)

// ValidatePartnerParams converts loosely typed partner params (as decoded from
// JSON or a CLI flag) into domain.PartnerParams and checks its invariants.
// job_type may be a number or a numeric string.
func ValidatePartnerParams(data map[string]any) (domain.PartnerParams, error) {
	if data == nil {
		return domain.PartnerParams{}, dErrors.New(dErrors.CodeInvalidInput, "please ensure that you send through partner params")
	}

	userID, err := stringField(data, "user_id")
	if err != nil {
		return domain.PartnerParams{}, err
	}
	jobID, err := stringField(data, "job_id")
	if err != nil {
		return domain.PartnerParams{}, err
	}
	jobType, err := jobTypeField(data["job_type"])
	if err != nil {
		return domain.PartnerParams{}, err
	}

	params := domain.PartnerParams{
		UserID:  domain.UserID(userID),
		JobID:   domain.JobID(jobID),
		JobType: jobType,
	}
	if err := params.Validate(); err != nil {
		return domain.PartnerParams{}, err
	}
	return params, nil
}

func stringField(data map[string]any, field string) (string, error) {
	raw, ok := data[field]
	if !ok || raw == nil {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "partner parameter arguments may not be empty: %s", field)
	}
	s, ok := raw.(string)
	if !ok {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "%s needs to be a string", field)
	}
	if s == "" {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "partner parameter arguments may not be empty: %s", field)
	}
	return s, nil
}

func jobTypeField(raw any) (domain.JobType, error) {
	switch v := raw.(type) {
	case nil:
		return 0, dErrors.New(dErrors.CodeInvalidInput, "partner parameter arguments may not be empty: job_type")
	case int:
		return domain.JobType(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, dErrors.Newf(dErrors.CodeInvalidInput, "job_type %v needs to be an integer", v)
		}
		return domain.JobType(int(v)), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeInvalidInput, "job_type needs to be an integer")
		}
		return domain.JobType(n), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeInvalidInput, "job_type needs to be an integer")
		}
		return domain.JobType(n), nil
	default:
		return 0, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("job_type has unsupported type %T", raw))
	}
}
