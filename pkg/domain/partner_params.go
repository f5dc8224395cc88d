package domain

import (
	dErrors "smileid/pkg/domain-errors"
)

// PartnerParams is the correlation triple sent with every job.
// Once a job is submitted its JobID and UserID must not change: they are the
// only key linking the submission to later status queries.
type PartnerParams struct {
	UserID  UserID  `json:"user_id"`
	JobID   JobID   `json:"job_id"`
	JobType JobType `json:"job_type"`
}

// WithDefaults returns a copy with missing ids filled by fresh identifiers.
func (p PartnerParams) WithDefaults() PartnerParams {
	if p.JobID.IsNil() {
		p.JobID = NewJobID()
	}
	if p.UserID.IsNil() {
		p.UserID = NewUserID()
	}
	return p
}

// Validate enforces the partner params invariants.
func (p PartnerParams) Validate() error {
	if _, err := ParseUserID(string(p.UserID)); err != nil {
		return err
	}
	if _, err := ParseJobID(string(p.JobID)); err != nil {
		return err
	}
	if !p.JobType.IsValid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "job_type %d is not supported", int(p.JobType))
	}
	return nil
}
