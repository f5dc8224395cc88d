package audit

import (
	"context"
	"time"

	"smileid/pkg/domain"
)

// Action names a job lifecycle event.
type Action string

const (
	ActionJobSubmitted         Action = "job_submitted"
	ActionUploadSlotAllocated  Action = "upload_slot_allocated"
	ActionArchiveUploaded      Action = "archive_uploaded"
	ActionJobStatusPolled      Action = "job_status_polled"
	ActionJobCompleted         Action = "job_completed"
	ActionJobFailed            Action = "job_failed"
	ActionDocumentVerified     Action = "document_verified"
	ActionDocumentRejected     Action = "document_rejected"
	ActionSignatureUnconfirmed Action = "signature_unconfirmed"
)

// Event is emitted by the client at each stage of a job. Keep it
// transport-agnostic so sinks can fan out. It never carries id numbers,
// keys or tokens.
type Event struct {
	Action     Action         `json:"action"`
	Timestamp  time.Time      `json:"timestamp"`
	PartnerID  string         `json:"partner_id"`
	UserID     domain.UserID  `json:"user_id"`
	JobID      domain.JobID   `json:"job_id"`
	JobType    domain.JobType `json:"job_type"`
	SmileJobID string         `json:"smile_job_id,omitempty"`
	Stage      string         `json:"stage,omitempty"`
	Attempt    int            `json:"attempt,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	ResultCode string         `json:"result_code,omitempty"`
}

// Key is the partitioning key: all events of one job land together.
func (e Event) Key() string {
	return string(e.JobID)
}

// Publisher accepts job events.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}
