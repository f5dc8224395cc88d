package webapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"smileid/pkg/domain"
	"smileid/pkg/images"
)

// Options selects how the result of a job is delivered.
type Options struct {
	// ReturnJobStatus polls until the job completes and returns its status.
	ReturnJobStatus bool
	ReturnHistory   bool
	ReturnImages    bool
	// UseValidationAPI validates id info against the live schema instead of
	// the compiled-in default.
	UseValidationAPI bool
}

// JobRequest is one job submission.
type JobRequest struct {
	PartnerParams domain.PartnerParams
	// IDInfo is optional for image jobs; nil means no id info was entered.
	IDInfo  map[string]any
	Images  []images.Image
	Options Options
	// CallbackURL overrides the client's callback URL for this job.
	CallbackURL string
}

// SubmitResult is the terminal outcome of SubmitJob.
type SubmitResult struct {
	Success    bool          `json:"success"`
	SmileJobID string        `json:"smile_job_id,omitempty"`
	JobID      domain.JobID  `json:"job_id"`
	UserID     domain.UserID `json:"user_id"`
	// JobStatus is set when the caller asked for the job status.
	JobStatus *JobStatus `json:"job_status,omitempty"`
	// IDVerification is set for document-only jobs.
	IDVerification *IDVerificationResult `json:"id_verification,omitempty"`
}

// FlexString keeps the textual form of a value the service may send as a
// JSON number or string, such as timestamps and result codes. Signatures are
// confirmed against that text.
type FlexString string

// UnmarshalJSON accepts numbers and strings.
func (t *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("timestamp must be a number or string: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*t = FlexString(strconv.FormatInt(i, 10))
		return nil
	}
	// Integral floats ("1700000000.0") are reduced to their integer text.
	if f, err := n.Float64(); err == nil && f == float64(int64(f)) {
		*t = FlexString(strconv.FormatInt(int64(f), 10))
		return nil
	}
	*t = FlexString(n.String())
	return nil
}

// JobStatus is a job status response.
type JobStatus struct {
	JobComplete bool            `json:"job_complete"`
	JobSuccess  bool            `json:"job_success"`
	Code        json.RawMessage `json:"code,omitempty"`
	Timestamp   FlexString      `json:"timestamp"`
	Signature   string          `json:"signature"`
	Result      json.RawMessage `json:"result,omitempty"`
	History     json.RawMessage `json:"history,omitempty"`
	ImageLinks  json.RawMessage `json:"image_links,omitempty"`
	// Raw is the full decoded response body.
	Raw map[string]any `json:"-"`
}

// IDVerificationResult is a response from the id verification endpoint.
type IDVerificationResult struct {
	ResultCode FlexString `json:"ResultCode"`
	ResultText string     `json:"ResultText"`
	SmileJobID string     `json:"SmileJobID"`
	// Raw is the full decoded response body.
	Raw map[string]any `json:"-"`
}

type uploadRequest struct {
	FileName        string               `json:"file_name"`
	Timestamp       int64                `json:"timestamp"`
	SecKey          string               `json:"sec_key"`
	SmileClientID   string               `json:"smile_client_id"`
	PartnerParams   domain.PartnerParams `json:"partner_params"`
	ModelParameters map[string]any       `json:"model_parameters"`
	CallbackURL     string               `json:"callback_url"`
}

type uploadResponse struct {
	UploadURL  string `json:"upload_url"`
	SmileJobID string `json:"smile_job_id"`
}

type jobStatusRequest struct {
	SecKey     string        `json:"sec_key"`
	Timestamp  int64         `json:"timestamp"`
	PartnerID  string        `json:"partner_id"`
	JobID      domain.JobID  `json:"job_id"`
	UserID     domain.UserID `json:"user_id"`
	ImageLinks bool          `json:"image_links"`
	History    bool          `json:"history"`
}

type servicesResponse struct {
	IDTypes map[string]map[string][]string `json:"id_types"`
}
