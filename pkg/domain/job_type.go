package domain

import "fmt"

// JobType selects which verification workflow the service runs.
type JobType int

// Supported job types.
const (
	JobTypeCompareSelfieToID    JobType = 1
	JobTypeAuthenticateSelfie   JobType = 2
	JobTypeRegisterUser         JobType = 4
	JobTypeVerifyDocument       JobType = 5
	JobTypeDocumentVerification JobType = 6
	JobTypeUpdatePhoto          JobType = 8
)

var jobTypeNames = map[JobType]string{
	JobTypeCompareSelfieToID:    "compare_selfie_to_id",
	JobTypeAuthenticateSelfie:   "authenticate_selfie",
	JobTypeRegisterUser:         "register_user",
	JobTypeVerifyDocument:       "verify_document",
	JobTypeDocumentVerification: "document_verification",
	JobTypeUpdatePhoto:          "update_photo",
}

// IsValid reports whether the job type is one the service understands.
func (t JobType) IsValid() bool {
	_, ok := jobTypeNames[t]
	return ok
}

func (t JobType) String() string {
	if name, ok := jobTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("job_type(%d)", int(t))
}

// IsDocumentOnly reports whether the job skips the image upload path and
// is answered synchronously by the id verification endpoint.
func (t JobType) IsDocumentOnly() bool {
	return t == JobTypeVerifyDocument
}
