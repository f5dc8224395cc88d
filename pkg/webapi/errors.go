package webapi

import (
	"fmt"

	dErrors "smileid/pkg/domain-errors"
)

// SuccessResultCode is the ResultCode of a passed id verification.
const SuccessResultCode = "1012"

// FailureReason labels request failures for metrics.
type FailureReason string

const (
	ReasonTransport FailureReason = "transport"
	ReasonStatus    FailureReason = "status"
	ReasonDecode    FailureReason = "decode"
	ReasonSignature FailureReason = "signature"
	ReasonExhausted FailureReason = "exhausted"
)

// VerificationFailedError reports an id verification the service processed
// but did not pass. The request itself succeeded.
type VerificationFailedError struct {
	ResultCode string
	ResultText string
	// Response is the full decoded response body.
	Response map[string]any
}

func (e *VerificationFailedError) Error() string {
	return fmt.Sprintf("verification failed: ResultCode=%s ResultText=%s", e.ResultCode, e.ResultText)
}

// Unwrap exposes the CodeVerificationFailed classification.
func (e *VerificationFailedError) Unwrap() error {
	return dErrors.New(dErrors.CodeVerificationFailed, e.ResultText)
}

func serverError(format string, args ...any) error {
	return dErrors.Newf(dErrors.CodeServerError, format, args...)
}
