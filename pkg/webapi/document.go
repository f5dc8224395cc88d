package webapi

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"smileid/pkg/domain"
	dErrors "smileid/pkg/domain-errors"
	"smileid/pkg/platform/audit"
	"smileid/pkg/validation"
)

// DocumentRequest is a synchronous document verification.
type DocumentRequest struct {
	Country     string
	IDType      string
	IDNumber    string
	FirstName   string
	MiddleName  string
	LastName    string
	DOB         string // YYYY-MM-DD
	PhoneNumber string

	// UseLiveSchema validates against the service's current schema.
	UseLiveSchema bool
}

func (r DocumentRequest) fields() map[string]any {
	data := map[string]any{
		"country":   r.Country,
		"id_type":   r.IDType,
		"id_number": r.IDNumber,
	}
	for k, v := range map[string]string{
		"first_name":   r.FirstName,
		"middle_name":  r.MiddleName,
		"last_name":    r.LastName,
		"dob":          r.DOB,
		"phone_number": r.PhoneNumber,
	} {
		if v != "" {
			data[k] = v
		}
	}
	return data
}

// VerifyDocument checks an identity document and returns the response
// unchanged when it passed. A processed but failed check is reported as a
// *VerificationFailedError carrying the full response.
func (c *Client) VerifyDocument(ctx context.Context, req DocumentRequest) (*IDVerificationResult, error) {
	info, err := c.ValidateIDInfo(ctx, req.fields(), req.UseLiveSchema)
	if err != nil {
		return nil, err
	}
	params := domain.PartnerParams{JobType: domain.JobTypeVerifyDocument}.WithDefaults()
	return c.verifyIDInfo(ctx, params, info)
}

func (c *Client) verifyIDInfo(ctx context.Context, params domain.PartnerParams, info validation.IDInfo) (*IDVerificationResult, error) {
	ctx, span := c.tracer.Start(ctx, "webapi.VerifyDocument", trace.WithAttributes(
		attribute.String("smileid.job_id", params.JobID.String()),
		attribute.String("smileid.country", info.Country()),
		attribute.String("smileid.id_type", info.IDType()),
	))
	defer span.End()

	if params.JobType != domain.JobTypeVerifyDocument {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "please ensure that you are setting your job_type to 5 to query the id verification endpoint")
	}

	token, err := c.signer.Generate()
	if err != nil {
		return nil, err
	}

	payload := make(map[string]any, len(info)+4)
	for k, v := range info {
		payload[k] = v
	}
	// Signed fields are set last so id info can never replace them.
	payload["sec_key"] = token.SecKey
	payload["timestamp"] = token.Timestamp
	payload["partner_id"] = c.signer.PartnerID().String()
	payload["partner_params"] = params

	var res IDVerificationResult
	raw, err := c.postJSON(ctx, endpointIDVerification, c.url(c.endpoints.IDVerification), payload, &res)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := json.Unmarshal(raw, &res.Raw); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeServerError, "failed to decode id verification response")
	}

	event := audit.Event{
		UserID:     params.UserID,
		JobID:      params.JobID,
		JobType:    params.JobType,
		SmileJobID: res.SmileJobID,
		ResultCode: string(res.ResultCode),
		Stage:      string(StageTerminal),
	}
	if res.ResultCode != SuccessResultCode {
		event.Action = audit.ActionDocumentRejected
		c.emit(ctx, event)
		c.metrics.IncrementOutcome(params.JobType.String(), "rejected")
		err := &VerificationFailedError{ResultCode: string(res.ResultCode), ResultText: res.ResultText, Response: res.Raw}
		span.RecordError(err)
		return nil, err
	}

	event.Action = audit.ActionDocumentVerified
	c.emit(ctx, event)
	c.metrics.IncrementOutcome(params.JobType.String(), "verified")
	c.logger.InfoContext(ctx, "document verified",
		"job_id", params.JobID,
		"smile_job_id", res.SmileJobID,
		"id_number", validation.Redacted(info)["id_number"],
	)
	return &res, nil
}
