package webapi

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"smileid/pkg/domain"
	dErrors "smileid/pkg/domain-errors"
	"smileid/pkg/images"
	"smileid/pkg/job"
	"smileid/pkg/platform/audit"
	"smileid/pkg/validation"
)

// Stage is a step of the submission workflow.
type Stage string

const (
	StageValidating     Stage = "validating"
	StageSigning        Stage = "signing"
	StageUploading      Stage = "uploading"
	StageAwaitingUpload Stage = "awaiting_upload"
	StagePollingStatus  Stage = "polling_status"
	StageTerminal       Stage = "terminal"
)

// SubmitJob runs one job to its terminal state. Input problems fail before
// any request is made. Document-only jobs are answered synchronously; other
// jobs are uploaded and, if Options.ReturnJobStatus is set, polled until
// complete.
func (c *Client) SubmitJob(ctx context.Context, req JobRequest) (*SubmitResult, error) {
	params := req.PartnerParams.WithDefaults()

	ctx, span := c.tracer.Start(ctx, "webapi.SubmitJob", trace.WithAttributes(
		attribute.String("smileid.job_id", params.JobID.String()),
		attribute.String("smileid.user_id", params.UserID.String()),
		attribute.Int("smileid.job_type", int(params.JobType)),
	))
	defer span.End()

	result, stage, err := c.submit(ctx, params, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(stage))
		// Rejections are counted where they are detected.
		if !dErrors.HasCode(err, dErrors.CodeVerificationFailed) {
			c.metrics.IncrementOutcome(params.JobType.String(), outcomeFor(err))
		}
		c.logger.WarnContext(ctx, "job failed",
			"user_id", params.UserID,
			"job_id", params.JobID,
			"job_type", int(params.JobType),
			"stage", stage,
			"error", err,
		)
		c.emit(ctx, audit.Event{
			Action:  audit.ActionJobFailed,
			UserID:  params.UserID,
			JobID:   params.JobID,
			JobType: params.JobType,
			Stage:   string(stage),
			Reason:  string(dErrors.CodeOf(err)),
		})
		return nil, err
	}
	return result, nil
}

func (c *Client) submit(ctx context.Context, params domain.PartnerParams, req JobRequest) (*SubmitResult, Stage, error) {
	// Validating
	if err := params.Validate(); err != nil {
		return nil, StageValidating, err
	}

	if params.JobType.IsDocumentOnly() {
		if req.IDInfo == nil {
			return nil, StageValidating, dErrors.New(dErrors.CodeInvalidInput, "please ensure that you send through id information")
		}
		info, err := c.ValidateIDInfo(ctx, req.IDInfo, req.Options.UseValidationAPI)
		if err != nil {
			return nil, StageValidating, err
		}
		res, err := c.verifyIDInfo(ctx, params, info)
		if err != nil {
			return nil, StageTerminal, err
		}
		return &SubmitResult{
			Success:        true,
			SmileJobID:     res.SmileJobID,
			JobID:          params.JobID,
			UserID:         params.UserID,
			IDVerification: res,
		}, StageTerminal, nil
	}

	callbackURL := req.CallbackURL
	if callbackURL == "" {
		callbackURL = c.callbackURL
	}
	if callbackURL == "" && !req.Options.ReturnJobStatus {
		return nil, StageValidating, dErrors.New(dErrors.CodeInvalidInput,
			"Please choose to either get your response via the callback or job status query")
	}

	var info validation.IDInfo
	if req.IDInfo != nil {
		var err error
		if info, err = c.ValidateIDInfo(ctx, req.IDInfo, req.Options.UseValidationAPI); err != nil {
			return nil, StageValidating, err
		}
	}
	if err := images.Validate(req.Images, params.JobType, info != nil); err != nil {
		return nil, StageValidating, err
	}

	// Signing
	token, err := c.signer.Generate()
	if err != nil {
		return nil, StageSigning, err
	}

	// Uploading
	var slot uploadResponse
	_, err = c.postJSON(ctx, endpointUpload, c.url(c.endpoints.Upload), uploadRequest{
		FileName:        job.FileName,
		Timestamp:       token.Timestamp,
		SecKey:          token.SecKey,
		SmileClientID:   c.signer.PartnerID().String(),
		PartnerParams:   params,
		ModelParameters: map[string]any{},
		CallbackURL:     callbackURL,
	}, &slot)
	if err != nil {
		return nil, StageUploading, err
	}
	if slot.UploadURL == "" {
		return nil, StageUploading, serverError("upload response has no upload_url: user_id=%s, job_id=%s", params.UserID, params.JobID)
	}
	c.emit(ctx, audit.Event{
		Action:     audit.ActionUploadSlotAllocated,
		UserID:     params.UserID,
		JobID:      params.JobID,
		JobType:    params.JobType,
		SmileJobID: slot.SmileJobID,
		Stage:      string(StageUploading),
	})

	// AwaitingUpload
	pkg, err := job.Build(job.Input{
		PartnerID:     c.signer.PartnerID(),
		PartnerParams: params,
		IDInfo:        info,
		Images:        req.Images,
		Token:         token,
		CallbackURL:   callbackURL,
		UploadURL:     slot.UploadURL,
	})
	if err != nil {
		return nil, StageAwaitingUpload, err
	}
	if err := c.putArchive(ctx, slot.UploadURL, pkg); err != nil {
		return nil, StageAwaitingUpload, err
	}
	c.emit(ctx, audit.Event{
		Action:     audit.ActionArchiveUploaded,
		UserID:     params.UserID,
		JobID:      params.JobID,
		JobType:    params.JobType,
		SmileJobID: slot.SmileJobID,
		Stage:      string(StageAwaitingUpload),
	})
	c.logger.InfoContext(ctx, "job submitted",
		"user_id", params.UserID,
		"job_id", params.JobID,
		"smile_job_id", slot.SmileJobID,
		"job_type", int(params.JobType),
	)

	result := &SubmitResult{
		Success:    true,
		SmileJobID: slot.SmileJobID,
		JobID:      params.JobID,
		UserID:     params.UserID,
	}
	if !req.Options.ReturnJobStatus {
		c.metrics.IncrementOutcome(params.JobType.String(), "submitted")
		c.emit(ctx, audit.Event{
			Action:     audit.ActionJobSubmitted,
			UserID:     params.UserID,
			JobID:      params.JobID,
			JobType:    params.JobType,
			SmileJobID: slot.SmileJobID,
			Stage:      string(StageTerminal),
		})
		return result, StageTerminal, nil
	}

	// PollingStatus
	status, err := c.PollJobStatus(ctx, PollRequest{
		UserID:        params.UserID,
		JobID:         params.JobID,
		ReturnHistory: req.Options.ReturnHistory,
		ReturnImages:  req.Options.ReturnImages,
	})
	if err != nil {
		return nil, StagePollingStatus, err
	}
	result.JobStatus = status
	c.metrics.IncrementOutcome(params.JobType.String(), "complete")
	c.emit(ctx, audit.Event{
		Action:     audit.ActionJobCompleted,
		UserID:     params.UserID,
		JobID:      params.JobID,
		JobType:    params.JobType,
		SmileJobID: slot.SmileJobID,
		Stage:      string(StageTerminal),
	})
	return result, StageTerminal, nil
}

func outcomeFor(err error) string {
	switch {
	case isPollInterrupted(err):
		return "cancelled"
	case dErrors.HasCode(err, dErrors.CodeInvalidInput):
		return "invalid"
	default:
		return "failed"
	}
}
