package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"smileid/pkg/domain"
	dErrors "smileid/pkg/domain-errors"
	"smileid/pkg/platform/audit"
)

// PollRequest identifies the job to poll and its budget.
type PollRequest struct {
	UserID        domain.UserID
	JobID         domain.JobID
	ReturnHistory bool
	ReturnImages  bool
	// MaxAttempts and Delay default to the client's poll policy when zero.
	MaxAttempts int
	Delay       time.Duration
}

// GetJobStatus queries the status of one job. The response must carry a
// signature over its timestamp that the partner's signer confirms.
func (c *Client) GetJobStatus(ctx context.Context, userID domain.UserID, jobID domain.JobID, returnHistory, returnImages bool) (*JobStatus, error) {
	if _, err := domain.ParseUserID(userID.String()); err != nil {
		return nil, err
	}
	if _, err := domain.ParseJobID(jobID.String()); err != nil {
		return nil, err
	}

	token, err := c.signer.Generate()
	if err != nil {
		return nil, err
	}
	req := jobStatusRequest{
		SecKey:     token.SecKey,
		Timestamp:  token.Timestamp,
		PartnerID:  c.signer.PartnerID().String(),
		JobID:      jobID,
		UserID:     userID,
		ImageLinks: returnImages,
		History:    returnHistory,
	}

	var status JobStatus
	raw, err := c.postJSON(ctx, endpointJobStatus, c.url(c.endpoints.JobStatus), req, &status)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &status.Raw); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeServerError, "failed to decode job status")
	}

	if !c.signer.Confirm(string(status.Timestamp), status.Signature) {
		c.metrics.IncrementRequestFailure(endpointJobStatus, string(ReasonSignature))
		c.emit(ctx, audit.Event{Action: audit.ActionSignatureUnconfirmed, UserID: userID, JobID: jobID})
		return nil, serverError("Unable to confirm validity of the job_status response: user_id=%s, job_id=%s", userID, jobID)
	}
	return &status, nil
}

// PollJobStatus queries the job until it reports job_complete or the attempt
// budget runs out. The first query is immediate; later ones wait the poll
// delay. An unconfirmed response ends polling at once even if the job is
// complete.
func (c *Client) PollJobStatus(ctx context.Context, req PollRequest) (*JobStatus, error) {
	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = c.maxAttempts
	}
	delay := req.Delay
	if delay <= 0 {
		delay = c.pollDelay
	}

	ctx, span := c.tracer.Start(ctx, "webapi.PollJobStatus", trace.WithAttributes(
		attribute.String("smileid.job_id", req.JobID.String()),
		attribute.Int("smileid.max_attempts", maxAttempts),
	))
	defer span.End()

	schedule := backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(maxAttempts-1))
	schedule.Reset()

	var wait time.Duration
	for attempt := 1; ; attempt++ {
		if wait > 0 {
			if err := c.sleeper.Sleep(ctx, wait); err != nil {
				span.RecordError(err)
				return nil, dErrors.Wrap(err, dErrors.CodeServerError, "job status polling interrupted")
			}
		}

		status, err := c.GetJobStatus(ctx, req.UserID, req.JobID, req.ReturnHistory, req.ReturnImages)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "job status query failed")
			return nil, err
		}

		c.logger.DebugContext(ctx, "job status polled",
			"user_id", req.UserID,
			"job_id", req.JobID,
			"attempt", attempt,
			"job_complete", status.JobComplete,
		)
		c.emit(ctx, audit.Event{
			Action:  audit.ActionJobStatusPolled,
			UserID:  req.UserID,
			JobID:   req.JobID,
			Stage:   string(StagePollingStatus),
			Attempt: attempt,
		})

		if status.JobComplete {
			c.metrics.ObservePollAttempts(attempt)
			span.SetAttributes(attribute.Int("smileid.attempts", attempt))
			return status, nil
		}

		wait = schedule.NextBackOff()
		if wait == backoff.Stop {
			c.metrics.ObservePollAttempts(attempt)
			c.metrics.IncrementRequestFailure(endpointJobStatus, string(ReasonExhausted))
			err := serverError("Failed to get job status in %d attempts: user_id=%s, job_id=%s", attempt, req.UserID, req.JobID)
			span.RecordError(err)
			span.SetStatus(codes.Error, "poll budget exhausted")
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeServerError, "job status polling interrupted")
		}
	}
}

// isPollInterrupted reports whether err came from a cancelled poll.
func isPollInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
