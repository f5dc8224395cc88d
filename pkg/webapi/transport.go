package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	dErrors "smileid/pkg/domain-errors"
	"smileid/pkg/job"
)

// Endpoint labels used for metrics and logs.
const (
	endpointServices       = "services"
	endpointUpload         = "upload"
	endpointArchive        = "archive"
	endpointJobStatus      = "job_status"
	endpointIDVerification = "id_verification"
)

// postJSON sends payload to url and decodes a 200 response into out. It
// returns the raw body so callers can keep the full response.
func (c *Client) postJSON(ctx context.Context, endpoint, url string, payload, out any) ([]byte, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode request")
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("failed to build request for %s", url))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en_US")
	req.Header.Set("Content-type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	status, raw, err := c.do(req, endpoint)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		c.metrics.IncrementRequestFailure(endpoint, string(ReasonStatus))
		return raw, serverError("Failed to POST %s. Server response: %d %s", url, status, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			c.metrics.IncrementRequestFailure(endpoint, string(ReasonDecode))
			return raw, dErrors.Wrap(err, dErrors.CodeServerError, fmt.Sprintf("failed to decode response from %s", url))
		}
	}
	return raw, nil
}

// putArchive uploads a job archive to a pre-authorized URL.
func (c *Client) putArchive(ctx context.Context, url string, pkg *job.Package) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(pkg.Bytes))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build upload request")
	}
	req.Header.Set("Content-type", pkg.ContentType())
	req.ContentLength = int64(len(pkg.Bytes))

	status, raw, err := c.do(req, endpointArchive)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		c.metrics.IncrementRequestFailure(endpointArchive, string(ReasonStatus))
		return serverError("Failed to upload file to %s, status=%d, response=%s", url, status, raw)
	}
	return nil
}

func (c *Client) do(req *http.Request, endpoint string) (int, []byte, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ObserveRequestLatency(endpoint, time.Since(start))
	if err != nil {
		c.metrics.IncrementRequestFailure(endpoint, string(ReasonTransport))
		return 0, nil, dErrors.Wrap(err, dErrors.CodeServerError, fmt.Sprintf("failed to %s %s", req.Method, req.URL.Redacted()))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.metrics.IncrementRequestFailure(endpoint, string(ReasonTransport))
		return 0, nil, dErrors.Wrap(err, dErrors.CodeServerError, fmt.Sprintf("failed to read response from %s", req.URL.Redacted()))
	}
	return resp.StatusCode, raw, nil
}
