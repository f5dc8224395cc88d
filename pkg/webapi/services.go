package webapi

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	dErrors "smileid/pkg/domain-errors"
	"smileid/pkg/platform/sentinel"
	"smileid/pkg/validation"
)

// Services fetches the live validation schema. With a schema cache
// configured, a fresh cached snapshot is returned instead; concurrent
// fetches are collapsed into one request.
func (c *Client) Services(ctx context.Context) (validation.Schema, error) {
	key := c.schemaKey()

	if c.schemaCache != nil {
		schema, err := c.schemaCache.Get(ctx, key)
		switch {
		case err == nil:
			c.metrics.IncrementSchemaLookup("cache")
			return schema, nil
		case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, sentinel.ErrExpired):
		default:
			c.logger.WarnContext(ctx, "schema cache lookup failed", "error", err)
		}
	}

	// The shared fetch outlives any one caller; each caller waits on its own ctx.
	fetch := c.schemaGroup.DoChan(key, func() (any, error) {
		return c.fetchServices(context.WithoutCancel(ctx))
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-fetch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	schema := res.Val.(validation.Schema)
	c.metrics.IncrementSchemaLookup("remote")

	if c.schemaCache != nil {
		if err := c.schemaCache.Set(ctx, key, schema); err != nil {
			c.logger.WarnContext(ctx, "schema cache store failed", "error", err)
		}
	}
	return schema, nil
}

func (c *Client) fetchServices(ctx context.Context) (validation.Schema, error) {
	ctx, span := c.tracer.Start(ctx, "webapi.Services")
	defer span.End()

	var resp servicesResponse
	if _, err := c.postJSON(ctx, endpointServices, c.url(c.endpoints.Services), nil, &resp); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(resp.IDTypes) == 0 {
		c.metrics.IncrementRequestFailure(endpointServices, string(ReasonDecode))
		return nil, serverError("services response from %s has no id_types", c.url(c.endpoints.Services))
	}
	return validation.Schema(resp.IDTypes), nil
}

// ValidateIDInfo validates id info against the live schema when
// useLiveSchema is set, otherwise against the compiled-in default.
func (c *Client) ValidateIDInfo(ctx context.Context, data map[string]any, useLiveSchema bool) (validation.IDInfo, error) {
	var schema validation.Schema
	if useLiveSchema {
		live, err := c.Services(ctx)
		if err != nil {
			return nil, err
		}
		schema = live
	} else {
		c.metrics.IncrementSchemaLookup("default")
		schema = validation.DefaultSchema()
	}
	info, err := validation.Validate(data, schema)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid id info")
	}
	return info, nil
}

func (c *Client) schemaKey() string {
	return fmt.Sprintf("%s|%s", c.serverURL, c.endpoints.Version)
}
