// Package client talks to a running churn prediction server.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"churn-predictor/internal/features"
	"churn-predictor/internal/server"

	"github.com/go-resty/resty/v2"
)

type Client struct {
	base string
	rest *resty.Client
}

func New(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second) // default fallback
	}
	r.SetHeader("Accept", "application/json")
	return &Client{base: strings.TrimRight(base, "/"), rest: r}
}

// APIError is a non-2xx answer that is not an input rejection.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error: status %d: %s", e.Status, e.Message)
}

// Predict scores one profile. A rejected profile comes back as a
// *features.ValidationError listing every problem.
func (c *Client) Predict(ctx context.Context, p features.RawCustomerProfile) (*server.PredictResponse, error) {
	var out server.PredictResponse
	if err := c.post(ctx, "/predict", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PredictBatch(ctx context.Context, profiles []features.RawCustomerProfile) (*server.BatchResponse, error) {
	body := struct {
		Profiles []features.RawCustomerProfile `json:"profiles"`
	}{profiles}

	var out server.BatchResponse
	if err := c.post(ctx, "/predict/batch", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Health(ctx context.Context) (*server.HealthResponse, error) {
	var out server.HealthResponse
	if err := c.get(ctx, "/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ModelInfo(ctx context.Context) (*server.ModelInfoResponse, error) {
	var out server.ModelInfoResponse
	if err := c.get(ctx, "/model/info", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	var apiErr server.ErrorResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(result).
		SetError(&apiErr).
		Post(c.base + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return checkResponse(resp, &apiErr)
}

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	var apiErr server.ErrorResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(result).
		SetError(&apiErr).
		Get(c.base + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return checkResponse(resp, &apiErr)
}

func checkResponse(resp *resty.Response, apiErr *server.ErrorResponse) error {
	if !resp.IsError() {
		return nil
	}
	if resp.StatusCode() == http.StatusBadRequest && len(apiErr.Problems) > 0 {
		return &features.ValidationError{Problems: apiErr.Problems}
	}
	msg := apiErr.Error
	if msg == "" {
		msg = strings.TrimSpace(resp.String())
	}
	return &APIError{Status: resp.StatusCode(), Message: msg}
}
