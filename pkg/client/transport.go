package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Combine-Capital/kvcache/pkg/errors"
	"github.com/Combine-Capital/kvcache/pkg/retry"
	"github.com/Combine-Capital/kvcache/pkg/tracing"
	"resty.dev/v3"
)

// requestBody is either raw bytes or a value encoded as JSON.
type requestBody struct {
	raw  []byte
	json interface{}
}

// result is a completed round trip.
type result struct {
	status int
	body   []byte
}

// do executes a request, retrying transport failures and gateway-style
// statuses up to RetryCount times. Other error statuses are left to
// result.err so callers can treat 404 as absence.
func (c *Client) do(ctx context.Context, method, path string, body *requestBody) (*result, error) {
	if c.config.RetryCount == 0 {
		return c.once(ctx, method, path, body)
	}
	return retry.DoWithData(ctx, c.retry, func() (*result, error) {
		res, err := c.once(ctx, method, path, body)
		if err != nil {
			return nil, err
		}
		if retryableStatus(res.status) {
			return nil, res.err()
		}
		return res, nil
	})
}

// once executes a single round trip.
func (c *Client) once(ctx context.Context, method, path string, body *requestBody) (*result, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	req := c.resty.R().SetContext(ctx)

	carrier := http.Header{}
	tracing.InjectHTTP(ctx, carrier)
	for k := range carrier {
		req.SetHeader(k, carrier.Get(k))
	}

	if body != nil {
		if body.json != nil {
			req.SetHeader("Content-Type", "application/json")
			req.SetBody(body.json)
		} else {
			req.SetHeader("Content-Type", "application/octet-stream")
			req.SetBody(body.raw)
		}
	}

	var resp *resty.Response
	var err error
	switch method {
	case http.MethodGet:
		resp, err = req.Get(path)
	case http.MethodPut:
		resp, err = req.Put(path)
	case http.MethodPost:
		resp, err = req.Post(path)
	case http.MethodDelete:
		resp, err = req.Delete(path)
	default:
		return nil, errors.NewPermanent(fmt.Sprintf("unsupported HTTP method: %s", method), nil)
	}
	if err != nil {
		return nil, mapRequestError(err)
	}

	var data []byte
	if resp.Body != nil {
		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.NewTemporary("failed to read response body", err)
		}
	}

	return &result{status: resp.StatusCode(), body: data}, nil
}

// err rebuilds the failure the server answered with, or returns nil for 2xx.
// Bodies carrying a kind are cache signals and come back as *errors.Error.
func (r *result) err() error {
	if r.status >= 200 && r.status < 300 {
		return nil
	}

	var body errors.ErrorResponse
	_ = json.Unmarshal(r.body, &body)

	msg := body.Message
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d: %s", r.status, http.StatusText(r.status))
	}

	if body.Kind != "" {
		return errors.New(errors.Kind(body.Kind), msg, errors.Code(r.status), body.Source)
	}

	switch r.status {
	case http.StatusBadRequest:
		return errors.NewInvalidInput("request", msg)
	case http.StatusNotFound:
		return errors.NewNotFound("resource", msg)
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return errors.NewTemporary(msg, nil)
	default:
		return errors.NewPermanent(msg, nil)
	}
}

func (r *result) decode(dst interface{}) error {
	if err := json.Unmarshal(r.body, dst); err != nil {
		return errors.NewPermanent("malformed response body", err)
	}
	return nil
}

// mapRequestError classifies a transport failure.
func mapRequestError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, "request canceled or timed out")
	}
	return errors.NewTemporary("request failed", err)
}
