package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/qeem-client/credentials"
	apperrors "github.com/jrsteele09/qeem-client/internal/errors"
	"github.com/jrsteele09/qeem-client/metrics"
)

// response is a fully read API response
type response struct {
	status int
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (r *response) authFailure() bool {
	return r.status == http.StatusUnauthorized || r.status == http.StatusForbidden
}

// Do sends an authenticated request and decodes a 2xx JSON body into out.
// body, when not nil, is sent as JSON. A rejected token is refreshed and the
// request retried once; if that fails the session is cleared and
// ErrSessionExpired is returned.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	payload, err := encode(body)
	if err != nil {
		return err
	}

	cred := c.snapshot()
	if cred != nil && cred.Expired(c.nowTime()) {
		if cred, err = c.refreshFrom(ctx, cred); err != nil {
			return err
		}
	}

	resp, err := c.send(ctx, method, path, payload, cred)
	if err != nil {
		return err
	}
	if !resp.authFailure() {
		return decode(resp, out)
	}
	if cred == nil {
		return fmt.Errorf("%w: %s", apperrors.ErrNotAuthenticated, apiError(resp).Message)
	}

	retryWith, err := c.refreshFrom(ctx, cred)
	if err != nil {
		return err
	}
	resp, err = c.send(ctx, method, path, payload, retryWith)
	if err != nil {
		return err
	}
	if resp.authFailure() {
		c.logger.Warn().Str("method", method).Str("path", path).Int("status", resp.status).
			Msg("Request rejected after refresh")
		return c.expire(ctx, retryWith)
	}
	return decode(resp, out)
}

// call sends a request without session handling. cred may be nil.
func (c *Client) call(ctx context.Context, method, path string, body, out any, cred *credentials.Credential) error {
	payload, err := encode(body)
	if err != nil {
		return err
	}
	resp, err := c.send(ctx, method, path, payload, cred)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func encode(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("[session] encode request body: %w", err)
	}
	return payload, nil
}

// send issues one HTTP round trip and reads the whole body.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, cred *credentials.Credential) (*response, error) {
	op := method + " " + path

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("[session] build request %s: %w", op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if cred != nil && cred.Token != nil && cred.AccessToken() != "" {
		cred.Token.SetAuthHeader(req)
	}

	start := time.Now()
	res, err := c.httpClient.Do(req)
	metrics.RequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(method, "error").Inc()
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Str("request_id", requestID).
			Msg("Request failed")
		return nil, &apperrors.NetworkError{Op: op, Err: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(method, "error").Inc()
		return nil, &apperrors.NetworkError{Op: op, Err: err}
	}

	metrics.RequestsTotal.WithLabelValues(method, strconv.Itoa(res.StatusCode)).Inc()
	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", res.StatusCode).
		Str("request_id", requestID).
		Dur("duration", time.Since(start)).
		Msg("Request")
	return &response{status: res.StatusCode, body: data}, nil
}

// apiError normalises the body of a non-2xx response.
func apiError(resp *response) *apperrors.APIError {
	var body apperrors.APIError
	if err := json.Unmarshal(resp.body, &body); err != nil {
		return apperrors.NormalisedAPIError(resp.status, nil)
	}
	return apperrors.NormalisedAPIError(resp.status, &body)
}

func decode(resp *response, out any) error {
	if !resp.ok() {
		return apperrors.FromResponse(apiError(resp))
	}
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("[session] decode response: %w", err)
	}
	return nil
}
