package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// apiClient calls the campaign HTTP API on behalf of one tenant.
type apiClient struct {
	baseURL string
	tenant  string
	user    string
	role    string
	http    *http.Client
	logger  *zap.Logger
}

type apiResponse struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Pagination map[string]int  `json:"pagination"`
	Error      *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Field   string          `json:"field"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type apiError struct {
	Status  int
	Code    string
	Message string
	Field   string
}

func (e *apiError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	return fmt.Sprintf("%s (%d %s)", msg, e.Status, e.Code)
}

func newAPIClient(baseURL, tenant, user, role string, timeout time.Duration, logger *zap.Logger) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		tenant:  tenant,
		user:    user,
		role:    role,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, body any) (*apiResponse, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Tenant-ID", c.tenant)
	if c.user != "" {
		req.Header.Set("X-User-ID", c.user)
	}
	if c.role != "" {
		req.Header.Set("X-User-Role", c.role)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("api response", zap.String("method", method), zap.String("path", path), zap.Int("status", resp.StatusCode))

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%s %s: unexpected response (status %d): %w", method, path, resp.StatusCode, err)
	}
	if out.Error != nil {
		return &out, &apiError{Status: resp.StatusCode, Code: out.Error.Code, Message: out.Error.Message, Field: out.Error.Field}
	}
	return &out, nil
}
