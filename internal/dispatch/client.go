// Package dispatch talks to the external call-dispatch service.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/voicecampaign-backend/internal/errors"
)

const maxResponseBytes = 32 << 20

type credentialSource interface {
	ResolveCredential(ctx context.Context, tenantID string) (Credential, error)
}

// Client issues submit, status and cancel calls. It never retries.
type Client struct {
	baseURL     string
	http        *http.Client
	credentials credentialSource
	logger      *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, credentials credentialSource, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        &http.Client{Timeout: timeout},
		credentials: credentials,
		logger:      logger,
	}
}

func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	var out SubmitResponse
	if err := c.do(ctx, "submit", req.Tenant, http.MethodPost, "/campaigns/submit", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Status(ctx context.Context, tenantID, campaignID string) (*StatusResponse, error) {
	q := url.Values{"tenant": {tenantID}, "campaignId": {campaignID}}
	var out StatusResponse
	if err := c.do(ctx, "status", tenantID, http.MethodGet, "/campaigns/status", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Cancel(ctx context.Context, tenantID, campaignID string) (*CancelResponse, error) {
	q := url.Values{"campaignId": {campaignID}}
	var out CancelResponse
	if err := c.do(ctx, "cancel", tenantID, http.MethodPost, "/campaigns/cancel", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, op, tenantID, method, path string, query url.Values, body, out any) error {
	cred, err := c.credentials.ResolveCredential(ctx, tenantID)
	if err != nil {
		return err
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("dispatch request failed", zap.String("op", op), zap.String("tenant", tenantID), zap.Error(err))
		return &appErrors.RemoteServiceError{Operation: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &appErrors.RemoteServiceError{Operation: op, StatusCode: resp.StatusCode, Message: "read response: " + err.Error()}
	}

	c.logger.Debug("dispatch response",
		zap.String("op", op),
		zap.String("tenant", tenantID),
		zap.String("credential_source", cred.Source),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return appErrors.NewRemoteServiceError(op, resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		e := appErrors.NewRemoteServiceError(op, resp.StatusCode, raw)
		e.StatusCode = http.StatusBadGateway
		e.Message = "malformed response from dispatch service"
		return e
	}
	return nil
}
