// internal/controller/settings_controller.go
package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// CredentialWriter stores a tenant's dispatch key override.
type CredentialWriter interface {
	SetDispatchKey(ctx context.Context, tenantID, apiKey string) error
}

type SettingsController struct {
	Credentials CredentialWriter
	Logger      *zap.Logger
}

// PutDispatchCredential handles PUT /settings/dispatch-credential.
// The key is never echoed back.
func (c *SettingsController) PutDispatchCredential(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}

	var body struct {
		APIKey string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid body")
		return
	}
	key := strings.TrimSpace(body.APIKey)
	if key == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Error: &apiError{Code: "validation_error", Field: "api_key", Message: "api_key is required"}})
		return
	}

	if err := c.Credentials.SetDispatchKey(r.Context(), tc.TenantID, key); err != nil {
		writeError(w, c.Logger, err)
		return
	}
	if c.Logger != nil {
		c.Logger.Info("dispatch credential updated", zap.String("tenant", tc.TenantID), zap.String("user", tc.UserID))
	}
	writeData(w, http.StatusOK, map[string]any{"tenant_id": tc.TenantID, "updated": true})
}
