package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/voicecampaign-backend/internal/handler"
)

func TestRequireTenant(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc, ok := handler.TenantFrom(r.Context())
		require.True(t, ok)
		seen = tc.TenantID + "/" + tc.UserID + "/" + tc.Role
		w.WriteHeader(http.StatusNoContent)
	})
	h := handler.RequireTenant(next)

	req := httptest.NewRequest(http.MethodGet, "/campaigns", nil)
	req.Header.Set(handler.HeaderTenantID, "tenant-a")
	req.Header.Set(handler.HeaderUserID, "u1")
	req.Header.Set(handler.HeaderUserRole, "admin")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "tenant-a/u1/admin", seen)

	seen = ""
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/campaigns", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, seen)
}

func TestReadyz(t *testing.T) {
	ok := handler.PingFunc(func(context.Context) error { return nil })
	down := handler.PingFunc(func(context.Context) error { return errors.New("connection refused") })

	h := &handler.HealthHandler{Checks: map[string]handler.Pinger{"db": ok, "redis": ok}}
	w := httptest.NewRecorder()
	h.Readyz(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	h.Checks["redis"] = down
	w = httptest.NewRecorder()
	h.Readyz(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "ok", body.Data["db"])
	assert.Equal(t, "connection refused", body.Data["redis"])
}
