// internal/handler/tenant.go
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/unclebandit/voicecampaign-backend/internal/model"
)

const (
	HeaderTenantID = "X-Tenant-ID"
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

type tenantKey struct{}

// RequireTenant reads the tenant identity set by the upstream auth proxy.
// Requests without a tenant are rejected with 401.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc := model.TenantContext{
			TenantID: strings.TrimSpace(r.Header.Get(HeaderTenantID)),
			UserID:   strings.TrimSpace(r.Header.Get(HeaderUserID)),
			Role:     strings.TrimSpace(r.Header.Get(HeaderUserRole)),
		}
		if tc.TenantID == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"error":   map[string]string{"code": "unauthorized", "message": "missing " + HeaderTenantID + " header"},
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), tc)))
	})
}

func WithTenant(ctx context.Context, tc model.TenantContext) context.Context {
	return context.WithValue(ctx, tenantKey{}, tc)
}

// TenantFrom returns the tenant stored by RequireTenant.
func TenantFrom(ctx context.Context) (model.TenantContext, bool) {
	tc, ok := ctx.Value(tenantKey{}).(model.TenantContext)
	return tc, ok
}
