package dispatch

import (
	"context"
	"fmt"
	"strings"

	appErrors "github.com/unclebandit/voicecampaign-backend/internal/errors"
)

// Credential is the bearer key used for one tenant's dispatch calls.
type Credential struct {
	APIKey string
	Source string // "tenant" or "global"
}

// TenantKeyStore returns a tenant override, or "" when none is set.
type TenantKeyStore interface {
	GetDispatchKey(ctx context.Context, tenantID string) (string, error)
}

// CredentialResolver checks the tenant store first and then the global key.
type CredentialResolver struct {
	Store     TenantKeyStore
	GlobalKey string
}

func (r *CredentialResolver) ResolveCredential(ctx context.Context, tenantID string) (Credential, error) {
	if r.Store != nil {
		key, err := r.Store.GetDispatchKey(ctx, tenantID)
		if err != nil {
			return Credential{}, fmt.Errorf("resolve credential: %w", err)
		}
		if key != "" {
			return Credential{APIKey: key, Source: "tenant"}, nil
		}
	}
	if key := strings.TrimSpace(r.GlobalKey); key != "" {
		return Credential{APIKey: key, Source: "global"}, nil
	}
	return Credential{}, &appErrors.MissingCredentialError{TenantID: tenantID}
}
