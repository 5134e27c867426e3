package models

// TenantContext identifies the tenant (and acting user) for a core operation.
// It is passed explicitly to every service call; nothing reads the tenant
// from ambient state.
type TenantContext struct {
	TenantID string
	UserID   string
}

// Valid reports whether the context carries a tenant.
func (tc TenantContext) Valid() bool {
	return tc.TenantID != ""
}
