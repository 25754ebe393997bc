package tenants

// Tenant represents one isolated customer organisation. Each tenant
// owns a dedicated database schema so data never crosses tenants.
type Tenant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`   // URL-safe identifier (lowercase letters, digits, underscore)
	Schema string `json:"schema"` // Database schema this tenant's data lives in
}
