package domain

import "context"

// Repository mediates all tenant reads and writes against durable storage.
type Repository interface {
	// EnsureSchema creates the tenant tables and their uniqueness
	// constraints.
	EnsureSchema(ctx context.Context) error

	Create(ctx context.Context, t Tenant) error
	Get(ctx context.Context, id string) (*Tenant, error)
	GetByDomain(ctx context.Context, domain string) (*Tenant, error)
	Exists(ctx context.Context, id, domain string) (bool, error)
	Update(ctx context.Context, t Tenant) error
	Delete(ctx context.Context, id string) (bool, error)
	ListActive(ctx context.Context) ([]Tenant, error)

	UpsertKeys(ctx context.Context, keys TenantKeys) error
	GetKeys(ctx context.Context, tenantID string) (*TenantKeys, error)
	DeleteKeys(ctx context.Context, tenantID string) error

	// EnsurePartitions creates the tenant's users/payments/utxo tables.
	EnsurePartitions(ctx context.Context, t Tenant) error
}
