package domain

import (
	"context"
)

// KeyPairInput supplies one key pair at tenant creation: the hex public key
// and the raw (pre-cipher) private bytes.
type KeyPairInput struct {
	PublicKeyHex string
	PrivateKey   []byte
}

func (k KeyPairInput) IsZero() bool {
	return k.PublicKeyHex == "" || len(k.PrivateKey) == 0
}

// CreateTenantRequest carries everything the provisioning surface may set.
type CreateTenantRequest struct {
	ID            string
	Name          string
	Domain        string
	BaseURL       string
	SigningKey    KeyPairInput
	EncryptionKey KeyPairInput

	Tables          TableNames
	Currencies      []Currency
	PayerData       PayerDataOptions
	MinSendableSats int64
	MaxSendableSats int64
	Active          *bool
	Metadata        map[string]interface{}
}

// Patch is a supplied-fields-only tenant update. Tables and Metadata are
// deep-merged; every other present field replaces the stored value.
type Patch struct {
	Name            *string                `json:"name,omitempty"`
	Domain          *string                `json:"domain,omitempty"`
	BaseURL         *string                `json:"base_url,omitempty"`
	Currencies      *[]Currency            `json:"currencies,omitempty"`
	PayerData       *PayerDataOptions      `json:"payer_data,omitempty"`
	MinSendableSats *int64                 `json:"min_sendable_sats,omitempty"`
	MaxSendableSats *int64                 `json:"max_sendable_sats,omitempty"`
	Active          *bool                  `json:"active,omitempty"`
	Tables          *TableNames            `json:"tables,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// Directory owns the authoritative tenant set and its in-memory cache.
//
// Reads are cache-first; a miss falls back to storage and, for active tenants
// with loadable keys, repopulates the cache. Absence is reported as nil, nil:
// a found-but-keyless record is treated as not found.
type Directory interface {
	// Initialize establishes storage constraints and performs a full
	// Refresh.
	Initialize(ctx context.Context) error

	// Refresh atomically replaces the by-id and by-domain lookup structures
	// with the currently active tenants whose keys load successfully.
	Refresh(ctx context.Context) error

	Add(ctx context.Context, req CreateTenantRequest) (*Record, error)
	Get(ctx context.Context, id string) (*Record, error)
	GetByDomain(ctx context.Context, domain string) (*Record, error)
	Update(ctx context.Context, id string, patch Patch) (*Record, error)
	Remove(ctx context.Context, id string) (bool, error)

	// ListActive returns the live cache values without a storage round-trip.
	ListActive() []*Record
}
