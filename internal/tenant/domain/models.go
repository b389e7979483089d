// Package domain contains the tenant entity and the directory contracts.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/datatypes"
)

// Currency describes one settlement-currency entry in a tenant's table.
type Currency struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	// MultiplierMsats is settlement milli-units per smallest unit of Code.
	MultiplierMsats float64 `json:"multiplier_msats"`
	MinSendable     int64   `json:"min_sendable"`
	MaxSendable     int64   `json:"max_sendable"`
	Decimals        int     `json:"decimals"`
}

// PayerDataOptions maps a counterparty field name to whether it is mandatory.
type PayerDataOptions map[string]bool

// DefaultPayerDataOptions requires identifier and compliance data, leaves
// name and email optional.
func DefaultPayerDataOptions() PayerDataOptions {
	return PayerDataOptions{
		"identifier": true,
		"compliance": true,
		"name":       false,
		"email":      false,
	}
}

// TableNames holds the tenant's storage partitions. Defaults derive from the
// tenant id so tenants sharing one physical store never collide.
type TableNames struct {
	Users    string `json:"users"`
	Payments string `json:"payments"`
	Utxos    string `json:"utxos"`
}

// DefaultTableNames derives partition names from the tenant id.
func DefaultTableNames(id string) TableNames {
	prefix := strings.ReplaceAll(slug.Make(id), "-", "_")
	return TableNames{
		Users:    fmt.Sprintf("%s_users", prefix),
		Payments: fmt.Sprintf("%s_payments", prefix),
		Utxos:    fmt.Sprintf("%s_utxos", prefix),
	}
}

// Tenant is the public tenant record. Private key material never lives here;
// it is stored separately as TenantKeys.
type Tenant struct {
	ID               string            `gorm:"primaryKey;type:text" json:"id"`
	Name             string            `gorm:"type:text;not null" json:"name"`
	Domain           string            `gorm:"type:text;not null;uniqueIndex:ux_tenants_domain" json:"domain"`
	BaseURL          string            `gorm:"type:text;column:base_url" json:"base_url"`
	SigningPubKey    string            `gorm:"type:text;column:signing_pub_key" json:"signing_pub_key"`
	EncryptionPubKey string            `gorm:"type:text;column:encryption_pub_key" json:"encryption_pub_key"`
	Tables           TableNames        `gorm:"serializer:json" json:"tables"`
	Currencies       []Currency        `gorm:"serializer:json" json:"currencies"`
	PayerData        PayerDataOptions  `gorm:"serializer:json;column:payer_data" json:"payer_data"`
	MinSendableSats  int64             `gorm:"not null;default:1" json:"min_sendable_sats"`
	MaxSendableSats  int64             `gorm:"not null;default:10000000" json:"max_sendable_sats"`
	Active           bool              `gorm:"not null;default:true" json:"active"`
	Metadata         datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedAt        time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"not null" json:"updated_at"`
}

func (Tenant) TableName() string { return "tenants" }

// Hostname is the routing token: the first dot-delimited label of the
// tenant's domain.
func (t Tenant) Hostname() string {
	host, _, _ := strings.Cut(t.Domain, ".")
	return host
}

// ApplyDefaults fills derivable fields left empty at creation time.
func (t *Tenant) ApplyDefaults() {
	if t.BaseURL == "" {
		t.BaseURL = "https://" + t.Domain
	}
	if t.Tables.Users == "" || t.Tables.Payments == "" || t.Tables.Utxos == "" {
		defaults := DefaultTableNames(t.ID)
		if t.Tables.Users == "" {
			t.Tables.Users = defaults.Users
		}
		if t.Tables.Payments == "" {
			t.Tables.Payments = defaults.Payments
		}
		if t.Tables.Utxos == "" {
			t.Tables.Utxos = defaults.Utxos
		}
	}
	if t.PayerData == nil {
		t.PayerData = DefaultPayerDataOptions()
	}
	if t.MinSendableSats == 0 {
		t.MinSendableSats = 1
	}
	if t.MaxSendableSats == 0 {
		t.MaxSendableSats = 10_000_000
	}
	if t.Metadata == nil {
		t.Metadata = datatypes.JSONMap{}
	}
}

// TenantKeys holds the sealed private key material, one row per tenant.
// Bytes are whatever the key cipher produced.
type TenantKeys struct {
	TenantID          string    `gorm:"primaryKey;type:text;column:tenant_id"`
	SigningPrivKey    []byte    `gorm:"column:signing_priv_key"`
	EncryptionPrivKey []byte    `gorm:"column:encryption_priv_key"`
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

func (TenantKeys) TableName() string { return "tenant_keys" }

// Keys is the decrypted in-memory key set attached to a cached record.
type Keys struct {
	SigningPubKey     string
	SigningPrivKey    []byte
	EncryptionPubKey  string
	EncryptionPrivKey []byte
}

// Record is a read-mostly snapshot of a tenant plus its usable keys, valid
// for one request or until the next cache refresh.
type Record struct {
	Tenant
	Keys Keys
}

// ToPublic returns the tenant's public fields; key material is absent by
// construction since Tenant never carries it.
func (r *Record) ToPublic() Tenant {
	return r.Tenant
}
