// Package keycipher transforms tenant private-key material before it touches
// durable storage.
package keycipher

import (
	"github.com/umagate/umagate/internal/config"
	"go.uber.org/fx"
)

// Cipher encrypts private key bytes for persistence and decrypts them on load.
type Cipher interface {
	Encrypt(plain []byte) ([]byte, error)
	Decrypt(sealed []byte) ([]byte, error)
}

type identity struct{}

func (identity) Encrypt(plain []byte) ([]byte, error)  { return plain, nil }
func (identity) Decrypt(sealed []byte) ([]byte, error) { return sealed, nil }

// NewIdentity returns the pass-through cipher.
func NewIdentity() Cipher { return identity{} }

// FromConfig selects secretbox when a secret is configured, identity
// otherwise.
func FromConfig(cfg config.Config) (Cipher, error) {
	if cfg.KeyCipherSecret == "" {
		return NewIdentity(), nil
	}
	return NewSecretbox([]byte(cfg.KeyCipherSecret))
}

// Module provides the configured Cipher.
var Module = fx.Module("keycipher",
	fx.Provide(FromConfig),
)
