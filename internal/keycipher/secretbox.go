package keycipher

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

var errDecrypt = errors.New("keycipher: cannot decrypt key material")

type secretboxCipher struct {
	key [32]byte
}

// NewSecretbox derives a secretbox key from secret and returns an
// authenticated cipher. The nonce is prepended to the ciphertext.
func NewSecretbox(secret []byte) (Cipher, error) {
	if len(secret) == 0 {
		return nil, errors.New("keycipher: empty secret")
	}
	c := &secretboxCipher{key: sha256.Sum256(secret)}
	return c, nil
}

func (c *secretboxCipher) Encrypt(plain []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}
	return secretbox.Seal(nonce[:], plain, &nonce, &c.key), nil
}

func (c *secretboxCipher) Decrypt(sealed []byte) ([]byte, error) {
	if len(sealed) < 24 {
		return nil, errDecrypt
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plain, ok := secretbox.Open(nil, sealed[24:], &nonce, &c.key)
	if !ok {
		return nil, errDecrypt
	}
	return plain, nil
}
