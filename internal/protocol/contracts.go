package protocol

import (
	"context"
	"errors"
	"net/url"
	"time"
)

var (
	// ErrParse covers malformed inbound messages.
	ErrParse = errors.New("protocol: malformed message")
	// ErrVerification covers any signature, nonce, or timestamp failure.
	// Responses never say which check failed.
	ErrVerification = errors.New("protocol: verification failed")
	// ErrReplayedNonce is what nonce validators return for a seen pair;
	// callers surface it as ErrVerification.
	ErrReplayedNonce = errors.New("protocol: nonce already seen")
)

// NonceValidator rejects previously seen (sender domain, nonce) pairs inside
// the retention window and rejects timestamps older than the window.
type NonceValidator interface {
	CheckAndSave(ctx context.Context, senderDomain, nonce string, timestamp time.Time) error
}

// PublicKeyCache resolves a sender's published keys by domain, caching the
// network fetch.
type PublicKeyCache interface {
	Get(ctx context.Context, domain string) (*PubKeys, error)
}

// Codec parses, verifies, and builds the protocol's canonical messages.
type Codec interface {
	ParseDiscovery(query url.Values) (*DiscoveryQuery, error)
	ParsePayRequest(body []byte) (*PayRequest, error)
	ParseSettlementCallback(body []byte) (*SettlementCallback, error)

	VerifyDiscovery(ctx context.Context, q *DiscoveryQuery, senderKeys *PubKeys, nonces NonceValidator) error
	VerifyPayRequest(ctx context.Context, p *PayRequest, senderKeys *PubKeys, nonces NonceValidator) error
	VerifySettlementCallback(ctx context.Context, cb *SettlementCallback, senderKeys *PubKeys, nonces NonceValidator) error

	// DecryptTravelRule opens an encrypted travel-rule disclosure with the
	// receiver's encryption private key.
	DecryptTravelRule(encryptionPrivKey []byte, payload string) ([]byte, error)
}
