package protocol

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

// defaultCodec implements Codec with ed25519 signatures over canonical
// pipe-joined payloads and nacl box anonymous sealing for travel-rule data.
// The crypto primitives come from the standard library and x/crypto; this
// codec only fixes the canonical byte layout.
type defaultCodec struct{}

// NewCodec returns the default wire codec.
func NewCodec() Codec { return defaultCodec{} }

func (defaultCodec) ParseDiscovery(query url.Values) (*DiscoveryQuery, error) {
	q := &DiscoveryQuery{
		SenderVaspDomain: strings.TrimSpace(query.Get("vaspDomain")),
		Nonce:            strings.TrimSpace(query.Get("nonce")),
		Signature:        strings.TrimSpace(query.Get("signature")),
		ProtocolVersion:  strings.TrimSpace(query.Get("umaVersion")),
	}

	if raw := strings.TrimSpace(query.Get("timestamp")); raw != "" {
		ts, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad timestamp", ErrParse)
		}
		q.Timestamp = ts
	}
	if raw := strings.TrimSpace(query.Get("isSubjectToTravelRule")); raw != "" {
		q.IsSubjectToTravelRule = strings.EqualFold(raw, "true")
	}

	// A signed query must be complete; a bare query must be empty of
	// protocol fields. Anything in between is malformed.
	if q.SenderVaspDomain != "" || q.Signature != "" || q.Nonce != "" {
		if q.SenderVaspDomain == "" || q.Signature == "" || q.Nonce == "" || q.Timestamp == 0 {
			return nil, fmt.Errorf("%w: incomplete signed query", ErrParse)
		}
	}

	return q, nil
}

func (defaultCodec) ParsePayRequest(body []byte) (*PayRequest, error) {
	var p PayRequest
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if strings.TrimSpace(p.Amount) == "" {
		return nil, fmt.Errorf("%w: missing amount", ErrParse)
	}
	if p.SenderVaspDomain != "" || p.Signature != "" || p.Nonce != "" {
		if p.SenderVaspDomain == "" || p.Signature == "" || p.Nonce == "" || p.Timestamp == 0 {
			return nil, fmt.Errorf("%w: incomplete signed pay request", ErrParse)
		}
	}
	return &p, nil
}

func (defaultCodec) ParseSettlementCallback(body []byte) (*SettlementCallback, error) {
	var cb SettlementCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(cb.Utxos) == 0 || cb.SenderVaspDomain == "" || cb.Nonce == "" || cb.Signature == "" || cb.Timestamp == 0 {
		return nil, fmt.Errorf("%w: incomplete settlement callback", ErrParse)
	}
	for _, u := range cb.Utxos {
		if strings.TrimSpace(u.Utxo) == "" {
			return nil, fmt.Errorf("%w: empty utxo reference", ErrParse)
		}
	}
	return &cb, nil
}

func (c defaultCodec) VerifyDiscovery(ctx context.Context, q *DiscoveryQuery, senderKeys *PubKeys, nonces NonceValidator) error {
	if err := verifySignature(senderKeys, discoveryPayload(q), q.Signature); err != nil {
		return err
	}
	return checkNonce(ctx, nonces, q.SenderVaspDomain, q.Nonce, q.Timestamp)
}

func (c defaultCodec) VerifyPayRequest(ctx context.Context, p *PayRequest, senderKeys *PubKeys, nonces NonceValidator) error {
	if err := verifySignature(senderKeys, payRequestPayload(p), p.Signature); err != nil {
		return err
	}
	return checkNonce(ctx, nonces, p.SenderVaspDomain, p.Nonce, p.Timestamp)
}

func (c defaultCodec) VerifySettlementCallback(ctx context.Context, cb *SettlementCallback, senderKeys *PubKeys, nonces NonceValidator) error {
	if err := verifySignature(senderKeys, settlementPayload(cb), cb.Signature); err != nil {
		return err
	}
	return checkNonce(ctx, nonces, cb.SenderVaspDomain, cb.Nonce, cb.Timestamp)
}

func (defaultCodec) DecryptTravelRule(encryptionPrivKey []byte, payload string) ([]byte, error) {
	if len(encryptionPrivKey) != 32 {
		return nil, fmt.Errorf("%w: bad encryption key length", ErrVerification)
	}
	sealed, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	var priv [32]byte
	copy(priv[:], encryptionPrivKey)
	var pub [32]byte
	// Anonymous boxes embed the ephemeral key; the recipient public key is
	// derivable from the private scalar.
	derived, err := derivePublicKey(priv)
	if err != nil {
		return nil, err
	}
	pub = derived

	plain, ok := box.OpenAnonymous(nil, sealed, &pub, &priv)
	if !ok {
		return nil, fmt.Errorf("%w: cannot open travel-rule payload", ErrVerification)
	}
	return plain, nil
}

func derivePublicKey(priv [32]byte) ([32]byte, error) {
	var out [32]byte
	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrVerification, err)
	}
	copy(out[:], pub)
	return out, nil
}

// --- signing helpers, used for outbound traffic and tests ---

// SignDiscovery signs q in place with the sender's ed25519 private key.
func SignDiscovery(q *DiscoveryQuery, priv ed25519.PrivateKey) {
	q.Signature = hex.EncodeToString(ed25519.Sign(priv, discoveryPayload(q)))
}

// SignPayRequest signs p in place.
func SignPayRequest(p *PayRequest, priv ed25519.PrivateKey) {
	p.Signature = hex.EncodeToString(ed25519.Sign(priv, payRequestPayload(p)))
}

// SignSettlementCallback signs cb in place.
func SignSettlementCallback(cb *SettlementCallback, priv ed25519.PrivateKey) {
	cb.Signature = hex.EncodeToString(ed25519.Sign(priv, settlementPayload(cb)))
}

// EncryptTravelRule seals plain to the receiver's encryption public key and
// returns the base64 payload.
func EncryptTravelRule(encryptionPubKeyHex string, plain []byte) (string, error) {
	raw, err := hex.DecodeString(encryptionPubKeyHex)
	if err != nil || len(raw) != 32 {
		return "", fmt.Errorf("%w: bad encryption public key", ErrParse)
	}
	var pub [32]byte
	copy(pub[:], raw)
	sealed, err := box.SealAnonymous(nil, plain, &pub, rand.Reader)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// --- canonical payloads ---

func discoveryPayload(q *DiscoveryQuery) []byte {
	return []byte(strings.Join([]string{
		q.ReceiverAddress,
		q.SenderVaspDomain,
		q.Nonce,
		strconv.FormatInt(q.Timestamp, 10),
	}, "|"))
}

func payRequestPayload(p *PayRequest) []byte {
	return []byte(strings.Join([]string{
		p.PayerIdentifier(),
		p.Amount,
		p.SenderVaspDomain,
		p.Nonce,
		strconv.FormatInt(p.Timestamp, 10),
	}, "|"))
}

func settlementPayload(cb *SettlementCallback) []byte {
	parts := make([]string, 0, len(cb.Utxos)+3)
	for _, u := range cb.Utxos {
		parts = append(parts, fmt.Sprintf("%s:%d", u.Utxo, u.AmountMsats))
	}
	parts = append(parts, cb.SenderVaspDomain, cb.Nonce, strconv.FormatInt(cb.Timestamp, 10))
	return []byte(strings.Join(parts, "|"))
}

func verifySignature(senderKeys *PubKeys, payload []byte, signatureHex string) error {
	if senderKeys == nil {
		return ErrVerification
	}
	pub, err := hex.DecodeString(senderKeys.SigningPubKeyHex)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return ErrVerification
	}
	sig, err := hex.DecodeString(signatureHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return ErrVerification
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), payload, sig) {
		return ErrVerification
	}
	return nil
}

func checkNonce(ctx context.Context, nonces NonceValidator, domain, nonce string, ts int64) error {
	if nonces == nil {
		return nil
	}
	if err := nonces.CheckAndSave(ctx, domain, nonce, time.Unix(ts, 0)); err != nil {
		return fmt.Errorf("%w: %v", ErrVerification, err)
	}
	return nil
}
