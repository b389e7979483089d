package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umagate/umagate/internal/protocol"
)

func TestPublishKeys(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant()

	w := env.get(testHost, "/.well-known/lnurlpubkey")
	require.Equal(t, http.StatusOK, w.Code)

	var keys protocol.PubKeys
	decodeBody(t, w, &keys)
	assert.Equal(t, env.tenant.Keys.SigningPubKey, keys.SigningPubKeyHex)
	assert.Equal(t, env.tenant.Keys.EncryptionPubKey, keys.EncryptionPubKeyHex)
}

func TestDiscoveryUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant()

	w := env.get(testHost, "/.well-known/lnurlp/nobody")
	requireErrorBody(t, w, http.StatusNotFound, "User not found")
}

func TestDiscoveryBare(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant()

	w := env.get(testHost, "/.well-known/lnurlp/alice")
	require.Equal(t, http.StatusOK, w.Code)

	var resp protocol.DiscoveryResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, "https://ab.example.com/payreq/alicecb", resp.Callback)
	assert.Equal(t, int64(1_000), resp.MinSendable)
	assert.Equal(t, int64(10_000_000_000), resp.MaxSendable)
	assert.Equal(t, "payRequest", resp.Tag)
	assert.Contains(t, resp.Metadata, "alice@ab.example.com")

	// Bare responses never disclose capabilities.
	assert.Empty(t, resp.Currencies)
	assert.Empty(t, resp.PayerData)
	assert.Empty(t, resp.ReceiverKycStatus)
}

func (e *testEnv) signedDiscoveryQuery(nonce string) url.Values {
	q := &protocol.DiscoveryQuery{
		ReceiverAddress:  "alice@" + testHost,
		SenderVaspDomain: testSenderDomain,
		Nonce:            nonce,
		Timestamp:        time.Now().Unix(),
	}
	protocol.SignDiscovery(q, e.senderSigningPriv)

	values := url.Values{}
	values.Set("vaspDomain", q.SenderVaspDomain)
	values.Set("nonce", q.Nonce)
	values.Set("timestamp", fmt.Sprintf("%d", q.Timestamp))
	values.Set("signature", q.Signature)
	return values
}

func TestDiscoveryRich(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant()

	w := env.get(testHost, "/.well-known/lnurlp/alice?"+env.signedDiscoveryQuery("n1").Encode())
	require.Equal(t, http.StatusOK, w.Code)

	var resp protocol.DiscoveryResponse
	decodeBody(t, w, &resp)
	require.Len(t, resp.Currencies, 1)
	assert.Equal(t, "USD", resp.Currencies[0].Code)
	assert.Equal(t, 22_000.0, resp.Currencies[0].MultiplierMsats)
	// Per-currency bounds default to the tenant's.
	assert.Equal(t, int64(1_000), resp.Currencies[0].MinSendable)
	assert.Equal(t, int64(10_000_000_000), resp.Currencies[0].MaxSendable)

	require.NotNil(t, resp.PayerData)
	assert.True(t, resp.PayerData["identifier"].Mandatory)
	assert.True(t, resp.PayerData["compliance"].Mandatory)
	assert.False(t, resp.PayerData["name"].Mandatory)

	assert.Equal(t, "VERIFIED", resp.ReceiverKycStatus)
}

func TestDiscoveryBadSignature(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant()

	values := env.signedDiscoveryQuery("n1")
	values.Set("nonce", "tampered")

	w := env.get(testHost, "/.well-known/lnurlp/alice?"+values.Encode())
	requireErrorBody(t, w, http.StatusBadRequest, "Verification failed")
}

func TestDiscoveryUnknownSenderDomain(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant()

	values := env.signedDiscoveryQuery("n1")
	values.Set("vaspDomain", "unknown.example")

	w := env.get(testHost, "/.well-known/lnurlp/alice?"+values.Encode())
	requireErrorBody(t, w, http.StatusBadRequest, "Verification failed")
}

func TestDiscoveryReplayedNonce(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant()

	query := env.signedDiscoveryQuery("n1").Encode()

	w := env.get(testHost, "/.well-known/lnurlp/alice?"+query)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.get(testHost, "/.well-known/lnurlp/alice?"+query)
	requireErrorBody(t, w, http.StatusBadRequest, "Verification failed")
}

func TestDiscoveryIncompleteSignedQuery(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant()

	w := env.get(testHost, "/.well-known/lnurlp/alice?vaspDomain="+testSenderDomain)
	requireErrorBody(t, w, http.StatusBadRequest, "Invalid request")
}

func TestDiscoveryMetadataIsValidJSON(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant()

	w := env.get(testHost, "/.well-known/lnurlp/alice")
	require.Equal(t, http.StatusOK, w.Code)

	var resp protocol.DiscoveryResponse
	decodeBody(t, w, &resp)

	var entries [][]string
	require.NoError(t, json.Unmarshal([]byte(resp.Metadata), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "text/plain", entries[0][0])
	assert.Equal(t, "text/identifier", entries[1][0])
}
