package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umagate/umagate/internal/config"
	"github.com/umagate/umagate/internal/protocol"
)

func TestResolverMatchesTwoCharToken(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant()

	w := env.get(testHost, "/.well-known/lnurlp/alice")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestResolverRejectsLongToken(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant()

	w := env.get("abc.example.com", "/.well-known/lnurlp/alice")
	requireErrorBody(t, w, http.StatusNotFound, "Not valid tenant")
}

func TestResolverRejectsUnknownToken(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant()

	w := env.get("cd.example.com", "/.well-known/lnurlp/alice")
	requireErrorBody(t, w, http.StatusNotFound, "Not valid tenant")
}

func TestResolverIgnoresPort(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant()

	w := env.get(testHost+":8080", "/.well-known/lnurlp/alice")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestResolverDomainMode(t *testing.T) {
	env := newTestEnv(t, withResolverRule(config.ResolverConfig{Match: config.MatchDomain}))
	env.seedTenant()

	w := env.get(testHost, "/.well-known/lnurlp/alice")
	assert.Equal(t, http.StatusOK, w.Code)

	// In domain mode the token alone is not enough.
	w = env.get("ab.other.example", "/.well-known/lnurlp/alice")
	requireErrorBody(t, w, http.StatusNotFound, "Not valid tenant")
}

func TestResolverTokenLengthConfigurable(t *testing.T) {
	env := newTestEnv(t, withResolverRule(config.ResolverConfig{Match: config.MatchToken, TokenLength: 3}))
	env.seedTenant()

	// The seeded tenant's token "ab" no longer satisfies the gate.
	w := env.get(testHost, "/.well-known/lnurlp/alice")
	requireErrorBody(t, w, http.StatusNotFound, "Not valid tenant")
}

func TestResolverIsolatesTenants(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant()
	env.seedSecondTenant(t)

	var first protocol.DiscoveryResponse
	w := env.get(testHost, "/.well-known/lnurlp/alice")
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &first)
	assert.Contains(t, first.Callback, "https://ab.example.com/payreq/")

	var second protocol.DiscoveryResponse
	w = env.get("cd.example.com", "/.well-known/lnurlp/carol")
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &second)
	assert.Contains(t, second.Callback, "https://cd.example.com/payreq/")

	// Each tenant only sees its own receivers.
	w = env.get("cd.example.com", "/.well-known/lnurlp/alice")
	requireErrorBody(t, w, http.StatusNotFound, "User not found")
}
