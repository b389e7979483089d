package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umagate/umagate/internal/protocol"
)

func TestQuoteBare(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant()

	w := env.postJSON(testHost, "/payreq/alicecb", map[string]string{"amount": "1000"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var raw map[string]json.RawMessage
	decodeBody(t, w, &raw)
	// Exactly the minimal shape: invoice, empty routes, disposable.
	assert.Contains(t, raw, "pr")
	assert.JSONEq(t, "[]", string(raw["routes"]))
	assert.JSONEq(t, "true", string(raw["disposable"]))
	assert.NotContains(t, raw, "paymentInfo")
	assert.NotContains(t, raw, "utxoCallback")

	var resp protocol.QuoteResponse
	decodeBody(t, w, &resp)
	assert.True(t, strings.HasPrefix(resp.EncodedInvoice, "lnbcdev"))

	// Bare quotes leave no compliance record.
	payments, err := env.sink.Payments(context.Background(), env.tenant.Tables.Payments)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestQuoteUnknownCallbackID(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant()

	w := env.postJSON(testHost, "/payreq/nope", map[string]string{"amount": "1000"}, nil)
	requireErrorBody(t, w, http.StatusNotFound, "User not found")
}

func TestQuoteMalformedAmount(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant()

	for _, amount := range []string{"abc", "-5", "1.2.3", "0"} {
		w := env.postJSON(testHost, "/payreq/alicecb", map[string]string{"amount": amount}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "amount %q", amount)
	}
}

func TestQuoteAmountOutOfBounds(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant()

	// Below 1 sat.
	w := env.postJSON(testHost, "/payreq/alicecb", map[string]string{"amount": "999"}, nil)
	requireErrorBody(t, w, http.StatusBadRequest, "Amount outside sendable bounds")

	// Above 10M sats.
	w = env.postJSON(testHost, "/payreq/alicecb", map[string]string{"amount": "10000000000001"}, nil)
	requireErrorBody(t, w, http.StatusBadRequest, "Amount outside sendable bounds")
}

func TestQuoteUnsupportedCurrency(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant()

	// No currency table entry and no rate provider pair: the client gets
	// the generic 500 body, never a hint about the conversion gap.
	w := env.postJSON(testHost, "/payreq/alicecb", map[string]string{"amount": "42.EUR"}, nil)
	requireErrorBody(t, w, http.StatusInternalServerError, "Internal error")
}

func (e *testEnv) signedPayRequest(nonce, amount, travelRule string) *protocol.PayRequest {
	p := &protocol.PayRequest{
		Amount: amount,
		PayerData: &protocol.PayerData{
			Identifier: "bob@" + testSenderDomain,
			Compliance: &protocol.CompliancePayload{KycStatus: "VERIFIED"},
		},
		SenderVaspDomain: testSenderDomain,
		Nonce:            nonce,
		Timestamp:        time.Now().Unix(),
	}
	if travelRule != "" {
		p.PayerData.Compliance.EncryptedTravelRule = travelRule
	}
	protocol.SignPayRequest(p, e.senderSigningPriv)
	return p
}

func TestQuoteRich(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant()

	// 100 USD cents at 22_000 msats per cent.
	w := env.postJSON(testHost, "/payreq/alicecb", env.signedPayRequest("n1", "100.USD", ""), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp protocol.QuoteResponse
	decodeBody(t, w, &resp)
	assert.NotEmpty(t, resp.EncodedInvoice)
	require.NotNil(t, resp.PaymentInfo)
	assert.Equal(t, "USD", resp.PaymentInfo.CurrencyCode)
	assert.Equal(t, 22_000.0, resp.PaymentInfo.MultiplierMsats)
	assert.Equal(t, 2, resp.PaymentInfo.Decimals)
	assert.Equal(t, int64(2_200_000), resp.PaymentInfo.AmountMsats)
	assert.Equal(t, "https://ab.example.com/utxocallback", resp.UtxoCallback)

	payments, err := env.sink.Payments(context.Background(), env.tenant.Tables.Payments)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, env.alice.ID, payments[0].ReceiverID)
	assert.Equal(t, resp.EncodedInvoice, payments[0].InvoiceRef)
	assert.Equal(t, int64(2_200_000), payments[0].AmountMsats)
	assert.Equal(t, "USD", payments[0].Currency)
	assert.Equal(t, 22_000.0, payments[0].ConversionRate)
	assert.Equal(t, testSenderDomain, payments[0].SenderDomain)
	assert.Equal(t, "bob@"+testSenderDomain, payments[0].PayerIdentifier)
}

func TestQuoteRichBadSignatureLeavesNoRecord(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant()

	p := env.signedPayRequest("n1", "100.USD", "")
	p.Amount = "999999.USD"

	w := env.postJSON(testHost, "/payreq/alicecb", p, nil)
	requireErrorBody(t, w, http.StatusBadRequest, "Verification failed")

	payments, err := env.sink.Payments(context.Background(), env.tenant.Tables.Payments)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestQuoteTravelRuleRecorded(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant()

	sealed, err := protocol.EncryptTravelRule(env.tenant.Keys.EncryptionPubKey, []byte(`{"originator":"bob"}`))
	require.NoError(t, err)

	w := env.postJSON(testHost, "/payreq/alicecb", env.signedPayRequest("n1", "100.USD", sealed), nil)
	require.Equal(t, http.StatusOK, w.Code)

	payments, err := env.sink.Payments(context.Background(), env.tenant.Tables.Payments)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.JSONEq(t, `{"originator":"bob"}`, string(payments[0].TravelRuleData))
}

func TestQuoteTravelRuleFailureDoesNotBlock(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant()

	w := env.postJSON(testHost, "/payreq/alicecb",
		env.signedPayRequest("n1", "100.USD", "bm90IGEgcmVhbCBib3g="), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp protocol.QuoteResponse
	decodeBody(t, w, &resp)
	assert.NotEmpty(t, resp.EncodedInvoice)

	payments, err := env.sink.Payments(context.Background(), env.tenant.Tables.Payments)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Empty(t, payments[0].TravelRuleData)
}

func TestQuoteRejectsNonJSONBody(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant()

	w := env.request(http.MethodPost, testHost, "/payreq/alicecb", []byte("not json"))
	requireErrorBody(t, w, http.StatusBadRequest, "Invalid request")
}
