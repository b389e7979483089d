// Package protocol defines the seam between tenant orchestration and the
// wire protocol: message shapes, the codec contract, and the collaborator
// contracts for sender-key resolution and replay tracking. Handlers depend
// only on these types, so the default codec can be swapped for a vendor SDK.
package protocol

import (
	"encoding/json"
	"strings"
)

// PubKeys is a counterparty's published key set.
type PubKeys struct {
	SigningPubKeyHex    string   `json:"signingPubKey"`
	EncryptionPubKeyHex string   `json:"encryptionPubKey"`
	SigningCertChain    []string `json:"signingCertChain,omitempty"`
	EncryptionCertChain []string `json:"encryptionCertChain,omitempty"`
	ExpirationTimestamp *int64   `json:"expirationTimestamp,omitempty"`
}

// DiscoveryQuery is the parsed discovery (quote-initiation) request. A bare
// LNURL-style query has only the receiver address; the enhanced form carries
// the sender identity and a signature.
type DiscoveryQuery struct {
	ReceiverAddress       string `json:"receiverAddress"`
	SenderVaspDomain      string `json:"vaspDomain,omitempty"`
	Nonce                 string `json:"nonce,omitempty"`
	Timestamp             int64  `json:"timestamp,omitempty"`
	Signature             string `json:"signature,omitempty"`
	IsSubjectToTravelRule bool   `json:"isSubjectToTravelRule,omitempty"`
	ProtocolVersion       string `json:"umaVersion,omitempty"`
}

// IsEnhanced reports whether the query is a protocol-enhanced (signed) one.
func (q *DiscoveryQuery) IsEnhanced() bool {
	return q.SenderVaspDomain != "" && q.Signature != ""
}

// CompliancePayload is the optional compliance section of payer data. The
// travel-rule disclosure arrives sealed to the receiver's encryption key.
type CompliancePayload struct {
	KycStatus           string   `json:"kycStatus,omitempty"`
	Utxos               []string `json:"utxos,omitempty"`
	NodePubKey          string   `json:"nodePubKey,omitempty"`
	UtxoCallback        string   `json:"utxoCallback,omitempty"`
	EncryptedTravelRule string   `json:"encryptedTravelRule,omitempty"`
}

// PayerData is the counterparty information a sender may disclose.
type PayerData struct {
	Identifier string             `json:"identifier,omitempty"`
	Name       string             `json:"name,omitempty"`
	Email      string             `json:"email,omitempty"`
	Compliance *CompliancePayload `json:"compliance,omitempty"`
}

// PayRequest is the parsed quote request body.
type PayRequest struct {
	// Amount is the raw wire amount: "<int>" (settlement milli-units) or
	// "<int>.<CODE>".
	Amount string `json:"amount"`
	// ReceivingCurrencyCode names the currency the receiver should be
	// quoted in; empty defaults to the settlement unit.
	ReceivingCurrencyCode string     `json:"currency,omitempty"`
	PayerData             *PayerData `json:"payerData,omitempty"`

	SenderVaspDomain string `json:"vaspDomain,omitempty"`
	Nonce            string `json:"nonce,omitempty"`
	Timestamp        int64  `json:"timestamp,omitempty"`
	Signature        string `json:"signature,omitempty"`
}

// IsEnhanced reports whether the pay request is a signed protocol request.
func (p *PayRequest) IsEnhanced() bool {
	return p.SenderVaspDomain != "" && p.Signature != ""
}

// PayerIdentifier returns the disclosed payer identifier, if any.
func (p *PayRequest) PayerIdentifier() string {
	if p.PayerData == nil {
		return ""
	}
	return strings.TrimSpace(p.PayerData.Identifier)
}

// UtxoWithAmount is one disclosed settlement reference.
type UtxoWithAmount struct {
	Utxo        string `json:"utxo"`
	AmountMsats int64  `json:"amountMsats"`
}

// SettlementCallback is the parsed post-settlement notification.
type SettlementCallback struct {
	Utxos            []UtxoWithAmount `json:"utxos"`
	SenderVaspDomain string           `json:"vaspDomain"`
	Nonce            string           `json:"nonce"`
	Timestamp        int64            `json:"timestamp"`
	Signature        string           `json:"signature"`
}

// CurrencyInfo is one currency entry in a discovery response.
type CurrencyInfo struct {
	Code            string  `json:"code"`
	Name            string  `json:"name"`
	Symbol          string  `json:"symbol"`
	MultiplierMsats float64 `json:"multiplier"`
	MinSendable     int64   `json:"minSendable"`
	MaxSendable     int64   `json:"maxSendable"`
	Decimals        int     `json:"decimals"`
}

// PayerDataOption declares whether a payer-data field is mandatory.
type PayerDataOption struct {
	Mandatory bool `json:"mandatory"`
}

// DiscoveryResponse is the canonical discovery response. Bare queries get
// only the fixed LNURL shape (callback, bounds, metadata, tag).
type DiscoveryResponse struct {
	Callback    string                     `json:"callback"`
	MinSendable int64                      `json:"minSendable"`
	MaxSendable int64                      `json:"maxSendable"`
	Metadata    string                     `json:"metadata"`
	Tag         string                     `json:"tag"`
	Currencies  []CurrencyInfo             `json:"currencies,omitempty"`
	PayerData   map[string]PayerDataOption `json:"payerData,omitempty"`
	// ReceiverKycStatus discloses the receiver's compliance status on
	// enhanced responses.
	ReceiverKycStatus string `json:"receiverKycStatus,omitempty"`
	ProtocolVersion   string `json:"umaVersion,omitempty"`
}

// PaymentInfo carries the conversion metadata of an enhanced quote response.
type PaymentInfo struct {
	CurrencyCode    string  `json:"currencyCode"`
	MultiplierMsats float64 `json:"multiplier"`
	Decimals        int     `json:"decimals"`
	AmountMsats     int64   `json:"amountMsats"`
}

// QuoteResponse is the canonical quote response. Bare requests get only
// {pr, routes, disposable}.
type QuoteResponse struct {
	EncodedInvoice string            `json:"pr"`
	Routes         []json.RawMessage `json:"routes"`
	Disposable     bool              `json:"disposable"`
	PaymentInfo    *PaymentInfo      `json:"paymentInfo,omitempty"`
	UtxoCallback   string            `json:"utxoCallback,omitempty"`
}

// NewQuoteResponse builds the minimal invoice-only shape.
func NewQuoteResponse(invoice string) *QuoteResponse {
	return &QuoteResponse{
		EncodedInvoice: invoice,
		Routes:         []json.RawMessage{},
		Disposable:     true,
	}
}
