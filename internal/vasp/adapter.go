// Package vasp exposes one tenant's protocol capabilities as an explicit
// interface. An adapter is built per request from the directory's record and
// shared collaborators; it holds no state of its own.
package vasp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	compliancedomain "github.com/umagate/umagate/internal/compliance/domain"
	complianceservice "github.com/umagate/umagate/internal/compliance/service"
	"github.com/umagate/umagate/internal/currency"
	"github.com/umagate/umagate/internal/invoice"
	"github.com/umagate/umagate/internal/protocol"
	"github.com/umagate/umagate/internal/rate"
	receiverdomain "github.com/umagate/umagate/internal/receiver/domain"
	receiverservice "github.com/umagate/umagate/internal/receiver/service"
	tenantdomain "github.com/umagate/umagate/internal/tenant/domain"
	"go.uber.org/fx"
)

// Adapter is the capability set one tenant offers the protocol handlers.
type Adapter interface {
	Tenant() tenantdomain.Tenant

	SigningPubKey() string
	SigningPrivKey() []byte
	EncryptionPubKey() string
	EncryptionPrivKey() []byte

	UserByUsername(ctx context.Context, username string) (*receiverdomain.User, error)
	UserByCallbackID(ctx context.Context, callbackID string) (*receiverdomain.User, error)

	PayReqURL(callbackToken string) string
	UtxoCallbackURL() string

	Currencies() []tenantdomain.Currency
	PayerDataOptions() tenantdomain.PayerDataOptions
	MinSendableMsats() int64
	MaxSendableMsats() int64

	// ConversionRate yields target smallest-units per source smallest-unit.
	// Equal codes are the identity; the tenant's currency table answers
	// conversions to and from msats; everything else defers to the rate
	// provider.
	ConversionRate(ctx context.Context, from, to string) (float64, error)

	CreateInvoice(ctx context.Context, req invoice.Request) (string, error)

	RecordQuote(ctx context.Context, rec compliancedomain.PaymentRecord) error
	RecordSettlement(ctx context.Context, senderDomain string, utxos []protocol.UtxoWithAmount) error
}

// FactoryParams collects the shared collaborators adapters delegate to.
type FactoryParams struct {
	fx.In

	Users    *receiverservice.Store
	Sink     *complianceservice.Sink
	Rates    rate.Provider   `optional:"true"`
	Invoices invoice.Creator `optional:"true"`
}

// Factory builds adapters for tenant records.
type Factory struct {
	users    *receiverservice.Store
	sink     *complianceservice.Sink
	rates    rate.Provider
	invoices invoice.Creator
}

func NewFactory(p FactoryParams) *Factory {
	return &Factory{users: p.Users, sink: p.Sink, rates: p.Rates, invoices: p.Invoices}
}

// ForTenant wraps one directory record.
func (f *Factory) ForTenant(rec *tenantdomain.Record) Adapter {
	return &adapter{record: rec, factory: f}
}

type adapter struct {
	record  *tenantdomain.Record
	factory *Factory
}

func (a *adapter) Tenant() tenantdomain.Tenant { return a.record.ToPublic() }

func (a *adapter) SigningPubKey() string     { return a.record.Keys.SigningPubKey }
func (a *adapter) SigningPrivKey() []byte    { return a.record.Keys.SigningPrivKey }
func (a *adapter) EncryptionPubKey() string  { return a.record.Keys.EncryptionPubKey }
func (a *adapter) EncryptionPrivKey() []byte { return a.record.Keys.EncryptionPrivKey }

func (a *adapter) UserByUsername(ctx context.Context, username string) (*receiverdomain.User, error) {
	return a.factory.users.ByUsername(ctx, a.record.Tables.Users, username)
}

func (a *adapter) UserByCallbackID(ctx context.Context, callbackID string) (*receiverdomain.User, error) {
	return a.factory.users.ByCallbackID(ctx, a.record.Tables.Users, callbackID)
}

func (a *adapter) baseURL() string {
	return strings.TrimRight(a.record.BaseURL, "/")
}

func (a *adapter) PayReqURL(callbackToken string) string {
	return fmt.Sprintf("%s/payreq/%s", a.baseURL(), callbackToken)
}

func (a *adapter) UtxoCallbackURL() string {
	return a.baseURL() + "/utxocallback"
}

func (a *adapter) Currencies() []tenantdomain.Currency {
	return a.record.Currencies
}

func (a *adapter) PayerDataOptions() tenantdomain.PayerDataOptions {
	return a.record.PayerData
}

func (a *adapter) MinSendableMsats() int64 {
	return a.record.MinSendableSats * currency.MillisatsPerSat
}

func (a *adapter) MaxSendableMsats() int64 {
	return a.record.MaxSendableSats * currency.MillisatsPerSat
}

func (a *adapter) ConversionRate(ctx context.Context, from, to string) (float64, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == to {
		return 1, nil
	}

	// The tenant's own currency table is authoritative for msat conversions.
	if to == "MSAT" {
		if entry := a.currencyEntry(from); entry != nil {
			return entry.MultiplierMsats, nil
		}
	}
	if from == "MSAT" {
		if entry := a.currencyEntry(to); entry != nil && entry.MultiplierMsats != 0 {
			return 1 / entry.MultiplierMsats, nil
		}
	}

	if a.factory.rates != nil {
		r, err := a.factory.rates.Rate(ctx, from, to)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, rate.ErrUnsupported) {
			return 0, err
		}
	}

	return 0, fmt.Errorf("%w: %s to %s", ErrUnsupportedConversion, from, to)
}

func (a *adapter) currencyEntry(code string) *tenantdomain.Currency {
	for i := range a.record.Currencies {
		if strings.EqualFold(a.record.Currencies[i].Code, code) {
			return &a.record.Currencies[i]
		}
	}
	return nil
}

func (a *adapter) CreateInvoice(ctx context.Context, req invoice.Request) (string, error) {
	if a.factory.invoices == nil {
		return "", ErrNotConfigured
	}
	return a.factory.invoices.CreateInvoice(ctx, req)
}

func (a *adapter) RecordQuote(ctx context.Context, rec compliancedomain.PaymentRecord) error {
	return a.factory.sink.RecordPayment(ctx, a.record.Tables.Payments, rec)
}

func (a *adapter) RecordSettlement(ctx context.Context, senderDomain string, utxos []protocol.UtxoWithAmount) error {
	recs := make([]compliancedomain.UtxoRecord, 0, len(utxos))
	for _, u := range utxos {
		if u.Utxo == "" {
			continue
		}
		recs = append(recs, compliancedomain.UtxoRecord{
			Utxo:         u.Utxo,
			AmountMsats:  u.AmountMsats,
			SenderDomain: senderDomain,
		})
	}
	return a.factory.sink.RecordUtxos(ctx, a.record.Tables.Utxos, recs)
}
