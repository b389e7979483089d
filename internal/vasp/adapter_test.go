package vasp

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umagate/umagate/internal/clock"
	compliancedomain "github.com/umagate/umagate/internal/compliance/domain"
	compliancerepo "github.com/umagate/umagate/internal/compliance/repository"
	complianceservice "github.com/umagate/umagate/internal/compliance/service"
	"github.com/umagate/umagate/internal/invoice"
	"github.com/umagate/umagate/internal/protocol"
	"github.com/umagate/umagate/internal/rate"
	receiverdomain "github.com/umagate/umagate/internal/receiver/domain"
	receiverrepo "github.com/umagate/umagate/internal/receiver/repository"
	receiverservice "github.com/umagate/umagate/internal/receiver/service"
	tenantdomain "github.com/umagate/umagate/internal/tenant/domain"
	dbpkg "github.com/umagate/umagate/pkg/db"
	"gorm.io/gorm"
)

type fixture struct {
	factory *Factory
	adapter Adapter
	users   *receiverservice.Store
	sink    *complianceservice.Sink
	record  *tenantdomain.Record
	db      *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := dbpkg.NewTest()
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Unix(1_700_000_000, 0))

	tenant := tenantdomain.Tenant{
		ID:     "vasp2",
		Name:   "VASP Two",
		Domain: "vasp2.example.com",
		Currencies: []tenantdomain.Currency{
			{Code: "USD", Name: "US Dollar", Symbol: "$", MultiplierMsats: 22_000, Decimals: 2},
		},
	}
	tenant.ApplyDefaults()

	ctx := context.Background()
	require.NoError(t, conn.WithContext(ctx).Table(tenant.Tables.Users).AutoMigrate(&receiverdomain.User{}))
	require.NoError(t, conn.WithContext(ctx).Table(tenant.Tables.Payments).AutoMigrate(&compliancedomain.PaymentRecord{}))
	require.NoError(t, conn.WithContext(ctx).Table(tenant.Tables.Utxos).AutoMigrate(&compliancedomain.UtxoRecord{}))

	users := receiverservice.NewStore(receiverservice.Params{
		Repo:  receiverrepo.NewRepository(conn),
		GenID: node,
		Clock: clk,
	})
	sink := complianceservice.NewSink(complianceservice.Params{
		Repo:  compliancerepo.NewRepository(conn),
		GenID: node,
		Clock: clk,
	})

	factory := NewFactory(FactoryParams{
		Users:    users,
		Sink:     sink,
		Rates:    rate.NewStatic(map[string]float64{"EUR/MSAT": 25_000}),
		Invoices: invoice.NewDev(clk),
	})

	record := &tenantdomain.Record{Tenant: tenant}
	record.Keys = tenantdomain.Keys{
		SigningPubKey:     "aa",
		SigningPrivKey:    []byte{1},
		EncryptionPubKey:  "bb",
		EncryptionPrivKey: []byte{2},
	}

	return &fixture{
		factory: factory,
		adapter: factory.ForTenant(record),
		users:   users,
		sink:    sink,
		record:  record,
		db:      conn,
	}
}

func TestAdapterURLs(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "https://vasp2.example.com/payreq/tok123", f.adapter.PayReqURL("tok123"))
	assert.Equal(t, "https://vasp2.example.com/utxocallback", f.adapter.UtxoCallbackURL())
}

func TestAdapterKeysAndBounds(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "aa", f.adapter.SigningPubKey())
	assert.Equal(t, "bb", f.adapter.EncryptionPubKey())
	assert.Equal(t, int64(1_000), f.adapter.MinSendableMsats())
	assert.Equal(t, int64(10_000_000_000), f.adapter.MaxSendableMsats())
	assert.True(t, f.adapter.PayerDataOptions()["identifier"])
	assert.True(t, f.adapter.PayerDataOptions()["compliance"])
}

func TestAdapterUserLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.users.Create(ctx, f.record.Tables.Users, receiverdomain.User{Username: "alice"})
	require.NoError(t, err)
	require.NotEmpty(t, created.CallbackID)

	byName, err := f.adapter.UserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, created.ID, byName.ID)

	byToken, err := f.adapter.UserByCallbackID(ctx, created.CallbackID)
	require.NoError(t, err)
	require.NotNil(t, byToken)
	assert.Equal(t, created.ID, byToken.ID)

	missing, err := f.adapter.UserByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAdapterConversionRate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.adapter.ConversionRate(ctx, "USD", "USD")
	require.NoError(t, err)
	assert.Equal(t, 1.0, r)

	// Currency table answers msat conversions.
	r, err = f.adapter.ConversionRate(ctx, "usd", "MSAT")
	require.NoError(t, err)
	assert.Equal(t, 22_000.0, r)

	r, err = f.adapter.ConversionRate(ctx, "MSAT", "USD")
	require.NoError(t, err)
	assert.InDelta(t, 1.0/22_000, r, 1e-12)

	// Rate provider covers pairs outside the tenant table.
	r, err = f.adapter.ConversionRate(ctx, "EUR", "MSAT")
	require.NoError(t, err)
	assert.Equal(t, 25_000.0, r)

	_, err = f.adapter.ConversionRate(ctx, "XYZ", "MSAT")
	assert.ErrorIs(t, err, ErrUnsupportedConversion)
}

func TestAdapterInvoiceNotConfigured(t *testing.T) {
	f := newFixture(t)

	bare := NewFactory(FactoryParams{Users: f.users, Sink: f.sink})
	adapter := bare.ForTenant(f.record)

	_, err := adapter.CreateInvoice(context.Background(), invoice.Request{AmountMsats: 1000})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAdapterRecordsQuoteAndSettlement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.adapter.RecordQuote(ctx, compliancedomain.PaymentRecord{
		InvoiceRef:   "lnbcdev1",
		AmountMsats:  1000,
		Currency:     "USD",
		SenderDomain: "vasp1.example",
	}))

	payments, err := f.sink.Payments(ctx, f.record.Tables.Payments)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, int64(1000), payments[0].AmountMsats)

	require.NoError(t, f.adapter.RecordSettlement(ctx, "vasp1.example", []protocol.UtxoWithAmount{
		{Utxo: "txid:0", AmountMsats: 150_000},
		{Utxo: "", AmountMsats: 10},
		{Utxo: "txid:1", AmountMsats: 2_000},
	}))

	utxos, err := f.sink.Utxos(ctx, f.record.Tables.Utxos)
	require.NoError(t, err)
	require.Len(t, utxos, 2)
	assert.Equal(t, "txid:0", utxos[0].Utxo)
	assert.Equal(t, int64(150_000), utxos[0].AmountMsats)
	assert.Equal(t, "vasp1.example", utxos[0].SenderDomain)
}
