package server

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/umagate/umagate/internal/clock"
	compliancerepo "github.com/umagate/umagate/internal/compliance/repository"
	complianceservice "github.com/umagate/umagate/internal/compliance/service"
	"github.com/umagate/umagate/internal/config"
	"github.com/umagate/umagate/internal/invoice"
	"github.com/umagate/umagate/internal/keycipher"
	"github.com/umagate/umagate/internal/protocol"
	"github.com/umagate/umagate/internal/protocol/nonce"
	"github.com/umagate/umagate/internal/rate"
	receiverdomain "github.com/umagate/umagate/internal/receiver/domain"
	receiverrepo "github.com/umagate/umagate/internal/receiver/repository"
	receiverservice "github.com/umagate/umagate/internal/receiver/service"
	tenantdomain "github.com/umagate/umagate/internal/tenant/domain"
	tenantrepo "github.com/umagate/umagate/internal/tenant/repository"
	tenantservice "github.com/umagate/umagate/internal/tenant/service"
	"github.com/umagate/umagate/internal/vasp"
	dbpkg "github.com/umagate/umagate/pkg/db"
	"go.uber.org/zap"
	"golang.org/x/crypto/nacl/box"
	"gorm.io/gorm"
)

const (
	testSenderDomain = "vasp1.example"
	testHost         = "ab.example.com"
)

// stubKeyCache serves preloaded sender key sets without network fetches.
type stubKeyCache struct {
	keys map[string]*protocol.PubKeys
}

func (s *stubKeyCache) Get(ctx context.Context, domain string) (*protocol.PubKeys, error) {
	if keys, ok := s.keys[domain]; ok {
		return keys, nil
	}
	return nil, fmt.Errorf("no published keys for %s", domain)
}

type testEnv struct {
	t      *testing.T
	server *Server
	db     *gorm.DB
	clock  *clock.FakeClock
	sink   *complianceservice.Sink

	directory tenantdomain.Directory
	users     *receiverservice.Store

	// Counterparty credentials the stub key cache vouches for.
	senderSigningPriv ed25519.PrivateKey

	// The serving tenant and its receiver.
	tenant *tenantdomain.Record
	alice  *receiverdomain.User

	// The tenant's encryption key pair, for travel-rule tests.
	tenantEncPub  *[32]byte
	tenantEncPriv *[32]byte
}

type envOption func(*envConfig)

type envConfig struct {
	cfg      config.Config
	resolver config.ResolverConfig
}

func withAppConfig(cfg config.Config) envOption {
	return func(e *envConfig) { e.cfg = cfg }
}

func withResolverRule(rule config.ResolverConfig) envOption {
	return func(e *envConfig) { e.resolver = rule }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	envCfg := envConfig{
		cfg:      config.Config{AppName: "umagate", Environment: "test", NonceRetentionHours: 48},
		resolver: config.DefaultResolverConfig(),
	}
	for _, opt := range opts {
		opt(&envCfg)
	}

	conn, err := dbpkg.NewTest()
	require.NoError(t, err)

	log := zap.NewNop()
	clk := clock.NewFakeClock(time.Now())
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	directory := tenantservice.NewDirectory(log, tenantrepo.NewRepository(conn), keycipher.NewIdentity(), clk)
	require.NoError(t, directory.Initialize(context.Background()))

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
	factory := vasp.NewFactory(vasp.FactoryParams{
		Users:    users,
		Sink:     sink,
		Rates:    rate.NewStatic(nil),
		Invoices: invoice.NewDev(clk),
	})

	senderPub, senderPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	keyCache := &stubKeyCache{keys: map[string]*protocol.PubKeys{
		testSenderDomain: {SigningPubKeyHex: hex.EncodeToString(senderPub)},
	}}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(ErrorHandlingMiddleware())

	srv := NewServer(ServerParams{
		Gin:       engine,
		Cfg:       envCfg.cfg,
		Log:       log,
		Clock:     clk,
		Resolver:  config.NewStaticResolverConfigHolder(envCfg.resolver),
		Directory: directory,
		Codec:     protocol.NewCodec(),
		PubKeys:   keyCache,
		Nonces:    nonce.NewMemoryValidator(clk, nonce.DefaultRetention),
		Vasps:     factory,
		Users:     users,
	})

	return &testEnv{
		t:                 t,
		server:            srv,
		db:                conn,
		clock:             clk,
		sink:              sink,
		directory:         directory,
		users:             users,
		senderSigningPriv: senderPriv,
	}
}

// seedTenant provisions the default serving tenant with a USD currency entry
// and one receiver, alice.
func (e *testEnv) seedTenant() {
	e.t.Helper()
	ctx := context.Background()

	signingPub, signingPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(e.t, err)
	encPub, encPriv, err := box.GenerateKey(rand.Reader)
	require.NoError(e.t, err)
	e.tenantEncPub = encPub
	e.tenantEncPriv = encPriv

	rec, err := e.directory.Add(ctx, tenantdomain.CreateTenantRequest{
		ID:     "vasp2",
		Name:   "VASP Two",
		Domain: testHost,
		SigningKey: tenantdomain.KeyPairInput{
			PublicKeyHex: hex.EncodeToString(signingPub),
			PrivateKey:   signingPriv,
		},
		EncryptionKey: tenantdomain.KeyPairInput{
			PublicKeyHex: hex.EncodeToString(encPub[:]),
			PrivateKey:   encPriv[:],
		},
		Currencies: []tenantdomain.Currency{
			{Code: "USD", Name: "US Dollar", Symbol: "$", MultiplierMsats: 22_000, Decimals: 2},
		},
	})
	require.NoError(e.t, err)
	e.tenant = rec

	alice, err := e.users.Create(ctx, rec.Tables.Users, receiverdomain.User{
		Username:         "alice",
		CallbackID:       "alicecb",
		ComplianceStatus: receiverdomain.ComplianceVerified,
	})
	require.NoError(e.t, err)
	e.alice = alice
}

// seedSecondTenant provisions a second tenant on "cd.example.com" with one
// receiver, carol.
func (e *testEnv) seedSecondTenant(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	signingPub, signingPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	encPub, encPriv, err := box.GenerateKey(rand.Reader)
	require.NoError(t, err)

	rec, err := e.directory.Add(ctx, tenantdomain.CreateTenantRequest{
		ID:     "vasp3",
		Name:   "VASP Three",
		Domain: "cd.example.com",
		SigningKey: tenantdomain.KeyPairInput{
			PublicKeyHex: hex.EncodeToString(signingPub),
			PrivateKey:   signingPriv,
		},
		EncryptionKey: tenantdomain.KeyPairInput{
			PublicKeyHex: hex.EncodeToString(encPub[:]),
			PrivateKey:   encPriv[:],
		},
	})
	require.NoError(t, err)

	_, err = e.users.Create(ctx, rec.Tables.Users, receiverdomain.User{Username: "carol"})
	require.NoError(t, err)
}

func (e *testEnv) get(host, path string) *httptest.ResponseRecorder {
	e.t.Helper()
	req := httptest.NewRequest(http.MethodGet, "http://"+host+path, nil)
	req.Host = host
	w := httptest.NewRecorder()
	e.server.Engine().ServeHTTP(w, req)
	return w
}

func (e *testEnv) postJSON(host, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	e.t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(e.t, err)
	req := httptest.NewRequest(http.MethodPost, "http://"+host+path, bytes.NewReader(raw))
	req.Host = host
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.server.Engine().ServeHTTP(w, req)
	return w
}

func (e *testEnv) request(method, host, path string, body []byte) *httptest.ResponseRecorder {
	e.t.Helper()
	req := httptest.NewRequest(method, "http://"+host+path, bytes.NewReader(body))
	req.Host = host
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.server.Engine().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func requireErrorBody(t *testing.T, w *httptest.ResponseRecorder, status int, reason string) {
	t.Helper()
	require.Equal(t, status, w.Code)
	var body errorResponse
	decodeBody(t, w, &body)
	require.Equal(t, "ERROR", body.Status)
	require.Equal(t, reason, body.Reason)
}
