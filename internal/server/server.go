package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/umagate/umagate/internal/clock"
	"github.com/umagate/umagate/internal/compliance"
	"github.com/umagate/umagate/internal/config"
	"github.com/umagate/umagate/internal/invoice"
	"github.com/umagate/umagate/internal/observability"
	obsmiddleware "github.com/umagate/umagate/internal/observability/logger"
	obsmetrics "github.com/umagate/umagate/internal/observability/metrics"
	obstracing "github.com/umagate/umagate/internal/observability/tracing"
	"github.com/umagate/umagate/internal/protocol"
	"github.com/umagate/umagate/internal/protocol/nonce"
	"github.com/umagate/umagate/internal/protocol/pubkeys"
	"github.com/umagate/umagate/internal/rate"
	"github.com/umagate/umagate/internal/receiver"
	receiverservice "github.com/umagate/umagate/internal/receiver/service"
	"github.com/umagate/umagate/internal/tenant"
	tenantdomain "github.com/umagate/umagate/internal/tenant/domain"
	"github.com/umagate/umagate/internal/vasp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(config.NewResolverConfigHolder),
	tenant.Module,
	receiver.Module,
	compliance.Module,
	protocol.Module,
	nonce.Module,
	pubkeys.Module,
	rate.Module,
	invoice.Module,
	vasp.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug: obsCfg.Debug(),
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine    *gin.Engine
	cfg       config.Config
	log       *zap.Logger
	clock     clock.Clock
	resolver  *config.ResolverConfigHolder
	directory tenantdomain.Directory
	codec     protocol.Codec
	pubkeys   protocol.PublicKeyCache
	nonces    protocol.NonceValidator
	vasps     *vasp.Factory
	users     *receiverservice.Store
	metrics   *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin       *gin.Engine
	Cfg       config.Config
	Log       *zap.Logger
	Clock     clock.Clock
	Resolver  *config.ResolverConfigHolder
	Directory tenantdomain.Directory
	Codec     protocol.Codec
	PubKeys   protocol.PublicKeyCache
	Nonces    protocol.NonceValidator
	Vasps     *vasp.Factory
	Users     *receiverservice.Store
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:    p.Gin,
		cfg:       p.Cfg,
		log:       p.Log,
		clock:     p.Clock,
		resolver:  p.Resolver,
		directory: p.Directory,
		codec:     p.Codec,
		pubkeys:   p.PubKeys,
		nonces:    p.Nonces,
		vasps:     p.Vasps,
		users:     p.Users,
		metrics:   p.Metrics,
	}

	s.registerProtocolRoutes()
	s.registerAdminRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerProtocolRoutes() {
	wellKnown := s.engine.Group("/.well-known", s.TenantRequired())
	wellKnown.GET("/lnurlpubkey", s.PublishKeys)
	wellKnown.GET("/lnurlp/:username", s.Discovery)

	s.engine.POST("/payreq/:callbackId", s.TenantRequired(), s.Quote)
	s.engine.POST("/utxocallback", s.TenantRequired(), s.SettlementCallback)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin/v1", s.AdminAuthRequired())

	admin.POST("/tenants", s.CreateTenant)
	admin.GET("/tenants", s.ListTenants)
	admin.GET("/tenants/:id", s.GetTenant)
	admin.PATCH("/tenants/:id", s.UpdateTenant)
	admin.DELETE("/tenants/:id", s.DeleteTenant)

	admin.POST("/tenants/:id/users", s.CreateTenantUser)
	admin.GET("/tenants/:id/users", s.ListTenantUsers)
}
