package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lokapasar/lokapasar/internal/config"
	"github.com/lokapasar/lokapasar/internal/disbursement"
	"github.com/lokapasar/lokapasar/internal/enrollment"
	enrollmentservice "github.com/lokapasar/lokapasar/internal/enrollment/service"
	"github.com/lokapasar/lokapasar/internal/metrics"
	"github.com/lokapasar/lokapasar/internal/payment"
	paymentservice "github.com/lokapasar/lokapasar/internal/payment/service"
	"github.com/lokapasar/lokapasar/internal/ratelimit"
	"github.com/lokapasar/lokapasar/internal/tenant"
	tenantservice "github.com/lokapasar/lokapasar/internal/tenant/service"
	"github.com/lokapasar/lokapasar/internal/transaction"
	transactionservice "github.com/lokapasar/lokapasar/internal/transaction/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	metrics.Module,
	transaction.Module,
	enrollment.Module,
	tenant.Module,
	disbursement.Module,
	payment.Module,
	ratelimit.Module,
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	txSvc        *transactionservice.Service
	enrollSvc    *enrollmentservice.Service
	tenantSvc    *tenantservice.Service
	paymentSvc   *paymentservice.Service
	licenseCache *licenseCache
	webhookLimit *ratelimit.WebhookLimiter
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	TxSvc        *transactionservice.Service
	EnrollSvc    *enrollmentservice.Service
	TenantSvc    *tenantservice.Service
	PaymentSvc   *paymentservice.Service
	WebhookLimit *ratelimit.WebhookLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("http.server"),
		txSvc:        p.TxSvc,
		enrollSvc:    p.EnrollSvc,
		tenantSvc:    p.TenantSvc,
		paymentSvc:   p.PaymentSvc,
		licenseCache: newLicenseCache(p.Cfg.LicenseCacheTTL),
		webhookLimit: p.WebhookLimit,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func registerRoutes(s *Server) {
	s.RegisterRoutes()
}

// RegisterRoutes wires the storefront surface. The license gate runs before
// route handlers so every tenant-scoped request is checked exactly once.
func (s *Server) RegisterRoutes() {
	s.engine.Use(s.LicenseGate())

	s.engine.GET("/blocked", s.Blocked)

	api := s.engine.Group("/api")

	// -------- Transactions --------
	api.POST("/transactions", s.CreateTransaction)
	api.GET("/transactions/:id", s.GetTransaction)
	api.POST("/transactions/:id/approval", s.ApproveTransaction)
	api.POST("/transactions/:id/proof", s.AttachTransactionProof)

	// -------- Payment Notifications --------
	api.POST("/payments/notifications", s.HandlePaymentNotification)
	api.POST("/payments/notifications/:provider", s.HandlePaymentNotification)

	// -------- Entitlements --------
	api.POST("/access/validate", s.ValidateAccess)
}
