package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/digiget/digiget/internal/attendance"
	attendancedomain "github.com/digiget/digiget/internal/attendance/domain"
	"github.com/digiget/digiget/internal/audit"
	"github.com/digiget/digiget/internal/auth"
	authdomain "github.com/digiget/digiget/internal/auth/domain"
	"github.com/digiget/digiget/internal/auth/session"
	"github.com/digiget/digiget/internal/config"
	"github.com/digiget/digiget/internal/cooldown"
	"github.com/digiget/digiget/internal/customer"
	customerdomain "github.com/digiget/digiget/internal/customer/domain"
	"github.com/digiget/digiget/internal/employee"
	employeedomain "github.com/digiget/digiget/internal/employee/domain"
	"github.com/digiget/digiget/internal/geocode"
	"github.com/digiget/digiget/internal/ledger"
	ledgerdomain "github.com/digiget/digiget/internal/ledger/domain"
	"github.com/digiget/digiget/internal/liveevents"
	"github.com/digiget/digiget/internal/loyalty"
	loyaltydomain "github.com/digiget/digiget/internal/loyalty/domain"
	"github.com/digiget/digiget/internal/observability"
	obslogger "github.com/digiget/digiget/internal/observability/logger"
	obsmetrics "github.com/digiget/digiget/internal/observability/metrics"
	obstracing "github.com/digiget/digiget/internal/observability/tracing"
	"github.com/digiget/digiget/internal/offer"
	offerdomain "github.com/digiget/digiget/internal/offer/domain"
	"github.com/digiget/digiget/internal/payroll"
	email "github.com/digiget/digiget/internal/providers/email"
	"github.com/digiget/digiget/internal/ratelimit"
	"github.com/digiget/digiget/internal/rating"
	ratingdomain "github.com/digiget/digiget/internal/rating/domain"
	"github.com/digiget/digiget/internal/shop"
	shopdomain "github.com/digiget/digiget/internal/shop/domain"
	"github.com/digiget/digiget/pkg/redisconn"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	audit.Module,
	auth.Module,
	cooldown.Module,
	customer.Module,
	email.Module,
	employee.Module,
	geocode.Module,
	ledger.Module,
	liveevents.Module,
	loyalty.Module,
	attendance.Module,
	offer.Module,
	payroll.Module,
	rating.Module,
	ratelimit.Module,
	redisconn.Module,
	shop.Module,
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

// NewEngine builds the middleware chain shared by all routes: recovery,
// request logging, tracing, metrics and the error-to-JSON mapper.
func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug: obsCfg.Debug(),
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg *config.Config, log *zap.Logger) {
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
	engine        *gin.Engine
	cfg           *config.Config
	db            *gorm.DB
	genID         *snowflake.Node
	sessions      *session.Manager
	authsvc       authdomain.Service
	shopSvc       shopdomain.Service
	customerSvc   customerdomain.Service
	employeeSvc   employeedomain.Service
	loyaltySvc    loyaltydomain.Service
	attendanceSvc attendancedomain.Service
	ledgerSvc     ledgerdomain.Service
	ratingSvc     ratingdomain.Service
	offerSvc      offerdomain.Service
	payrollSvc    payroll.Service
	auditRec      *audit.Recorder
	hub           *liveevents.Hub
	limiter       *ratelimit.SubmissionLimiter
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           *config.Config
	DB            *gorm.DB
	GenID         *snowflake.Node
	Sessions      *session.Manager
	Authsvc       authdomain.Service
	ShopSvc       shopdomain.Service
	CustomerSvc   customerdomain.Service
	EmployeeSvc   employeedomain.Service
	LoyaltySvc    loyaltydomain.Service
	AttendanceSvc attendancedomain.Service
	LedgerSvc     ledgerdomain.Service
	RatingSvc     ratingdomain.Service
	OfferSvc      offerdomain.Service
	PayrollSvc    payroll.Service
	AuditRec      *audit.Recorder
	Hub           *liveevents.Hub              `optional:"true"`
	Limiter       *ratelimit.SubmissionLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		genID:         p.GenID,
		sessions:      p.Sessions,
		authsvc:       p.Authsvc,
		shopSvc:       p.ShopSvc,
		customerSvc:   p.CustomerSvc,
		employeeSvc:   p.EmployeeSvc,
		loyaltySvc:    p.LoyaltySvc,
		attendanceSvc: p.AttendanceSvc,
		ledgerSvc:     p.LedgerSvc,
		ratingSvc:     p.RatingSvc,
		offerSvc:      p.OfferSvc,
		payrollSvc:    p.PayrollSvc,
		auditRec:      p.AuditRec,
		hub:           p.Hub,
		limiter:       p.Limiter,
	}
}

func registerRoutes(s *Server) {
	s.registerAuthRoutes()
	s.registerOwnerRoutes()
	s.registerPublicRoutes()
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	authGroup := s.engine.Group("/auth")

	authGroup.POST("/register", s.LoginRateLimit(), s.Register)
	authGroup.POST("/login", s.LoginRateLimit(), s.Login)
	authGroup.POST("/logout", s.Logout)
	authGroup.GET("/me", s.AuthRequired(), s.Me)
}

func (s *Server) registerOwnerRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	// Shops are the only owner resources addressed without the shop
	// header; everything below scopes through it.
	api.POST("/shops", s.CreateShop)
	api.GET("/shops", s.ListShops)

	scoped := api.Group("", s.ShopContext())

	scoped.GET("/shop", s.GetShop)
	scoped.PATCH("/shop", s.UpdateShop)

	scoped.GET("/customers", s.ListCustomers)
	scoped.POST("/customers", s.EnrollCustomer)
	scoped.GET("/customers/:id", s.GetCustomer)
	scoped.GET("/customers/:id/ledger", s.GetCustomerLedger)
	scoped.GET("/customers/:id/events", s.StreamCustomerEvents)
	scoped.DELETE("/customers/:id", s.DeleteCustomerData)

	scoped.POST("/points/adjust", s.AdjustPoints)
	scoped.POST("/relaxations", s.GrantRelaxation)

	scoped.GET("/visits", s.ListVisits)
	scoped.POST("/visits/:id/approve", s.ApproveVisit)
	scoped.POST("/visits/:id/reject", s.RejectVisit)

	scoped.GET("/employees", s.ListEmployees)
	scoped.POST("/employees", s.CreateEmployee)
	scoped.POST("/employees/:id/reissue-pin", s.ReissuePIN)
	scoped.DELETE("/employees/:id", s.DeactivateEmployee)

	scoped.GET("/shifts", s.ListShifts)
	scoped.POST("/shifts/:id/approve", s.ApproveShift)
	scoped.POST("/shifts/:id/reject", s.RejectShift)

	scoped.GET("/offers", s.ListOffers)
	scoped.POST("/offers", s.CreateOffer)
	scoped.POST("/offers/:id/cancel", s.CancelOffer)

	scoped.GET("/ratings", s.ListRatings)
	scoped.GET("/ratings/summary", s.RatingSummary)

	scoped.GET("/payroll/summary", s.PayrollSummary)
	scoped.GET("/payroll/export.xlsx", s.PayrollExport)

	scoped.GET("/audit-logs", s.ListAuditLogs)
}

func (s *Server) registerPublicRoutes() {
	public := s.engine.Group("/public/shops/:slug", s.PublicShop())

	public.GET("/offers", s.ListLiveOffers)

	public.POST("/checkin", s.CheckInRateLimit(phoneIdentity), s.CustomerCheckIn)
	public.POST("/redeem", s.CheckInRateLimit(phoneIdentity), s.RedeemReward)
	public.GET("/balance", s.CustomerBalance)
	public.POST("/rate", s.CheckInRateLimit(phoneIdentity), s.RateShop)

	public.POST("/clock-in", s.CheckInRateLimit(employeeIdentity), s.ClockIn)
	public.POST("/clock-out", s.ClockOut)
}
