package router

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/polkiloo/orderflow/internal/config"
	"github.com/polkiloo/orderflow/internal/metrics"
	pkgAuth "github.com/polkiloo/orderflow/internal/pkg/auth"
	"github.com/polkiloo/orderflow/internal/server/http/handlers"
	"github.com/polkiloo/orderflow/internal/server/http/middleware"
)

// Params lists router dependencies.
type Params struct {
	fx.In

	Facade  handlers.OrderFacade
	Health  handlers.HealthChecker `optional:"true"`
	Metrics *metrics.Metrics       `optional:"true"`
	Hasher  pkgAuth.PasswordHasher
	Config  *config.Config
	Logger  *zap.Logger
}

// Setup configures gin router with handlers and middleware.
func Setup(p Params) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(p.Logger.Named("http")))
	if p.Metrics != nil {
		engine.Use(middleware.Metrics(p.Metrics))
	}
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	templates, err := handlers.Templates()
	if err != nil {
		return nil, err
	}
	respond := handlers.NewResponder(p.Config.HTTP.Locale)
	dashboardHandler := handlers.NewDashboardHandler(p.Facade, templates, respond, p.Logger)
	orderHandler := handlers.NewOrderHandler(p.Facade, respond, p.Logger)
	paymentHandler := handlers.NewPaymentHandler(p.Facade, templates, respond, p.Logger.Named("payments"))

	engine.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/dashboard") })
	engine.GET("/healthz", handlers.Health(p.Health))
	if p.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(p.Metrics.Handler()))
	}

	admin := engine.Group("")
	admin.Use(middleware.AdminAuth(p.Config.HTTP.AdminUser, p.Config.HTTP.AdminPasswordHash, p.Hasher))
	admin.GET("/dashboard", dashboardHandler.Show)
	admin.GET("/process-pending-orders", orderHandler.ProcessPending)
	admin.GET("/retry-failed-orders", orderHandler.RetryFailed)

	payment := engine.Group("/payment")
	payment.GET("/success", paymentHandler.Success)
	payment.GET("/cancel", paymentHandler.Cancel)
	payment.GET("/complete", paymentHandler.Complete)
	payment.GET("/failed", paymentHandler.Failed)
	payment.GET("/cancelled", paymentHandler.Cancelled)

	return engine, nil
}
