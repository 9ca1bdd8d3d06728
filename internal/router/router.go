package router

import (
	"configas/config"
	"configas/internal/handler"
	"configas/internal/middleware"
	"configas/internal/poller"
	"configas/internal/repository"
	"configas/internal/service"
	"configas/internal/store"
	"configas/internal/ws"
	"configas/pkg/cep"
	"configas/pkg/cloudinary"
	"configas/pkg/cpf"
	"configas/pkg/gateway"
	"configas/pkg/sms"
	"configas/pkg/utmify"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Setup wires the whole checkout service and returns the engine together
// with the charge watcher manager, which main resumes and shuts down.
func Setup(cfg *config.Config, db *gorm.DB, cloud cloudinary.Client) (*gin.Engine, *poller.Manager) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	// Skip gin.Logger() to reduce log noise; use gin.Default() if you need request logging
	limiter := middleware.NewRateLimiter()

	// Repositories
	orderRepo := repository.NewOrderRepository(db)
	chargeRepo := repository.NewChargeRepository(db)
	productRepo := repository.NewProductRepository(db)
	operatorRepo := repository.NewOperatorRepository(db)
	utmifyRepo := repository.NewUtmifyRepository(db)
	reminderRepo := repository.NewReminderRepository(db)

	kv := store.NewGormStore(db)
	hub := ws.NewHub()

	// Gateways and collaborator clients
	registry := gateway.FromConfig(&cfg.Gateways)
	selector := gateway.NewSelector(registry, kv)
	utmifyClient := utmify.NewClient(cfg.Utmify.BaseURL, cfg.Utmify.APIToken)
	dispatcher := utmify.NewDispatcher(utmifyClient, kv)
	smsClient := sms.NewClient(cfg.Sms.BaseURL, cfg.Sms.APIKey)
	cepClient := cep.NewClient(cfg.Lookup.CepBaseURL)
	cpfClient := cpf.NewClient(cfg.Lookup.CpfBaseURL)

	// Services
	paymentSvc := service.NewPaymentService(cfg, orderRepo, chargeRepo, utmifyRepo, kv, dispatcher, hub)
	reminderSvc := service.NewReminderService(chargeRepo, reminderRepo, smsClient, cfg.Sms.ReminderDelay)
	watchers := poller.NewManager(&cfg.Checkout, registry, chargeRepo, paymentSvc)

	// Handlers
	checkoutHandler := handler.NewCheckoutHandler(cfg, selector, registry, orderRepo, chargeRepo,
		productRepo, kv, paymentSvc, reminderSvc, watchers, dispatcher)
	webhookHandler := handler.NewWebhookHandler(chargeRepo, paymentSvc, watchers)
	adminHandler := handler.NewAdminHandler(cfg, operatorRepo, registry, selector)
	productHandler := handler.NewProductHandler(productRepo, cloud)
	lookupHandler := handler.NewLookupHandler(cepClient, cpfClient)

	operatorMw := middleware.OperatorRequired(&cfg.JWT)

	api := r.Group("/api/v1")
	{
		public := limiter.Limit("public", middleware.PublicBudget)

		checkout := api.Group("/checkout")
		{
			checkout.POST("/session", public, checkoutHandler.OpenSession)
			// Charge creation calls out to paid gateway APIs; tight budget.
			checkout.POST("/charges", limiter.Limit("charge", middleware.ChargeBudget), checkoutHandler.CreateCharge)
			checkout.GET("/charges/:id", public, checkoutHandler.ChargeStatus)
		}

		api.GET("/products", public, productHandler.List)
		api.POST("/cep", public, lookupHandler.Cep)
		api.POST("/cpf", public, lookupHandler.Cpf)

		// Webhooks are deliberately unthrottled; providers disable postbacks
		// that keep failing.
		webhooks := api.Group("/webhooks")
		{
			webhooks.POST("/ezzpag", webhookHandler.Ezzpag)
			webhooks.POST("/ghost", webhookHandler.Ghost)
			webhooks.POST("/umbrela", webhookHandler.Umbrela)
			webhooks.POST("/blackcat", webhookHandler.BlackCat)
		}

		admin := api.Group("/admin")
		{
			admin.POST("/login", limiter.Limit("login", middleware.LoginBudget), adminHandler.Login)
			admin.GET("/gateways", operatorMw, adminHandler.Gateways)
			admin.PUT("/gateways/selection", operatorMw, adminHandler.SetSelection)
			admin.DELETE("/gateways/selection", operatorMw, adminHandler.ResetSelection)

			admin.POST("/products", operatorMw, productHandler.Create)
			admin.PUT("/products/:id", operatorMw, productHandler.Update)
			admin.DELETE("/products/:id", operatorMw, productHandler.Delete)
			admin.POST("/products/:id/image", operatorMw, productHandler.UploadImage)
		}
	}

	r.GET("/ws/checkout", ws.UpgradeCheckoutWS(hub))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r, watchers
}
