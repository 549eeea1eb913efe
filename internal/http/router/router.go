package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/design-orders-backend/internal/config"
	"github.com/ignatzorin/design-orders-backend/internal/http/handlers"
	"github.com/ignatzorin/design-orders-backend/internal/http/middleware"
	"github.com/ignatzorin/design-orders-backend/internal/interface/http/handler"
)

// Handlers собирает все хэндлеры, которые регистрирует роутер.
type Handlers struct {
	Health       *handlers.HealthHandler
	WS           *handlers.WSHandler
	Payment      *handlers.PaymentHandler
	Notification *handlers.NotificationHandler
	DesignOrder  *handler.DesignOrderHandler
}

func SetupRouter(cfg *config.Config, log *logrus.Logger, tokens middleware.TokenParser, h Handlers) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.ErrorHandler(log))
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/ws", h.WS.Handle)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(tokens))

	// Лимит ставится после авторизации, чтобы считать запросы по пользователю.
	limited := protected.Group("")
	limited.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))

	orderID := middleware.UUIDValidator("id")
	orders := h.DesignOrder
	{
		protected.GET("/orders/my", orders.ListMyOrders)
		protected.GET("/orders/:id", orderID, orders.GetOrder)
		protected.GET("/orders/:id/history", orderID, orders.GetHistory)
		protected.GET("/orders/:id/deliverables", orderID, orders.ListDeliverables)

		limited.POST("/orders", orders.CreateOrder)
		limited.POST("/orders/:id/start", orderID, orders.StartWork)
		limited.POST("/orders/:id/deliverables", orderID, orders.UploadDeliverable)
		limited.POST("/orders/:id/deliver", orderID, orders.Deliver)
		limited.POST("/orders/:id/revisions", orderID, orders.RequestRevision)
		limited.POST("/orders/:id/accept", orderID, orders.Accept)
		limited.POST("/orders/:id/dispute", orderID, orders.OpenDispute)
		limited.POST("/orders/:id/cancel", orderID, orders.Cancel)
	}

	// Платежи
	if h.Payment != nil {
		protected.GET("/payments/balance", h.Payment.GetBalance)
		protected.GET("/payments/transactions", h.Payment.ListTransactions)
		protected.GET("/payments/escrow/:orderId", middleware.UUIDValidator("orderId"), h.Payment.GetEscrow)
		limited.POST("/payments/deposit", h.Payment.Deposit)
	}

	if h.Notification != nil {
		protected.GET("/notifications", h.Notification.ListNotifications)
	}

	return r
}
