package server

import (
	"net/http"
	"time"

	"fulfillment/internal/config"
	"fulfillment/internal/handler"
	"fulfillment/internal/idempotency"
	"fulfillment/internal/legacy"
	"fulfillment/internal/logger"
	"fulfillment/internal/middleware"
	"fulfillment/internal/repository"
	"fulfillment/internal/service"
	"fulfillment/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the long-lived collaborators the router is built from.
type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	Log    *zap.Logger
	Store  idempotency.Store
	Hub    *websocket.Hub
	Legacy *legacy.Client
	Clock  service.Clock
}

// NewRouter wires repositories, services and handlers (Repository -> Service -> Handler).
func NewRouter(d Deps) *gin.Engine {
	if d.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	orderRepo := repository.NewOrderRepository(d.DB)
	deliveryRepo := repository.NewDeliveryRepository(d.DB)
	productRepo := repository.NewProductRepository(d.DB)
	batchRepo := repository.NewBatchRepository(d.DB)
	movementRepo := repository.NewMovementRepository(d.DB)
	issueRepo := repository.NewIssueRepository(d.DB)
	auditRepo := repository.NewAuditRepository(d.DB)
	txManager := repository.NewTransactionManager(d.DB)

	var events service.EventPublisher
	if d.Hub != nil {
		events = d.Hub
	}

	inventoryService := service.NewInventoryService(productRepo, batchRepo, movementRepo, deliveryRepo, auditRepo, txManager, events, d.Log, d.Clock)
	orderService := service.NewOrderService(orderRepo, deliveryRepo, productRepo, auditRepo, txManager, events, d.Log, d.Clock)
	deliveryService := service.NewDeliveryService(deliveryRepo, auditRepo, inventoryService, txManager, events, d.Log, d.Clock)
	issueService := service.NewIssueService(issueRepo, deliveryRepo, auditRepo, txManager, events, d.Log, d.Clock)
	reportService := service.NewReportService(orderRepo)
	auditService := service.NewAuditService(auditRepo)

	middleware.SetupValidator()
	router := gin.New()
	router.Use(logger.Recovery(d.Log), logger.GinMiddleware(d.Log), middleware.Actor())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = d.Config.HTTP.CORSAllowOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Accept", middleware.ActorHeader, idempotency.HeaderKey, logger.RequestIDHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{"status": "OK"}
		if sqlDB, err := d.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "DEGRADED"
		}
		c.JSON(status, body)
	})

	if d.Hub != nil {
		router.GET("/ws", func(c *gin.Context) {
			websocket.ServeWs(d.Hub, c)
		})
	}

	ttl := d.Config.Idempotency.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	store := d.Store
	if store == nil {
		store = idempotency.NewMemoryStore()
	}
	idempotent := idempotency.Middleware(store, ttl, d.Log)

	root := router.Group("")
	handler.NewOrderHandler(orderService).RegisterRoutes(root, idempotent)
	handler.NewDeliveryHandler(deliveryService).RegisterRoutes(root, idempotent)
	handler.NewInventoryHandler(inventoryService).RegisterRoutes(root, idempotent)
	handler.NewIssueHandler(issueService).RegisterRoutes(root, idempotent)
	handler.NewReportHandler(reportService).RegisterRoutes(root)
	handler.NewAuditHandler(auditService).RegisterRoutes(root)

	if d.Legacy != nil {
		legacyService := service.NewLegacyService(d.Legacy, orderService, productRepo, deliveryRepo, d.Log)
		handler.NewLegacyHandler(legacyService).RegisterRoutes(root, idempotent)
	}

	return router
}
