package main

import (
	"log"
	"os"

	_ "stockroom/api/swagger" // swagger docs
	"stockroom/internal/database"
	"stockroom/internal/handler"
	"stockroom/internal/middleware"
	"stockroom/internal/repository"
	"stockroom/internal/service"
	"stockroom/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Stockroom API
// @version         1.0
// @description     Inventory, request workflow, issuance tracking and asset register backend.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "stockroom"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	itemRepo := repository.NewStockItemRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	discardRepo := repository.NewDiscardRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	issuedRepo := repository.NewIssuedItemRepository(db)
	transferRepo := repository.NewTransferRepository(db)
	assetRepo := repository.NewAssetRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	userService := service.NewUserService(userRepo)
	ledgerService := service.NewLedgerService(itemRepo, purchaseRepo, discardRepo, auditRepo, txManager, wsHub)
	stockService := service.NewStockService(itemRepo, auditRepo, txManager)
	requestService := service.NewRequestService(requestRepo, itemRepo, issuedRepo, auditRepo, ledgerService, txManager)
	issuanceService := service.NewIssuanceService(issuedRepo, requestRepo, transferRepo, userRepo, auditRepo, ledgerService, txManager)
	assetService := service.NewAssetService(assetRepo, auditRepo, txManager)
	reportService := service.NewReportService(db, purchaseRepo, discardRepo)
	auditService := service.NewAuditService(auditRepo)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	stockHandler := handler.NewStockHandler(stockService, ledgerService)
	requestHandler := handler.NewRequestHandler(requestService, issuanceService)
	issuanceHandler := handler.NewIssuanceHandler(issuanceService)
	assetHandler := handler.NewAssetHandler(assetService)
	reportHandler := handler.NewReportHandler(reportService, auditService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// API Routing
	userHandler.RegisterRoutes(router.Group(""))
	stockHandler.RegisterRoutes(router.Group(""))
	requestHandler.RegisterRoutes(router.Group(""))
	issuanceHandler.RegisterRoutes(router.Group(""))
	assetHandler.RegisterRoutes(router.Group(""))
	reportHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
