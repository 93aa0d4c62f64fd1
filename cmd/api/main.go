package main

import (
	"context"
	"log"
	"os"

	_ "erp-backend/api/swagger" // swagger docs
	"erp-backend/internal/database"
	"erp-backend/internal/handler"
	"erp-backend/internal/middleware"
	"erp-backend/internal/production"
	"erp-backend/internal/rbac"
	"erp-backend/internal/repository"
	"erp-backend/internal/service"
	"erp-backend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Manufacturing ERP API
// @version         1.0
// @description     Backend API for customers, orders, raw materials, production and invoicing.
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
		dbName = "postgres"
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

	// Permission table is fixed at startup; checks are in-memory on every request
	evaluator := rbac.NewEvaluator(rbac.DefaultTable())
	auth := middleware.NewAuth(evaluator, middleware.GetJWTSecret())

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	productRepo := repository.NewProductRepository(db)
	materialRepo := repository.NewRawMaterialRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	productionRepo := repository.NewProductionRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	settingRepo := repository.NewSettingRepository(db)

	userService := service.NewUserService(userRepo)
	customerService := service.NewCustomerService(customerRepo, auditRepo, txManager)
	productService := service.NewProductService(productRepo, materialRepo, auditRepo, txManager)
	availabilityChecker := production.NewChecker(materialRepo)
	materialService := service.NewRawMaterialService(materialRepo, auditRepo, txManager, availabilityChecker, wsHub)
	orderService := service.NewOrderService(orderRepo, productRepo, customerRepo, auditRepo, txManager)
	productionService := service.NewProductionService(orderRepo, materialRepo, productionRepo, auditRepo, txManager, wsHub)
	invoiceService := service.NewInvoiceService(invoiceRepo, orderRepo, auditRepo, txManager)
	reportService := service.NewReportService(productionRepo, materialRepo)
	settingService := service.NewSettingService(settingRepo, auditRepo, txManager, evaluator)
	auditService := service.NewAuditService(auditRepo)

	// First boot on an empty database needs an admin to log in with
	if err := userService.SeedDefaultAdmin(context.Background()); err != nil {
		log.Printf("Admin seed skipped: %v", err)
	}

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService, evaluator, auth)
	customerHandler := handler.NewCustomerHandler(customerService, auth)
	productHandler := handler.NewProductHandler(productService, auth)
	materialHandler := handler.NewRawMaterialHandler(materialService, auth)
	orderHandler := handler.NewOrderHandler(orderService, auth)
	productionHandler := handler.NewProductionHandler(productionService, auth)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, auth)
	reportHandler := handler.NewReportHandler(reportService, auth)
	settingHandler := handler.NewSettingHandler(settingService, auth)
	auditHandler := handler.NewAuditHandler(auditService, auth)

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

	// Register API Routes
	root := router.Group("")
	userHandler.RegisterRoutes(root)
	customerHandler.RegisterRoutes(root)
	productHandler.RegisterRoutes(root)
	materialHandler.RegisterRoutes(root)
	orderHandler.RegisterRoutes(root)
	productionHandler.RegisterRoutes(root)
	invoiceHandler.RegisterRoutes(root)
	reportHandler.RegisterRoutes(root)
	settingHandler.RegisterRoutes(root)
	auditHandler.RegisterRoutes(root)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
