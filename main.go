package main

import (
	"log"
	"net/http"
	"strings"

	"github.com/bits-his/nibbes-api/config"
	"github.com/bits-his/nibbes-api/controllers"
	"github.com/bits-his/nibbes-api/middleware"
	"github.com/bits-his/nibbes-api/models"
	"github.com/bits-his/nibbes-api/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Basic logging
	log.Println("Starting Nibbes restaurant API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := db.AutoMigrate(
		&models.User{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	// Image storage is optional: without a bucket the menu simply has no photos
	if cfg.AWSS3Bucket != "" {
		s3Service, err := services.InitS3Service()
		if err != nil {
			log.Fatalf("Failed to initialize S3 service: %v", err)
		}
		services.InitImageService(s3Service)
		log.Println("Image storage initialized")
	} else {
		log.Println("AWS_S3_BUCKET not set, menu image uploads disabled")
	}

	// The change broadcaster lives for the whole server process
	services.InitBroadcastService()

	router := setupRouter(cfg)

	// Start server
	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter initializes the Gin router with all middleware and routes
func setupRouter(cfg *config.Config) *gin.Engine {
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	if cfg.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(cfg.AllowedOrigins, ",")
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Database status endpoint
		v1.GET("/database/status", databaseStatus)

		// Public menu browsing
		v1.GET("/menu", controllers.ListMenuItems)
		v1.GET("/menu/:id", controllers.GetMenuItem)

		// Real-time order events; the socket itself is unauthenticated,
		// the events carry identities only
		v1.GET("/ws", controllers.ServeOrderEvents)

		// Everything below requires a valid token
		authorized := v1.Group("")
		authorized.Use(middleware.EnsureValidToken(cfg))
		{
			authorized.POST("/users", controllers.CreateUser)
			authorized.GET("/users/me", controllers.GetMyProfile)
			authorized.PUT("/users/me", controllers.UpdateMyProfile)

			authorized.POST("/menu", controllers.CreateMenuItem)
			authorized.PUT("/menu/:id", controllers.UpdateMenuItem)
			authorized.DELETE("/menu/:id", controllers.DeleteMenuItem)
			authorized.POST("/menu/:id/image", controllers.UploadMenuItemImage)

			authorized.POST("/orders", controllers.CreateOrder)
			authorized.GET("/orders", controllers.ListOrders)
			authorized.GET("/orders/:id", controllers.GetOrder)
			authorized.PATCH("/orders/:id/status", controllers.UpdateOrderStatus)

			authorized.POST("/orders/:id/payment", controllers.RecordPayment)
			authorized.GET("/orders/:id/payment", controllers.GetPayment)

			authorized.GET("/reports/sales", controllers.GetSalesReport)
		}
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Nibbes restaurant API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	// Ping the database to verify connection
	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	// Get list of tables
	var tables []string
	if err := db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public'").Scan(&tables).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
