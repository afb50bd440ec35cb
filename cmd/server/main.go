package main

import (
	"context"                   // context package is needed for Redis operations
	"log"                       // log package is needed for logging
	"roomy/internal/api"        // API handlers
	"roomy/internal/config"     // Configuration
	"roomy/internal/gateway"    // Transfer intent gateway
	"roomy/internal/middleware" // Middleware
	"roomy/internal/service"    // Business logic

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Connect to the database
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Select the transfer gateway: real provider when configured, mock otherwise
	var gw gateway.Client
	if cfg.GatewayURL != "" {
		gw = gateway.NewHTTPClient(cfg.GatewayURL, cfg.GatewayAPIKey, cfg.GatewayTimeout)
		logrus.WithField("url", cfg.GatewayURL).Info("Using HTTP transfer gateway")
	} else {
		gw = gateway.NewMock()
		logrus.Warn("No GATEWAY_URL configured, using mock transfer gateway")
	}

	// Services share one store handle; no global singletons
	membership := service.NewMembership(db)
	groups := service.NewGroupService(db, redisClient)
	bills := service.NewBillService(db)
	proposals := service.NewProposalService(db)
	transactions := service.NewTransactionService(db, gw)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default() // Gin router instance
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Auth routes
	r.POST("/auth/register", api.RegisterHandler(db))
	r.POST("/auth/login", api.LoginHandler(db, redisClient, cfg.JWTSecret))

	// Authenticated routes
	authed := r.Group("/")
	authed.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))

	// Group routes
	authed.POST("/groups", api.CreateGroupHandler(groups))
	authed.GET("/groups/:id", api.GetGroupHandler(groups, redisClient))
	authed.PATCH("/groups/:id", api.UpdateGroupHandler(groups, redisClient))
	authed.DELETE("/groups/:id", api.DisableGroupHandler(groups, redisClient))
	authed.POST("/groups/:id/invites", api.CreateInviteHandler(groups))
	authed.POST("/invites/redeem", api.JoinGroupHandler(groups, redisClient))
	authed.GET("/groups/:id/members", api.ListMembersHandler(groups, membership))
	authed.PUT("/groups/:id/members/role", api.SetMemberRoleHandler(groups, redisClient))
	authed.DELETE("/groups/:id/members/:userID", api.RemoveMemberHandler(groups, redisClient))
	authed.GET("/groups/:id/bills", api.ListGroupBillsHandler(bills, redisClient))
	authed.GET("/groups/:id/transactions", api.ListGroupTransactionsHandler(transactions))

	// Bill routes
	authed.POST("/bills", api.CreateBillHandler(bills, redisClient))
	authed.GET("/bills/:id", api.GetBillHandler(bills))
	authed.PATCH("/bills/:id", api.UpdateBillHandler(bills, redisClient))
	authed.DELETE("/bills/:id", api.DeleteBillHandler(bills, redisClient))

	// Proposal routes
	authed.POST("/proposals", api.CreateProposalHandler(proposals, redisClient))
	authed.GET("/proposals/:id", api.GetProposalHandler(proposals))
	authed.POST("/proposals/:id/votes", api.VoteHandler(proposals, redisClient))
	authed.POST("/proposals/:id/execute", api.ExecuteProposalHandler(proposals))

	// Transaction routes
	authed.POST("/payments", api.CreatePaymentHandler(transactions))
	authed.POST("/deposits", api.RecordDepositHandler(transactions))
	authed.POST("/transactions/:id/refresh", api.RefreshTransactionHandler(transactions))

	// Admin routes (platform admins only)
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.AdminOnlyMiddleware(db))
	adminGroup.GET("/users", api.ListUsersHandler(db, redisClient))
	adminGroup.GET("/transactions", api.ListTransactionsHandler(db, redisClient))
	adminGroup.POST("/proposals/expire", api.ExpireProposalsHandler(proposals))
	adminGroup.POST("/bills/recurring", api.SpawnRecurringHandler(bills))

	log.Println("Server running on " + cfg.AppPort)
	r.Run(":" + cfg.AppPort) // Start the server
}
