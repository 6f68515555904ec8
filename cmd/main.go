package main

import (
	"context"

	config "product-importer-backend/config"
	"product-importer-backend/middleware"
	"product-importer-backend/tasks"
	"product-importer-backend/utils"

	// Repositories
	import_repositories "product-importer-backend/imports/repositories"
	product_repositories "product-importer-backend/products/repositories"
	webhook_repositories "product-importer-backend/webhooks/repositories"

	// Services
	import_services "product-importer-backend/imports/services"
	webhook_services "product-importer-backend/webhooks/services"

	// Routes
	import_routes "product-importer-backend/imports/routes"
	product_routes "product-importer-backend/products/routes"
	webhook_routes "product-importer-backend/webhooks/routes"

	// WebSocket
	"product-importer-backend/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Initialize Zap logger
	config.InitLogger()

	// Load environment variables
	if err := godotenv.Load(".env"); err != nil {
		config.Logger.Warn("No .env file found, relying on process environment")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 512 * 1024 * 1024, // bulk files can be large
	})

	// Apply CORS middleware from middleware package
	middleware.InitCors(app)

	// Initialize database and configs
	db := config.ConfigureDatabase()
	port := config.GetEnvDefault("PORT", "8080")
	settings := config.LoadImportSettings()
	ctx := context.Background()

	// Redis client for the progress cache; Asynq manages its own connection.
	redisClient := config.InitRedisServer(ctx)

	redisAddr := config.GetEnvDefault("REDIS_ADDRESS", "localhost:6379")
	asynqRedisOpt := asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: config.GetEnvDefault("REDIS_PASSWORD", ""),
		DB:       0,
	}

	asynqClient := asynq.NewClient(asynqRedisOpt)
	defer asynqClient.Close()

	// ------ WebSocket hub for live import progress streams ------
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Repositories
	jobRepo := import_repositories.NewImportJobRepository(db)
	cacheRepo := import_repositories.NewProgressCacheRepository(redisClient)
	productRepo := product_repositories.NewProductRepository(db)
	webhookRepo := webhook_repositories.NewWebhookRepository(db)

	// Services
	enqueuer := tasks.NewEnqueuer(asynqClient)
	sender := webhook_services.NewSender(webhookRepo, settings.WebhookTimeout, config.Logger)
	dispatcher := webhook_services.NewDispatcher(webhookRepo, enqueuer, config.Logger)
	statusService := import_services.NewStatusService(jobRepo, cacheRepo, config.Logger)
	progressPublisher := websocket.NewProgressPublisher(wsHub)
	pipeline := import_services.NewPipeline(
		jobRepo,
		productRepo,
		cacheRepo,
		progressPublisher,
		dispatcher,
		settings.ChunkSize,
		config.Logger,
	)

	// ------ Background worker for imports and webhook deliveries ------
	asynqServer := asynq.NewServer(asynqRedisOpt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			tasks.QueueImports:  6,
			tasks.QueueWebhooks: 4,
		},
	})
	handlers := tasks.NewHandlers(pipeline, webhookRepo, sender, config.Logger)
	go func() {
		if err := asynqServer.Run(handlers.Mux()); err != nil {
			config.Logger.Fatal("Task server failed", zap.Error(err))
		}
	}()

	// Serve stored uploads for operator inspection
	app.Static("/uploads", settings.UploadDir)

	// Routes
	streamHandler := websocket.NewStreamHandler(wsHub, statusService, config.Logger)
	import_routes.ImportRouterInit(app, jobRepo, cacheRepo, statusService, enqueuer, dispatcher, streamHandler, settings)
	product_routes.ProductRouterInit(app, productRepo)
	webhook_routes.WebhookRouterInit(app, webhookRepo, sender)

	// Background cleanup tasks
	go utils.RunScheduledCleanup(redisClient, settings.UploadDir)

	// Start the application
	config.Logger.Info("Server starting with WebSocket support", zap.String("port", port))
	config.Logger.Fatal("Server failed", zap.String("port", port), zap.Error(app.Listen(":"+port)))
}
