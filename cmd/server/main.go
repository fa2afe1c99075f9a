package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/equineenclave/backend/docs"
	"github.com/equineenclave/backend/internal/config"
	"github.com/equineenclave/backend/internal/database"
	"github.com/equineenclave/backend/internal/handlers"
	mW "github.com/equineenclave/backend/internal/middleware"
	"github.com/equineenclave/backend/internal/services"
)

// @title Equine Enclave Backend API
// @version 1.0
// @description API for riding school session tracking and billing
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env
	viper.ReadInConfig()        // read .env file

	// Set environment variable prefix
	viper.SetEnvPrefix("")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")
	viper.BindEnv("admin.initial_password", "ADMIN_INITIAL_PASSWORD")

	viper.SetDefault("jwt.expiry_hours", 24)
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)
	viper.SetDefault("admin.initial_password", "admin123")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "Equine Enclave Backend API"
	docs.SwaggerInfo.Description = "API for riding school session tracking and billing"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize services
	db := database.InitDatabase()
	defer database.CloseDB()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	batchCfg := config.LoadBatchConfig()

	batchService := services.NewBatchService(db, batchCfg)
	ledgerService := services.NewLedgerService(db, batchService, batchCfg)
	riderService := services.NewRiderService(db, redisClient, ledgerService, batchService, batchCfg)
	rideService := services.NewRideService(db)
	authService := services.NewAuthService(db, redisClient)
	passService := services.NewPassService(db, redisClient, ledgerService)
	passHandler := handlers.NewPassHandler(passService)

	if err := authService.SeedAdmin(context.Background()); err != nil {
		log.Printf("Warning: Failed to seed admin account: %v", err)
	}

	// Initialize auth middleware with Redis
	mW.InitAuthMiddleware(redisClient)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// Static file server for horse photos
	r.Handle("/static/horses/*", http.StripPrefix("/static/horses/",
		mW.StaticFileServer("./static/horses")))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/auth/verify", authService.Verify)

			// Rider endpoints
			r.Get("/riders", riderService.ListRiders)
			r.Post("/riders", riderService.CreateRider)
			r.Post("/riders/seed", riderService.SeedRiders)
			r.Get("/riders/batches", riderService.ListBatchesWithRiders)
			r.Get("/riders/{id}", riderService.GetRider)
			r.Put("/riders/{id}", riderService.UpdateRider)
			r.Delete("/riders/{id}", riderService.DeleteRider)
			r.Patch("/riders/{id}/checkin", riderService.CheckInRider)
			r.Patch("/riders/{id}/pay", riderService.PayFees)
			r.Patch("/riders/{id}/move", riderService.MoveRider)

			// Batch registry endpoints
			r.Get("/batches", batchService.ListBatches)
			r.Post("/batches", batchService.CreateBatch)
			r.Post("/batches/seed", batchService.SeedBatches)
			r.Put("/batches/{id}", batchService.UpdateBatch)
			r.Put("/batches/by-type/{batchType}/{batchIndex}", batchService.UpdateBatchByType)
			r.Delete("/batches/{id}", batchService.DeleteBatch)

			// Ride log endpoints
			r.Get("/rides", rideService.ListRides)
			r.Get("/rides/stats/summary", rideService.StatsSummary)
			r.Get("/rides/rider/{riderId}", rideService.RidesByRider)
			r.Get("/rides/{id}", rideService.GetRide)
			r.Delete("/rides/{id}", rideService.DeleteRide)

			// Pass endpoints
			r.Post("/passes/generate", passHandler.GeneratePass)
			r.Post("/passes/redeem", passHandler.RedeemPass)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
