package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/tsanders-rh/costctl/internal/api"
	"github.com/tsanders-rh/costctl/internal/archive"
	"github.com/tsanders-rh/costctl/internal/cache"
	"github.com/tsanders-rh/costctl/internal/fleet"
	"github.com/tsanders-rh/costctl/internal/report"
	"github.com/tsanders-rh/costctl/internal/scaling"
	"github.com/tsanders-rh/costctl/internal/store"
	"github.com/tsanders-rh/costctl/internal/worker"

	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func main() {
	// Load configuration from environment
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "postgres://localhost:5432/costctl?sslmode=disable"
	}

	fleetsDir := os.Getenv("FLEETS_DIR")
	if fleetsDir == "" {
		fleetsDir = "internal/fleet/definitions"
	}

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		fmt.Sscanf(portStr, "%d", &port)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	enableAuth := jwtSecret != ""
	if !enableAuth {
		log.Println("WARNING: JWT_SECRET not set, API authentication is disabled")
		jwtSecret = "change-me-in-production-min-32-chars"
	}

	topicARN := os.Getenv("ALERT_TOPIC_ARN")
	archiveBucket := os.Getenv("ARCHIVE_BUCKET")
	redisURL := os.Getenv("REDIS_URL")

	// Initialize store
	log.Println("Connecting to database...")
	st, err := store.NewStore(dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()

	// Initialize fleet registry
	log.Println("Loading fleet profiles...")
	registry, err := fleet.NewRegistry(fleet.NewLoader(fleetsDir))
	if err != nil {
		log.Fatalf("Failed to load fleets: %v", err)
	}
	log.Printf("Loaded %d enabled fleet(s)", len(registry.List()))

	// AWS clients
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatalf("Failed to load AWS configuration: %v", err)
	}

	assemblers := report.NewAWSAssemblerFactory(awsCfg, topicARN)

	// Optional latest-report cache
	var reportCache cache.Cache
	if redisURL != "" {
		rc, err := cache.NewRedisCache(redisURL)
		if err != nil {
			log.Printf("Failed to connect to Redis, caching disabled: %v", err)
		} else {
			reportCache = rc
		}
	}

	// Cycle runner shared with the worker binary's semantics
	optimizer := worker.NewOptimizer(registry, assemblers).WithStore(st)
	if reportCache != nil {
		optimizer.WithCache(reportCache, time.Hour)
	}
	if archiveBucket != "" {
		optimizer.WithArchiver(archive.NewArchiver(s3.NewFromConfig(awsCfg), archiveBucket, ""))
	}

	appliers := func(f *fleet.Fleet) api.CapacityApplier {
		cfg := awsCfg.Copy()
		cfg.Region = f.Region
		return scaling.NewClient(autoscaling.NewFromConfig(cfg), f)
	}

	// Create server config
	config := api.DefaultServerConfig()
	config.Port = port
	config.JWTSecret = jwtSecret
	config.EnableAuth = enableAuth

	log.Printf("Server configured:")
	log.Printf("  Port: %d", config.Port)
	log.Printf("  Auth enabled: %v", config.EnableAuth)

	server := api.NewServer(config, api.Deps{
		Store:      st,
		Cache:      reportCache,
		Registry:   registry,
		Runner:     optimizer,
		Assemblers: assemblers,
		Appliers:   appliers,
	})

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
