package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tsanders-rh/costctl/internal/archive"
	"github.com/tsanders-rh/costctl/internal/cache"
	"github.com/tsanders-rh/costctl/internal/fleet"
	"github.com/tsanders-rh/costctl/internal/janitor"
	"github.com/tsanders-rh/costctl/internal/report"
	"github.com/tsanders-rh/costctl/internal/store"
	"github.com/tsanders-rh/costctl/internal/worker"
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

	topicARN := os.Getenv("ALERT_TOPIC_ARN")
	if topicARN == "" {
		log.Println("WARNING: ALERT_TOPIC_ARN not set. Critical cost alerts will not be dispatched.")
	}

	archiveBucket := os.Getenv("ARCHIVE_BUCKET")
	redisURL := os.Getenv("REDIS_URL")

	cycleInterval := time.Hour
	if raw := os.Getenv("CYCLE_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("Invalid CYCLE_INTERVAL %q: %v", raw, err)
		}
		cycleInterval = d
	}

	// Initialize store
	log.Println("Connecting to database...")
	st, err := store.NewStore(dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Database connection successful")

	// Initialize fleet registry
	registry, err := fleet.NewRegistry(fleet.NewLoader(fleetsDir))
	if err != nil {
		log.Fatalf("Failed to load fleets: %v", err)
	}
	log.Printf("Loaded %d enabled fleet(s)", len(registry.List()))

	// AWS clients
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatalf("Failed to load AWS configuration: %v", err)
	}

	optimizer := worker.NewOptimizer(registry, report.NewAWSAssemblerFactory(awsCfg, topicARN)).
		WithStore(st)

	if redisURL != "" {
		rc, err := cache.NewRedisCache(redisURL)
		if err != nil {
			log.Printf("Failed to connect to Redis, caching disabled: %v", err)
		} else {
			optimizer.WithCache(rc, 2*cycleInterval)
		}
	}

	if archiveBucket != "" {
		optimizer.WithArchiver(archive.NewArchiver(s3.NewFromConfig(awsCfg), archiveBucket, ""))
	}

	// Create worker
	workerConfig := worker.DefaultConfig()
	workerConfig.CycleInterval = cycleInterval

	w := worker.NewWorker(workerConfig, optimizer)

	// Create janitor
	j := janitor.NewJanitor(janitor.DefaultConfig(), st)

	// Start worker and janitor in separate goroutines
	workerCtx, workerCancel := context.WithCancel(context.Background())
	janitorCtx, janitorCancel := context.WithCancel(context.Background())

	go func() {
		if err := w.Start(workerCtx); err != nil && err != context.Canceled {
			log.Printf("Worker error: %v", err)
		}
	}()

	go func() {
		if err := j.Start(janitorCtx); err != nil && err != context.Canceled {
			log.Printf("Janitor error: %v", err)
		}
	}()

	log.Println("Worker and janitor started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker and janitor...")

	workerCancel()
	janitorCancel()

	log.Println("Shutdown complete")
}
