package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/uplinehq/agencytree-backend/internal/clients/crm"
	"github.com/uplinehq/agencytree-backend/internal/clients/redis"
	"github.com/uplinehq/agencytree-backend/internal/handlers"
	"github.com/uplinehq/agencytree-backend/internal/logger"
	"github.com/uplinehq/agencytree-backend/internal/observability"
	"github.com/uplinehq/agencytree-backend/internal/server"
	"github.com/uplinehq/agencytree-backend/internal/services"
	"github.com/uplinehq/agencytree-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Observability
	metrics := observability.Init(log)
	metrics.StartRedisCollector(ctx, log, strings.TrimSpace(os.Getenv("REDIS_ADDR")))
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "agencytree-backend",
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})
	if otelShutdown != nil {
		defer func() { _ = otelShutdown(context.Background()) }()
	}

	// Clients
	log.Info("Setting up clients from main...")
	crmClient, err := crm.NewFromEnv(log)
	if err != nil {
		log.Error("Could not init CRM client", "error", err)
		os.Exit(1)
	}
	snapshotCache, err := redis.NewSnapshotCache(log)
	if err != nil {
		log.Warn("Snapshot cache unavailable, serving without cache", "error", err)
		snapshotCache = nil
	}
	if snapshotCache != nil {
		defer func() { _ = snapshotCache.Close() }()
	}

	// Services
	log.Info("Setting up services from main...")
	fieldMapService, err := services.NewFieldMapService(log)
	if err != nil {
		log.Error("Could not init FieldMapService", "error", err)
		os.Exit(1)
	}
	hierarchyService, err := services.NewHierarchyService(log, crmClient, snapshotCache, fieldMapService)
	if err != nil {
		log.Error("Could not init HierarchyService", "error", err)
		os.Exit(1)
	}

	// Handlers
	log.Info("Setting up handlers from main...")
	hierarchyHandler := handlers.NewHierarchyHandler(log, hierarchyService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		Log:              log,
		Metrics:          metrics,
		HierarchyHandler: hierarchyHandler,
		AllowOrigins:     splitOrigins(os.Getenv("CORS_ALLOW_ORIGINS")),
		APIKey:           os.Getenv("API_KEY"),
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}

func splitOrigins(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
