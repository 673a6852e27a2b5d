// Package main is the entry point for the clusterer server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atlasmap-sc/clusterer/internal/api"
	"github.com/atlasmap-sc/clusterer/internal/cache"
	"github.com/atlasmap-sc/clusterer/internal/config"
	"github.com/atlasmap-sc/clusterer/internal/render"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config/server.yaml", "Path to configuration file")
	featuresPath := flag.String("features", "", "Optional GeoJSON FeatureCollection loaded into a session at startup")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting clusterer server on port %d", cfg.Server.Port)

	ctx := context.Background()

	// Initialize cache manager (shared across all sessions)
	cacheManager, err := cache.NewManager(cache.Config{
		IconCacheSizeMB: cfg.Cache.IconSizeMB,
		IconTTL:         time.Duration(cfg.Cache.IconTTLMinutes) * time.Minute,
		QueryCacheSize:  cfg.Cache.QueryCacheSize,
	})
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	defer cacheManager.Close()

	iconRenderer := render.NewIconRenderer(render.Config{
		DefaultColormap: cfg.Render.DefaultColormap,
		MaxIconSize:     cfg.Render.MaxIconSize,
	})

	engineCfg := cfg.Cluster.Engine()
	log.Printf("Cluster options: grid_size=%g, max_zoom=%d, min_cluster_size=%d, average_center=%v",
		engineCfg.GridSize, engineCfg.MaxZoom, engineCfg.MinClusterSize, engineCfg.AverageCenter)

	registry := api.NewSessionRegistry(api.SessionRegistryConfig{
		Engine:        engineCfg,
		Cache:         cacheManager,
		DefaultWidth:  cfg.Viewport.Width,
		DefaultHeight: cfg.Viewport.Height,
		Title:         cfg.Server.Title,
		MaxSessions:   cfg.Server.MaxSessions,
		SessionTTL:    time.Duration(cfg.Server.SessionTTLMinutes) * time.Minute,
	})
	registry.Start()
	defer registry.Stop()

	if *featuresPath != "" {
		if err := preload(registry, *featuresPath); err != nil {
			log.Fatalf("Failed to preload features: %v", err)
		}
	}

	// Set up HTTP router
	router := api.NewRouter(api.RouterConfig{
		Registry:    registry,
		CORSOrigins: cfg.Server.CORSOrigins,
		Cache:       cacheManager,
		Renderer:    iconRenderer,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on http://localhost:%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// preload opens a session holding the features of a GeoJSON file.
func preload(registry *api.SessionRegistry, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	svc, err := registry.Create()
	if err != nil {
		return err
	}
	n, err := svc.Load(data)
	if err != nil {
		registry.Delete(svc.ID())
		return err
	}
	log.Printf("  Preloaded %d features from %s into session %s", n, path, svc.ID())
	return nil
}
