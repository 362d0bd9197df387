package main

import (
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/poi-recon/internal/config"
	"github.com/poi-recon/internal/session"
	"github.com/poi-recon/internal/web"
)

// Standalone entry for the reconciliation HTTP API; equivalent to
// `reconciler serve` but deployable on its own.
func main() {
	if err := config.LoadEnv(); err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	webConfig := web.ConfigFromEnv()
	fmt.Printf("=== POI Reconciliation Web Interface ===\n")
	fmt.Printf("Server: http://%s:%d\n", webConfig.Server.Host, webConfig.Server.Port)
	fmt.Printf("Jobs file: %s\n", config.JobStorePath())
	fmt.Println("\nFeatures enabled:")
	fmt.Printf("  - Export: %v\n", webConfig.Features.ExportEnabled)
	fmt.Printf("  - Manual Override: %v\n", webConfig.Features.ManualOverrideEnabled)
	fmt.Println()

	store := session.NewStore(config.JobStorePath())
	server, err := web.NewServer(webConfig, store, config.MatchSettings(), config.CachePath(), logger)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	if err := server.Start(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
