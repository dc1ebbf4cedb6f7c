package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/tacit7/poi-markers/internal/api"
	"github.com/tacit7/poi-markers/internal/cluster"
	"github.com/tacit7/poi-markers/internal/config"
	"github.com/tacit7/poi-markers/internal/database"
	"github.com/tacit7/poi-markers/internal/models"
	"github.com/tacit7/poi-markers/internal/repository"
	"github.com/tacit7/poi-markers/internal/service"
)

func main() {
	cfg := config.Load()

	if err := database.Init(database.Config{Path: cfg.DBPath}); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.Close()

	repo := repository.NewPOIRepository(database.GetDB())

	if cfg.SeedPath != "" {
		if err := seedPOIs(repo, cfg.SeedPath); err != nil {
			log.Fatal("Failed to seed POIs:", err)
		}
	}

	batch := cluster.NewBatchProcessor()
	batch.ChunkSize = cfg.ChunkSize
	batch.ChunkTimeout = cfg.ChunkTimeout

	svcCfg := service.DefaultConfig()
	svcCfg.ClusterTTL = cfg.ClusterTTL
	svcCfg.POITTL = cfg.POITTL
	svcCfg.SweepInterval = cfg.SweepInterval
	svcCfg.RequestTimeout = cfg.RequestTimeout
	svcCfg.MinClusterSize = cfg.MinClusterSize

	clusterService := service.NewClusterService(repo, batch, svcCfg)
	defer clusterService.Close()

	router := api.SetupRouter(cfg, clusterService)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// seedPOIs imports a scraped POI dump (JSON array) into the store.
func seedPOIs(repo *repository.POIRepository, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var pois []models.POI
	if err := json.Unmarshal(data, &pois); err != nil {
		return err
	}

	if err := repo.ReplacePOIs(context.Background(), pois); err != nil {
		return err
	}

	log.Printf("Seeded %d POIs from %s", len(pois), path)
	return nil
}
