package main

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/GerGh0stface/GhostyPlaytime/internal/config"
	"github.com/GerGh0stface/GhostyPlaytime/internal/format"
	"github.com/GerGh0stface/GhostyPlaytime/internal/ledger"
	"github.com/GerGh0stface/GhostyPlaytime/internal/persistence"
	"github.com/GerGh0stface/GhostyPlaytime/internal/repository"

	"github.com/google/uuid"
)

const (
	TotalPlayers = 10000
	MaxSeconds   = 30 * 24 * 60 * 60 // a month of playtime
)

func main() {
	log.Println("🌱 Starting seeder for GhostyPlaytime...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	backend, err := repository.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s storage: %v", cfg.Storage.Backend, err)
	}
	adapter := persistence.NewAdapter(backend, cfg.Playtime.SaveTimeout())
	defer adapter.Close()

	log.Printf("🌱 Generating %d players...", TotalPlayers)
	store := ledger.NewStore()
	store.Load(generatePlayers(TotalPlayers))

	log.Printf("📦 Writing snapshot to %s...", backend.Name())
	start := time.Now()
	if err := adapter.Flush(ctx, store); err != nil {
		log.Fatalf("Failed to seed %s: %v", backend.Name(), err)
	}
	log.Printf("✅ Seeding completed in %v", time.Since(start).Round(time.Millisecond))

	// Read back through the adapter to verify what landed
	stored := ledger.NewStore()
	stored.Load(adapter.Load(ctx))
	log.Printf("   - Stored players: %d", stored.Len())

	log.Println("📊 Top 10 Players:")
	sfx := cfg.Format.Suffixes()
	for i, e := range stored.TopN(10) {
		log.Printf("   %d. %s - %s", i+1, e.ID, format.Duration(e.Seconds, sfx))
	}

	log.Println("🎉 Seeder finished!")
}

// generatePlayers creates random identities with up to MaxSeconds of playtime
func generatePlayers(count int) map[uuid.UUID]int64 {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	players := make(map[uuid.UUID]int64, count)
	for len(players) < count {
		players[uuid.New()] = rng.Int63n(MaxSeconds + 1)
	}
	return players
}
