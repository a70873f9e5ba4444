package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GerGh0stface/GhostyPlaytime/internal/api/handlers"
	"github.com/GerGh0stface/GhostyPlaytime/internal/api/middleware"
	"github.com/GerGh0stface/GhostyPlaytime/internal/config"
	"github.com/GerGh0stface/GhostyPlaytime/internal/jobs"
	"github.com/GerGh0stface/GhostyPlaytime/internal/ledger"
	"github.com/GerGh0stface/GhostyPlaytime/internal/names"
	"github.com/GerGh0stface/GhostyPlaytime/internal/persistence"
	"github.com/GerGh0stface/GhostyPlaytime/internal/repository"
	"github.com/GerGh0stface/GhostyPlaytime/internal/service"
	"github.com/GerGh0stface/GhostyPlaytime/internal/session"
	"github.com/GerGh0stface/GhostyPlaytime/internal/websocket"
	"github.com/GerGh0stface/GhostyPlaytime/internal/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	fiberws "github.com/gofiber/websocket/v2"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	backend, err := repository.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s storage: %v", cfg.Storage.Backend, err)
	}
	adapter := persistence.NewAdapter(backend, cfg.Playtime.SaveTimeout())

	// Ledger, loaded once before anything else touches it
	store := ledger.NewStore()
	store.Load(adapter.Load(ctx))

	directory, err := names.NewDirectory(cfg.Playtime.NameCacheSize)
	if err != nil {
		log.Fatalf("Failed to create name directory: %v", err)
	}
	directory.Load(adapter.LoadNames(ctx))
	adapter.TrackNames(directory)

	// Out-of-band saves (session end, admin save)
	savePool := worker.NewSavePool(
		cfg.Playtime.SaveWorkers,
		cfg.Playtime.SaveQueueSize,
		adapter,
		store,
		cfg.Playtime.SaveTimeout(),
	)
	savePool.Start()

	sessions := session.NewTracker(store, directory, savePool)

	playtimeService := service.NewPlaytimeService(store, directory, sessions, savePool, adapter, serviceOptions(cfg))
	playtimeService.SetReloader(func() (service.Options, error) {
		fresh, err := config.Load()
		if err != nil {
			return service.Options{}, err
		}
		log.Println("🔄 Configuration reloaded")
		return serviceOptions(fresh), nil
	})

	// Drivers
	tickDriver := jobs.NewTickDriver(store, sessions)
	autoSave := jobs.NewAutoSave(adapter, store, cfg.Playtime.AutoSaveInterval())

	hub := websocket.NewHub(store, sessions)
	playtimeHandler := handlers.NewPlaytimeHandler(playtimeService)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "GhostyPlaytime",
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, " + middleware.AdminTokenHeader,
	}))

	// Routes
	api := app.Group("/api/v1")
	playtimeHandler.Register(api, middleware.AdminRequired(cfg.Server.AdminToken))

	app.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", fiberws.New(func(c *fiberws.Conn) {
		websocket.ServeWS(hub, c)
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "GhostyPlaytime API",
			"version": "1.0.0",
			"storage": backend.Name(),
			"endpoints": []string{
				"GET /api/v1/playtime/:player",
				"GET /api/v1/top?limit=",
				"GET /api/v1/leaderboard?page=",
				"GET /api/v1/players/suggest?q=",
				"POST /api/v1/sessions",
				"DELETE /api/v1/sessions/:uuid",
				"PUT /api/v1/admin/playtime/:player",
				"POST /api/v1/admin/playtime/:player/add",
				"POST /api/v1/admin/save",
				"POST /api/v1/admin/reload",
				"GET /api/v1/health",
				"WS /ws (WebSocket)",
			},
			"online":            sessions.Count(),
			"websocket_clients": hub.GetClientCount(),
			"save_pool":         savePool.GetMetrics(),
			"storage_metrics":   adapter.GetMetrics(),
			"drivers":           []map[string]interface{}{tickDriver.GetMetrics(), autoSave.GetMetrics()},
		})
	})

	g, gctx := errgroup.WithContext(ctx)

	if err := tickDriver.Start(gctx); err != nil {
		log.Fatalf("Failed to start tick driver: %v", err)
	}
	if err := autoSave.Start(gctx); err != nil {
		log.Fatalf("Failed to start auto-save: %v", err)
	}

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		port := cfg.Server.Port
		log.Printf("🚀 Server starting on port %d...", port)
		if err := app.Listen(fmt.Sprintf(":%d", port)); err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	})

	// Graceful shutdown: stop drivers, stop HTTP, drain queued saves, then
	// one last synchronous save
	g.Go(func() error {
		<-gctx.Done()
		log.Println("🛑 Shutting down server...")

		tickDriver.Stop()
		autoSave.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
		}

		log.Println("🔄 Draining save pool...")
		if err := savePool.Shutdown(30 * time.Second); err != nil {
			log.Printf("Save pool shutdown error: %v", err)
		}

		if err := adapter.Flush(context.Background(), store); err != nil {
			log.Printf("❌ Final save failed: %v", err)
		} else {
			log.Printf("✓ Saved playtime for %d players", store.Len())
		}

		if err := adapter.Close(); err != nil {
			log.Printf("Error closing %s: %v", backend.Name(), err)
		}

		log.Println("✓ Server shutdown complete")
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("❌ %v", err)
		os.Exit(1)
	}
}

// serviceOptions picks the settings that can change on reload
func serviceOptions(cfg *config.Config) service.Options {
	return service.Options{
		PageSize:  cfg.Playtime.PageSize,
		TopAmount: cfg.Playtime.TopAmount,
		Suffixes:  cfg.Format.Suffixes(),
	}
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   "Request failed",
		"message": err.Error(),
	})
}
