package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shelfmatch/config"
	"shelfmatch/database"
	"shelfmatch/handlers"
	"shelfmatch/matching"
	"shelfmatch/middleware"
	"shelfmatch/navigation"
	"shelfmatch/repository"
	"shelfmatch/scheduler"
	"shelfmatch/scraper"
	"shelfmatch/services"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Secondary page reads
	var fetcher scraper.Fetcher
	switch cfg.Fetch.Driver {
	case "rod":
		rodFetcher, err := scraper.NewRodFetcher(cfg.Fetch.UserAgent, cfg.Fetch.Timeout)
		if err != nil {
			log.Fatalf("Failed to launch browser: %v", err)
		}
		defer rodFetcher.Close()
		fetcher = rodFetcher
	default:
		fetcher = scraper.NewHTTPFetcher(scraper.HTTPFetcherOptions{
			Timeout:           cfg.Fetch.Timeout,
			RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
			Burst:             cfg.Fetch.Burst,
			UserAgent:         cfg.Fetch.UserAgent,
		})
	}

	extractor := scraper.NewExtractor(scraper.ExtractorOptions{
		PriceFloor:           cfg.Extraction.PriceFloor,
		ImageHosts:           cfg.Extraction.ImageHosts,
		AlternateURLTemplate: cfg.Fetch.MobileURLTemplate,
		Fetcher:              fetcher,
		Debug:                cfg.Matching.Debug,
	})

	// Catalog sources; remote sources always fall back to the static document
	mode, err := services.ParseValidationMode(cfg.Catalog.ValidationMode)
	if err != nil {
		log.Fatalf("Invalid catalog validation mode: %v", err)
	}

	fallback := repository.NewStaticCatalogRepository(cfg.Catalog.StaticPath)
	var primary repository.CatalogSource
	switch cfg.Catalog.Source {
	case "rest":
		primary = repository.NewRESTCatalogRepository(cfg.Catalog.RestURL, cfg.Catalog.RestKey, cfg.Catalog.Table, cfg.Fetch.Timeout)
	case "postgres":
		if err := database.InitDatabase(cfg.Catalog.DatabaseURL); err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer database.CloseDatabase()

		if cfg.Catalog.AutoMigrate {
			if err := database.CreateTables(cfg.Catalog.Table); err != nil {
				log.Fatalf("Failed to create tables: %v", err)
			}
		}
		primary = repository.NewPostgresCatalogRepository(database.DB, cfg.Catalog.Table)
	}

	catalog := services.NewCatalogService(primary, fallback, mode)

	// Warm the catalog so the first page doesn't wait on it
	go func() {
		if _, err := catalog.Catalog(context.Background()); err != nil {
			log.Printf("❌ Initial catalog load failed: %v", err)
		}
	}()

	matcher := matching.NewMatcher(matching.NewClassifier(), cfg.Matching.TopN, cfg.Matching.Debug)

	sessions := navigation.NewManager(extractor, matcher, catalog, navigation.Options{
		PollInterval: cfg.Navigation.PollInterval,
		ShowDelay:    cfg.Navigation.ShowDelay,
		ToastTTL:     cfg.Navigation.ToastTTL,
	}, cfg.Navigation.OutboxCapacity)
	defer sessions.Shutdown()

	maintenance, err := scheduler.NewMaintenance(sessions, catalog, scheduler.MaintenanceOptions{
		SweepSchedule:   cfg.Navigation.SweepSchedule,
		SessionIdleTTL:  cfg.Navigation.SessionIdleTTL,
		RefreshSchedule: cfg.Catalog.RefreshSchedule,
	})
	if err != nil {
		log.Fatalf("Failed to schedule maintenance: %v", err)
	}
	maintenance.Start()
	defer maintenance.Stop()

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.RateLimitMiddleware(cfg.Server.RateLimit))

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.Use(middleware.APIKeyMiddleware(cfg.Server.RequireAPIKey, cfg.Server.APIKeys))

	h := handlers.NewHandlers(extractor, matcher, catalog, sessions)
	h.Register(r, apiV1)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("🌐 Server starting on %s (catalog: %s, fetch: %s)", server.Addr, cfg.Catalog.Source, cfg.Fetch.Driver)
	log.Printf("📋 API:")
	log.Printf("   GET  /health - Health check")
	log.Printf("   POST /api/v1/extract - Extract page facts")
	log.Printf("   POST /api/v1/match - Rank catalog alternatives for a page")
	log.Printf("   GET  /api/v1/catalog - Catalog status")
	log.Printf("   POST /api/v1/sessions - Start a navigation session")

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("❌ Graceful shutdown failed: %v", err)
	}
}
