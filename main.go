package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"anketa-network/config"
	"anketa-network/database"
	"anketa-network/follow"
	"anketa-network/graphdb"
	"anketa-network/middleware"
	"anketa-network/notify"
	"anketa-network/pkg/db/sqlite"
	"anketa-network/proximity"
	"anketa-network/util"
	"anketa-network/util/api"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	configPath := flag.String("config", "config/config.toml", "path to the TOML configuration file")
	replenish := flag.Bool("replenish", false, "replenish quotas due for reset and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	log.Println("Initializing application...")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Using database at: %s", cfg.Database.Path)
	db, err := sqlite.ConnectAndMigrate(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	store := database.New(db, cfg.Quota.DailyLimit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := openBackend(ctx, cfg, store)
	if err != nil {
		store.Close()
		log.Fatalf("Failed to open %s backend: %v", cfg.Store.Backend, err)
	}
	closeAll := func() {
		var result *multierror.Error
		if err := closeBackend(); err != nil {
			result = multierror.Append(result, err)
		}
		if err := store.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		if err := result.ErrorOrNil(); err != nil {
			log.Printf("Error closing resources: %v", err)
		}
	}
	defer closeAll()

	hub := notify.NewHub()
	dispatcher := notify.NewDispatcher(store, hub)
	engine := follow.NewEngine(backend, store, dispatcher)

	if *replenish {
		summary, err := engine.ReplenishDue(ctx, time.Now().Add(-cfg.ResetInterval()))
		if err != nil {
			log.Printf("Failed to replenish quotas: %v", err)
			closeAll()
			os.Exit(1)
		}
		log.Printf("Replenished %d quotas", summary.Replenished)
		return
	}

	handlers := &api.Handlers{
		Follow:         engine,
		Search:         proximity.NewEngine(store, cfg.Search.DefaultRadiusKm, cfg.Search.MaxRadiusKm),
		Store:          store,
		Dispatcher:     dispatcher,
		Hub:            hub,
		Tokens:         util.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.TokenTTL()),
		AdminKeyHash:   cfg.Auth.AdminKeyHash,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		ResetInterval:  cfg.ResetInterval(),
	}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		handlers.Limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	mux := http.NewServeMux()
	handlers.Routes(mux)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.AdminKeyHeader},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           c.Handler(middleware.LoggingMiddleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		log.Println("Shutting down server...")
		hub.CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("Server running on localhost:%s (%s backend)", cfg.Server.Port, cfg.Store.Backend)
	err = srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		<-shutdownDone
		return
	}
	log.Printf("Server error: %v", err)
}

// openBackend returns the store for relationships and quotas selected by configuration.
func openBackend(ctx context.Context, cfg config.Config, store *database.Store) (follow.Backend, func() error, error) {
	if cfg.Store.Backend != config.BackendNeo4j {
		return store, func() error { return nil }, nil
	}

	driver, err := graphdb.Connect(ctx, cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, cfg.Neo4j.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := driver.BuildIndices(ctx); err != nil {
		driver.Close(ctx)
		return nil, nil, err
	}
	closeFn := func() error {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return driver.Close(closeCtx)
	}
	return graphdb.NewBackend(driver, cfg.Quota.DailyLimit), closeFn, nil
}
