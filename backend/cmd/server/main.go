package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"kindred/backend/internal/api"
	"kindred/backend/internal/auth"
	"kindred/backend/internal/fanout"
	"kindred/backend/internal/graph"
	"kindred/backend/internal/people"
	"kindred/backend/pkg/config"
	"kindred/backend/pkg/logger"
)

func main() {
	// Initialize logger
	if err := logger.Init(logger.Options{Env: os.Getenv("ENV"), Level: os.Getenv("LOG_LEVEL")}); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting HTTP API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Initialize Neo4j store
	store, err := graph.NewNeo4jStore(storeConfig(cfg), log.Named("neo4j"))
	if err != nil {
		log.Fatal("Failed to create Neo4j store", zap.Error(err))
	}

	// Verify connectivity and apply the Person schema
	ctx, cancel := context.WithTimeout(context.Background(), cfg.StoreTxTimeout)
	err = graph.NewSchemaManager(store, log).ApplySchema(ctx)
	cancel()
	if err != nil {
		store.Close(context.Background())
		log.Fatal("Failed to apply schema", zap.Error(err))
	}

	// Initialize dependencies
	repo := graph.NewRepository(store, log.Named("people"),
		graph.WithSerializedAppends(cfg.SerializeRelationAppends),
	)
	syncer := people.NewSyncer(repo, log.Named("sync"))
	resolver := auth.NewOIDCResolver(cfg.OIDCIssuerURL, cfg.OIDCClientID, 5*time.Second, log.Named("auth"))
	fetcher := fanout.NewClient(cfg.FanoutTimeout, cfg.FanoutConcurrency, log.Named("fanout"),
		fanout.WithAllowedHosts(cfg.FanoutAllowedHosts),
		fanout.WithPrivateNetworks(cfg.FanoutAllowPrivateNetworks),
	)

	router := api.NewRouter(api.Deps{
		People:     repo,
		Syncer:     syncer,
		Auth:       resolver,
		Fanout:     fetcher,
		Logger:     log,
		Prefix:     cfg.APIPrefix,
		Production: cfg.IsProduction(),
	})

	srv := newHTTPServer(cfg, router)

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("prefix", cfg.APIPrefix),
		zap.Bool("serialized_appends", cfg.SerializeRelationAppends),
	)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel = context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	fetcher.Close()
	if err := repo.Close(ctx); err != nil {
		log.Error("Failed to close Neo4j store", zap.Error(err))
	}

	log.Info("Server exited")
}

func storeConfig(cfg *config.Config) graph.StoreConfig {
	return graph.StoreConfig{
		URI:       cfg.Neo4jURI,
		Username:  cfg.Neo4jUser,
		Password:  cfg.Neo4jPassword,
		Database:  cfg.Neo4jDatabase,
		TxTimeout: cfg.StoreTxTimeout,
	}
}

func newHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
