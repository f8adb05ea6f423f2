package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blockdocs/internal/auth"
	"blockdocs/internal/blocktypes"
	"blockdocs/internal/config"
	docsysSvc "blockdocs/internal/domain/services/docsystem"
	"blockdocs/internal/handler"
	"blockdocs/internal/middleware"
	"blockdocs/internal/repository/postgres"
	postgresDocsys "blockdocs/internal/repository/postgres/docsystem"
	serviceAuth "blockdocs/internal/service/auth"
	serviceDocsys "blockdocs/internal/service/docsystem"
	"blockdocs/internal/storage"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, closeLog, err := config.NewLogger(cfg, "server")
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", cfg.DBMaxConns,
		"min_conns", cfg.DBMinConns,
	)

	tables := postgres.NewTableNames(cfg.TablePrefix)
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	treeStore := postgresDocsys.NewTreeStore(repoConfig)
	blockStore := postgresDocsys.NewBlockStore(repoConfig)
	trashStore := postgresDocsys.NewTrashStore(repoConfig)
	txManager := postgres.NewTransactionManager(pool, cfg.TxTimeout, logger)

	blockTypes, err := blocktypes.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load block types: %v", err)
	}

	retry := serviceDocsys.DefaultRetryConfig()
	retry.MaxRetries = cfg.TxMaxRetries

	coordinator := serviceDocsys.NewDocumentCoordinator(
		treeStore,
		blockStore,
		trashStore,
		txManager,
		serviceAuth.NewOwnerBasedAuthorizer(),
		serviceDocsys.NewTipTapValidator(),
		blockTypes,
		retry,
		logger,
	)

	var files docsysSvc.FileStore
	if cfg.GCSBucket != "" {
		gcs, err := storage.NewGCSFileStore(ctx, cfg.GCSBucket, logger)
		if err != nil {
			log.Fatalf("Failed to create GCS client: %v", err)
		}
		defer gcs.Close()
		files = gcs
	} else {
		files = storage.NewNoopFileStore(logger)
	}

	docHandler := handler.NewDocumentHandler(coordinator, logger)
	treeHandler := handler.NewTreeHandler(coordinator, logger)
	trashHandler := handler.NewTrashHandler(coordinator, files, logger)

	logger.Info("services initialized")

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", docHandler.HealthCheck)

	mux.HandleFunc("GET /api/tree", treeHandler.GetTree)

	mux.HandleFunc("GET /api/trash", trashHandler.ListTrash)
	mux.HandleFunc("DELETE /api/trash", trashHandler.EmptyTrash)

	mux.HandleFunc("POST /api/documents", docHandler.CreateDocument)
	mux.HandleFunc("GET /api/documents/{id}", docHandler.GetDocument)
	mux.HandleFunc("PUT /api/documents/{id}", docHandler.UpdateDocument)
	mux.HandleFunc("POST /api/documents/{id}/move", docHandler.MoveDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", trashHandler.TrashDocument)
	mux.HandleFunc("POST /api/documents/{id}/restore", trashHandler.RestoreDocument)
	mux.HandleFunc("DELETE /api/documents/{id}/purge", trashHandler.PurgeDocument)

	// Order: CORS → Recovery → Auth → RequestLogger → Routes
	var h http.Handler = mux
	h = middleware.RequestLogger(logger)(h)

	if cfg.JWKSURL != "" {
		jwtVerifier, err := auth.NewJWTVerifier(ctx, cfg.JWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer jwtVerifier.Close()
		h = middleware.AuthMiddleware(jwtVerifier, logger)(h)
	} else {
		h = middleware.DevAuthMiddleware(logger)(h)
	}

	h = middleware.Recovery(logger)(h)

	// CORS - Must be outermost to answer OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.DevUserHeader},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
	logger.Info("server stopped")
}
