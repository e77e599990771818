// Command freshkeep-server starts the FreshKeep REST API server.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/RamanVasko/freshkeep/internal/barcode"
	"github.com/RamanVasko/freshkeep/internal/config"
	"github.com/RamanVasko/freshkeep/internal/limiter"
	"github.com/RamanVasko/freshkeep/internal/migrate"
	"github.com/RamanVasko/freshkeep/internal/repository/postgres"
	"github.com/RamanVasko/freshkeep/internal/server/httpapi"
	"github.com/RamanVasko/freshkeep/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main parses configuration, runs migrations, and starts the HTTP server.
func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Flags override the environment.
	addr := flag.String("addr", cfg.Addr, "listen address")
	dsn := flag.String("dsn", cfg.DatabaseDSN, "PostgreSQL DSN")
	jwtKey := flag.String("jwt-key", cfg.JWTKey, "HS256 signing key (required)")
	staticDir := flag.String("static-dir", cfg.StaticDir, "directory for uploaded images")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", *addr),
	)

	if *jwtKey == "" {
		logger.Fatal("missing jwt signing key (--jwt-key or FRESHKEEP_JWT_KEY)")
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, *dsn); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	// DB pool
	pool, err := pgxpool.New(ctx, *dsn)
	if err != nil {
		logger.Fatal("pgxpool.New", zap.Error(err))
	}
	defer pool.Close()

	// Repositories
	db := &postgres.DB{Pool: pool}
	userRepo := postgres.NewUserRepo(db)
	productRepo := postgres.NewProductRepo(db)
	categoryRepo := postgres.NewCategoryRepo(db)

	var lim limiter.Limiter = limiter.Noop{}
	if cfg.LockoutEnabled {
		lim = limiter.NewPG(pool, cfg.LockoutWindow, cfg.LockoutAttempts, cfg.LockoutFor)
	}

	// Services
	authSvc := service.NewAuthService(userRepo, []byte(*jwtKey), cfg.AccessTTL, cfg.RefreshTTL, lim)
	resolver := barcode.NewOpenFoodFacts(cfg.BarcodeAPIURL)
	productSvc := service.NewProductService(productRepo, categoryRepo, resolver)

	images, err := httpapi.NewImageStore(*staticDir)
	if err != nil {
		logger.Fatal("image store", zap.Error(err))
	}

	api := httpapi.New(logger, authSvc, productSvc, images)
	srv := &http.Server{
		Addr:         *addr,
		Handler:      api.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", *addr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
