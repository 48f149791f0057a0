package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/shopfloor/backend/internal/auth"
	"github.com/shopfloor/backend/internal/config"
	delivery "github.com/shopfloor/backend/internal/delivery/http"
	"github.com/shopfloor/backend/internal/middleware"
	"github.com/shopfloor/backend/internal/repository/postgres"
	"github.com/shopfloor/backend/internal/usecase"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.Load()
	logger.Info("starting server", zap.String("port", cfg.Server.Port))

	// Connect to PostgreSQL with retry
	var pool *pgxpool.Pool
	for attempt := 1; attempt <= 5; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pool, err = pgxpool.New(ctx, cfg.Database.URL)
		if err == nil {
			if pingErr := pool.Ping(ctx); pingErr == nil {
				cancel()
				logger.Info("connected to postgres")
				break
			} else {
				pool.Close()
				logger.Warn("failed to ping database", zap.Int("attempt", attempt), zap.Error(pingErr))
			}
		} else {
			logger.Warn("failed to connect to database", zap.Int("attempt", attempt), zap.Error(err))
		}
		cancel()
		if attempt == 5 {
			logger.Fatal("could not connect to database after 5 attempts")
		}
		time.Sleep(time.Duration(attempt) * 2 * time.Second)
	}
	defer pool.Close()

	// Repositories
	userRepo := postgres.NewUserRepository(pool)
	roleRepo := postgres.NewRoleRepository(pool)
	tokenRepo := postgres.NewRefreshTokenRepository(pool)
	loginEventRepo := postgres.NewLoginEventRepository(pool)

	// Auth primitives
	hasher := auth.NewBcryptHasher(0)
	signer := auth.NewJWTSigner(cfg.JWT.Secret, cfg.JWT.AccessExpiry)

	// Usecases
	authUsecase := usecase.NewAuthUsecase(userRepo, tokenRepo, hasher, signer, cfg.JWT.RefreshExpiry)
	userUsecase := usecase.NewUserUsecase(userRepo, roleRepo, hasher)

	// HTTP handler and middleware
	handler := delivery.NewHandler(authUsecase, userUsecase, loginEventRepo)
	authMiddleware := middleware.NewAuthMiddleware(authUsecase, userUsecase, roleRepo)

	router := delivery.NewRouter(handler, authMiddleware, logger, cfg.CORS.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
