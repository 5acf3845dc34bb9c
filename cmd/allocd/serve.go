package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"device-allocation-backend/internal/api"
	"device-allocation-backend/internal/auth"
	"device-allocation-backend/internal/db"
	"device-allocation-backend/internal/notification"
	"device-allocation-backend/internal/report"
	"device-allocation-backend/internal/store"
)

func serveCmd(load loader) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if !cfg.Server.Development() {
				gin.SetMode(gin.ReleaseMode)
			}

			gormDB, err := db.Init(&cfg.Database, logger)
			if err != nil {
				return err
			}
			appStore := store.NewGormStore(gormDB)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if seed {
				if err := runSeed(ctx, appStore, logger); err != nil {
					return err
				}
			}

			directory, err := auth.NewDemoDirectory(bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
			if err != nil {
				return err
			}

			opts := api.Options{
				Store:       appStore,
				Reports:     report.NewService(appStore),
				Issuer:      issuer,
				Directory:   directory,
				Log:         logger,
				Development: cfg.Server.Development(),
			}
			if cfg.Push.Enabled() {
				opts.WebPush = &webpush.Options{
					VAPIDPublicKey:  cfg.Push.PublicKey,
					VAPIDPrivateKey: cfg.Push.PrivateKey,
					Subscriber:      cfg.Push.Subject,
					TTL:             cfg.Push.TTL,
				}
				pool := notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, appStore, opts.WebPush, logger)
				pool.Start(ctx)
				opts.Notifier = pool
				logger.Info("push notifications enabled", zap.Int("workers", cfg.WorkerPool.Size))
			} else {
				logger.Warn("VAPID keys not configured, push notifications disabled")
			}

			router := api.NewRouter(api.NewHandler(opts), cfg.Server, cfg.Auth.Required)
			server := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			serveErr := make(chan error, 1)
			go func() {
				logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-serveErr:
				return fmt.Errorf("HTTP server: %w", err)
			case sig := <-stop:
				logger.Info("shutdown signal received", zap.String("signal", sig.String()))
			}

			cancel()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("HTTP server shutdown: %w", err)
			}
			logger.Info("server gracefully stopped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "seed sample data into an empty database before serving")
	return cmd
}
