package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ignatzorin/design-orders-backend/internal/db"
	httpHandlers "github.com/ignatzorin/design-orders-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/design-orders-backend/internal/http/router"
	"github.com/ignatzorin/design-orders-backend/internal/interface/http/handler"
	"github.com/ignatzorin/design-orders-backend/internal/service"
	"github.com/ignatzorin/design-orders-backend/internal/storage"
)

func serveCmd() *cobra.Command {
	var (
		skipMigrations bool
		noSweeper      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP API, WebSocket и фоновую выплату escrow",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Готовим контекст для graceful shutdown.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if !skipMigrations {
				if _, err := db.RunMigrations(ctx, a.conn, a.cfg.MigrationsPath, a.log); err != nil {
					return err
				}
			}

			files, err := storage.NewDeliverableStorage(a.cfg.DeliverableStoragePath, a.cfg.MaxUploadSizeMB)
			if err != nil {
				return err
			}

			tokens := service.NewTokenManager(a.cfg.JWTSecret, a.cfg.AccessTokenTTL)
			engine := httpRouter.SetupRouter(a.cfg, a.log, tokens, httpRouter.Handlers{
				Health:       httpHandlers.NewHealthHandler(a.conn),
				WS:           httpHandlers.NewWSHandler(a.hub, tokens, a.cfg.AllowedOrigins),
				Payment:      httpHandlers.NewPaymentHandler(a.payments),
				Notification: httpHandlers.NewNotificationHandler(a.notifications),
				DesignOrder:  handler.NewDesignOrderHandler(a.deps, a.deliverables, files),
			})

			server := &http.Server{
				Addr:              ":" + a.cfg.HTTPPort,
				Handler:           engine,
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				a.hub.Run(gctx)
				return nil
			})
			if !noSweeper {
				sweeper := a.sweeper()
				g.Go(func() error { return sweeper.Run(gctx) })
			}
			g.Go(func() error {
				a.log.Infof("main: HTTP сервер запущен на порту %s", a.cfg.HTTPPort)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})

			return g.Wait()
		},
	}

	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "не применять миграции при старте")
	cmd.Flags().BoolVar(&noSweeper, "no-sweeper", false, "не запускать фоновую выплату escrow (если она идёт по cron)")
	return cmd
}
