package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"meal-dashboard/internal/metrics"
	"meal-dashboard/internal/web"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard over HTTP",
	Long: `Load the recipes and the planning of the current week, start reading
the bot feed in relay mode, and serve the dashboard until interrupted.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := rt.newApp()
	defer application.Close()
	application.Start(ctx)

	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	startedAt := time.Now()
	router, err := web.NewRouter(application, rt.metrics, func() metrics.SysHealth {
		return metrics.GetSysHealth(rt.db.Dir(), startedAt)
	}, rt.log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              rt.cfg.Server.Addr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rt.log.Info("Dashboard listening", zap.String("addr", srv.Addr), zap.String("mode", rt.cfg.Telegram.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		rt.log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		rt.log.Error("Server failed", zap.Error(err))
		return err
	}
	rt.log.Info("Server exiting")
	return nil
}
