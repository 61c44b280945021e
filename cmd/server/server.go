package server

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/oklog/run"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/axellelanca/shortlink/cmd"
	"github.com/axellelanca/shortlink/internal/api"
	"github.com/axellelanca/shortlink/internal/cache"
	"github.com/axellelanca/shortlink/internal/monitor"
	"github.com/axellelanca/shortlink/internal/stats"
)

// RunServerCmd représente la commande 'run-server' de Cobra.
// C'est le point d'entrée pour lancer le serveur de l'application.
var RunServerCmd = &cobra.Command{
	Use:   "run-server",
	Short: "Starts the HTTP API and the background jobs",
	Long: `Connects to the database and the cache, starts the task workers, the
statistics sampler and the expiry monitor, then serves the HTTP API until
SIGINT or SIGTERM.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runServer()
	},
}

func init() {
	cmd.RootCmd.AddCommand(RunServerCmd)
}

func runServer() error {
	cfg, logger := cmd.Cfg, cmd.Logger

	app, err := cmd.NewApp(context.Background(), cfg, logger)
	if err != nil {
		return errors.Wrap(err, "initialise application")
	}
	defer app.Close()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger(logger))
	api.SetupRoutes(router, app.LinkService, api.Options{
		BaseURL:      cfg.Server.BaseURL,
		Metrics:      app.Metrics.Handler(),
		CacheEnabled: cfg.Cache.Driver != cache.DriverNone,
		Logger:       logger,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	var g run.Group
	{
		g.Add(func() error {
			logger.Info("http server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}, func(error) {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("http shutdown", zap.Error(err))
			}
		})
	}
	{
		sampler := stats.NewSampler(app.Counter, cfg.StatsInterval(), app.LinkService.CountLinks, logger, app.Metrics)
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			return sampler.Run(ctx)
		}, func(error) {
			cancel()
		})
	}
	{
		expiryMonitor := monitor.NewExpiryMonitor(app.LinkService, cfg.PurgeInterval(), logger)
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			return expiryMonitor.Run(ctx)
		}, func(error) {
			cancel()
		})
	}
	{
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		g.Add(func() error {
			<-ctx.Done()
			logger.Info("shutdown signal received")
			return nil
		}, func(error) {
			stop()
		})
	}

	return g.Run()
}
