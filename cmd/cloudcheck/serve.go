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

	"github.com/sunbeam-ops/cloudcheck/internal/api"

	"github.com/sunbeam-ops/cloudcheck/internal/certs"
	"github.com/sunbeam-ops/cloudcheck/internal/core/check"
	"github.com/sunbeam-ops/cloudcheck/internal/core/config"
	"github.com/sunbeam-ops/cloudcheck/internal/core/logger"
	"github.com/sunbeam-ops/cloudcheck/internal/core/ports"
	"github.com/sunbeam-ops/cloudcheck/internal/core/runner"
	"github.com/sunbeam-ops/cloudcheck/internal/core/scheduler"
	"github.com/sunbeam-ops/cloudcheck/internal/core/watcher"
	"github.com/sunbeam-ops/cloudcheck/internal/epa"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use: "serve",
	Run: func(_ *cobra.Command, _ []string) {
		// Initialize Config
		if err := config.InitConfig(cfgFile); err != nil {
			fmt.Fprintln(os.Stderr, "Failed to load config:", err)
			os.Exit(1)
		}

		// Initialize Logger first
		logger.InitLogger(logger.Environment(config.Cfg.App.Environment), logger.LogLevel(config.Cfg.Log.Level), config.Cfg.Log.Levels)
		logger.L.Info("Starting cloudcheck server...")

		// Verify the CA chain before anything talks to the cloud
		if path := config.Cfg.TLS.CAChainPath; path != "" {
			if err := verifyCAChain(path); err != nil {
				logger.L.Fatal("CA chain verification failed", zap.Error(err))
			}
			logger.L.Info("CA chain verified", zap.String("path", path))
		}

		// Build the configured check set
		checks := make([]*check.Check, 0, len(config.Cfg.Checks))
		for _, cc := range config.Cfg.Checks {
			checks = append(checks, check.FromConfig(cc))
		}

		// Resource reservation is optional
		var reserver ports.Reserver
		if config.Cfg.EPA.SocketPath != "" {
			reserver = epa.New(config.Cfg.EPA.SocketPath)
			logger.L.Info("EPA reservation enabled", zap.String("socket", config.Cfg.EPA.SocketPath))
		}

		// Initialize the check runner
		checkRunner := runner.New(runner.Options{
			Reserver:    reserver,
			ServiceName: config.Cfg.EPA.ServiceName,
			Cores:       config.Cfg.EPA.Cores,
			NUMANode:    config.Cfg.EPA.NUMANode,
		})
		checkRunner.Start()

		// Initialize and start scheduler
		sched := scheduler.New(checkRunner)
		for _, c := range checks {
			if err := sched.AddCheck(c); err != nil {
				logger.L.Fatal("Invalid check schedule", zap.String("check", c.Name), zap.Error(err))
			}
		}
		sched.Start()
		defer sched.Stop()

		// Initialize and start watcher
		watch, err := watcher.New(checkRunner)
		if err != nil {
			logger.L.Fatal("Failed to initialize watcher", zap.Error(err))
		}
		for _, c := range checks {
			if err := watch.AddCheck(c); err != nil {
				logger.L.Error("Failed to watch check config", zap.String("check", c.Name), zap.Error(err))
			}
		}
		watch.Start()
		defer watch.Stop()

		// Start API Server
		r := api.SetupRouter(api.RouterDeps{
			Checks:    checks,
			Runner:    checkRunner,
			Scheduler: sched,
		})

		addr := fmt.Sprintf("%s:%d", config.Cfg.Server.Host, config.Cfg.Server.Port)
		logger.L.Info("Server starting", zap.String("address", addr))

		srv := &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.L.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// Wait for interrupt signal to gracefully shutdown the server with
		// a timeout of 5 seconds.
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.L.Info("Shutdown signal received, stopping server...")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.L.Fatal("Server forced to shutdown", zap.Error(err))
		}

		// Stop the check runner (this waits for runs to finish/cancel)
		checkRunner.Stop()

		logger.L.Info("Server exiting")
	},
}

// verifyCAChain loads the PEM bundle at path and checks it forms a usable
// root-first CA chain.
func verifyCAChain(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	chain, err := certs.ParseCAChain(string(data))
	if err != nil {
		return err
	}
	if !certs.CAChainIsValid(chain) {
		return fmt.Errorf("CA chain in %s is not valid", path)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
