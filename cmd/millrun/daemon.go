package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/millworks/millrun/internal/audit"
	"github.com/millworks/millrun/internal/config"
	"github.com/millworks/millrun/internal/controlplane"
	"github.com/millworks/millrun/internal/evaluator"
	"github.com/millworks/millrun/internal/knowledge"
	"github.com/millworks/millrun/internal/logging"
	"github.com/millworks/millrun/internal/producer"
	"github.com/millworks/millrun/internal/scheduler"
	"github.com/millworks/millrun/internal/store"
)

var (
	configPath string
	listenAddr string
	dbPath     string
	debugLog   bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the Millrun daemon (millrund)",
	Long:  `Starts the Millrun daemon which runs the execution scheduler, the evaluation engine, and the HTTP API.`,
	RunE:  runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&configPath, "config", "", "Path to YAML config file")
	daemonCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address for the API server (overrides config)")
	daemonCmd.Flags().StringVar(&dbPath, "db", "", "Path to SQLite database (overrides config)")
	daemonCmd.Flags().BoolVar(&debugLog, "debug", false, "Enable debug logging")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	logger, err := logging.New(debugLog)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Infow("starting millrun daemon", "db", cfg.DBPath)

	// Initialize store
	s, err := store.New(cfg.DBPath)
	if err != nil {
		return err
	}

	// Initialize components
	trail := audit.NewTrail(s)
	ks := knowledge.NewSQLiteKnowledge(s)
	producers := producer.NewDefaultRegistry()

	// Create the evaluation engine
	evalCfg := evaluator.DefaultConfig()
	evalCfg.HistoryLimit = cfg.Evaluator.HistoryLimit
	evalCfg.QueueTickInterval = cfg.Evaluator.QueueTickInterval
	engine := evaluator.New(ks, ks, evalCfg, logger)
	engine.SetAudit(trail)
	engine.SetArchive(s)

	// Create the scheduler
	schedCfg := &scheduler.Config{
		MaxConcurrentExecutions: cfg.Scheduler.MaxConcurrentExecutions,
		TickInterval:            cfg.Scheduler.TickInterval,
	}
	sched := scheduler.New(producers, engine, schedCfg, logger)
	sched.SetAudit(trail)
	sched.SetArchive(s)

	// Create service and server
	service := controlplane.NewService(s, sched, engine)
	server := controlplane.NewServer(service, cfg.ListenAddr, logger)

	engine.Start()
	defer engine.Stop()
	sched.Start()
	defer sched.Stop()

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErr := make(chan error, 1)

	// Start server in goroutine
	go func() {
		err := server.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigCh:
		logger.Infow("received signal, initiating graceful shutdown", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			logger.Errorw("server error", "error", err)
			s.Close()
			return err
		}
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("HTTP server shutdown error", "error", err)
	}

	if err := s.Close(); err != nil {
		logger.Warnw("database close error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
