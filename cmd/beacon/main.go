package main

import (
    "context"
    "flag"
    "fmt"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/sirupsen/logrus"

    "beacon/internal/config"
    "beacon/internal/database"
    "beacon/internal/metrics"
    "beacon/internal/monitoring"
    "beacon/internal/web"
)

var version = "dev"

func main() {
    configFile := flag.String("config", "config.yaml", "Configuration file path")
    showVersion := flag.Bool("version", false, "Show version information")
    flag.Parse()

    if *showVersion {
        fmt.Printf("Beacon Uptime Monitor %s\n", version)
        os.Exit(0)
    }

    // Load configuration, falling back to defaults when no file exists
    var cfg *config.Config
    if _, err := os.Stat(*configFile); os.IsNotExist(err) {
        logrus.WithField("config_file", *configFile).Warn("Config file not found, using defaults")
        cfg = config.Default()
    } else {
        var err error
        cfg, err = config.Load(*configFile)
        if err != nil {
            logrus.Fatalf("Failed to load config: %v", err)
        }
    }

    // Setup logging
    setupLogging(cfg.Logging)

    logrus.WithFields(logrus.Fields{
        "config_file": *configFile,
        "port":        cfg.Server.Port,
        "database":    cfg.Database.Path,
    }).Info("Starting Beacon uptime monitor")

    // Initialize database
    store, err := database.NewBoltStore(cfg.Database.Path)
    if err != nil {
        logrus.Fatalf("Failed to initialize database: %v", err)
    }
    defer store.Close()

    // Initialize metrics
    metricsCollector := metrics.NewCollector(store)

    // Initialize monitoring engine
    engine := monitoring.NewEngine(cfg, store, metricsCollector)

    // Initialize web server
    webServer := web.NewServer(cfg, store, engine, metricsCollector)

    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    // Start monitoring engine
    if err := engine.Start(ctx); err != nil {
        logrus.Fatalf("Failed to start monitoring engine: %v", err)
    }

    // Start web server
    go webServer.Start(ctx)

    // Wait for shutdown signal
    sigChan := make(chan os.Signal, 1)
    signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

    sig := <-sigChan
    logrus.WithField("signal", sig).Info("Received shutdown signal")

    // Graceful shutdown
    engine.Stop()
    cancel()

    shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer shutdownCancel()
    if err := webServer.Stop(shutdownCtx); err != nil {
        logrus.WithError(err).Warn("Web server shutdown failed")
    }

    logrus.Info("Shutdown complete")
}

func setupLogging(cfg config.LoggingConfig) {
    level, err := logrus.ParseLevel(cfg.Level)
    if err != nil {
        level = logrus.InfoLevel
    }
    logrus.SetLevel(level)

    if cfg.Format == "json" {
        logrus.SetFormatter(&logrus.JSONFormatter{})
    } else {
        logrus.SetFormatter(&logrus.TextFormatter{
            FullTimestamp: true,
        })
    }
}
