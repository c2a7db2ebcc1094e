package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/GriffinCanCode/termprov/internal/infrastructure/config"
	"github.com/GriffinCanCode/termprov/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Flags override environment variables
	flag.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "Server port")
	flag.StringVar(&cfg.Server.Host, "host", cfg.Server.Host, "Listen address")
	flag.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "Development logging")
	flag.StringVar(&cfg.Terminal.SettingsFile, "settings", cfg.Terminal.SettingsFile, "Global terminal settings file (TOML or YAML)")
	flag.StringVar(&cfg.Terminal.Active, "active", cfg.Terminal.Active, "Root of the active workspace member")
	flag.StringVar(&cfg.Remote.Host, "ssh-host", cfg.Remote.Host, "Remote project host")
	workspace := flag.String("workspace", strings.Join(cfg.Terminal.Workspace, ","), "Comma-separated workspace member roots")
	flag.Parse()

	if *workspace != "" {
		cfg.Terminal.Workspace = strings.Split(*workspace, ",")
	}
	if cfg.Logging.Development && cfg.Logging.Level == "info" {
		cfg.Logging.Level = "debug"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := server.NewServer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	for {
		select {
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				_ = srv.Reload()
				continue
			}
			shutdown, stop := context.WithTimeout(context.Background(), 10*time.Second)
			if err := srv.Close(shutdown); err != nil {
				log.Printf("Error during shutdown: %v", err)
			}
			stop()
			return
		case err := <-errChan:
			if err != nil {
				log.Fatalf("Server error: %v", err)
			}
			return
		}
	}
}
