package main

import (
	"context"
	"flag"
	"log"

	"subsync/internal/config"
	"subsync/internal/daemon"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", "", "configuration file path")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemon.Run(context.Background(), cfg, daemon.Options{
		LogLevel: *logLevel,
		Version:  version,
	}); err != nil {
		log.Fatalf("subsyncd: %v", err)
	}
}
