package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"pc-insight/backend/global"
	"pc-insight/backend/initialize"
	"pc-insight/backend/server"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to backend config file")
	flag.Parse()

	handler, err := initialize.Build(*configPath)
	if err != nil {
		global.Logger.Error().Err(err).Msg("initialization failed")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.StartHTTPServer(ctx, handler); err != nil {
		global.Logger.Error().Err(err).Msg("http server failed")
		os.Exit(1)
	}
}
