package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/viper"

	"github.com/meikuraledutech/topology/backend"
	"github.com/meikuraledutech/topology/config"
	"github.com/meikuraledutech/topology/logger"
	"github.com/meikuraledutech/topology/service"
)

func main() {
	cfg, err := config.Load(viper.New(), os.Getenv("TOPOLOGY_CONFIG"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logg := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	store, closeStore, err := backend.Open(context.Background(), cfg, logg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer closeStore()

	svc := service.New(store, service.OptionsFromConfig(cfg, logg))
	app := newApp(svc, logg)

	logg.Info("listening", "addr", cfg.ListenAddr, "auth", svc.AuthEnabled())
	if err := app.Listen(cfg.ListenAddr); err != nil {
		logg.Error("server stopped", "err", err)
		closeStore()
		os.Exit(1)
	}
}
