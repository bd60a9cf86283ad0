package main

import (
	"log"

	"go.uber.org/zap"

	"github.com/eringen/loam"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := loam.LoadConfig()
	if err != nil {
		logger.Fatal("config load error", zap.Error(err))
	}

	app := loam.New(cfg, logger)
	defer app.Close()

	if err := app.Start(); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
