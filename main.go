package main

import (
	"embed"
	"os"

	"live-transcriber/internal/bootstrap"
	"live-transcriber/internal/config"
)

//go:embed frontend/index.html
var appAssets embed.FS

func main() {
	logger := config.NewLogger(os.Stderr, config.LoadRuntime().LogLevel)

	app, err := bootstrap.NewWithAssets(appAssets, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("bootstrap app")
	}

	if err := app.Run(); err != nil {
		logger.Fatal().Err(err).Msg("run app")
	}
}
