package main

import (
	"os"

	"live-transcriber/internal/bootstrap"
	"live-transcriber/internal/config"
)

func main() {
	logger := config.NewLogger(os.Stderr, config.LoadRuntime().LogLevel)

	app, err := bootstrap.New(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("bootstrap app")
	}

	if err := app.Run(); err != nil {
		logger.Fatal().Err(err).Msg("run app")
	}
}
