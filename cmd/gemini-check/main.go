// Command gemini-check sends one greeting prompt to Gemini with the
// configured credential and reports the outcome.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"api-chatbot/internal/config"
	"api-chatbot/internal/logging"
	"api-chatbot/internal/services"
)

func main() {
	prompt := flag.String("prompt", "Hello, please respond with a short greeting.", "prompt to send")
	timeout := flag.Duration("timeout", 60*time.Second, "overall timeout")
	flag.Parse()

	cfg := config.Load()
	logger := logging.New(cfg)

	if cfg.GeminiAPIKey == "" {
		logger.Error().Msg("GEMINI_API_KEY is not set")
		os.Exit(1)
	}
	logger.Info().
		Int("key_length", len(cfg.GeminiAPIKey)).
		Str("key_prefix", logging.Mask(cfg.GeminiAPIKey)).
		Msg("API key found")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	gateway, err := services.NewGeminiGateway(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, 1)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize Gemini client")
		os.Exit(1)
	}
	defer gateway.Close()

	logger.Info().Str("model", gateway.ModelName()).Str("prompt", *prompt).Msg("sending prompt")

	start := time.Now()
	text, err := gateway.Complete(ctx, *prompt)
	if err != nil {
		logger.Error().Err(err).Dur("latency", time.Since(start)).Msg("Gemini call failed")
		os.Exit(1)
	}

	logger.Info().Dur("latency", time.Since(start)).Str("text", text).Msg("check completed")
}
