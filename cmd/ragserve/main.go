// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/ragserve"
	"github.com/poiesic/ragserve/ai"
	"github.com/poiesic/ragserve/chat"
	"github.com/poiesic/ragserve/ingestion"
	"github.com/poiesic/ragserve/server"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "ragserve",
		Usage: "Document chat service with retrieval-augmented answers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP service",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Aliases: []string{"a"},
						Usage:   "Address to listen on",
						Value:   ":8000",
					},
					&cli.StringFlag{
						Name:     "data-dir",
						Aliases:  []string{"d"},
						Usage:    "Directory for document, metadata, and vector storage",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "ai-host",
						Usage: "OpenAI-compatible API base URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:    "ai-token",
						Usage:   "API key for the AI service",
						EnvVars: []string{"RAGSERVE_AI_TOKEN"},
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name",
					},
					&cli.StringFlag{
						Name:  "chat-model",
						Usage: "Chat completion model name",
					},
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Target chunk length in characters",
						Value: 512,
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Characters shared between adjacent chunks",
						Value: 50,
					},
					&cli.IntFlag{
						Name:  "min-chunk-size",
						Usage: "Minimum trimmed chunk length to keep",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "context-limit",
						Usage: "Chunks retrieved per question",
						Value: 3,
					},
					&cli.IntFlag{
						Name:  "max-history",
						Usage: "Messages kept per conversation",
						Value: 20,
					},
					&cli.DurationFlag{
						Name:  "conversation-expiry",
						Usage: "Idle time before a conversation is reclaimed",
						Value: 60 * time.Minute,
					},
					&cli.StringSliceFlag{
						Name:  "allow-origin",
						Usage: "CORS origin to allow (repeatable; default allows any)",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveCommand(c *cli.Context) error {
	aiOpts := []ai.ConfigOption{ai.WithHost(c.String("ai-host"))}
	if token := c.String("ai-token"); token != "" {
		aiOpts = append(aiOpts, ai.WithToken(token))
	}
	if model := c.String("embedding-model"); model != "" {
		aiOpts = append(aiOpts, ai.WithEmbeddingModel(model))
	}
	if model := c.String("chat-model"); model != "" {
		aiOpts = append(aiOpts, ai.WithChatModel(model))
	}

	system, err := ragserve.NewSystem(c.String("data-dir"),
		ragserve.WithAIConfig(ai.NewConfig(aiOpts...)),
		ragserve.WithChunkConfig(ingestion.ChunkConfig{
			ChunkSize:    c.Int("chunk-size"),
			ChunkOverlap: c.Int("chunk-overlap"),
			MinChunkSize: c.Int("min-chunk-size"),
		}),
		ragserve.WithChatOptions(chat.WithContextLimit(c.Int("context-limit"))),
		ragserve.WithConversationOptions(
			chat.WithMaxHistory(c.Int("max-history")),
			chat.WithExpiry(c.Duration("conversation-expiry")),
		),
	)
	if err != nil {
		return fmt.Errorf("initializing system: %w", err)
	}
	defer func() {
		if err := system.Close(); err != nil {
			slog.Error("error during shutdown", "err", err)
		}
	}()

	serverOpts := []server.Option{}
	if origins := c.StringSlice("allow-origin"); len(origins) > 0 {
		serverOpts = append(serverOpts, server.WithAllowedOrigins(origins))
	}
	srv, err := server.NewServer(system.Pipeline(), system.ChatService(), system.Coordinator(), serverOpts...)
	if err != nil {
		return fmt.Errorf("initializing server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              c.String("addr"),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
	}

	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
