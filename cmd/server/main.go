// Command main is the entry point for the Warden moderation server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"warden/internal/config"
	"warden/internal/observability"
	"warden/internal/platform/discord"
	"warden/internal/server"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize tracing
	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "warden-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampler,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	// Chat platform gateway
	gateway, err := discord.New(cfg.DiscordToken, cfg.GuildID)
	if err != nil {
		log.Fatalf("Failed to create discord gateway: %v", err)
	}

	// Create server with dependency injection
	srv, err := server.NewServer(cfg, gateway)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Route platform events into the consensus engine and welcome flow
	gateway.OnVoteChoice(srv.HandleVoteChoice)
	gateway.OnMemberJoin(srv.HandleMemberJoin)

	if cfg.DiscordToken != "" {
		if err := gateway.Start(); err != nil {
			log.Fatalf("Failed to connect to discord: %v", err)
		}
	} else {
		log.Println("DISCORD_TOKEN not set; gateway not connected")
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server resource shutdown error: %v", err)
		}
		if err := gateway.Close(); err != nil {
			log.Printf("Gateway shutdown error: %v", err)
		}
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("Tracing shutdown error: %v", err)
		}
	}()

	// Start server (blocks until shutdown)
	log.Fatal(srv.Start())
}
