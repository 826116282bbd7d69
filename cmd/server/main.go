package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arunika-pos/api/internal/config"
	"github.com/arunika-pos/api/internal/database"
	"github.com/arunika-pos/api/internal/kitchen"
	"github.com/arunika-pos/api/internal/router"
	"github.com/arunika-pos/api/internal/ws"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	queries := database.New(pool)

	hub := ws.NewHub()
	go hub.Run()

	// RabbitMQ is optional: without it, tickets still reach kitchen
	// displays over WebSocket.
	var publisher kitchen.Publisher
	if cfg.AMQPURL != "" {
		rmq, err := kitchen.ConnectRabbitMQ(cfg.AMQPURL)
		if err != nil {
			log.Fatalf("connect to rabbitmq: %v", err)
		}
		defer rmq.Close()
		publisher = rmq
	}

	dispatcher := kitchen.NewDispatcher(pool, func(db database.DBTX) kitchen.TicketStore {
		return database.New(db)
	}, hub, publisher, cfg.OutboxInterval)
	go dispatcher.Run(ctx)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router.New(cfg, queries, pool, hub),
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: server shutdown: %v", err)
		os.Exit(1)
	}
	log.Println("Server stopped")
}
