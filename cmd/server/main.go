package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/roomservice/api/internal/config"
	"github.com/roomservice/api/internal/database"
	"github.com/roomservice/api/internal/draft"
	kafkax "github.com/roomservice/api/internal/kafka"
	"github.com/roomservice/api/internal/messaging"
	"github.com/roomservice/api/internal/notify"
	"github.com/roomservice/api/internal/redisx"
	"github.com/roomservice/api/internal/router"
	"github.com/roomservice/api/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()
	queries := database.New(pool)

	drafts := draft.NewStore(queries, cfg.DraftTTL)
	go drafts.RunPurger(ctx, time.Hour)

	hub := ws.NewHub()
	go hub.Run()

	sinks := []notify.Sink{hub}
	deps := router.Deps{
		Config:  cfg,
		Queries: queries,
		Pool:    pool,
		Hub:     hub,
		Drafts:  drafts,
	}

	// Redis submit guard
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		if err := redisx.Ping(ctx, rdb); err != nil {
			log.Printf("WARN: redis unreachable, submit guard will fail open: %v", err)
		}
		deps.Guard = redisx.NewSubmitGuard(rdb)
	}

	// Kafka producer
	var prod *kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, 1024)
		prod.Start(ctx)
		sinks = append(sinks, prod)
	}

	// RabbitMQ
	if cfg.RabbitMQURL != "" {
		conn, err := messaging.Dial(cfg.RabbitMQURL)
		if err != nil {
			log.Printf("WARN: rabbitmq disabled: %v", err)
		} else {
			defer conn.Close()
			sinks = append(sinks, messaging.NewPublisher(conn))
		}
	}

	// E-mail
	if cfg.SMTP.Host != "" && cfg.SMTP.Receiver != "" {
		sinks = append(sinks, notify.NewMailer(cfg.SMTP))
	}

	dispatcher := notify.NewDispatcher(sinks...)
	deps.Notifier = dispatcher

	r, err := router.New(deps)
	if err != nil {
		log.Fatalf("router: %v", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: http shutdown: %v", err)
	}
	dispatcher.Wait()
	cancel()
	if prod != nil {
		prod.WaitClosed()
	}
}
