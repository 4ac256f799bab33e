package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/ClickHouse/clickhouse-go"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/clickhouse"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/nats-io/nats.go"

	"CaseTracker/internal/config"
	"CaseTracker/internal/consumer"
	"CaseTracker/internal/repository"
	"CaseTracker/pkg/events"
)

// flushInterval: период сброса неполного пакета, чтобы события не застревали в буфере
const flushInterval = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Подключаемся к NATS
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}
	defer nc.Close()

	// Подключаемся к ClickHouse
	db, err := sql.Open("clickhouse", cfg.ClickHouseDSN)
	if err != nil {
		log.Fatalf("failed to connect to ClickHouse: %v", err)
	}
	defer func() { _ = db.Close() }()

	// Применяем миграции ClickHouse с помощью golang-migrate
	driver, err := clickhouse.WithInstance(db, &clickhouse.Config{})
	if err != nil {
		log.Fatalf("failed to create ClickHouse migrate driver: %v", err)
	}
	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationsURL("clickhouse"), "clickhouse", driver)
	if err != nil {
		log.Fatalf("failed to create ClickHouse migrate instance: %v", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("failed to apply ClickHouse migrations: %v", err)
	}

	repo := repository.NewEventRepo(db)
	cons := consumer.NewConsumer(repo, cfg.BatchSize)

	// HTTP-сервер для healthz и readyz
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !nc.IsConnected() || db.PingContext(r.Context()) != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "ready", "pending": cons.Pending()})
	})
	healthSrv := &http.Server{Addr: ":" + cfg.ConsumerPort, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Printf("starting health server on :%s", cfg.ConsumerPort)
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("health server failed: %v", err)
		}
	}()

	// Подписываемся на все виды событий кейсов
	subject := events.Wildcard(cfg.NATSSubject)
	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		if err := cons.HandleMessage(context.Background(), msg.Data); err != nil {
			log.Printf("failed to handle message on %s: %v", msg.Subject, err)
		}
	})
	if err != nil {
		log.Fatalf("failed to subscribe to subject %s: %v", subject, err)
	}
	log.Printf("subscribed to %s", subject)

	// Периодически сбрасываем неполный пакет
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
loop:
	for {
		select {
		case <-ticker.C:
			if err := cons.Flush(context.Background()); err != nil {
				log.Printf("periodic flush failed: %v", err)
			}
		case <-stop:
			break loop
		}
	}

	log.Printf("shutting down consumer...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := healthSrv.Shutdown(ctx); err != nil {
		log.Printf("health server shutdown failed: %v", err)
	}

	// Отписываемся и сбрасываем оставшиеся события
	if err := sub.Unsubscribe(); err != nil {
		log.Printf("failed to unsubscribe: %v", err)
	}
	if err := cons.Flush(ctx); err != nil {
		log.Printf("failed to flush consumer events: %v", err)
	}
}
