package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	nats "github.com/nats-io/nats.go"

	"CaseTracker/internal/config"
	"CaseTracker/internal/repository"
	"CaseTracker/internal/service"
	externalHttp "CaseTracker/internal/transport/http"
	"CaseTracker/internal/workflow"
	"CaseTracker/pkg/cache"
	"CaseTracker/pkg/events"
)

func main() {
	// читаем конфигурацию из окружения и .env
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.AgencyPasscode == "" {
		log.Fatalf("AGENCY_PASSCODE must be set")
	}

	// подключаем Postgres
	db, err := sql.Open("postgres", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to connect to Postgres: %v", err)
	}
	defer func() { _ = db.Close() }()
	if err := db.Ping(); err != nil {
		log.Fatalf("failed to ping Postgres: %v", err)
	}

	// Применяем миграции Postgres с помощью golang-migrate
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatalf("failed to create migrate driver: %v", err)
	}
	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationsURL("postgres"), "postgres", driver)
	if err != nil {
		log.Fatalf("failed to create migrate instance: %v", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("failed to apply migrations: %v", err)
	}

	// подключаем Redis
	rClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	cacheClient := cache.NewRedisClient(rClient, "casetracker")
	// подключаем NATS
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}
	publisher := events.NewPublisher(nc, cfg.NATSSubject)

	// репозиторий, сервис и реестр сессий
	repo := repository.NewCaseRepository(db)
	srv := service.NewCaseService(repo, cacheClient, publisher, cfg.RedisTTL)
	sessions := workflow.NewSessions(cfg.AgencyPasscode, cfg.SessionTTL, srv)

	// настраиваем HTTP маршруты и middleware логирования
	r := mux.NewRouter()
	r.Use(externalHttp.LoggingMiddleware())
	h := externalHttp.NewHandler(sessions, map[string]externalHttp.Pinger{
		"postgres": repo,
		"redis":    cacheClient,
	})
	h.RegisterRoutes(r)

	// запускаем HTTP сервер с поддержкой graceful shutdown
	srvHttp := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Printf("starting server at %s", cfg.HTTPAddr)
		if err := srvHttp.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Printf("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srvHttp.Shutdown(ctx); err != nil {
		log.Printf("server shutdown failed: %v", err)
	}
	log.Printf("server exited properly")
	if err := rClient.Close(); err != nil {
		log.Printf("failed to close Redis client: %v", err)
	}
	// корректно дренируем NATS-соединение, чтобы не потерять события
	if err := nc.Drain(); err != nil {
		log.Printf("failed to drain NATS connection: %v", err)
	}
}
