package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"CaseTracker/internal/model"
)

// Repo описывает интерфейс репозитория ClickHouse для пакетной записи событий кейсов
type Repo interface {
	BatchInsertEvents(ctx context.Context, events []model.CaseEvent) error
}

// maxBatchesBuffered ограничивает буфер при недоступном ClickHouse:
// хранится не больше стольких пакетов, старые события отбрасываются
const maxBatchesBuffered = 10

// Consumer буферизует события кейсов и отправляет их пакетно в ClickHouse.
// Неудачный пакет возвращается в буфер и уходит со следующей отправкой.
type Consumer struct {
	repo      Repo
	batchSize int
	events    []model.CaseEvent
	mu        sync.Mutex
}

// NewConsumer создаёт Consumer с указанным репозиторием и размером пакета
func NewConsumer(repo Repo, batchSize int) *Consumer {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Consumer{repo: repo, batchSize: batchSize, events: make([]model.CaseEvent, 0, batchSize)}
}

// HandleMessage разбирает событие из NATS, добавляет его в буфер
// и при достижении batchSize отправляет пакет в ClickHouse
func (c *Consumer) HandleMessage(ctx context.Context, data []byte) error {
	var e model.CaseEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return fmt.Errorf("failed to decode case event: %w", err)
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("unknown case event kind %q", e.Kind)
	}
	log.Printf("received %s event for case %s", e.Kind, e.Case.ID)
	c.mu.Lock()
	c.events = append(c.events, e)
	if len(c.events) < c.batchSize {
		c.mu.Unlock()
		return nil
	}
	batch := c.takeLocked()
	c.mu.Unlock()
	return c.send(ctx, batch)
}

// Flush отправляет все накопленные события, если они есть
func (c *Consumer) Flush(ctx context.Context) error {
	c.mu.Lock()
	if len(c.events) == 0 {
		c.mu.Unlock()
		return nil
	}
	batch := c.takeLocked()
	c.mu.Unlock()
	return c.send(ctx, batch)
}

// Pending возвращает число событий, ожидающих отправки
func (c *Consumer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *Consumer) takeLocked() []model.CaseEvent {
	batch := make([]model.CaseEvent, len(c.events))
	copy(batch, c.events)
	c.events = c.events[:0]
	return batch
}

// send записывает пакет; при ошибке события возвращаются в начало буфера
func (c *Consumer) send(ctx context.Context, batch []model.CaseEvent) error {
	err := c.repo.BatchInsertEvents(ctx, batch)
	if err == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(batch, c.events...)
	if limit := c.batchSize * maxBatchesBuffered; len(c.events) > limit {
		dropped := len(c.events) - limit
		c.events = c.events[dropped:]
		log.Printf("dropped %d oldest case events, ClickHouse unavailable", dropped)
	}
	return fmt.Errorf("failed to insert %d case events: %w", len(batch), err)
}
