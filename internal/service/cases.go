package service

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	"CaseTracker/internal/model"
)

// Repo определяет интерфейс репозитория кейсов (Postgres)
type Repo interface {
	List(ctx context.Context) ([]model.Case, error)
	Create(ctx context.Context, in model.CaseInput) (*model.Case, error)
	UpdateStatus(ctx context.Context, id string, u model.StatusUpdate) (*model.Case, error)
	Delete(ctx context.Context, id string) (*model.Case, error)
}

// Cache определяет интерфейс кэширования снимка списка (Redis)
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Generation(ctx context.Context, key string) (int64, error)
	SetIfGeneration(ctx context.Context, key string, gen int64, value []byte, ttl time.Duration) (bool, error)
	Invalidate(ctx context.Context, key string) error
}

// Publisher определяет интерфейс публикации событий изменения кейсов (NATS)
type Publisher interface {
	Publish(kind string, data []byte) error
}

// listKey: ключ кэша для полного списка кейсов
const listKey = "cases:list"

// CaseService оборачивает репозиторий:
// - отдаёт список из кэша, пока он не инвалидирован
// - инвалидирует кэш после каждой успешной мутации
// - публикует снимок изменённого кейса в NATS
// Ошибки кэша и публикации только логируются и не меняют результат операции.
type CaseService struct {
	repo      Repo
	cache     Cache
	publisher Publisher
	cacheTTL  time.Duration
	now       func() time.Time
	// до этого момента (unix nano) кэш не читается: инвалидация не удалась,
	// и в Redis может лежать список старше последней записи
	bypassUntil atomic.Int64
}

// NewCaseService создаёт сервис кейсов
func NewCaseService(r Repo, c Cache, p Publisher, cacheTTL time.Duration) *CaseService {
	return &CaseService{repo: r, cache: c, publisher: p, cacheTTL: cacheTTL, now: time.Now}
}

// List возвращает все кейсы в порядке created_at DESC:
// 1. Пытается прочитать снимок из кэша
// 2. При промахе запрашивает репозиторий и кэширует результат
func (s *CaseService) List(ctx context.Context) ([]model.Case, error) {
	if s.cacheUsable() {
		if data, err := s.cache.Get(ctx, listKey); err == nil {
			var cached []model.Case
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
			log.Printf("corrupted cases cache entry, refetching")
		}
	}
	return s.ListFresh(ctx)
}

// ListFresh всегда читает список из репозитория и обновляет кэш.
// Используется для обновления после собственной мутации.
// Кэш обновляется, только если за время запроса не было инвалидации:
// иначе прочитанный список может быть старше чужой записи.
func (s *CaseService) ListFresh(ctx context.Context) ([]model.Case, error) {
	gen, genErr := s.cache.Generation(ctx, listKey)
	cases, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		log.Printf("failed to read cases cache generation, not caching: %v", genErr)
		return cases, nil
	}
	data, err := json.Marshal(cases)
	if err != nil {
		return cases, nil
	}
	stored, err := s.cache.SetIfGeneration(ctx, listKey, gen, data, s.cacheTTL)
	if err != nil {
		log.Printf("failed to cache cases list: %v", err)
	} else if !stored {
		log.Printf("cases list changed during read, not caching")
	}
	return cases, nil
}

// Create создаёт кейс, инвалидирует кэш и публикует событие created
func (s *CaseService) Create(ctx context.Context, in model.CaseInput) (*model.Case, error) {
	c, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.afterMutation(ctx, model.EventCreated, *c)
	return c, nil
}

// UpdateStatus применяет частичное обновление статусов и ссылки
func (s *CaseService) UpdateStatus(ctx context.Context, id string, u model.StatusUpdate) (*model.Case, error) {
	c, err := s.repo.UpdateStatus(ctx, id, u)
	if err != nil {
		return nil, err
	}
	s.afterMutation(ctx, model.EventStatusUpdated, *c)
	return c, nil
}

// Delete удаляет кейс и публикует его последний снимок
func (s *CaseService) Delete(ctx context.Context, id string) error {
	c, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.afterMutation(ctx, model.EventDeleted, *c)
	return nil
}

// afterMutation инвалидирует кэш списка и публикует событие
func (s *CaseService) afterMutation(ctx context.Context, kind model.EventKind, c model.Case) {
	if err := s.cache.Invalidate(ctx, listKey); err != nil {
		log.Printf("failed to invalidate cases cache, bypassing it for %s: %v", s.cacheTTL, err)
		s.bypassUntil.Store(s.now().Add(s.cacheTTL).UnixNano())
	}
	data, err := json.Marshal(model.CaseEvent{Kind: kind, Case: c, OccurredAt: s.now().UTC()})
	if err != nil {
		log.Printf("failed to encode %s event for case %s: %v", kind, c.ID, err)
		return
	}
	if err := s.publisher.Publish(string(kind), data); err != nil {
		log.Printf("failed to publish %s event for case %s: %v", kind, c.ID, err)
	}
}

func (s *CaseService) cacheUsable() bool {
	return s.now().UnixNano() >= s.bypassUntil.Load()
}
