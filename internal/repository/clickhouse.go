package repository

import (
	"context"
	"database/sql"
	"log"

	"CaseTracker/internal/model"
)

// EventRepo реализует пакетную запись событий кейсов в ClickHouse
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo создаёт новый репозиторий событий для ClickHouse
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

// BatchInsertEvents записывает пакет событий в таблицу case_events.
// Каждая строка хранит снимок кейса на момент события.
func (r *EventRepo) BatchInsertEvents(ctx context.Context, events []model.CaseEvent) error {
	// clickhouse-go собирает блок из всех Exec внутри транзакции
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	log.Printf("batch insert of %d case events into ClickHouse", len(events))
	query := `INSERT INTO case_events (Kind, CaseId, CaseName, ClientName, Priority, PaymentStatus,
		ProjectStatus, WebsiteLink, EventTime) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, e := range events {
		link := ""
		if e.Case.WebsiteLink != nil {
			link = *e.Case.WebsiteLink
		}
		_, err := stmt.ExecContext(ctx,
			string(e.Kind), e.Case.ID, e.Case.CaseName, e.Case.ClientName,
			string(e.Case.Priority), string(e.Case.PaymentStatus), string(e.Case.ProjectStatus),
			link, e.OccurredAt,
		)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("inserted %d case events into ClickHouse", len(events))
	return nil
}
