package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"CaseTracker/internal/model"
	"CaseTracker/internal/validation"
)

// коды ошибок Postgres, которые означают нарушение ограничений схемы
const (
	pqUniqueViolation = "23505"
	pqCheckViolation  = "23514"
)

// caseColumns: порядок столбцов для всех выборок из cases
const caseColumns = `id, client_name, case_name, website_type, package, priority, payment_status,
	project_status, website_link, start_date, end_date, created_at, updated_at`

// CaseRepository: единственная точка доступа к таблице cases
type CaseRepository struct {
	db       *sql.DB
	validate *validation.Validator
}

// NewCaseRepository создаёт репозиторий кейсов
func NewCaseRepository(db *sql.DB) *CaseRepository {
	return &CaseRepository{db: db, validate: validation.New()}
}

// rowScanner объединяет *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCase(row rowScanner) (model.Case, error) {
	var c model.Case
	err := row.Scan(&c.ID, &c.ClientName, &c.CaseName, &c.WebsiteType, &c.Package, &c.Priority,
		&c.PaymentStatus, &c.ProjectStatus, &c.WebsiteLink, &c.StartDate, &c.EndDate, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// storeErr переводит ошибку драйвера в типизированную ошибку хранилища.
// Нарушения уникальности и CHECK-ограничений считаются ошибками валидации.
func storeErr(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return model.NewValidationError("case_name", "already exists")
		case pqCheckViolation:
			return model.NewValidationError(pqErr.Column, "violates constraint "+pqErr.Constraint)
		}
	}
	return &model.StoreError{Op: op, Err: err}
}

// validID отсекает идентификаторы, которые хранилище не могло выдать
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// List возвращает все кейсы, новые первыми
func (r *CaseRepository) List(ctx context.Context) ([]model.Case, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+caseColumns+` FROM cases ORDER BY created_at DESC`)
	if err != nil {
		return nil, storeErr("select cases", err)
	}
	defer rows.Close()
	cases := make([]model.Case, 0)
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, storeErr("scan case", err)
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate cases", err)
	}
	return cases, nil
}

// Create проверяет входные данные и вставляет новый кейс.
// id, created_at и updated_at назначаются базой через RETURNING.
func (r *CaseRepository) Create(ctx context.Context, in model.CaseInput) (*model.Case, error) {
	if err := r.validate.CaseInput(in); err != nil {
		return nil, err
	}
	query := `INSERT INTO cases(client_name, case_name, website_type, package, priority, payment_status,
		project_status, website_link, start_date, end_date)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`
	c := model.Case{
		ClientName:    in.ClientName,
		CaseName:      in.CaseName,
		WebsiteType:   in.WebsiteType,
		Package:       in.Package,
		Priority:      in.Priority,
		PaymentStatus: in.PaymentStatus,
		ProjectStatus: in.ProjectStatus,
		WebsiteLink:   in.WebsiteLink,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
	}
	err := r.db.QueryRowContext(ctx, query,
		in.ClientName, in.CaseName, in.WebsiteType, in.Package, in.Priority, in.PaymentStatus,
		in.ProjectStatus, in.WebsiteLink, in.StartDate, in.EndDate,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, storeErr("insert case", err)
	}
	return &c, nil
}

// UpdateStatus частично обновляет статусы и ссылку в одной транзакции с блокировкой строки.
// Инвариант published ⟹ ссылка проверяется на итоговом состоянии записи.
func (r *CaseRepository) UpdateStatus(ctx context.Context, id string, u model.StatusUpdate) (*model.Case, error) {
	if err := r.validate.StatusUpdate(u); err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, model.ErrNotFound
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr("begin transaction", err)
	}
	defer tx.Rollback()
	// выборка с блокировкой
	row := tx.QueryRowContext(ctx, `SELECT `+caseColumns+` FROM cases WHERE id=$1 FOR UPDATE`, id)
	current, err := scanCase(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, storeErr("select case for update", err)
	}
	next := u.Apply(current)
	if err := model.CheckPublished(next.ProjectStatus, next.WebsiteLink); err != nil {
		return nil, err
	}
	updateQuery := `UPDATE cases SET payment_status=$1, project_status=$2, website_link=$3, updated_at=now()
		WHERE id=$4 RETURNING updated_at`
	err = tx.QueryRowContext(ctx, updateQuery, next.PaymentStatus, next.ProjectStatus, next.WebsiteLink, id).
		Scan(&next.UpdatedAt)
	if err != nil {
		return nil, storeErr("update case", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr("commit transaction", err)
	}
	return &next, nil
}

// Delete безвозвратно удаляет кейс и возвращает его последний снимок
func (r *CaseRepository) Delete(ctx context.Context, id string) (*model.Case, error) {
	if !validID(id) {
		return nil, model.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `DELETE FROM cases WHERE id=$1 RETURNING `+caseColumns, id)
	c, err := scanCase(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, storeErr("delete case", err)
	}
	return &c, nil
}

// Ping проверяет доступность хранилища для /readyz
func (r *CaseRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return storeErr("ping", err)
	}
	return nil
}
