// Пакет repository содержит unit-тесты для слоя доступа к данным CaseRepository
package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"CaseTracker/internal/model"
)

const (
	caseID  = "5f0c6a3e-9a43-4d0e-8f3c-2b7d1c9e4a10"
	otherID = "8b1e2d4c-7f6a-4e3b-9c2d-1a0f9e8d7c6b"
)

var caseColumnNames = []string{"id", "client_name", "case_name", "website_type", "package", "priority",
	"payment_status", "project_status", "website_link", "start_date", "end_date", "created_at", "updated_at"}

func ptr(s string) *string {
	return &s
}

func acmeInput() model.CaseInput {
	return model.CaseInput{
		ClientName:    "Acme Co",
		CaseName:      "Acme Site",
		WebsiteType:   model.WebsiteLanding,
		Package:       model.PackageBeginner,
		Priority:      model.PriorityMid,
		PaymentStatus: model.PaymentToBeDiscuss,
		ProjectStatus: model.ProjectNotComplete,
		StartDate:     model.NewDate(2024, 1, 1),
	}
}

func newMock(t *testing.T) (*CaseRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewCaseRepository(db), mock
}

// Тест создания кейса: вставка и получение id/меток времени через RETURNING
func TestCreateCase(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO cases(client_name, case_name, website_type, package, priority, payment_status,")).
		WithArgs("Acme Co", "Acme Site", "Landing Page", "Beginner Package", "MID", "to be discuss",
			"not complete", nil, "2024-01-01", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(caseID, now, now))

	c, err := repo.Create(context.Background(), acmeInput())
	require.NoError(t, err)
	require.Equal(t, caseID, c.ID)
	require.Equal(t, "Acme Site", c.CaseName)
	require.Equal(t, model.PriorityMid, c.Priority)
	require.Equal(t, now, c.CreatedAt)
	require.Nil(t, c.EndDate)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Ошибки валидации не доходят до базы
func TestCreateCase_Validation(t *testing.T) {
	repo, mock := newMock(t)
	in := acmeInput()
	in.Priority = "URGENT"
	_, err := repo.Create(context.Background(), in)
	require.ErrorIs(t, err, model.ErrValidation)

	in = acmeInput()
	in.ProjectStatus = model.ProjectPublished
	_, err = repo.Create(context.Background(), in)
	require.ErrorIs(t, err, model.ErrValidation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCase_InsertError(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO cases")).WillReturnError(errors.New("connection reset"))
	_, err := repo.Create(context.Background(), acmeInput())
	require.ErrorIs(t, err, model.ErrStoreUnavailable)
	require.Contains(t, err.Error(), "connection reset")
}

func TestCreateCase_DuplicateName(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO cases")).WillReturnError(&pq.Error{Code: pqUniqueViolation})
	_, err := repo.Create(context.Background(), acmeInput())
	require.ErrorIs(t, err, model.ErrValidation)
	var ve *model.ValidationError
	require.True(t, errors.As(err, &ve))
	require.Equal(t, "case_name", ve.Field)
}

// Тест списка: порядок по created_at DESC и разбор nullable-полей
func TestListCases(t *testing.T) {
	repo, mock := newMock(t)
	created := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM cases ORDER BY created_at DESC")).
		WillReturnRows(sqlmock.NewRows(caseColumnNames).
			AddRow(caseID, "Acme Co", "Acme Site", "Landing Page", "Beginner Package", "HIGH", "paid",
				"published", "https://acme.example", created, end, created, created).
			AddRow(otherID, "Beta", "Beta Shop", "Store Website", "Elite Package", "LOW", "half paid",
				"on going", nil, created, nil, created, created))

	cases, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, cases, 2)
	require.Equal(t, model.ProjectPublished, cases[0].ProjectStatus)
	require.Equal(t, "https://acme.example", *cases[0].WebsiteLink)
	require.Equal(t, "2024-02-01", cases[0].EndDate.String())
	require.Nil(t, cases[1].WebsiteLink)
	require.Nil(t, cases[1].EndDate)
	require.Equal(t, model.PaymentHalfPaid, cases[1].PaymentStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListCases_QueryError(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM cases ORDER BY created_at DESC")).WillReturnError(errors.New("timeout"))
	cases, err := repo.List(context.Background())
	require.Nil(t, cases)
	require.ErrorIs(t, err, model.ErrStoreUnavailable)
}

// Тест частичного обновления: SELECT FOR UPDATE + UPDATE RETURNING + COMMIT
func TestUpdateStatus_Publish(t *testing.T) {
	repo, mock := newMock(t)
	created := time.Now().Add(-time.Hour)
	updated := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM cases WHERE id=$1 FOR UPDATE")).
		WithArgs(caseID).
		WillReturnRows(sqlmock.NewRows(caseColumnNames).
			AddRow(caseID, "Acme Co", "Acme Site", "Landing Page", "Beginner Package", "MID", "to be discuss",
				"not complete", nil, created, nil, created, created))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE cases SET payment_status=$1, project_status=$2, website_link=$3, updated_at=now()")).
		WithArgs("to be discuss", "published", "https://acme.example", caseID).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(updated))
	mock.ExpectCommit()

	published := model.ProjectPublished
	c, err := repo.UpdateStatus(context.Background(), caseID, model.StatusUpdate{
		ProjectStatus: &published,
		WebsiteLink:   ptr("https://acme.example"),
	})
	require.NoError(t, err)
	require.Equal(t, model.ProjectPublished, c.ProjectStatus)
	require.Equal(t, model.PaymentToBeDiscuss, c.PaymentStatus)
	require.Equal(t, "https://acme.example", *c.WebsiteLink)
	require.Equal(t, updated, c.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Публикация без ссылки откатывает транзакцию и возвращает ошибку валидации
func TestUpdateStatus_PublishWithoutLink(t *testing.T) {
	repo, mock := newMock(t)
	created := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM cases WHERE id=$1 FOR UPDATE")).
		WithArgs(caseID).
		WillReturnRows(sqlmock.NewRows(caseColumnNames).
			AddRow(caseID, "Acme Co", "Acme Site", "Landing Page", "Beginner Package", "MID", "paid",
				"completed", nil, created, nil, created, created))
	mock.ExpectRollback()

	published := model.ProjectPublished
	_, err := repo.UpdateStatus(context.Background(), caseID, model.StatusUpdate{ProjectStatus: &published})
	require.ErrorIs(t, err, model.ErrValidation)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Очистка ссылки у опубликованного кейса тоже нарушает инвариант
func TestUpdateStatus_ClearLinkOfPublished(t *testing.T) {
	repo, mock := newMock(t)
	created := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(caseID).
		WillReturnRows(sqlmock.NewRows(caseColumnNames).
			AddRow(caseID, "Acme Co", "Acme Site", "Landing Page", "Beginner Package", "MID", "paid",
				"published", "https://acme.example", created, nil, created, created))
	mock.ExpectRollback()

	_, err := repo.UpdateStatus(context.Background(), caseID, model.StatusUpdate{WebsiteLink: ptr("")})
	require.ErrorIs(t, err, model.ErrValidation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_NotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WithArgs(otherID).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	paid := model.PaymentPaid
	_, err := repo.UpdateStatus(context.Background(), otherID, model.StatusUpdate{PaymentStatus: &paid})
	require.ErrorIs(t, err, model.ErrNotFound)

	// идентификатор не в формате UUID не может существовать, база не вызывается
	_, err = repo.UpdateStatus(context.Background(), "42", model.StatusUpdate{PaymentStatus: &paid})
	require.ErrorIs(t, err, model.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_BeginError(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))
	paid := model.PaymentPaid
	_, err := repo.UpdateStatus(context.Background(), caseID, model.StatusUpdate{PaymentStatus: &paid})
	require.ErrorIs(t, err, model.ErrStoreUnavailable)
}

func TestUpdateStatus_InvalidEnum(t *testing.T) {
	repo, mock := newMock(t)
	bad := model.ProjectStatus("archived")
	_, err := repo.UpdateStatus(context.Background(), caseID, model.StatusUpdate{ProjectStatus: &bad})
	require.ErrorIs(t, err, model.ErrValidation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCase(t *testing.T) {
	repo, mock := newMock(t)
	created := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM cases WHERE id=$1 RETURNING")).
		WithArgs(caseID).
		WillReturnRows(sqlmock.NewRows(caseColumnNames).
			AddRow(caseID, "Acme Co", "Acme Site", "Landing Page", "Beginner Package", "LOW", "paid",
				"on going", nil, created, nil, created, created))
	deleted, err := repo.Delete(context.Background(), caseID)
	require.NoError(t, err)
	require.Equal(t, "Acme Site", deleted.CaseName)

	// удаление несуществующего id
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM cases WHERE id=$1")).
		WithArgs(otherID).
		WillReturnError(sql.ErrNoRows)
	_, err = repo.Delete(context.Background(), otherID)
	require.ErrorIs(t, err, model.ErrNotFound)

	_, err = repo.Delete(context.Background(), "not-a-uuid")
	require.ErrorIs(t, err, model.ErrNotFound)

	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM cases")).WillReturnError(errors.New("broken pipe"))
	_, err = repo.Delete(context.Background(), caseID)
	require.ErrorIs(t, err, model.ErrStoreUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	repo := NewCaseRepository(db)
	mock.ExpectPing()
	require.NoError(t, repo.Ping(context.Background()))
	mock.ExpectPing().WillReturnError(errors.New("no route to host"))
	require.ErrorIs(t, repo.Ping(context.Background()), model.ErrStoreUnavailable)
}
