package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"CaseTracker/internal/model"
)

// mockRepo реализует интерфейс Repo и сохраняет полученные события для проверки
type mockRepo struct {
	received [][]model.CaseEvent // полученные батчи событий
	err      error               // ошибка, которую вернет BatchInsertEvents
}

func (m *mockRepo) BatchInsertEvents(ctx context.Context, events []model.CaseEvent) error {
	copyBatch := make([]model.CaseEvent, len(events))
	copy(copyBatch, events)
	m.received = append(m.received, copyBatch)
	return m.err
}

func event(t *testing.T, kind model.EventKind, id string) []byte {
	t.Helper()
	data, err := json.Marshal(model.CaseEvent{
		Kind:       kind,
		Case:       model.Case{ID: id, CaseName: "Acme Site", Priority: model.PriorityMid},
		OccurredAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)
	return data
}

func TestHandleMessage_NoFlush(t *testing.T) {
	// при количестве событий меньше batchSize записи в репозиторий нет
	repo := &mockRepo{}
	cons := NewConsumer(repo, 3)
	require.NoError(t, cons.HandleMessage(context.Background(), event(t, model.EventCreated, "a")))
	require.Len(t, repo.received, 0)
	require.Equal(t, 1, cons.Pending())
}

func TestHandleMessage_FlushOnBatch(t *testing.T) {
	repo := &mockRepo{}
	cons := NewConsumer(repo, 2)
	require.NoError(t, cons.HandleMessage(context.Background(), event(t, model.EventCreated, "a")))
	require.NoError(t, cons.HandleMessage(context.Background(), event(t, model.EventDeleted, "b")))

	require.Len(t, repo.received, 1)
	require.Len(t, repo.received[0], 2)
	require.Equal(t, "a", repo.received[0][0].Case.ID)
	require.Equal(t, model.EventDeleted, repo.received[0][1].Kind)
	require.True(t, repo.received[0][0].OccurredAt.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
	require.Zero(t, cons.Pending())
}

func TestFlush_Empty(t *testing.T) {
	repo := &mockRepo{}
	cons := NewConsumer(repo, 5)
	require.NoError(t, cons.Flush(context.Background()))
	require.Len(t, repo.received, 0)
}

func TestFlush_NonEmpty(t *testing.T) {
	repo := &mockRepo{}
	cons := NewConsumer(repo, 5)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, cons.HandleMessage(context.Background(), event(t, model.EventStatusUpdated, id)))
	}
	require.Len(t, repo.received, 0)

	require.NoError(t, cons.Flush(context.Background()))
	require.Len(t, repo.received, 1)
	require.Len(t, repo.received[0], 3)
}

func TestHandleMessage_ParseError(t *testing.T) {
	repo := &mockRepo{}
	cons := NewConsumer(repo, 1)
	require.Error(t, cons.HandleMessage(context.Background(), []byte("not json")))
	require.Error(t, cons.HandleMessage(context.Background(), []byte(`{"kind":"archived","case":{}}`)))
	require.Len(t, repo.received, 0)
	require.Zero(t, cons.Pending())
}

func TestBatchInsertError_KeepsEvents(t *testing.T) {
	// ошибка репозитория возвращается, а события остаются для повторной отправки
	ex := errors.New("insert failed")
	repo := &mockRepo{err: ex}
	cons := NewConsumer(repo, 1)
	err := cons.HandleMessage(context.Background(), event(t, model.EventCreated, "a"))
	require.ErrorIs(t, err, ex)
	require.Equal(t, 1, cons.Pending())

	repo.err = nil
	require.NoError(t, cons.Flush(context.Background()))
	require.Zero(t, cons.Pending())
	require.Len(t, repo.received, 2)
	require.Equal(t, "a", repo.received[1][0].Case.ID)
}

func TestBatchInsertError_BoundedBuffer(t *testing.T) {
	repo := &mockRepo{err: errors.New("down")}
	cons := NewConsumer(repo, 1)
	for i := 0; i < maxBatchesBuffered+5; i++ {
		_ = cons.HandleMessage(context.Background(), event(t, model.EventCreated, "x"))
	}
	require.Equal(t, maxBatchesBuffered, cons.Pending())
}
