package workflow

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSessions_OpenGetClose(t *testing.T) {
	s := NewSessions("agency-code", time.Hour, newFakeStore())

	_, err := s.Open("wrong")
	require.ErrorIs(t, err, ErrInvalidPasscode)
	_, err = s.Open("")
	require.ErrorIs(t, err, ErrInvalidPasscode)

	id, err := s.Open("agency-code")
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	ctrl, err := s.Get(id)
	require.NoError(t, err)
	again, err := s.Get(id)
	require.NoError(t, err)
	require.Same(t, ctrl, again)

	other, err := s.Open("agency-code")
	require.NoError(t, err)
	otherCtrl, err := s.Get(other)
	require.NoError(t, err)
	require.NotSame(t, ctrl, otherCtrl)

	s.Close(id)
	_, err = s.Get(id)
	require.ErrorIs(t, err, ErrUnknownSession)
	require.Equal(t, 1, s.Len())
}

func TestSessions_EmptyPasscodeDisablesLogin(t *testing.T) {
	s := NewSessions("", time.Hour, newFakeStore())
	_, err := s.Open("")
	require.ErrorIs(t, err, ErrInvalidPasscode)
}

func TestSessions_IdleExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewSessions("agency-code", 30*time.Minute, newFakeStore())
	s.now = func() time.Time { return now }

	id, err := s.Open("agency-code")
	require.NoError(t, err)

	// обращение продлевает сессию
	now = now.Add(20 * time.Minute)
	_, err = s.Get(id)
	require.NoError(t, err)
	now = now.Add(20 * time.Minute)
	_, err = s.Get(id)
	require.NoError(t, err)

	now = now.Add(31 * time.Minute)
	_, err = s.Get(id)
	require.ErrorIs(t, err, ErrUnknownSession)
	require.Zero(t, s.Len())
}
