package model

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation: входные данные нарушают ограничения модели, исправляет вызывающий
	ErrValidation = errors.New("validation error")
	// ErrNotFound возвращается при отсутствии кейса с указанным id
	ErrNotFound = errors.New("case not found")
	// ErrStoreUnavailable: хранилище недоступно или вернуло ошибку транспорта
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError описывает поле, не прошедшее проверку
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError создаёт ошибку валидации для поля
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Reason
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}

// Is позволяет сравнивать через errors.Is(err, ErrValidation)
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StoreError оборачивает ошибку удалённого хранилища
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store unavailable: failed to %s: %v", e.Op, e.Err)
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
