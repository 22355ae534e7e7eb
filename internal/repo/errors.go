package repo

import "errors"

// Ошибки, общие для всех репозиториев. Вызывающий код проверяет их
// через errors.Is и сам решает, как транслировать (404, 409 и т.д.).
var (
	// ErrNotFound — запись отсутствует в БД.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — нарушение уникальности (duplicate key).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidState — операция не допускается в текущем статусе записи.
	ErrInvalidState = errors.New("invalid state")
)
