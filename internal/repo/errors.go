package repo

import "errors"

// Ошибки уровня хранилища. Сервисный слой отображает их в ошибки API.
var (
	// ErrNotFound — запрошенная запись отсутствует.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists — нарушение уникальности при вставке.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrInvalidState — запись не в том состоянии для операции.
	ErrInvalidState = errors.New("record in invalid state")
)
