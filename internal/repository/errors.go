package repository

import "errors"

var (
	// ErrNotFound возвращается командами UPDATE/DELETE, не затронувшими ни одной строки.
	// Методы чтения возвращают nil, nil.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate нарушение уникального ограничения
	ErrDuplicate = errors.New("record already exists")
)

// rowScanner общий интерфейс pgx.Row и pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}
