package flightstore

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound — запись с запрошенным id отсутствует (или отсутствует файл).
	ErrNotFound = errors.New("запись не найдена")
	// ErrDuplicateID — запись с таким id уже существует (только при UniqueIDs).
	ErrDuplicateID = errors.New("запись с таким id уже существует")
)

// PersistenceError — ошибка ввода-вывода или повреждённая строка файла.
type PersistenceError struct {
	// Op — операция хранилища (load, append, rewrite, checksum, archive, ...)
	Op string
	// Path — путь к CSV-файлу
	Path string
	// Line — номер строки файла (0, если не относится к строке)
	Line int
	// Err — исходная ошибка
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("ошибка %s %s (строка %d): %v", e.Op, e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("ошибка %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// persistErr оборачивает err в *PersistenceError.
func (s *Store) persistErr(op string, err error) error {
	return &PersistenceError{Op: op, Path: s.path, Err: err}
}
