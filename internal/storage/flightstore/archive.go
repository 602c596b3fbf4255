package flightstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
)

// Archive записывает в w ZIP-архив с одной записью — текущим CSV-файлом.
// Имя записи — имя файла данных, время изменения — mtime файла.
// Отсутствующий файл — ErrNotFound.
func (s *Store) Archive(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("файл %s: %w", s.path, ErrNotFound)
		}
		return s.persistErr("archive", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return s.persistErr("archive", err)
	}

	zw := zip.NewWriter(w)

	header := &zip.FileHeader{
		Name:     filepath.Base(s.path),
		Method:   zip.Deflate,
		Modified: info.ModTime(),
	}
	header.SetMode(0o644)

	entry, err := zw.CreateHeader(header)
	if err != nil {
		zw.Close()
		return s.persistErr("archive", fmt.Errorf("ошибка создания записи архива: %w", err))
	}
	if _, err := io.Copy(entry, f); err != nil {
		zw.Close()
		return s.persistErr("archive", fmt.Errorf("ошибка сжатия: %w", err))
	}
	if err := zw.Close(); err != nil {
		return s.persistErr("archive", fmt.Errorf("ошибка завершения архива: %w", err))
	}
	return nil
}

// ArchiveName возвращает имя архива для скачивания: flights.csv → flights.zip.
func (s *Store) ArchiveName() string {
	base := filepath.Base(s.path)
	return base[:len(base)-len(filepath.Ext(base))] + ".zip"
}
