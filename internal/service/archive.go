// archive.go — подготовка ZIP-архива файла данных для скачивания.
package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	apierrors "github.com/bigkaa/flightstore/internal/api/errors"
)

// ArchiveResult — готовый архив во временном файле.
// Close закрывает и удаляет временный файл.
type ArchiveResult struct {
	// File — открытый архив, позиция — начало файла
	File *os.File
	// Name — имя для Content-Disposition (flights.zip)
	Name string
	// Size — размер архива в байтах
	Size int64
	// SHA256 — контрольная сумма архива (hex), используется как ETag
	SHA256 string
	// ModTime — время создания архива
	ModTime time.Time
}

// Close закрывает архив и удаляет временный файл.
func (a *ArchiveResult) Close() error {
	closeErr := a.File.Close()
	if err := os.Remove(a.File.Name()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return closeErr
}

// Archive сжимает текущий файл данных в ZIP во временный файл.
// Вызывающий код обязан вызвать Close у результата.
func (s *FlightService) Archive() (*ArchiveResult, *FlightError) {
	res, ferr := s.archive()
	s.observe("archive", ferr)
	return res, ferr
}

func (s *FlightService) archive() (*ArchiveResult, *FlightError) {
	if ferr := s.ensure(); ferr != nil {
		return nil, ferr
	}

	tmp, err := os.CreateTemp("", "flights-archive-*.zip")
	if err != nil {
		return nil, s.archiveFailed("ошибка создания временного файла", err)
	}
	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}

	hasher := sha256.New()
	if err := s.store.Archive(io.MultiWriter(tmp, hasher)); err != nil {
		cleanup()
		return nil, s.mapError("archive", err)
	}

	info, err := tmp.Stat()
	if err != nil {
		cleanup()
		return nil, s.archiveFailed("ошибка stat архива", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, s.archiveFailed("ошибка позиционирования архива", err)
	}

	s.logger.Debug("Архив подготовлен",
		slog.String("name", s.store.ArchiveName()),
		slog.Int64("size", info.Size()),
	)

	return &ArchiveResult{
		File:    tmp,
		Name:    s.store.ArchiveName(),
		Size:    info.Size(),
		SHA256:  hex.EncodeToString(hasher.Sum(nil)),
		ModTime: info.ModTime(),
	}, nil
}

func (s *FlightService) archiveFailed(msg string, err error) *FlightError {
	s.logger.Error("Ошибка подготовки архива",
		slog.String("error", fmt.Sprintf("%s: %v", msg, err)),
	)
	return &FlightError{
		StatusCode: 500,
		Code:       apierrors.CodeInternalError,
		Message:    "Ошибка создания архива",
	}
}
