package journal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Journal — файловый журнал операций записи.
// Порядок работы: Begin (pending) → операция → Commit или Rollback.
// Закоммиченные записи удаляются сразу: восстанавливать по ним нечего.
// Откаченные остаются до Clean для диагностики.
type Journal struct {
	dir    string
	mu     sync.Mutex
	logger *slog.Logger
}

// New создаёт журнал в директории dir. Создаёт директорию
// и проверяет её доступность на запись.
func New(dir string, logger *slog.Logger) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию журнала %s: %w", dir, err)
	}

	testFile := filepath.Join(dir, ".journal_write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o640); err != nil {
		return nil, fmt.Errorf("директория журнала %s недоступна для записи: %w", dir, err)
	}
	os.Remove(testFile)

	return &Journal{
		dir:    dir,
		logger: logger.With(slog.String("component", "journal")),
	}, nil
}

// Begin создаёт запись со статусом pending.
// sizeBefore — размер ресурса до операции, tempPath — временный файл (для rewrite).
func (j *Journal) Begin(op OperationType, resource string, sizeBefore int64, tempPath string) (*Entry, error) {
	return j.begin(&Entry{
		Operation:  op,
		Resource:   resource,
		SizeBefore: sizeBefore,
		TempPath:   tempPath,
	})
}

// BeginAppend создаёт pending-запись дозаписи data в конец resource.
func (j *Journal) BeginAppend(resource string, sizeBefore int64, data []byte) (*Entry, error) {
	return j.begin(&Entry{
		Operation:  OpAppend,
		Resource:   resource,
		SizeBefore: sizeBefore,
		Appended:   data,
	})
}

func (j *Journal) begin(entry *Entry) (*Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry.TransactionID = uuid.New().String()
	entry.Status = StatusPending
	entry.StartedAt = time.Now().UTC()

	if err := j.writeEntry(entry); err != nil {
		return nil, fmt.Errorf("не удалось создать запись журнала: %w", err)
	}

	j.logger.Debug("Транзакция начата",
		slog.String("tx_id", entry.TransactionID),
		slog.String("operation", string(entry.Operation)),
		slog.String("resource", entry.Resource),
	)

	return entry, nil
}

// Commit завершает транзакцию и удаляет её запись.
func (j *Journal) Commit(txID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry, err := j.readEntry(txID)
	if err != nil {
		return fmt.Errorf("не удалось прочитать запись журнала %s: %w", txID, err)
	}
	if entry.Status != StatusPending {
		return fmt.Errorf("запись журнала %s имеет статус %s, ожидается %s", txID, entry.Status, StatusPending)
	}

	if err := os.Remove(j.entryPath(txID)); err != nil {
		return fmt.Errorf("не удалось удалить запись журнала %s: %w", txID, err)
	}

	j.logger.Debug("Транзакция завершена",
		slog.String("tx_id", txID),
		slog.Duration("duration", time.Since(entry.StartedAt)),
	)
	return nil
}

// Rollback помечает транзакцию как отменённую.
func (j *Journal) Rollback(txID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry, err := j.readEntry(txID)
	if err != nil {
		return fmt.Errorf("не удалось прочитать запись журнала %s: %w", txID, err)
	}
	if entry.Status != StatusPending {
		return fmt.Errorf("запись журнала %s имеет статус %s, ожидается %s", txID, entry.Status, StatusPending)
	}

	now := time.Now().UTC()
	entry.Status = StatusRolledBack
	entry.CompletedAt = &now

	if err := j.writeEntry(entry); err != nil {
		return fmt.Errorf("не удалось обновить запись журнала %s: %w", txID, err)
	}

	j.logger.Debug("Транзакция отменена", slog.String("tx_id", txID))
	return nil
}

// Pending возвращает все записи со статусом pending.
// Вызывается при старте для отката прерванных операций.
func (j *Journal) Pending() ([]*Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.scan()
	if err != nil {
		return nil, err
	}

	var pending []*Entry
	for _, entry := range entries {
		if entry.Status == StatusPending {
			pending = append(pending, entry)
			j.logger.Warn("Обнаружена незавершённая транзакция",
				slog.String("tx_id", entry.TransactionID),
				slog.String("operation", string(entry.Operation)),
				slog.String("resource", entry.Resource),
				slog.Time("started_at", entry.StartedAt),
			)
		}
	}
	return pending, nil
}

// Get читает запись журнала по идентификатору транзакции.
func (j *Journal) Get(txID string) (*Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.readEntry(txID)
}

// Clean удаляет откаченные записи. Возвращает количество удалённых.
func (j *Journal) Clean() (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.scan()
	if err != nil {
		return 0, err
	}

	cleaned := 0
	for _, entry := range entries {
		if entry.Status == StatusPending {
			continue
		}
		if err := os.Remove(j.entryPath(entry.TransactionID)); err != nil {
			j.logger.Warn("Не удалось удалить запись журнала",
				slog.String("tx_id", entry.TransactionID),
				slog.String("error", err.Error()),
			)
			continue
		}
		cleaned++
	}

	if cleaned > 0 {
		j.logger.Info("Очистка журнала завершена", slog.Int("cleaned", cleaned))
	}
	return cleaned, nil
}

// scan читает все записи журнала. Нечитаемые записи пропускаются.
func (j *Journal) scan() ([]*Entry, error) {
	paths, err := filepath.Glob(filepath.Join(j.dir, "*"+entrySuffix))
	if err != nil {
		return nil, fmt.Errorf("не удалось сканировать директорию журнала: %w", err)
	}

	result := make([]*Entry, 0, len(paths))
	for _, path := range paths {
		txID := strings.TrimSuffix(filepath.Base(path), entrySuffix)
		entry, err := j.readEntry(txID)
		if err != nil {
			j.logger.Warn("Не удалось прочитать запись журнала",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			continue
		}
		result = append(result, entry)
	}
	return result, nil
}

// writeEntry атомарно записывает запись: temp файл → fsync → rename.
func (j *Journal) writeEntry(entry *Entry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации: %w", err)
	}

	targetPath := j.entryPath(entry.TransactionID)
	tmpPath := targetPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, targetPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}
	return nil
}

// readEntry читает запись журнала из файла.
func (j *Journal) readEntry(txID string) (*Entry, error) {
	data, err := os.ReadFile(j.entryPath(txID))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("ошибка десериализации: %w", err)
	}
	return &entry, nil
}

func (j *Journal) entryPath(txID string) string {
	return filepath.Join(j.dir, entryFileName(txID))
}
