// Пакет flightstore — хранилище записей о рейсах в CSV-файле.
// Файл содержит строку заголовка (колонки схемы) и по одной строке на запись.
//
// Все операции, кроме Append, — линейный проход по файлу или его полная
// перезапись: индекса нет, объём данных — сотни и тысячи строк.
// Перезапись выполняется атомарно: temp файл → fsync → rename.
// Изменяющие операции сериализуются мьютексом хранилища.
package flightstore

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/bigkaa/flightstore/internal/domain/model"
	"github.com/bigkaa/flightstore/internal/storage/journal"
)

// tmpSuffix — суффикс временного файла перезаписи.
const tmpSuffix = ".tmp"

// Options — параметры хранилища.
type Options struct {
	// Path — путь к CSV-файлу (FLIGHTS_DATA_FILE)
	Path string
	// Schema — набор колонок. Нулевое значение — model.DefaultSchema().
	Schema model.Schema
	// UniqueIDs — отклонять Append с уже существующим id
	UniqueIDs bool
	// Journal — журнал операций записи (опционально)
	Journal *journal.Journal
	// Logger — логгер
	Logger *slog.Logger
}

// Store — хранилище записей о рейсах.
type Store struct {
	path      string
	schema    model.Schema
	uniqueIDs bool
	journal   *journal.Journal
	logger    *slog.Logger

	mu sync.RWMutex
	// generation увеличивается после каждой успешной записи через Store
	generation atomic.Uint64
}

// New создаёт хранилище. Создаёт родительскую директорию файла,
// сам файл создаётся лениво в EnsureInitialized.
func New(opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("не задан путь к файлу данных")
	}
	schema := opts.Schema
	if schema.Len() == 0 {
		schema = model.DefaultSchema()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dir := filepath.Dir(opts.Path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dir, err)
	}

	return &Store{
		path:      opts.Path,
		schema:    schema,
		uniqueIDs: opts.UniqueIDs,
		journal:   opts.Journal,
		logger:    logger.With(slog.String("component", "flightstore")),
	}, nil
}

// Path возвращает путь к CSV-файлу.
func (s *Store) Path() string {
	return s.path
}

// Schema возвращает схему хранилища.
func (s *Store) Schema() model.Schema {
	return s.schema
}

// UniqueIDs сообщает, проверяется ли уникальность id при Append.
func (s *Store) UniqueIDs() bool {
	return s.uniqueIDs
}

// EnsureInitialized создаёт файл с одной строкой заголовка, если файл
// отсутствует или пуст. Идемпотентна: существующий файл не изменяется.
func (s *Store) EnsureInitialized() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked()
}

func (s *Store) ensureLocked() error {
	info, err := os.Stat(s.path)
	switch {
	case err == nil && info.Size() > 0:
		return nil
	case err != nil && !os.IsNotExist(err):
		return s.persistErr("init", err)
	}

	if err := s.rewriteLocked(nil); err != nil {
		return err
	}
	s.logger.Info("Создан файл данных", slog.String("path", s.path))
	return nil
}

// Append дописывает запись в конец файла.
// При UniqueIDs предварительно проверяет отсутствие id (O(n)).
func (s *Store) Append(rec model.FlightRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLocked(); err != nil {
		return err
	}

	if s.uniqueIDs {
		records, err := s.loadLocked()
		if err != nil {
			return err
		}
		if indexOf(records, rec.ID) >= 0 {
			return fmt.Errorf("id %d: %w", rec.ID, ErrDuplicateID)
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(encodeRecord(s.schema, rec)); err != nil {
		return s.persistErr("append", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return s.persistErr("append", err)
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return s.persistErr("append", err)
	}
	sizeBefore := info.Size()

	entry, err := s.beginAppendTx(sizeBefore, buf.Bytes())
	if err != nil {
		return s.persistErr("append", err)
	}

	if err := appendBytes(s.path, buf.Bytes()); err != nil {
		// Обрезаем частично записанную строку
		s.truncateAppend(sizeBefore)
		s.rollbackTx(entry)
		return s.persistErr("append", err)
	}

	// Строка без коммита журнала не подтверждается и убирается из файла
	if err := s.commitTx(entry); err != nil {
		s.truncateAppend(sizeBefore)
		s.rollbackTx(entry)
		return s.persistErr("append", fmt.Errorf("ошибка коммита журнала: %w", err))
	}
	return nil
}

func (s *Store) truncateAppend(sizeBefore int64) {
	if err := os.Truncate(s.path, sizeBefore); err != nil {
		s.logger.Error("Не удалось откатить дозапись",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
	}
}

// LoadAll читает все записи после заголовка в порядке файла.
// Отсутствующий или пустой файл — пустая коллекция.
func (s *Store) LoadAll() ([]model.FlightRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() ([]model.FlightRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.FlightRecord{}, nil
		}
		return nil, s.persistErr("load", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	// Арность проверяется вручную, чтобы сообщить номер строки
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return []model.FlightRecord{}, nil
	}
	if err != nil {
		return nil, s.persistErr("load", err)
	}
	if err := checkHeader(s.schema, header); err != nil {
		return nil, &PersistenceError{Op: "load", Path: s.path, Line: 1, Err: err}
	}

	records := make([]model.FlightRecord, 0)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, s.persistErr("load", err)
		}
		line, _ := r.FieldPos(0)

		if len(row) != s.schema.Len() {
			return nil, &PersistenceError{
				Op:   "load",
				Path: s.path,
				Line: line,
				Err:  fmt.Errorf("строка содержит %d колонок, ожидается %d", len(row), s.schema.Len()),
			}
		}

		rec, err := decodeRecord(s.schema, row)
		if err != nil {
			return nil, &PersistenceError{Op: "load", Path: s.path, Line: line, Err: err}
		}
		records = append(records, rec)
	}

	return records, nil
}

// Verify проверяет, что файл читается и все строки разбираются.
// Отсутствующий файл считается корректным.
func (s *Store) Verify() error {
	_, err := s.LoadAll()
	return err
}

// FindByID возвращает первую запись с указанным id или ErrNotFound.
func (s *Store) FindByID(id int64) (*model.FlightRecord, error) {
	records, err := s.LoadAll()
	if err != nil {
		return nil, err
	}
	i := indexOf(records, id)
	if i < 0 {
		return nil, fmt.Errorf("id %d: %w", id, ErrNotFound)
	}
	rec := records[i]
	return &rec, nil
}

// ReplaceAll полностью перезаписывает файл: заголовок и записи в заданном порядке.
func (s *Store) ReplaceAll(records []model.FlightRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rewriteLocked(records)
}

// Update заменяет первую запись с указанным id на rec.
// Поиск выполняется по id, rec сохраняется целиком, включая собственный
// id (он может отличаться — тогда запись получает новый id).
// Если записи нет — ErrNotFound, файл не изменяется.
// При UniqueIDs новый id не должен принадлежать другой записи.
func (s *Store) Update(id int64, rec model.FlightRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked()
	if err != nil {
		return err
	}
	i := indexOf(records, id)
	if i < 0 {
		return fmt.Errorf("id %d: %w", id, ErrNotFound)
	}
	if s.uniqueIDs && rec.ID != id && indexOf(records, rec.ID) >= 0 {
		return fmt.Errorf("id %d: %w", rec.ID, ErrDuplicateID)
	}
	records[i] = rec
	return s.rewriteLocked(records)
}

// Delete удаляет первую запись с указанным id.
// Если записи нет — ErrNotFound, файл не изменяется.
func (s *Store) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked()
	if err != nil {
		return err
	}
	i := indexOf(records, id)
	if i < 0 {
		return fmt.Errorf("id %d: %w", id, ErrNotFound)
	}
	records = append(records[:i], records[i+1:]...)
	return s.rewriteLocked(records)
}

// Count возвращает количество строк данных (без заголовка).
// Отсутствующий файл — 0.
func (s *Store) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, s.persistErr("count", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return 0, nil
		}
		return 0, s.persistErr("count", err)
	}

	n := 0
	for {
		_, err := r.Read()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return 0, s.persistErr("count", err)
		}
		n++
	}
}

// Checksum возвращает SHA-256 содержимого файла в нижнем регистре hex.
// Отсутствующий файл — ErrNotFound.
func (s *Store) Checksum() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checksumLocked()
}

// Fingerprint возвращает номер поколения и SHA-256 файла, снятые
// согласованно: между ними хранилище не пишет. Если между двумя вызовами
// поколение не изменилось, а сумма изменилась, файл правили в обход Store.
func (s *Store) Fingerprint() (uint64, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum, err := s.checksumLocked()
	return s.generation.Load(), sum, err
}

func (s *Store) checksumLocked() (string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("файл %s: %w", s.path, ErrNotFound)
		}
		return "", s.persistErr("checksum", err)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", s.persistErr("checksum", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Recover откатывает операции, прерванные аварийным завершением:
// обрезает недописанные строки append и удаляет временные файлы rewrite.
// Вызывается один раз при старте. Возвращает количество откаченных операций.
func (s *Store) Recover() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recovered := 0
	if s.journal != nil {
		pending, err := s.journal.Pending()
		if err != nil {
			return 0, s.persistErr("recover", err)
		}
		for _, entry := range pending {
			if entry.Resource != s.path {
				continue
			}
			s.undo(entry)
			if err := s.journal.Rollback(entry.TransactionID); err != nil {
				s.logger.Error("Ошибка отката транзакции журнала",
					slog.String("tx_id", entry.TransactionID),
					slog.String("error", err.Error()),
				)
				continue
			}
			recovered++
		}
		if _, err := s.journal.Clean(); err != nil {
			s.logger.Warn("Ошибка очистки журнала", slog.String("error", err.Error()))
		}
	}

	// Временный файл без записи в журнале (журнал отключён)
	if err := os.Remove(s.path + tmpSuffix); err == nil {
		s.logger.Warn("Удалён временный файл прерванной перезаписи",
			slog.String("path", s.path+tmpSuffix),
		)
	}

	return recovered, nil
}

// undo отменяет эффект незавершённой операции журнала.
func (s *Store) undo(entry *journal.Entry) {
	switch entry.Operation {
	case journal.OpAppend:
		s.undoAppend(entry)
	case journal.OpRewrite:
		if entry.TempPath != "" {
			_ = os.Remove(entry.TempPath)
		}
	}
}

// undoAppend обрезает файл до SizeBefore, только если всё, что лежит
// после SizeBefore, — префикс строки из записи журнала. Иначе файл
// менялся после прерванной дозаписи и не трогается.
func (s *Store) undoAppend(entry *journal.Entry) {
	f, err := os.Open(s.path)
	if err != nil {
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.Size() <= entry.SizeBefore {
		return
	}
	tailLen := info.Size() - entry.SizeBefore
	if tailLen > int64(len(entry.Appended)) {
		s.logger.Warn("Файл изменён после прерванной дозаписи, откат пропущен",
			slog.String("tx_id", entry.TransactionID),
			slog.Int64("size", info.Size()),
		)
		return
	}

	tail := make([]byte, tailLen)
	if _, err := f.ReadAt(tail, entry.SizeBefore); err != nil {
		s.logger.Error("Не удалось прочитать хвост файла",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return
	}
	if !bytes.HasPrefix(entry.Appended, tail) {
		s.logger.Warn("Хвост файла не совпадает с прерванной дозаписью, откат пропущен",
			slog.String("tx_id", entry.TransactionID),
		)
		return
	}

	if err := os.Truncate(s.path, entry.SizeBefore); err != nil {
		s.logger.Error("Не удалось обрезать недописанную строку",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Warn("Обрезана недописанная строка",
		slog.String("tx_id", entry.TransactionID),
		slog.Int64("size", entry.SizeBefore),
	)
}

// rewriteLocked записывает заголовок и записи во временный файл
// и атомарно заменяет им основной. При ошибке основной файл не изменяется.
func (s *Store) rewriteLocked(records []model.FlightRecord) error {
	tmpPath := s.path + tmpSuffix

	var sizeBefore int64
	if info, err := os.Stat(s.path); err == nil {
		sizeBefore = info.Size()
	}

	entry, err := s.beginTx(journal.OpRewrite, sizeBefore, tmpPath)
	if err != nil {
		return s.persistErr("rewrite", err)
	}

	if err := s.writeTemp(tmpPath, records); err != nil {
		os.Remove(tmpPath)
		s.rollbackTx(entry)
		return s.persistErr("rewrite", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		s.rollbackTx(entry)
		return s.persistErr("rewrite", fmt.Errorf("ошибка атомарного переименования: %w", err))
	}
	syncDir(filepath.Dir(s.path))

	// Файл уже заменён, ошибка коммита только логируется
	if err := s.commitTx(entry); err != nil {
		s.logger.Error("Ошибка коммита журнала (данные сохранены)",
			slog.String("tx_id", entry.TransactionID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Debug("Файл данных перезаписан",
		slog.String("path", s.path),
		slog.Int("records", len(records)),
	)
	return nil
}

// writeTemp записывает CSV во временный файл с fsync.
func (s *Store) writeTemp(tmpPath string, records []model.FlightRecord) error {
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(s.schema.Header()); err != nil {
		f.Close()
		return fmt.Errorf("ошибка записи заголовка: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(encodeRecord(s.schema, rec)); err != nil {
			f.Close()
			return fmt.Errorf("ошибка записи строки id=%d: %w", rec.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("ошибка fsync: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}
	return nil
}

// beginTx открывает транзакцию журнала, если журнал настроен.
func (s *Store) beginTx(op journal.OperationType, sizeBefore int64, tmpPath string) (*journal.Entry, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.Begin(op, s.path, sizeBefore, tmpPath)
}

// beginAppendTx открывает транзакцию дозаписи data, если журнал настроен.
func (s *Store) beginAppendTx(sizeBefore int64, data []byte) (*journal.Entry, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.BeginAppend(s.path, sizeBefore, data)
}

// commitTx завершает транзакцию журнала.
func (s *Store) commitTx(entry *journal.Entry) error {
	s.generation.Add(1)
	if entry == nil {
		return nil
	}
	return s.journal.Commit(entry.TransactionID)
}

func (s *Store) rollbackTx(entry *journal.Entry) {
	if entry == nil {
		return
	}
	if err := s.journal.Rollback(entry.TransactionID); err != nil {
		s.logger.Error("Ошибка отката журнала",
			slog.String("tx_id", entry.TransactionID),
			slog.String("error", err.Error()),
		)
	}
}

// appendBytes дописывает данные в конец существующего файла с fsync.
func appendBytes(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return fmt.Errorf("ошибка открытия файла: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("ошибка записи: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("ошибка fsync: %w", err)
	}
	return f.Close()
}

// syncDir синхронизирует директорию после rename. Ошибки игнорируются.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// indexOf возвращает позицию первой записи с id или -1.
func indexOf(records []model.FlightRecord, id int64) int {
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}
