package flightstore

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/bigkaa/flightstore/internal/domain/model"
	"github.com/bigkaa/flightstore/internal/storage/journal"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// newTestStore создаёт хранилище во временной директории с журналом.
func newTestStore(t *testing.T, mutate ...func(*Options)) *Store {
	t.Helper()
	dir := t.TempDir()

	j, err := journal.New(filepath.Join(dir, "wal"), testLogger())
	if err != nil {
		t.Fatalf("ошибка создания журнала: %v", err)
	}

	opts := Options{
		Path:    filepath.Join(dir, "data", "flights.csv"),
		Journal: j,
		Logger:  testLogger(),
	}
	for _, m := range mutate {
		m(&opts)
	}

	s, err := New(opts)
	if err != nil {
		t.Fatalf("ошибка создания хранилища: %v", err)
	}
	return s
}

func mustTime(t *testing.T, s string) model.Timestamp {
	t.Helper()
	ts, err := model.ParseTimestamp(s)
	if err != nil {
		t.Fatalf("ошибка разбора %q: %v", s, err)
	}
	return ts
}

// testFlight — рейс GRU → JFK.
func testFlight(t *testing.T, id int64) model.FlightRecord {
	t.Helper()
	return model.FlightRecord{
		ID:            id,
		FlightNumber:  100,
		Carrier:       "LATAM",
		Origin:        "GRU",
		Destination:   "JFK",
		DepartureTime: mustTime(t, "2024-01-01T10:00:00"),
		ArrivalTime:   mustTime(t, "2024-01-01T20:00:00"),
		AircraftID:    7,
		Status:        "SCHEDULED",
	}
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ошибка чтения %s: %v", path, err)
	}
	return data
}

// TestNew_EmptyPath проверяет отказ без пути к файлу.
func TestNew_EmptyPath(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("ожидалась ошибка для пустого пути")
	}
}

// TestEnsureInitialized_Idempotent проверяет, что повторные вызовы
// оставляют файл побайтно идентичным.
func TestEnsureInitialized_Idempotent(t *testing.T) {
	s := newTestStore(t)

	if err := s.EnsureInitialized(); err != nil {
		t.Fatalf("ошибка инициализации: %v", err)
	}
	first := readFile(t, s.Path())

	want := "id,flight_number,carrier,origin,destination,departure_time,arrival_time,aircraft_id,status\n"
	if string(first) != want {
		t.Errorf("ожидался только заголовок %q, получено %q", want, first)
	}

	for i := 0; i < 3; i++ {
		if err := s.EnsureInitialized(); err != nil {
			t.Fatalf("ошибка повторной инициализации: %v", err)
		}
	}
	if !bytes.Equal(first, readFile(t, s.Path())) {
		t.Error("повторная инициализация изменила файл")
	}
}

// TestEnsureInitialized_KeepsData проверяет, что инициализация не трогает данные.
func TestEnsureInitialized_KeepsData(t *testing.T) {
	s := newTestStore(t)
	if err := s.Append(testFlight(t, 1)); err != nil {
		t.Fatalf("ошибка вставки: %v", err)
	}
	before := readFile(t, s.Path())

	if err := s.EnsureInitialized(); err != nil {
		t.Fatalf("ошибка инициализации: %v", err)
	}
	if !bytes.Equal(before, readFile(t, s.Path())) {
		t.Error("инициализация изменила существующий файл")
	}
}

// TestAppendAndFind проверяет round-trip вставки и поиска по id.
func TestAppendAndFind(t *testing.T) {
	s := newTestStore(t)
	rec := testFlight(t, 1)

	if err := s.Append(rec); err != nil {
		t.Fatalf("ошибка вставки: %v", err)
	}

	got, err := s.FindByID(1)
	if err != nil {
		t.Fatalf("ошибка поиска: %v", err)
	}
	if !got.Equal(rec) {
		t.Errorf("запись не совпадает:\nожидалось %+v\nполучено  %+v", rec, *got)
	}

	content := string(readFile(t, s.Path()))
	if !strings.Contains(content, "1,100,LATAM,GRU,JFK,2024-01-01T10:00:00,2024-01-01T20:00:00,7,SCHEDULED\n") {
		t.Errorf("неожиданное содержимое файла:\n%s", content)
	}
}

// TestAppend_CreatesFile проверяет, что Append без инициализации создаёт заголовок.
func TestAppend_CreatesFile(t *testing.T) {
	s := newTestStore(t)

	if err := s.Append(testFlight(t, 5)); err != nil {
		t.Fatalf("ошибка вставки: %v", err)
	}
	records, err := s.LoadAll()
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	if len(records) != 1 || records[0].ID != 5 {
		t.Errorf("ожидалась одна запись с id 5, получено %+v", records)
	}
}

// TestAppend_QuotesDelimiters проверяет экранирование запятых и кавычек.
func TestAppend_QuotesDelimiters(t *testing.T) {
	s := newTestStore(t)
	rec := testFlight(t, 2)
	rec.Status = `DELAYED, "weather"`
	rec.Carrier = "Azul, Linhas"

	if err := s.Append(rec); err != nil {
		t.Fatalf("ошибка вставки: %v", err)
	}
	got, err := s.FindByID(2)
	if err != nil {
		t.Fatalf("ошибка поиска: %v", err)
	}
	if got.Status != rec.Status || got.Carrier != rec.Carrier {
		t.Errorf("значения с разделителями искажены: %+v", got)
	}
}

// TestAppend_DuplicatePermissive проверяет допуск дубликатов id по умолчанию.
func TestAppend_DuplicatePermissive(t *testing.T) {
	s := newTestStore(t)
	first := testFlight(t, 1)
	second := testFlight(t, 1)
	second.FlightNumber = 200

	if err := s.Append(first); err != nil {
		t.Fatalf("ошибка вставки: %v", err)
	}
	if err := s.Append(second); err != nil {
		t.Fatalf("дубликат id должен допускаться: %v", err)
	}

	n, err := s.Count()
	if err != nil {
		t.Fatalf("ошибка подсчёта: %v", err)
	}
	if n != 2 {
		t.Errorf("ожидалось 2 записи, получено %d", n)
	}

	// Поиск возвращает первую запись
	got, err := s.FindByID(1)
	if err != nil {
		t.Fatalf("ошибка поиска: %v", err)
	}
	if got.FlightNumber != 100 {
		t.Errorf("ожидалась первая запись (100), получено %d", got.FlightNumber)
	}
}

// TestAppend_DuplicateRejected проверяет отказ при UniqueIDs.
func TestAppend_DuplicateRejected(t *testing.T) {
	s := newTestStore(t, func(o *Options) { o.UniqueIDs = true })

	if err := s.Append(testFlight(t, 1)); err != nil {
		t.Fatalf("ошибка вставки: %v", err)
	}
	before := readFile(t, s.Path())

	err := s.Append(testFlight(t, 1))
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("ожидалась ErrDuplicateID, получено %v", err)
	}
	if !bytes.Equal(before, readFile(t, s.Path())) {
		t.Error("отклонённая вставка изменила файл")
	}
}

// TestLoadAll_Empty проверяет пустую коллекцию для отсутствующего файла
// и файла только с заголовком.
func TestLoadAll_Empty(t *testing.T) {
	s := newTestStore(t)

	records, err := s.LoadAll()
	if err != nil {
		t.Fatalf("ошибка чтения отсутствующего файла: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("ожидалась пустая коллекция, получено %d", len(records))
	}

	if err := s.EnsureInitialized(); err != nil {
		t.Fatalf("ошибка инициализации: %v", err)
	}
	records, err = s.LoadAll()
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("ожидался пустой (не nil) срез, получено %#v", records)
	}
}

// TestLoadAll_ArityMismatch проверяет ошибку на строке с неверным числом колонок.
func TestLoadAll_ArityMismatch(t *testing.T) {
	s := newTestStore(t)
	if err := s.EnsureInitialized(); err != nil {
		t.Fatalf("ошибка инициализации: %v", err)
	}
	if err := s.Append(testFlight(t, 1)); err != nil {
		t.Fatalf("ошибка вставки: %v", err)
	}

	f, err := os.OpenFile(s.Path(), os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("ошибка открытия: %v", err)
	}
	_, _ = f.WriteString("2,200,GOL\n")
	f.Close()

	_, err = s.LoadAll()
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("ожидалась PersistenceError, получено %v", err)
	}
	if perr.Line != 3 {
		t.Errorf("ожидалась строка 3, получено %d", perr.Line)
	}
}

// TestLoadAll_BadValue проверяет ошибку на нечисловом id.
func TestLoadAll_BadValue(t *testing.T) {
	s := newTestStore(t)
	content := "id,flight_number,carrier,origin,destination,departure_time,arrival_time,aircraft_id,status\n" +
		"abc,100,LATAM,GRU,JFK,2024-01-01T10:00:00,2024-01-01T20:00:00,7,SCHEDULED\n"
	if err := os.WriteFile(s.Path(), []byte(content), 0o640); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	_, err := s.LoadAll()
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("ожидалась PersistenceError, получено %v", err)
	}
	if perr.Line != 2 {
		t.Errorf("ожидалась строка 2, получено %d", perr.Line)
	}
}

// TestLoadAll_HeaderMismatch проверяет отказ при заголовке другой схемы.
func TestLoadAll_HeaderMismatch(t *testing.T) {
	s := newTestStore(t)
	content := "id_voo,numero_voo,cia,origem,destino,horario_partida,horario_chegada,id_aeronave,status\n"
	if err := os.WriteFile(s.Path(), []byte(content), 0o640); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	_, err := s.LoadAll()
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("ожидалась PersistenceError, получено %v", err)
	}
}

// TestFindByID_NotFound проверяет ErrNotFound.
func TestFindByID_NotFound(t *testing.T) {
	s := newTestStore(t)
	if err := s.Append(testFlight(t, 1)); err != nil {
		t.Fatalf("ошибка вставки: %v", err)
	}
	if _, err := s.FindByID(42); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидалась ErrNotFound, получено %v", err)
	}
}

// TestUpdate_SameID проверяет замену записи на месте.
func TestUpdate_SameID(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []int64{1, 2, 3} {
		if err := s.Append(testFlight(t, id)); err != nil {
			t.Fatalf("ошибка вставки: %v", err)
		}
	}

	updated := testFlight(t, 2)
	updated.Status = "DEPARTED"
	updated.Destination = "MIA"
	if err := s.Update(2, updated); err != nil {
		t.Fatalf("ошибка обновления: %v", err)
	}

	got, err := s.FindByID(2)
	if err != nil {
		t.Fatalf("ошибка поиска: %v", err)
	}
	if !got.Equal(updated) {
		t.Errorf("ожидалось %+v, получено %+v", updated, *got)
	}

	// Позиция сохраняется
	records, err := s.LoadAll()
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	if records[0].ID != 1 || records[1].ID != 2 || records[2].ID != 3 {
		t.Errorf("порядок записей нарушен: %d,%d,%d", records[0].ID, records[1].ID, records[2].ID)
	}
}

// TestUpdate_DifferentBodyID проверяет, что id тела заменяет id записи.
func TestUpdate_DifferentBodyID(t *testing.T) {
	s := newTestStore(t)
	if err := s.Append(testFlight(t, 1)); err != nil {
		t.Fatalf("ошибка вставки: %v", err)
	}

	if err := s.Update(1, testFlight(t, 9)); err != nil {
		t.Fatalf("ошибка обновления: %v", err)
	}

	if _, err := s.FindByID(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("старый id должен исчезнуть, получено %v", err)
	}
	if _, err := s.FindByID(9); err != nil {
		t.Errorf("запись должна быть доступна по новому id: %v", err)
	}
}

// TestUpdate_DuplicateRejected проверяет, что при UniqueIDs обновление
// не присваивает записи id другой записи.
func TestUpdate_DuplicateRejected(t *testing.T) {
	s := newTestStore(t, func(o *Options) { o.UniqueIDs = true })
	for _, id := range []int64{1, 2} {
		if err := s.Append(testFlight(t, id)); err != nil {
			t.Fatalf("ошибка вставки: %v", err)
		}
	}
	before := readFile(t, s.Path())

	err := s.Update(1, testFlight(t, 2))
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("ожидалась ErrDuplicateID, получено %v", err)
	}
	if !bytes.Equal(before, readFile(t, s.Path())) {
		t.Error("отклонённое обновление изменило файл")
	}

	// Свой же id и свободный id допустимы
	if err := s.Update(1, testFlight(t, 1)); err != nil {
		t.Errorf("обновление с тем же id: %v", err)
	}
	if err := s.Update(1, testFlight(t, 3)); err != nil {
		t.Errorf("обновление на свободный id: %v", err)
	}
}

// TestUpdate_NotFound проверяет, что отсутствие записи не вызывает запись в файл.
func TestUpdate_NotFound(t *testing.T) {
	s := newTestStore(t)
	if err := s.Append(testFlight(t, 1)); err != nil {
		t.Fatalf("ошибка вставки: %v", err)
	}
	before := readFile(t, s.Path())

	if err := s.Update(2, testFlight(t, 2)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидалась ErrNotFound, получено %v", err)
	}
	if !bytes.Equal(before, readFile(t, s.Path())) {
		t.Error("файл изменён при обновлении отсутствующей записи")
	}
}

// TestDelete проверяет удаление и последующий NotFound.
func TestDelete(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []int64{1, 2} {
		if err := s.Append(testFlight(t, id)); err != nil {
			t.Fatalf("ошибка вставки: %v", err)
		}
	}

	if err := s.Delete(1); err != nil {
		t.Fatalf("ошибка удаления: %v", err)
	}
	if _, err := s.FindByID(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидалась ErrNotFound после удаления, получено %v", err)
	}
	if _, err := s.FindByID(2); err != nil {
		t.Errorf("соседняя запись должна сохраниться: %v", err)
	}

	if err := s.Delete(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторное удаление: ожидалась ErrNotFound, получено %v", err)
	}
}

// TestCount_MatchesLoadAll проверяет count() == len(load_all()) в разных состояниях.
func TestCount_MatchesLoadAll(t *testing.T) {
	s := newTestStore(t)

	check := func(stage string) {
		t.Helper()
		n, err := s.Count()
		if err != nil {
			t.Fatalf("%s: ошибка подсчёта: %v", stage, err)
		}
		records, err := s.LoadAll()
		if err != nil {
			t.Fatalf("%s: ошибка чтения: %v", stage, err)
		}
		if n != len(records) {
			t.Errorf("%s: count=%d, len(LoadAll)=%d", stage, n, len(records))
		}
	}

	check("отсутствует")
	if err := s.EnsureInitialized(); err != nil {
		t.Fatalf("ошибка инициализации: %v", err)
	}
	check("только заголовок")

	for _, id := range []int64{1, 2, 3} {
		if err := s.Append(testFlight(t, id)); err != nil {
			t.Fatalf("ошибка вставки: %v", err)
		}
	}
	check("после вставки")

	if err := s.Delete(2); err != nil {
		t.Fatalf("ошибка удаления: %v", err)
	}
	check("после удаления")

	if err := s.ReplaceAll(nil); err != nil {
		t.Fatalf("ошибка перезаписи: %v", err)
	}
	check("после очистки")
}

// TestChecksum проверяет, что checksum меняется только вместе с байтами файла.
func TestChecksum(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Checksum(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидалась ErrNotFound для отсутствующего файла, получено %v", err)
	}

	if err := s.EnsureInitialized(); err != nil {
		t.Fatalf("ошибка инициализации: %v", err)
	}
	empty, err := s.Checksum()
	if err != nil {
		t.Fatalf("ошибка checksum: %v", err)
	}
	if len(empty) != 64 || strings.ToLower(empty) != empty {
		t.Errorf("ожидался hex SHA-256 в нижнем регистре, получено %q", empty)
	}

	again, _ := s.Checksum()
	if again != empty {
		t.Error("checksum неизменного файла должен совпадать")
	}

	if err := s.Append(testFlight(t, 1)); err != nil {
		t.Fatalf("ошибка вставки: %v", err)
	}
	withRecord, _ := s.Checksum()
	if withRecord == empty {
		t.Error("checksum должен измениться после вставки")
	}

	// Перезапись тем же содержимым не меняет checksum
	records, _ := s.LoadAll()
	if err := s.ReplaceAll(records); err != nil {
		t.Fatalf("ошибка перезаписи: %v", err)
	}
	same, _ := s.Checksum()
	if same != withRecord {
		t.Error("checksum должен совпадать при идентичных байтах")
	}
}

// TestReplaceAll_NoTmpFile проверяет отсутствие временного файла после перезаписи.
func TestReplaceAll_NoTmpFile(t *testing.T) {
	s := newTestStore(t)
	if err := s.ReplaceAll([]model.FlightRecord{testFlight(t, 1), testFlight(t, 2)}); err != nil {
		t.Fatalf("ошибка перезаписи: %v", err)
	}
	if _, err := os.Stat(s.Path() + tmpSuffix); !os.IsNotExist(err) {
		t.Error("временный файл не должен существовать")
	}

	pending, err := s.journal.Pending()
	if err != nil {
		t.Fatalf("ошибка чтения журнала: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("в журнале не должно быть незавершённых записей, найдено %d", len(pending))
	}
}

// TestPilotSchema проверяет схему с колонкой pilot_id и без carrier.
func TestPilotSchema(t *testing.T) {
	schema, err := model.NewSchema(model.FieldPilotID)
	if err != nil {
		t.Fatalf("ошибка схемы: %v", err)
	}
	s := newTestStore(t, func(o *Options) { o.Schema = schema })

	pilot := int64(77)
	withPilot := testFlight(t, 1)
	withPilot.Carrier = ""
	withPilot.PilotID = &pilot
	withoutPilot := testFlight(t, 2)
	withoutPilot.Carrier = ""

	for _, rec := range []model.FlightRecord{withPilot, withoutPilot} {
		if err := s.Append(rec); err != nil {
			t.Fatalf("ошибка вставки: %v", err)
		}
	}

	content := string(readFile(t, s.Path()))
	if !strings.HasPrefix(content, "id,flight_number,origin,destination,departure_time,arrival_time,aircraft_id,pilot_id,status\n") {
		t.Errorf("неожиданный заголовок:\n%s", content)
	}

	got, err := s.FindByID(1)
	if err != nil {
		t.Fatalf("ошибка поиска: %v", err)
	}
	if got.PilotID == nil || *got.PilotID != 77 {
		t.Errorf("ожидался pilot_id 77, получено %v", got.PilotID)
	}
	got, err = s.FindByID(2)
	if err != nil {
		t.Fatalf("ошибка поиска: %v", err)
	}
	if got.PilotID != nil {
		t.Errorf("ожидался пустой pilot_id, получено %d", *got.PilotID)
	}
}

// TestArchive проверяет ZIP-архив с одной записью — содержимым файла.
func TestArchive(t *testing.T) {
	s := newTestStore(t)

	var missing bytes.Buffer
	if err := s.Archive(&missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидалась ErrNotFound для отсутствующего файла, получено %v", err)
	}

	if err := s.Append(testFlight(t, 1)); err != nil {
		t.Fatalf("ошибка вставки: %v", err)
	}

	var buf bytes.Buffer
	if err := s.Archive(&buf); err != nil {
		t.Fatalf("ошибка архивации: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("архив не читается: %v", err)
	}
	if len(zr.File) != 1 {
		t.Fatalf("ожидалась одна запись в архиве, получено %d", len(zr.File))
	}
	if zr.File[0].Name != "flights.csv" {
		t.Errorf("ожидалось имя flights.csv, получено %s", zr.File[0].Name)
	}

	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatalf("ошибка открытия записи: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ошибка чтения записи: %v", err)
	}
	if !bytes.Equal(data, readFile(t, s.Path())) {
		t.Error("содержимое архива не совпадает с файлом")
	}

	if s.ArchiveName() != "flights.zip" {
		t.Errorf("ожидалось flights.zip, получено %s", s.ArchiveName())
	}
}

// encodeRow кодирует запись так же, как Append.
func encodeRow(t *testing.T, s *Store, rec model.FlightRecord) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(encodeRecord(s.Schema(), rec)); err != nil {
		t.Fatalf("ошибка кодирования: %v", err)
	}
	w.Flush()
	return buf.Bytes()
}

// TestRecover_TruncatesInterruptedAppend проверяет откат недописанной строки.
func TestRecover_TruncatesInterruptedAppend(t *testing.T) {
	s := newTestStore(t)
	if err := s.Append(testFlight(t, 1)); err != nil {
		t.Fatalf("ошибка вставки: %v", err)
	}
	good := readFile(t, s.Path())

	// Имитируем аварию посреди дозаписи
	row := encodeRow(t, s, testFlight(t, 2))
	if _, err := s.journal.BeginAppend(s.Path(), int64(len(good)), row); err != nil {
		t.Fatalf("ошибка журнала: %v", err)
	}
	f, err := os.OpenFile(s.Path(), os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("ошибка открытия: %v", err)
	}
	_, _ = f.Write(row[:len(row)/2])
	f.Close()

	n, err := s.Recover()
	if err != nil {
		t.Fatalf("ошибка восстановления: %v", err)
	}
	if n != 1 {
		t.Errorf("ожидался откат 1 операции, получено %d", n)
	}
	if !bytes.Equal(good, readFile(t, s.Path())) {
		t.Error("недописанная строка не обрезана")
	}
	if _, err := s.LoadAll(); err != nil {
		t.Errorf("файл должен читаться после восстановления: %v", err)
	}
}

// TestRecover_KeepsLaterAppends проверяет, что pending-запись дозаписи,
// после которой были подтверждённые вставки, не обрезает файл.
func TestRecover_KeepsLaterAppends(t *testing.T) {
	tests := []struct {
		name  string
		begin func(s *Store, size int64) error
	}{
		{"строка не попала в файл", func(s *Store, size int64) error {
			_, err := s.journal.BeginAppend(s.Path(), size, encodeRow(t, s, testFlight(t, 9)))
			return err
		}},
		{"запись без байтов строки", func(s *Store, size int64) error {
			_, err := s.journal.Begin(journal.OpAppend, s.Path(), size, "")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			if err := s.EnsureInitialized(); err != nil {
				t.Fatalf("ошибка инициализации: %v", err)
			}
			if err := tt.begin(s, int64(len(readFile(t, s.Path())))); err != nil {
				t.Fatalf("ошибка журнала: %v", err)
			}
			for _, id := range []int64{1, 2} {
				if err := s.Append(testFlight(t, id)); err != nil {
					t.Fatalf("ошибка вставки: %v", err)
				}
			}
			before := readFile(t, s.Path())

			if _, err := s.Recover(); err != nil {
				t.Fatalf("ошибка восстановления: %v", err)
			}
			n, err := s.Count()
			if err != nil {
				t.Fatalf("ошибка подсчёта: %v", err)
			}
			if n != 2 {
				t.Errorf("ожидалось 2 записи, получено %d", n)
			}
			if !bytes.Equal(before, readFile(t, s.Path())) {
				t.Error("подтверждённые строки не должны обрезаться")
			}
		})
	}
}

// TestRecover_RemovesTempFile проверяет удаление временного файла прерванной перезаписи.
func TestRecover_RemovesTempFile(t *testing.T) {
	s := newTestStore(t)
	if err := s.Append(testFlight(t, 1)); err != nil {
		t.Fatalf("ошибка вставки: %v", err)
	}
	good := readFile(t, s.Path())

	tmp := s.Path() + tmpSuffix
	if _, err := s.journal.Begin(journal.OpRewrite, s.Path(), int64(len(good)), tmp); err != nil {
		t.Fatalf("ошибка журнала: %v", err)
	}
	if err := os.WriteFile(tmp, []byte("id,flight"), 0o640); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	if _, err := s.Recover(); err != nil {
		t.Fatalf("ошибка восстановления: %v", err)
	}
	if _, err := os.Stat(tmp); !os.IsNotExist(err) {
		t.Error("временный файл должен быть удалён")
	}
	if !bytes.Equal(good, readFile(t, s.Path())) {
		t.Error("основной файл не должен меняться")
	}
}

// TestConcurrentUpdates проверяет отсутствие потерянных обновлений
// при параллельных изменениях в одном процессе.
func TestConcurrentUpdates(t *testing.T) {
	s := newTestStore(t)
	const n = 20
	for i := int64(1); i <= n; i++ {
		if err := s.Append(testFlight(t, i)); err != nil {
			t.Fatalf("ошибка вставки: %v", err)
		}
	}

	var wg sync.WaitGroup
	for i := int64(1); i <= n; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			rec := testFlight(t, id)
			rec.Status = "BOARDING"
			if err := s.Update(id, rec); err != nil {
				t.Errorf("ошибка обновления %d: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	records, err := s.LoadAll()
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	if len(records) != n {
		t.Fatalf("ожидалось %d записей, получено %d", n, len(records))
	}
	for _, rec := range records {
		if rec.Status != "BOARDING" {
			t.Errorf("обновление записи %d потеряно", rec.ID)
		}
	}
}

func TestFingerprint(t *testing.T) {
	s := newTestStore(t)

	if _, _, err := s.Fingerprint(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Fingerprint без файла: ожидалась ErrNotFound, получено %v", err)
	}

	if err := s.Append(testFlight(t, 1)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	gen1, sum1, err := s.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	checksum, _ := s.Checksum()
	if sum1 != checksum {
		t.Errorf("Fingerprint и Checksum расходятся: %s != %s", sum1, checksum)
	}

	// Чтение не меняет поколение
	if _, err := s.LoadAll(); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if gen, _, _ := s.Fingerprint(); gen != gen1 {
		t.Errorf("поколение изменилось после чтения: %d → %d", gen1, gen)
	}

	if err := s.Delete(1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	gen2, sum2, _ := s.Fingerprint()
	if gen2 <= gen1 {
		t.Errorf("поколение должно вырасти после записи: %d → %d", gen1, gen2)
	}
	if sum2 == sum1 {
		t.Error("сумма должна измениться после удаления")
	}
}
