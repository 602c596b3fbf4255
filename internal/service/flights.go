// Пакет service — бизнес-логика Flight Store.
// flights.go — сервис операций над записями о рейсах.
//
// Каждая операция: инициализация файла → валидация → вызов хранилища →
// преобразование ошибок хранилища в *FlightError с HTTP-кодом.
package service

import (
	"errors"
	"fmt"
	"log/slog"

	apierrors "github.com/bigkaa/flightstore/internal/api/errors"
	"github.com/bigkaa/flightstore/internal/api/middleware"
	"github.com/bigkaa/flightstore/internal/domain/model"
	"github.com/bigkaa/flightstore/internal/storage/flightstore"
)

// Результаты операций для метрики flights_operations_total.
const (
	resultSuccess = "success"
	resultError   = "error"
)

// FlightError — ошибка операции с HTTP-кодом.
type FlightError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *FlightError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func validationError(format string, args ...any) *FlightError {
	return &FlightError{
		StatusCode: 400,
		Code:       apierrors.CodeValidationError,
		Message:    fmt.Sprintf(format, args...),
	}
}

// FlightService — сервис записей о рейсах.
type FlightService struct {
	store  *flightstore.Store
	logger *slog.Logger
}

// NewFlightService создаёт сервис записей о рейсах.
func NewFlightService(store *flightstore.Store, logger *slog.Logger) *FlightService {
	return &FlightService{
		store:  store,
		logger: logger.With(slog.String("component", "flight_service")),
	}
}

// Schema возвращает схему колонок хранилища.
func (s *FlightService) Schema() model.Schema {
	return s.store.Schema()
}

// Create проверяет payload и дописывает запись в конец коллекции.
func (s *FlightService) Create(p FlightPayload) *FlightError {
	ferr := s.create(p)
	s.observe("create", ferr)
	return ferr
}

func (s *FlightService) create(p FlightPayload) *FlightError {
	if ferr := s.ensure(); ferr != nil {
		return ferr
	}

	rec, ferr := p.Record(s.store.Schema())
	if ferr != nil {
		return ferr
	}

	if err := s.store.Append(rec); err != nil {
		return s.mapError("create", err)
	}

	s.logger.Info("Запись создана", slog.Int64("id", rec.ID))
	s.refreshGauge()
	return nil
}

// List возвращает все записи в порядке файла.
func (s *FlightService) List() ([]model.FlightRecord, *FlightError) {
	records, ferr := s.list()
	s.observe("list", ferr)
	return records, ferr
}

func (s *FlightService) list() ([]model.FlightRecord, *FlightError) {
	if ferr := s.ensure(); ferr != nil {
		return nil, ferr
	}
	records, err := s.store.LoadAll()
	if err != nil {
		return nil, s.mapError("list", err)
	}
	middleware.FlightsTotal.Set(float64(len(records)))
	return records, nil
}

// Get возвращает первую запись с указанным id.
func (s *FlightService) Get(id int64) (*model.FlightRecord, *FlightError) {
	rec, ferr := s.get(id)
	s.observe("get", ferr)
	return rec, ferr
}

func (s *FlightService) get(id int64) (*model.FlightRecord, *FlightError) {
	if ferr := s.ensure(); ferr != nil {
		return nil, ferr
	}
	rec, err := s.store.FindByID(id)
	if err != nil {
		return nil, s.mapError("get", err)
	}
	return rec, nil
}

// Update заменяет запись с id из пути на запись из payload.
// id из тела сохраняется как есть: если он отличается, запись получает новый id.
func (s *FlightService) Update(id int64, p FlightPayload) *FlightError {
	ferr := s.update(id, p)
	s.observe("update", ferr)
	return ferr
}

func (s *FlightService) update(id int64, p FlightPayload) *FlightError {
	if ferr := s.ensure(); ferr != nil {
		return ferr
	}

	rec, ferr := p.Record(s.store.Schema())
	if ferr != nil {
		return ferr
	}

	if err := s.store.Update(id, rec); err != nil {
		return s.mapError("update", err)
	}

	if rec.ID != id {
		s.logger.Info("Запись обновлена с заменой id",
			slog.Int64("id", id),
			slog.Int64("new_id", rec.ID),
		)
	} else {
		s.logger.Info("Запись обновлена", slog.Int64("id", id))
	}
	return nil
}

// Delete удаляет первую запись с указанным id.
func (s *FlightService) Delete(id int64) *FlightError {
	ferr := s.delete(id)
	s.observe("delete", ferr)
	return ferr
}

func (s *FlightService) delete(id int64) *FlightError {
	if ferr := s.ensure(); ferr != nil {
		return ferr
	}
	if err := s.store.Delete(id); err != nil {
		return s.mapError("delete", err)
	}
	s.logger.Info("Запись удалена", slog.Int64("id", id))
	s.refreshGauge()
	return nil
}

// Count возвращает количество записей.
func (s *FlightService) Count() (int, *FlightError) {
	n, ferr := s.count()
	s.observe("count", ferr)
	return n, ferr
}

func (s *FlightService) count() (int, *FlightError) {
	if ferr := s.ensure(); ferr != nil {
		return 0, ferr
	}
	n, err := s.store.Count()
	if err != nil {
		return 0, s.mapError("count", err)
	}
	middleware.FlightsTotal.Set(float64(n))
	return n, nil
}

// Checksum возвращает SHA-256 файла данных (hex, нижний регистр).
func (s *FlightService) Checksum() (string, *FlightError) {
	sum, ferr := s.checksum()
	s.observe("checksum", ferr)
	return sum, ferr
}

func (s *FlightService) checksum() (string, *FlightError) {
	if ferr := s.ensure(); ferr != nil {
		return "", ferr
	}
	sum, err := s.store.Checksum()
	if err != nil {
		return "", s.mapError("checksum", err)
	}
	return sum, nil
}

// Info — сводка о хранилище для GET /info.
type Info struct {
	DataFile  string   `json:"data_file"`
	Columns   []string `json:"columns"`
	Records   int      `json:"records"`
	UniqueIDs bool     `json:"unique_ids"`
}

// Info возвращает путь к файлу, колонки схемы и количество записей.
func (s *FlightService) Info() (*Info, *FlightError) {
	n, ferr := s.Count()
	if ferr != nil {
		return nil, ferr
	}
	return &Info{
		DataFile:  s.store.Path(),
		Columns:   s.store.Schema().Header(),
		Records:   n,
		UniqueIDs: s.store.UniqueIDs(),
	}, nil
}

// ensure создаёт файл данных с заголовком, если его нет.
func (s *FlightService) ensure() *FlightError {
	if err := s.store.EnsureInitialized(); err != nil {
		return s.mapError("init", err)
	}
	return nil
}

// mapError преобразует ошибку хранилища в *FlightError.
// Детали ошибок ввода-вывода пишутся в лог, клиенту — общее сообщение.
func (s *FlightService) mapError(op string, err error) *FlightError {
	switch {
	case errors.Is(err, flightstore.ErrNotFound):
		return &FlightError{
			StatusCode: 404,
			Code:       apierrors.CodeNotFound,
			Message:    err.Error(),
		}
	case errors.Is(err, flightstore.ErrDuplicateID):
		return &FlightError{
			StatusCode: 400,
			Code:       apierrors.CodeValidationError,
			Message:    "Запись с таким id уже существует",
		}
	}

	s.logger.Error("Ошибка хранилища",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)

	msg := "Ошибка хранилища рейсов"
	var perr *flightstore.PersistenceError
	if errors.As(err, &perr) && perr.Line > 0 {
		msg = fmt.Sprintf("Файл данных повреждён (строка %d)", perr.Line)
	}
	return &FlightError{
		StatusCode: 500,
		Code:       apierrors.CodeInternalError,
		Message:    msg,
	}
}

// observe увеличивает счётчик операций.
func (s *FlightService) observe(op string, ferr *FlightError) {
	result := resultSuccess
	if ferr != nil {
		result = resultError
	}
	middleware.OperationsTotal.WithLabelValues(op, result).Inc()
}

// refreshGauge обновляет gauge количества записей после изменения.
func (s *FlightService) refreshGauge() {
	n, err := s.store.Count()
	if err != nil {
		s.logger.Warn("Не удалось обновить метрику количества записей",
			slog.String("error", err.Error()),
		)
		return
	}
	middleware.FlightsTotal.Set(float64(n))
}
