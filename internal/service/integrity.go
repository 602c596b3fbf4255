// integrity.go — фоновая проверка целостности файла данных.
//
// Каждый цикл:
//   - разбирает файл целиком (Store.Verify)
//   - снимает SHA-256 и номер поколения хранилища (Store.Fingerprint)
//
// Обнаруживает проблемы:
//   - unreadable: файл не разбирается (заголовок, арность, значения)
//   - external_change: содержимое изменилось без записи через сервис
//   - missing_file: файл был, а теперь отсутствует
//
// Запускается как горутина с периодическим тикером (FLIGHTS_INTEGRITY_INTERVAL).
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/flightstore/internal/storage/flightstore"
)

// Типы проблем целостности.
const (
	IssueUnreadable     = "unreadable"
	IssueExternalChange = "external_change"
	IssueMissingFile    = "missing_file"
)

var (
	integrityRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flights_integrity_runs_total",
		Help: "Общее количество проверок целостности файла данных",
	})

	integrityIssuesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flights_integrity_issues_total",
		Help: "Общее количество проблем, обнаруженных проверкой целостности",
	}, []string{"type"})

	integrityDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "flights_integrity_duration_seconds",
		Help:    "Длительность проверки целостности в секундах",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
	})
)

// IntegrityIssue — обнаруженная проблема.
type IntegrityIssue struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// IntegrityResult — результат одного цикла проверки.
type IntegrityResult struct {
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at"`
	Checksum    string           `json:"sha256,omitempty"`
	Issues      []IntegrityIssue `json:"issues"`
}

// IntegrityService — фоновая проверка целостности файла данных.
type IntegrityService struct {
	store    *flightstore.Store
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex // защита от параллельного запуска
	inProcess bool
	// Состояние предыдущего цикла
	known      bool
	generation uint64
	checksum   string

	cancel context.CancelFunc
}

// NewIntegrityService создаёт сервис проверки целостности.
func NewIntegrityService(store *flightstore.Store, interval time.Duration, logger *slog.Logger) *IntegrityService {
	return &IntegrityService{
		store:    store,
		interval: interval,
		logger:   logger.With(slog.String("component", "integrity")),
	}
}

// Start запускает фоновую горутину. Первый цикл выполняется сразу,
// чтобы зафиксировать исходную контрольную сумму.
func (is *IntegrityService) Start(ctx context.Context) {
	isCtx, cancel := context.WithCancel(ctx)
	is.cancel = cancel

	go is.run(isCtx)

	is.logger.Info("Проверка целостности запущена",
		slog.String("interval", is.interval.String()),
	)
}

// Stop останавливает фоновую проверку.
func (is *IntegrityService) Stop() {
	if is.cancel != nil {
		is.cancel()
	}
	is.logger.Info("Проверка целостности остановлена")
}

func (is *IntegrityService) run(ctx context.Context) {
	is.RunOnce()

	ticker := time.NewTicker(is.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			is.RunOnce()
		}
	}
}

// RunOnce выполняет один цикл проверки.
// Если проверка уже выполняется, возвращает nil, true.
func (is *IntegrityService) RunOnce() (*IntegrityResult, bool) {
	is.mu.Lock()
	if is.inProcess {
		is.mu.Unlock()
		is.logger.Warn("Проверка целостности уже выполняется, пропуск")
		return nil, true
	}
	is.inProcess = true
	is.mu.Unlock()

	defer func() {
		is.mu.Lock()
		is.inProcess = false
		is.mu.Unlock()
	}()

	result := &IntegrityResult{
		StartedAt: time.Now().UTC(),
		Issues:    []IntegrityIssue{},
	}
	result.Issues = append(result.Issues, is.check(result)...)
	result.CompletedAt = time.Now().UTC()

	duration := result.CompletedAt.Sub(result.StartedAt)
	integrityRunsTotal.Inc()
	integrityDurationSeconds.Observe(duration.Seconds())
	for _, issue := range result.Issues {
		integrityIssuesTotal.WithLabelValues(issue.Type).Inc()
		is.logger.Warn("Проблема целостности файла данных",
			slog.String("type", issue.Type),
			slog.String("message", issue.Message),
		)
	}

	is.logger.Debug("Проверка целостности завершена",
		slog.Int("issues", len(result.Issues)),
		slog.Duration("duration", duration),
	)
	return result, false
}

// check сравнивает текущее состояние файла с предыдущим циклом
// и обновляет сохранённое состояние.
func (is *IntegrityService) check(result *IntegrityResult) []IntegrityIssue {
	var issues []IntegrityIssue

	if err := is.store.Verify(); err != nil {
		issues = append(issues, IntegrityIssue{Type: IssueUnreadable, Message: err.Error()})
	}

	generation, sum, err := is.store.Fingerprint()
	switch {
	case errors.Is(err, flightstore.ErrNotFound):
		if is.known && is.checksum != "" {
			issues = append(issues, IntegrityIssue{
				Type:    IssueMissingFile,
				Message: "Файл данных " + is.store.Path() + " удалён",
			})
		}
		sum = ""
	case err != nil:
		issues = append(issues, IntegrityIssue{Type: IssueUnreadable, Message: err.Error()})
		return issues
	default:
		if is.known && generation == is.generation && sum != is.checksum {
			issues = append(issues, IntegrityIssue{
				Type:    IssueExternalChange,
				Message: "Файл данных изменён в обход сервиса",
			})
		}
	}

	is.known = true
	is.generation = generation
	is.checksum = sum
	result.Checksum = sum

	return issues
}
