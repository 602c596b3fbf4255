// health.go — обработчики health endpoints для Kubernetes probes.
package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bigkaa/flightstore/internal/config"
)

// statusFail — строковая константа для статуса "fail" в health checks.
const statusFail = "fail"

// serviceName — имя сервиса в ответах health и info.
const serviceName = "flight-store"

// StoreReadinessChecker — проверка читаемости файла данных.
type StoreReadinessChecker interface {
	Verify() error
}

// HealthHandler реализует health endpoints: /health/live, /health/ready.
type HealthHandler struct {
	version string
	// dataDir — директория файла данных (проверка записи)
	dataDir string
	// walDir — директория журнала (проверка записи)
	walDir string
	// store — проверка разбора файла данных
	store StoreReadinessChecker
}

// NewHealthHandler создаёт обработчик health endpoints.
// Пустые dataDir/walDir и nil store отключают соответствующие проверки.
func NewHealthHandler(dataDir, walDir string, store StoreReadinessChecker) *HealthHandler {
	return &HealthHandler{
		version: config.Version,
		dataDir: dataDir,
		walDir:  walDir,
		store:   store,
	}
}

// HealthLive обрабатывает GET /health/live.
// Возвращает 200, если процесс жив. Не проверяет зависимости.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   serviceName,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// HealthReady обрабатывает GET /health/ready.
// Проверяет: запись в директорию данных, журнал, разбор файла данных.
// Недоступный журнал — degraded (200), остальное — fail (503).
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	overallStatus := "ok"
	httpStatus := http.StatusOK

	fsCheck := checkWritable(h.dataDir, "Директория данных недоступна для записи: ")
	if fsCheck["status"] != "ok" {
		overallStatus = statusFail
		httpStatus = http.StatusServiceUnavailable
	}

	walCheck := checkWritable(h.walDir, "Директория журнала недоступна для записи: ")
	if walCheck["status"] != "ok" && overallStatus != statusFail {
		overallStatus = "degraded"
	}

	storeCheck := h.checkStore()
	if storeCheck["status"] != "ok" {
		overallStatus = statusFail
		httpStatus = http.StatusServiceUnavailable
	}

	resp := map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   serviceName,
		"checks": map[string]any{
			"filesystem": fsCheck,
			"journal":    walCheck,
			"data_file":  storeCheck,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(resp)
}

// checkWritable проверяет возможность записи в директорию.
func checkWritable(dir, failPrefix string) map[string]any {
	if dir == "" {
		return map[string]any{
			"status":  "ok",
			"message": "Проверка не настроена",
		}
	}

	testFile := filepath.Join(dir, ".health_check")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return map[string]any{
			"status":  statusFail,
			"message": failPrefix + err.Error(),
		}
	}
	_ = os.Remove(testFile)

	return map[string]any{
		"status": "ok",
	}
}

// checkStore проверяет, что файл данных читается и соответствует схеме.
func (h *HealthHandler) checkStore() map[string]any {
	if h.store == nil {
		return map[string]any{
			"status":  "ok",
			"message": "Проверка не настроена",
		}
	}
	if err := h.store.Verify(); err != nil {
		return map[string]any{
			"status":  statusFail,
			"message": "Файл данных не читается: " + err.Error(),
		}
	}
	return map[string]any{
		"status": "ok",
	}
}
