// maintenance.go — обработчик POST /maintenance/integrity.
// Делегирует проверку целостности в IntegrityService.
package handlers

import (
	"net/http"
	"time"

	apierrors "github.com/bigkaa/flightstore/internal/api/errors"
	"github.com/bigkaa/flightstore/internal/service"
)

// IntegrityRunner — интерфейс запуска проверки целостности.
// Позволяет тестировать handler без полного IntegrityService.
type IntegrityRunner interface {
	// RunOnce выполняет один цикл проверки.
	// Возвращает результат и флаг "уже выполняется".
	RunOnce() (*service.IntegrityResult, bool)
}

// MaintenanceHandler — обработчик endpoints обслуживания.
type MaintenanceHandler struct {
	integrity IntegrityRunner
}

// NewMaintenanceHandler создаёт обработчик maintenance endpoints.
// integrity может быть nil (заглушка — пустой результат).
func NewMaintenanceHandler(integrity IntegrityRunner) *MaintenanceHandler {
	return &MaintenanceHandler{integrity: integrity}
}

// RunIntegrityCheck обрабатывает POST /maintenance/integrity.
// Выполняет проверку синхронно. Если проверка уже идёт — 409 INTEGRITY_IN_PROGRESS.
func (h *MaintenanceHandler) RunIntegrityCheck(w http.ResponseWriter, _ *http.Request) {
	if h.integrity == nil {
		now := time.Now().UTC()
		writeJSON(w, http.StatusOK, service.IntegrityResult{
			StartedAt:   now,
			CompletedAt: now,
			Issues:      []service.IntegrityIssue{},
		})
		return
	}

	result, inProgress := h.integrity.RunOnce()
	if inProgress {
		apierrors.IntegrityInProgress(w, "Проверка целостности уже выполняется")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
