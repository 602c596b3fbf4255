// system.go — обработчик GET /info (информация о сервисе).
// Публичный endpoint для мониторинга: версия, файл данных, схема, количество записей.
package handlers

import (
	"net/http"

	"github.com/bigkaa/flightstore/internal/config"
	"github.com/bigkaa/flightstore/internal/service"
)

// SystemHandler — обработчик системных endpoints.
type SystemHandler struct {
	svc *service.FlightService
}

// NewSystemHandler создаёт обработчик системных endpoints.
func NewSystemHandler(svc *service.FlightService) *SystemHandler {
	return &SystemHandler{svc: svc}
}

// serviceInfo — тело ответа GET /info.
type serviceInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	*service.Info
}

// GetServiceInfo обрабатывает GET /info.
func (h *SystemHandler) GetServiceInfo(w http.ResponseWriter, _ *http.Request) {
	info, ferr := h.svc.Info()
	if ferr != nil {
		writeFlightError(w, ferr)
		return
	}

	writeJSON(w, http.StatusOK, serviceInfo{
		Service: serviceName,
		Version: config.Version,
		Info:    info,
	})
}
