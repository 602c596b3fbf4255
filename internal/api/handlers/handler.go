// handler.go — APIHandler реализует openapi.ServerInterface,
// делегируя вызовы в отдельные handler'ы по доменам.
package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/flightstore/internal/api/openapi"
)

// APIHandler — единая реализация ServerInterface, собирающая
// все доменные handlers в один объект.
type APIHandler struct {
	flights     *FlightsHandler
	system      *SystemHandler
	health      *HealthHandler
	maintenance *MaintenanceHandler
	metrics     http.Handler
}

// NewAPIHandler создаёт единый handler для всех endpoints.
func NewAPIHandler(
	flights *FlightsHandler,
	system *SystemHandler,
	health *HealthHandler,
	maintenance *MaintenanceHandler,
) *APIHandler {
	return &APIHandler{
		flights:     flights,
		system:      system,
		health:      health,
		maintenance: maintenance,
		metrics:     promhttp.Handler(),
	}
}

// --- Flights ---

func (h *APIHandler) CreateFlight(w http.ResponseWriter, r *http.Request) {
	h.flights.CreateFlight(w, r)
}

func (h *APIHandler) ListFlights(w http.ResponseWriter, r *http.Request) {
	h.flights.ListFlights(w, r)
}

func (h *APIHandler) CountFlights(w http.ResponseWriter, r *http.Request) {
	h.flights.CountFlights(w, r)
}

func (h *APIHandler) FlightsChecksum(w http.ResponseWriter, r *http.Request) {
	h.flights.FlightsChecksum(w, r)
}

func (h *APIHandler) ArchiveFlights(w http.ResponseWriter, r *http.Request) {
	h.flights.ArchiveFlights(w, r)
}

func (h *APIHandler) GetFlight(w http.ResponseWriter, r *http.Request, id openapi.FlightId) {
	h.flights.GetFlight(w, r, id)
}

func (h *APIHandler) UpdateFlight(w http.ResponseWriter, r *http.Request, id openapi.FlightId) {
	h.flights.UpdateFlight(w, r, id)
}

func (h *APIHandler) DeleteFlight(w http.ResponseWriter, r *http.Request, id openapi.FlightId) {
	h.flights.DeleteFlight(w, r, id)
}

// --- Legacy ---

func (h *APIHandler) LegacyCount(w http.ResponseWriter, r *http.Request) {
	h.flights.LegacyCount(w, r)
}

func (h *APIHandler) LegacyChecksum(w http.ResponseWriter, r *http.Request) {
	h.flights.LegacyChecksum(w, r)
}

// --- Maintenance ---

func (h *APIHandler) RunIntegrityCheck(w http.ResponseWriter, r *http.Request) {
	h.maintenance.RunIntegrityCheck(w, r)
}

// --- System ---

func (h *APIHandler) GetServiceInfo(w http.ResponseWriter, r *http.Request) {
	h.system.GetServiceInfo(w, r)
}

// --- Health ---

func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// --- Metrics ---

func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

// Проверка соответствия интерфейсам на этапе компиляции.
var (
	_ openapi.ServerInterface = (*APIHandler)(nil)
	_ openapi.LegacyInterface = (*APIHandler)(nil)
)
