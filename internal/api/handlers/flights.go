// flights.go — HTTP handlers операций над записями о рейсах.
// Create, List, Get, Update, Delete, Count, Checksum, Archive.
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bigkaa/flightstore/internal/api/errors"
	"github.com/bigkaa/flightstore/internal/api/openapi"
	"github.com/bigkaa/flightstore/internal/service"
)

// maxBodyBytes — ограничение размера тела запроса с записью.
const maxBodyBytes = 1 << 20

// FlightsHandler — обработчик endpoints записей о рейсах.
type FlightsHandler struct {
	svc *service.FlightService
}

// NewFlightsHandler создаёт обработчик endpoints записей о рейсах.
func NewFlightsHandler(svc *service.FlightService) *FlightsHandler {
	return &FlightsHandler{svc: svc}
}

// messageResponse — тело успешного ответа изменяющих операций.
type messageResponse struct {
	Message string `json:"message"`
}

// CreateFlight обрабатывает POST /flights.
func (h *FlightsHandler) CreateFlight(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}

	if ferr := h.svc.Create(payload); ferr != nil {
		writeFlightError(w, ferr)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Рейс добавлен"})
}

// ListFlights обрабатывает GET /flights.
func (h *FlightsHandler) ListFlights(w http.ResponseWriter, _ *http.Request) {
	records, ferr := h.svc.List()
	if ferr != nil {
		writeFlightError(w, ferr)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// GetFlight обрабатывает GET /flights/{id}.
func (h *FlightsHandler) GetFlight(w http.ResponseWriter, _ *http.Request, id openapi.FlightId) {
	rec, ferr := h.svc.Get(id)
	if ferr != nil {
		writeFlightError(w, ferr)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// UpdateFlight обрабатывает PUT /flights/{id}.
// Запись ищется по id из пути, сохраняется тело целиком (включая его id).
func (h *FlightsHandler) UpdateFlight(w http.ResponseWriter, r *http.Request, id openapi.FlightId) {
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}

	if ferr := h.svc.Update(id, payload); ferr != nil {
		writeFlightError(w, ferr)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("Рейс %d обновлён", id)})
}

// DeleteFlight обрабатывает DELETE /flights/{id}.
func (h *FlightsHandler) DeleteFlight(w http.ResponseWriter, _ *http.Request, id openapi.FlightId) {
	if ferr := h.svc.Delete(id); ferr != nil {
		writeFlightError(w, ferr)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("Рейс %d удалён", id)})
}

// CountFlights обрабатывает GET /flights/count.
func (h *FlightsHandler) CountFlights(w http.ResponseWriter, _ *http.Request) {
	n, ferr := h.svc.Count()
	if ferr != nil {
		writeFlightError(w, ferr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

// FlightsChecksum обрабатывает GET /flights/checksum.
func (h *FlightsHandler) FlightsChecksum(w http.ResponseWriter, _ *http.Request) {
	sum, ferr := h.svc.Checksum()
	if ferr != nil {
		writeFlightError(w, ferr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"sha256": sum})
}

// ArchiveFlights обрабатывает GET /flights/archive.
// Архив отдаётся через http.ServeContent: Range, ETag (SHA-256 архива), Content-Length.
func (h *FlightsHandler) ArchiveFlights(w http.ResponseWriter, r *http.Request) {
	res, ferr := h.svc.Archive()
	if ferr != nil {
		writeFlightError(w, ferr)
		return
	}
	defer res.Close()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", res.Name))
	w.Header().Set("ETag", fmt.Sprintf("\"%s\"", res.SHA256))

	http.ServeContent(w, r, res.Name, res.ModTime, res.File)
}

// LegacyCount обрабатывает GET /contar_registros (ключ ответа прежней версии).
func (h *FlightsHandler) LegacyCount(w http.ResponseWriter, _ *http.Request) {
	n, ferr := h.svc.Count()
	if ferr != nil {
		writeFlightError(w, ferr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"Total de Registros": n})
}

// LegacyChecksum обрабатывает GET /hash/ (ключ ответа прежней версии).
func (h *FlightsHandler) LegacyChecksum(w http.ResponseWriter, _ *http.Request) {
	sum, ferr := h.svc.Checksum()
	if ferr != nil {
		writeFlightError(w, ferr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"SHA256": sum})
}

// decodePayload читает JSON тела. При ошибке ответ 400 уже записан.
func decodePayload(w http.ResponseWriter, r *http.Request) (service.FlightPayload, bool) {
	var payload service.FlightPayload

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&payload); err != nil {
		msg := "Некорректный JSON: " + err.Error()
		if err == io.EOF {
			msg = "Тело запроса пустое"
		}
		if typeErr, ok := err.(*json.UnmarshalTypeError); ok {
			msg = fmt.Sprintf("Поле %s: ожидается %s", typeErr.Field, jsonKind(typeErr.Type.Kind().String()))
		}
		errors.ValidationError(w, msg)
		return service.FlightPayload{}, false
	}

	// Тело — ровно один JSON-объект
	var extra json.RawMessage
	if err := dec.Decode(&extra); err != io.EOF {
		errors.ValidationError(w, "Некорректный JSON: данные после объекта")
		return service.FlightPayload{}, false
	}
	return payload, true
}

// jsonKind переводит вид Go-типа в термин JSON для сообщения клиенту.
func jsonKind(kind string) string {
	switch {
	case strings.HasPrefix(kind, "int"):
		return "целое число"
	case kind == "string":
		return "строка"
	default:
		return kind
	}
}

func writeFlightError(w http.ResponseWriter, ferr *service.FlightError) {
	errors.WriteError(w, ferr.StatusCode, ferr.Code, ferr.Message)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
