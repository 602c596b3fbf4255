// payload.go — тело запросов POST/PUT и его валидация.
package service

import (
	"strings"

	"github.com/bigkaa/flightstore/internal/domain/model"
)

// FlightPayload — запись о рейсе в том виде, в каком она приходит от клиента.
// Поля — указатели, чтобы отличать отсутствующее поле от нулевого значения.
type FlightPayload struct {
	ID            *int64  `json:"id"`
	FlightNumber  *int64  `json:"flight_number"`
	Carrier       *string `json:"carrier"`
	Origin        *string `json:"origin"`
	Destination   *string `json:"destination"`
	DepartureTime *string `json:"departure_time"`
	ArrivalTime   *string `json:"arrival_time"`
	AircraftID    *int64  `json:"aircraft_id"`
	PilotID       *int64  `json:"pilot_id"`
	Status        *string `json:"status"`
}

// Record проверяет payload против схемы и строит запись.
// Обязательны все базовые поля; carrier и pilot_id опциональны
// (отсутствующий carrier хранится пустой ячейкой). Поле, колонки которого
// нет в схеме, отклоняется, иначе его значение было бы молча потеряно.
// Строки не могут содержать \r: encoding/csv не сохраняет его при чтении.
func (p FlightPayload) Record(schema model.Schema) (model.FlightRecord, *FlightError) {
	var missing []string
	requireInt := func(f model.Field, v *int64) {
		if v == nil {
			missing = append(missing, string(f))
		}
	}
	requireString := func(f model.Field, v *string) {
		if v == nil || strings.TrimSpace(*v) == "" {
			missing = append(missing, string(f))
		}
	}

	requireInt(model.FieldID, p.ID)
	requireInt(model.FieldFlightNumber, p.FlightNumber)
	requireString(model.FieldOrigin, p.Origin)
	requireString(model.FieldDestination, p.Destination)
	requireString(model.FieldDepartureTime, p.DepartureTime)
	requireString(model.FieldArrivalTime, p.ArrivalTime)
	requireInt(model.FieldAircraftID, p.AircraftID)
	requireString(model.FieldStatus, p.Status)

	if len(missing) > 0 {
		return model.FlightRecord{}, validationError("Отсутствуют обязательные поля: %s", strings.Join(missing, ", "))
	}

	for _, f := range []struct {
		name model.Field
		v    *string
	}{
		{model.FieldCarrier, p.Carrier},
		{model.FieldOrigin, p.Origin},
		{model.FieldDestination, p.Destination},
		{model.FieldStatus, p.Status},
	} {
		if f.v != nil && strings.ContainsRune(*f.v, '\r') {
			return model.FlightRecord{}, validationError("Поле %s содержит недопустимый символ \\r", f.name)
		}
	}

	if p.Carrier != nil && *p.Carrier != "" && !schema.Has(model.FieldCarrier) {
		return model.FlightRecord{}, validationError("Поле carrier не входит в схему хранилища")
	}
	if p.PilotID != nil && !schema.Has(model.FieldPilotID) {
		return model.FlightRecord{}, validationError("Поле pilot_id не входит в схему хранилища")
	}

	departure, err := model.ParseTimestamp(*p.DepartureTime)
	if err != nil {
		return model.FlightRecord{}, validationError("Поле departure_time: %s", err.Error())
	}
	arrival, err := model.ParseTimestamp(*p.ArrivalTime)
	if err != nil {
		return model.FlightRecord{}, validationError("Поле arrival_time: %s", err.Error())
	}

	rec := model.FlightRecord{
		ID:            *p.ID,
		FlightNumber:  *p.FlightNumber,
		Origin:        *p.Origin,
		Destination:   *p.Destination,
		DepartureTime: departure,
		ArrivalTime:   arrival,
		AircraftID:    *p.AircraftID,
		Status:        *p.Status,
	}
	if p.Carrier != nil {
		rec.Carrier = *p.Carrier
	}
	if p.PilotID != nil {
		pilot := *p.PilotID
		rec.PilotID = &pilot
	}
	return rec, nil
}
