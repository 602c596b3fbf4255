// Пакет model — доменные модели Flight Store.
// FlightRecord — единственная сущность коллекции, используется
// как in-memory представление, как строка CSV и как JSON в API.
package model

// FlightRecord — запись о рейсе.
type FlightRecord struct {
	// ID — идентификатор рейса, задаётся клиентом (не генерируется)
	ID int64 `json:"id"`

	// FlightNumber — номер рейса
	FlightNumber int64 `json:"flight_number"`

	// Carrier — авиакомпания. Колонка присутствует только если
	// включена в схему (FLIGHTS_OPTIONAL_FIELDS).
	Carrier string `json:"carrier,omitempty"`

	// Origin — аэропорт вылета
	Origin string `json:"origin"`

	// Destination — аэропорт назначения
	Destination string `json:"destination"`

	// DepartureTime — время вылета (ISO-8601)
	DepartureTime Timestamp `json:"departure_time"`

	// ArrivalTime — время прилёта (ISO-8601)
	ArrivalTime Timestamp `json:"arrival_time"`

	// AircraftID — идентификатор воздушного судна
	AircraftID int64 `json:"aircraft_id"`

	// PilotID — идентификатор пилота (опциональная колонка схемы).
	// nil, если колонка не включена или значение не задано.
	PilotID *int64 `json:"pilot_id,omitempty"`

	// Status — статус рейса в свободной форме
	Status string `json:"status"`
}

// Equal сравнивает записи поле за полем.
// Временные метки сравниваются по моменту времени и признаку naive.
func (r FlightRecord) Equal(other FlightRecord) bool {
	if r.ID != other.ID ||
		r.FlightNumber != other.FlightNumber ||
		r.Carrier != other.Carrier ||
		r.Origin != other.Origin ||
		r.Destination != other.Destination ||
		r.AircraftID != other.AircraftID ||
		r.Status != other.Status {
		return false
	}
	if !r.DepartureTime.Equal(other.DepartureTime) || !r.ArrivalTime.Equal(other.ArrivalTime) {
		return false
	}
	switch {
	case r.PilotID == nil && other.PilotID == nil:
		return true
	case r.PilotID == nil || other.PilotID == nil:
		return false
	default:
		return *r.PilotID == *other.PilotID
	}
}
