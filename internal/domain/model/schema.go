package model

import (
	"fmt"
	"strings"
)

// Field — колонка CSV-файла рейсов.
type Field string

const (
	FieldID            Field = "id"
	FieldFlightNumber  Field = "flight_number"
	FieldCarrier       Field = "carrier"
	FieldOrigin        Field = "origin"
	FieldDestination   Field = "destination"
	FieldDepartureTime Field = "departure_time"
	FieldArrivalTime   Field = "arrival_time"
	FieldAircraftID    Field = "aircraft_id"
	FieldPilotID       Field = "pilot_id"
	FieldStatus        Field = "status"
)

// canonicalOrder — полный порядок колонок. Схема — подпоследовательность.
var canonicalOrder = []Field{
	FieldID,
	FieldFlightNumber,
	FieldCarrier,
	FieldOrigin,
	FieldDestination,
	FieldDepartureTime,
	FieldArrivalTime,
	FieldAircraftID,
	FieldPilotID,
	FieldStatus,
}

// optionalFields — колонки, включаемые конфигурацией.
var optionalFields = map[Field]bool{
	FieldCarrier: true,
	FieldPilotID: true,
}

// Schema — упорядоченный набор колонок CSV-файла.
// Заголовок файла — имена колонок схемы в этом порядке.
type Schema struct {
	fields []Field
}

// NewSchema строит схему из базовых колонок и указанных опциональных.
// Допустимые опциональные колонки: carrier, pilot_id.
func NewSchema(optional ...Field) (Schema, error) {
	enabled := make(map[Field]bool, len(optional))
	for _, f := range optional {
		if !optionalFields[f] {
			return Schema{}, fmt.Errorf("недопустимая опциональная колонка %q, допустимые: carrier, pilot_id", f)
		}
		enabled[f] = true
	}

	fields := make([]Field, 0, len(canonicalOrder))
	for _, f := range canonicalOrder {
		if optionalFields[f] && !enabled[f] {
			continue
		}
		fields = append(fields, f)
	}
	return Schema{fields: fields}, nil
}

// DefaultSchema — схема с колонкой carrier, без pilot_id.
func DefaultSchema() Schema {
	s, _ := NewSchema(FieldCarrier)
	return s
}

// ParseOptionalFields разбирает список опциональных колонок через запятую.
// Пустая строка и "none" означают схему без опциональных колонок.
func ParseOptionalFields(s string) ([]Field, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return nil, nil
	}
	var result []Field
	for _, part := range strings.Split(s, ",") {
		f := Field(strings.ToLower(strings.TrimSpace(part)))
		if !optionalFields[f] {
			return nil, fmt.Errorf("недопустимая опциональная колонка %q, допустимые: carrier, pilot_id", part)
		}
		result = append(result, f)
	}
	return result, nil
}

// Fields возвращает копию списка колонок.
func (s Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Header возвращает строку заголовка CSV.
func (s Schema) Header() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = string(f)
	}
	return out
}

// Has проверяет, входит ли колонка в схему.
func (s Schema) Has(f Field) bool {
	for _, x := range s.fields {
		if x == f {
			return true
		}
	}
	return false
}

// Len — количество колонок.
func (s Schema) Len() int {
	return len(s.fields)
}
