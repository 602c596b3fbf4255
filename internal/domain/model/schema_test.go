package model

import (
	"strings"
	"testing"
)

// TestDefaultSchema проверяет заголовок схемы по умолчанию.
func TestDefaultSchema(t *testing.T) {
	got := strings.Join(DefaultSchema().Header(), ",")
	want := "id,flight_number,carrier,origin,destination,departure_time,arrival_time,aircraft_id,status"
	if got != want {
		t.Errorf("ожидалось %s, получено %s", want, got)
	}
}

// TestNewSchema_Variants проверяет варианты схемы с опциональными колонками.
func TestNewSchema_Variants(t *testing.T) {
	bare, err := NewSchema()
	if err != nil {
		t.Fatalf("ошибка: %v", err)
	}
	if bare.Has(FieldCarrier) || bare.Has(FieldPilotID) {
		t.Error("базовая схема не должна содержать опциональные колонки")
	}
	if bare.Len() != 8 {
		t.Errorf("ожидалось 8 колонок, получено %d", bare.Len())
	}

	// Порядок аргументов не влияет на порядок колонок
	full, err := NewSchema(FieldPilotID, FieldCarrier)
	if err != nil {
		t.Fatalf("ошибка: %v", err)
	}
	got := strings.Join(full.Header(), ",")
	want := "id,flight_number,carrier,origin,destination,departure_time,arrival_time,aircraft_id,pilot_id,status"
	if got != want {
		t.Errorf("ожидалось %s, получено %s", want, got)
	}

	if _, err := NewSchema(FieldOrigin); err == nil {
		t.Error("базовая колонка не может быть опциональной")
	}
}

// TestParseOptionalFields проверяет разбор значения FLIGHTS_OPTIONAL_FIELDS.
func TestParseOptionalFields(t *testing.T) {
	fields, err := ParseOptionalFields(" carrier , PILOT_ID ")
	if err != nil {
		t.Fatalf("ошибка: %v", err)
	}
	if len(fields) != 2 || fields[0] != FieldCarrier || fields[1] != FieldPilotID {
		t.Errorf("получено %v", fields)
	}

	for _, empty := range []string{"", "none", "NONE"} {
		fields, err := ParseOptionalFields(empty)
		if err != nil || len(fields) != 0 {
			t.Errorf("%q: ожидался пустой список, получено %v, %v", empty, fields, err)
		}
	}

	if _, err := ParseOptionalFields("carrier,gate"); err == nil {
		t.Error("ожидалась ошибка для неизвестной колонки")
	}
}
