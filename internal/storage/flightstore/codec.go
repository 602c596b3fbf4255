package flightstore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bigkaa/flightstore/internal/domain/model"
)

// encodeRecord преобразует запись в строку CSV по колонкам схемы.
// Значения колонок, не входящих в схему, не сохраняются.
func encodeRecord(schema model.Schema, rec model.FlightRecord) []string {
	fields := schema.Fields()
	row := make([]string, len(fields))
	for i, f := range fields {
		switch f {
		case model.FieldID:
			row[i] = strconv.FormatInt(rec.ID, 10)
		case model.FieldFlightNumber:
			row[i] = strconv.FormatInt(rec.FlightNumber, 10)
		case model.FieldCarrier:
			row[i] = rec.Carrier
		case model.FieldOrigin:
			row[i] = rec.Origin
		case model.FieldDestination:
			row[i] = rec.Destination
		case model.FieldDepartureTime:
			row[i] = rec.DepartureTime.String()
		case model.FieldArrivalTime:
			row[i] = rec.ArrivalTime.String()
		case model.FieldAircraftID:
			row[i] = strconv.FormatInt(rec.AircraftID, 10)
		case model.FieldPilotID:
			if rec.PilotID != nil {
				row[i] = strconv.FormatInt(*rec.PilotID, 10)
			}
		case model.FieldStatus:
			row[i] = rec.Status
		}
	}
	return row
}

// decodeRecord разбирает строку CSV. Длина строки проверяется вызывающим кодом.
func decodeRecord(schema model.Schema, row []string) (model.FlightRecord, error) {
	var rec model.FlightRecord
	for i, f := range schema.Fields() {
		val := row[i]
		var err error
		switch f {
		case model.FieldID:
			rec.ID, err = parseInt(val)
		case model.FieldFlightNumber:
			rec.FlightNumber, err = parseInt(val)
		case model.FieldCarrier:
			rec.Carrier = val
		case model.FieldOrigin:
			rec.Origin = val
		case model.FieldDestination:
			rec.Destination = val
		case model.FieldDepartureTime:
			rec.DepartureTime, err = model.ParseTimestamp(val)
		case model.FieldArrivalTime:
			rec.ArrivalTime, err = model.ParseTimestamp(val)
		case model.FieldAircraftID:
			rec.AircraftID, err = parseInt(val)
		case model.FieldPilotID:
			if strings.TrimSpace(val) != "" {
				var pilot int64
				pilot, err = parseInt(val)
				rec.PilotID = &pilot
			}
		case model.FieldStatus:
			rec.Status = val
		}
		if err != nil {
			return model.FlightRecord{}, fmt.Errorf("колонка %s: %w", f, err)
		}
	}
	return rec, nil
}

// checkHeader сверяет заголовок файла со схемой.
func checkHeader(schema model.Schema, header []string) error {
	want := schema.Header()
	if len(header) != len(want) {
		return fmt.Errorf("заголовок содержит %d колонок, схема — %d", len(header), len(want))
	}
	for i := range want {
		if strings.TrimSpace(header[i]) != want[i] {
			return fmt.Errorf("колонка %d: ожидалось %q, в файле %q", i+1, want[i], header[i])
		}
	}
	return nil
}

func parseInt(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", s)
	}
	return n, nil
}
