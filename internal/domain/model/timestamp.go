package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Форматы вывода временных меток.
const (
	// naiveLayout — ISO-8601 без часового пояса
	naiveLayout = "2006-01-02T15:04:05.999999999"
	// zonedLayout — RFC 3339 с часовым поясом
	zonedLayout = time.RFC3339Nano
)

// naiveInputLayouts — допустимые форматы ISO-8601 без часового пояса.
var naiveInputLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// Timestamp — момент времени в ISO-8601.
// Naive-метки (без часового пояса) остаются naive при сохранении и выводе:
// "2024-01-01T10:00:00" → "2024-01-01T10:00:00".
type Timestamp struct {
	time.Time
	// Naive — метка была задана без часового пояса
	Naive bool
}

// ParseTimestamp разбирает строку ISO-8601.
// Сначала пробует RFC 3339, затем форматы без часового пояса.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, fmt.Errorf("пустая временная метка")
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Timestamp{Time: t}, nil
	}
	// Пробел вместо T с часовым поясом ("2024-01-01 10:00:00+03:00")
	if t, err := time.Parse("2006-01-02 15:04:05.999999999Z07:00", s); err == nil {
		return Timestamp{Time: t}, nil
	}

	for _, layout := range naiveInputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t, Naive: true}, nil
		}
	}

	return Timestamp{}, fmt.Errorf("некорректная временная метка %q, ожидается ISO-8601", s)
}

// String возвращает метку в нормализованном ISO-8601.
func (ts Timestamp) String() string {
	if ts.Naive {
		return ts.Time.Format(naiveLayout)
	}
	return ts.Time.Format(zonedLayout)
}

// Equal сравнивает момент времени и признак naive.
func (ts Timestamp) Equal(other Timestamp) bool {
	return ts.Naive == other.Naive && ts.Time.Equal(other.Time)
}

// MarshalJSON сериализует метку как строку ISO-8601.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.String())
}

// UnmarshalJSON разбирает строку ISO-8601.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("временная метка должна быть строкой: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}
