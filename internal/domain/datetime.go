package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnsupportedDatetime — значение не удалось привести к datetime.
var ErrUnsupportedDatetime = errors.New("unsupported datetime format")

// DatetimeFormat — каноничный формат хранения: UTC без таймзоны.
const DatetimeFormat = "2006-01-02 15:04:05"

// datetimeKeys — ключи payload'а, значения которых несут datetime
// и подлежат нормализации.
var datetimeKeys = map[string]bool{
	"check_in":  true,
	"check_out": true,
}

// datetimeLayouts — принимаемые форматы, в порядке убывания строгости.
// Слэш-форматы — то, что реально шлют терминалы учёта времени.
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// NormalizeDatetime приводит значение к каноничному UTC-времени без таймзоны.
//
// Принимает строку в одном из известных форматов или time.Time.
// Время с таймзоной конвертируется в UTC, без таймзоны — считается UTC.
// Любой другой тип или нераспознанная строка — ErrUnsupportedDatetime.
func NormalizeDatetime(v any) (string, error) {
	switch val := v.(type) {
	case string:
		for _, layout := range datetimeLayouts {
			t, err := time.Parse(layout, val)
			if err != nil {
				continue
			}
			return toCanonical(t), nil
		}
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDatetime, val)
	case time.Time:
		return toCanonical(val), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedDatetime, v)
	}
}

// toCanonical переводит время в UTC и отбрасывает таймзону.
func toCanonical(t time.Time) string {
	return t.UTC().Format(DatetimeFormat)
}

// NormalizeValues возвращает копию vals, в которой datetime-ключи
// (check_in, check_out) приведены к каноничному формату.
// Прочие поля передаются как есть.
func NormalizeValues(vals map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(vals))
	for k, v := range vals {
		if !datetimeKeys[k] {
			out[k] = v
			continue
		}
		normalized, err := NormalizeDatetime(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = normalized
	}
	return out, nil
}
