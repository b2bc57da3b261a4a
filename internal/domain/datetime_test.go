package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeDatetime_Formats(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"rfc3339_utc", "2025-07-16T19:00:00Z", "2025-07-16 19:00:00"},
		{"rfc3339_offset", "2025-07-16T22:00:00+03:00", "2025-07-16 19:00:00"},
		{"iso_no_tz", "2025-07-16T19:00:00", "2025-07-16 19:00:00"},
		{"canonical", "2025-07-16 19:00:00", "2025-07-16 19:00:00"},
		{"slash_datetime", "07/16/2025 19:00:00", "2025-07-16 19:00:00"},
		{"slash_date", "07/16/2025", "2025-07-16 00:00:00"},
	}

	for _, tc := range cases {
		got, err := NormalizeDatetime(tc.input)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestNormalizeDatetime_TimeValue(t *testing.T) {
	// time.Time с таймзоной конвертируется в UTC
	loc := time.FixedZone("MSK", 3*60*60)
	v := time.Date(2025, 7, 16, 22, 0, 0, 0, loc)

	got, err := NormalizeDatetime(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "2025-07-16 19:00:00" {
		t.Errorf("got %q, want %q", got, "2025-07-16 19:00:00")
	}
}

func TestNormalizeDatetime_Unsupported(t *testing.T) {
	for _, v := range []any{"not a date", "16.07.2025", 42, nil, true} {
		if _, err := NormalizeDatetime(v); !errors.Is(err, ErrUnsupportedDatetime) {
			t.Errorf("%v: expected ErrUnsupportedDatetime, got %v", v, err)
		}
	}
}

func TestNormalizeValues_DatetimeKeys(t *testing.T) {
	vals := map[string]any{
		"employee_id": 7,
		"check_in":    "07/16/2025 19:00:00",
		"check_out":   "2025-07-16T22:30:00Z",
	}

	got, err := NormalizeValues(vals)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got["check_in"] != "2025-07-16 19:00:00" {
		t.Errorf("check_in: got %v", got["check_in"])
	}
	if got["check_out"] != "2025-07-16 22:30:00" {
		t.Errorf("check_out: got %v", got["check_out"])
	}
	// Прочие поля не трогаются
	if got["employee_id"] != 7 {
		t.Errorf("employee_id: got %v", got["employee_id"])
	}

	// Исходная map не модифицируется
	if vals["check_in"] != "07/16/2025 19:00:00" {
		t.Errorf("source map was modified: %v", vals["check_in"])
	}
}

func TestNormalizeValues_BadDatetime(t *testing.T) {
	_, err := NormalizeValues(map[string]any{"check_in": "yesterday"})
	if !errors.Is(err, ErrUnsupportedDatetime) {
		t.Fatalf("expected ErrUnsupportedDatetime, got %v", err)
	}
}
