package utils

import (
	"database/sql"
	"testing"
	"time"
)

func TestParseTimeLayouts(t *testing.T) {
	want := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	for _, in := range []string{
		"2024-01-02T03:04:05Z",
		"2024-01-02T03:04:05+00:00",
		"2024-01-02 03:04:05+00:00",
		"2024-01-02T03:04:05",
		"2024-01-02 03:04:05",
	} {
		got, err := ParseTime(in)
		if err != nil {
			t.Errorf("ParseTime(%q): %v", in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseTime(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseTime("yesterday"); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestNullableHelpers(t *testing.T) {
	if FormatDate(sql.NullTime{}) != nil || FloatPtr(sql.NullFloat64{}) != nil {
		t.Error("NULL columns must map to nil")
	}
	d := FormatDate(sql.NullTime{Time: time.Date(1999, 3, 31, 23, 0, 0, 0, time.UTC), Valid: true})
	if d == nil || *d != "1999-03-31" {
		t.Errorf("FormatDate: %v", d)
	}
	f := FloatPtr(sql.NullFloat64{Float64: 7.1, Valid: true})
	if f == nil || *f != 7.1 {
		t.Errorf("FloatPtr: %v", f)
	}
}
