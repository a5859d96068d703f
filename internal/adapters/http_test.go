package adapters

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{
			name:  "rfc3339",
			input: "2025-06-01T06:00:00Z",
			want:  time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC),
		},
		{
			name:  "rfc3339 with offset",
			input: "2025-06-01T08:00:00+02:00",
			want:  time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC),
		},
		{
			name:  "naive datetime is UTC",
			input: "2025-06-01T06:00:00",
			want:  time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC),
		},
		{
			name:  "space separated",
			input: "2025-06-01 06:00:00",
			want:  time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC),
		},
		{
			name:  "date only is UTC midnight",
			input: "2025-06-01",
			want:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "surrounding whitespace",
			input: "  2025-06-01  ",
			want:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTime(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !got.Equal(tt.want) {
				t.Errorf("parseTime(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseTimeUnrecognised(t *testing.T) {
	if _, err := parseTime("01/06/2025"); err == nil {
		t.Error("expected error for unrecognised layout")
	}
}

func TestIsNumber(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  bool
	}{
		{"json number", json.Number("39.5"), true},
		{"float", 39.5, true},
		{"int", 77, true},
		{"NaN is null-like", math.NaN(), false},
		{"numeric string is not a number", "39.5", false},
		{"nil", nil, false},
		{"bool", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNumber(tt.input); got != tt.want {
				t.Errorf("isNumber(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestAsFloat(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   float64
		wantOK bool
	}{
		{"float", 39.5, 39.5, true},
		{"json number", json.Number("49.2"), 49.2, true},
		{"int", 7, 7, true},
		{"numeric string converts", "12.5", 12.5, true},
		{"padded numeric string", " 12.5 ", 12.5, true},
		{"empty string", "", 0, false},
		{"whitespace string", "  ", 0, false},
		{"non-numeric string", "n/a", 0, false},
		{"NaN", math.NaN(), 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := asFloat(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("asFloat(%v) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}

			if ok && got != tt.want {
				t.Errorf("asFloat(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestAsInt(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   int
		wantOK bool
	}{
		{"json integer", json.Number("77"), 77, true},
		{"json float truncates", json.Number("77.9"), 77, true},
		{"float truncates", 77.9, 77, true},
		{"string", "77", 77, true},
		{"non-numeric string", "site", 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := asInt(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("asInt(%v) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}

			if ok && got != tt.want {
				t.Errorf("asInt(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestAsString(t *testing.T) {
	if got := asString(nil); got != "" {
		t.Errorf("asString(nil) = %q, want empty", got)
	}

	if got := asString(json.Number("39.5")); got != "39.5" {
		t.Errorf("asString(json.Number) = %q", got)
	}

	if got := asString("x"); got != "x" {
		t.Errorf("asString(string) = %q", got)
	}
}

func TestDecodeJSONPreservesNumbers(t *testing.T) {
	v, err := decodeJSON(strings.NewReader(`{"value": 12345678901234567}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("decoded %T, want map", v)
	}

	if _, ok := doc["value"].(json.Number); !ok {
		t.Errorf("value decoded as %T, want json.Number", doc["value"])
	}
}
