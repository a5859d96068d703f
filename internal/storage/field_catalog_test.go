package storage

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferJSONType(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"null", nil, "null"},
		{"boolean", true, "boolean"},
		{"json integer", json.Number("77"), "integer"},
		{"json float", json.Number("39.5"), "float"},
		{"whole float is integer", 77.0, "integer"},
		{"fractional float", 39.5, "float"},
		{"string", "St Fergus", "string"},
		{"array collapses to string", []any{1, 2}, "string"},
		{"object collapses to string", map[string]any{"a": 1}, "string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inferJSONType(tt.input))
		})
	}
}

func TestJoinTypes(t *testing.T) {
	assert.Equal(t, "null", joinTypes(nil))

	got := joinTypes(map[string]bool{"string": true, "integer": true, "float": true})
	assert.Equal(t, "float,integer,string", got, "sorted comma join")
}

func TestTruncateExample(t *testing.T) {
	assert.Equal(t, "short", truncateExample("short"))

	long := strings.Repeat("x", maxExampleLen+50)
	assert.Len(t, truncateExample(long), maxExampleLen)

	// The cut is rune-aware: multibyte characters survive intact.
	wide := strings.Repeat("ø", maxExampleLen+50)
	got := truncateExample(wide)
	assert.True(t, utf8.ValidString(got), "truncated example must stay valid UTF-8")
	assert.Equal(t, maxExampleLen, utf8.RuneCountInString(got))

	assert.Equal(t, "39.5", truncateExample(json.Number("39.5")))
	assert.Equal(t, `{"a":1}`, truncateExample(map[string]any{"a": 1}))
}

func TestProfileFields(t *testing.T) {
	profiles := make(map[string]*fieldProfile)

	profileFields(profiles, map[string]any{
		"siteId": json.Number("77"),
		"cv":     json.Number("39.5"),
		"note":   nil,
	})
	profileFields(profiles, map[string]any{
		"siteId": json.Number("78"),
		"note":   "maintenance",
	})

	assert.Equal(t, "integer", joinTypes(profiles["siteId"].types))

	note := profiles["note"]
	assert.True(t, note.nullable, "note is nullable after a null sighting")
	assert.Equal(t, "string", joinTypes(note.types))

	assert.Equal(t, "77", profiles["siteId"].example, "first sighting wins")
}

func TestFieldCatalogDiscover(t *testing.T) {
	conn, mock := newMockConnection(t)
	catalog := NewFieldCatalog(conn)

	rows := sqlmock.NewRows([]string{"raw_payload"}).
		AddRow([]byte(`{"siteId": 77, "cv": 39.5}`)).
		AddRow([]byte(`not json`)).
		AddRow([]byte(`{"siteId": 78, "comment": null}`))

	mock.ExpectQuery(`SELECT raw_payload`).
		WithArgs("GAS_QUALITY").
		WillReturnRows(rows)

	// Inserts arrive in sorted field-name order: comment, cv, siteId.
	insert := `INSERT INTO field_catalog \(dataset_id, field_name, inferred_type`

	mock.ExpectExec(insert).
		WithArgs("GAS_QUALITY", "comment", "null", true, "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insert).
		WithArgs("GAS_QUALITY", "cv", "float", false, "39.5").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insert).
		WithArgs("GAS_QUALITY", "siteId", "integer", false, "77").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, catalog.Discover(context.Background(), "GAS_QUALITY"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFieldCatalogDiscoverNoEvents(t *testing.T) {
	conn, mock := newMockConnection(t)
	catalog := NewFieldCatalog(conn)

	mock.ExpectQuery(`SELECT raw_payload`).
		WithArgs("ENTSOG").
		WillReturnRows(sqlmock.NewRows([]string{"raw_payload"}))

	require.NoError(t, catalog.Discover(context.Background(), "ENTSOG"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
