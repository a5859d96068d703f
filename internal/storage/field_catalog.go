package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/litshivang/gas-data-pipeline/internal/ingestion"
)

// maxExampleLen caps the stored example value for a discovered field.
const maxExampleLen = 200

// FieldCatalog maintains the write-once documentation of upstream payload
// shapes in field_catalog. Discovery scans a dataset's raw events, infers a
// JSON type per field, and inserts with ON CONFLICT DO NOTHING: first
// observation wins, later drift never rewrites history.
type FieldCatalog struct {
	conn *Connection
}

var _ ingestion.FieldCatalog = (*FieldCatalog)(nil)

// NewFieldCatalog creates the field catalog over a shared connection.
func NewFieldCatalog(conn *Connection) *FieldCatalog {
	return &FieldCatalog{conn: conn}
}

// fieldProfile accumulates what discovery learned about one payload field.
type fieldProfile struct {
	types    map[string]bool
	nullable bool
	example  string
}

// Discover scans the raw events of a dataset and records every payload field
// it has not seen before.
func (c *FieldCatalog) Discover(ctx context.Context, datasetID string) error {
	query := `
		SELECT raw_payload
		FROM raw_events
		WHERE dataset_id = $1
	`

	rows, err := c.conn.QueryContext(ctx, query, datasetID)
	if err != nil {
		return fmt.Errorf("failed to query raw events for discovery: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	profiles := make(map[string]*fieldProfile)

	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return fmt.Errorf("failed to scan raw payload: %w", err)
		}

		doc, err := decodePayload(payload)
		if err != nil {
			// A malformed archived payload is a data problem, not a reason to
			// abort the run.
			continue
		}

		profileFields(profiles, doc)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}

	return c.insertProfiles(ctx, datasetID, profiles)
}

func (c *FieldCatalog) insertProfiles(ctx context.Context, datasetID string, profiles map[string]*fieldProfile) error {
	if len(profiles) == 0 {
		return nil
	}

	query := `
		INSERT INTO field_catalog (dataset_id, field_name, inferred_type, nullable, example_value, first_seen_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (dataset_id, field_name) DO NOTHING
	`

	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		profile := profiles[name]

		_, err := c.conn.ExecContext(ctx, query,
			datasetID, name, joinTypes(profile.types), profile.nullable, profile.example)
		if err != nil {
			return fmt.Errorf("failed to insert field catalog entry: %w", err)
		}
	}

	return nil
}

// decodePayload decodes an archived payload preserving numeric fidelity so
// integers never come back as floats.
func decodePayload(payload []byte) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(string(payload)))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// profileFields folds one payload into the accumulated field profiles.
func profileFields(profiles map[string]*fieldProfile, doc map[string]any) {
	for name, value := range doc {
		profile, ok := profiles[name]
		if !ok {
			profile = &fieldProfile{types: make(map[string]bool)}
			profiles[name] = profile
		}

		jsonType := inferJSONType(value)
		if jsonType == "null" {
			profile.nullable = true

			continue
		}

		profile.types[jsonType] = true

		if profile.example == "" {
			profile.example = truncateExample(value)
		}
	}
}

// inferJSONType classifies one decoded JSON value into the catalog's type
// domain: null, boolean, integer, float or string. json.Number splits into
// integer and float on parseability; non-scalars (arrays, objects) fall
// through to string.
func inferJSONType(v any) string {
	switch n := v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number:
		if _, err := n.Int64(); err == nil {
			return "integer"
		}

		return "float"
	case float64:
		if n == float64(int64(n)) {
			return "integer"
		}

		return "float"
	}

	return "string"
}

// joinTypes renders the observed type set deterministically: sorted,
// comma-joined. A field only ever seen null reports "null".
func joinTypes(types map[string]bool) string {
	if len(types) == 0 {
		return "null"
	}

	names := make([]string, 0, len(types))
	for t := range types {
		names = append(names, t)
	}

	sort.Strings(names)

	return strings.Join(names, ",")
}

// truncateExample renders a value for the example column, capped at
// maxExampleLen characters.
func truncateExample(v any) string {
	var s string

	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			s = fmt.Sprintf("%v", t)
		} else {
			s = string(raw)
		}
	}

	// Cut on runes so a multibyte character is never split.
	if runes := []rune(s); len(runes) > maxExampleLen {
		s = string(runes[:maxExampleLen])
	}

	return s
}
