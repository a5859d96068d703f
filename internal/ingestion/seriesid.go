package ingestion

import (
	"strings"
)

// seriesIDReplacer strips the punctuation that appears in upstream data item
// names and flattens spaces. Applied after uppercasing.
var seriesIDReplacer = strings.NewReplacer(",", "", "(", "", ")", "", " ", "_")

// MakeSeriesID builds the canonical series identifier
// NG_<DATASET_ID>_<PART1>_<PART2>_... where each part is uppercased, has
// commas and parentheses stripped, and spaces replaced by underscores. Empty
// parts are skipped.
//
// The function is total and deterministic: two processes computing it on the
// same inputs always produce the same string. Series ids derived here are the
// primary key of meta_series and must never depend on ambient state.
func MakeSeriesID(datasetID string, parts ...string) string {
	slugs := make([]string, 0, len(parts))

	for _, p := range parts {
		if p == "" {
			continue
		}

		slugs = append(slugs, seriesIDReplacer.Replace(strings.ToUpper(p)))
	}

	return "NG_" + datasetID + "_" + strings.Join(slugs, "_")
}
