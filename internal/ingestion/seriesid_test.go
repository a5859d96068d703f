package ingestion

import "testing"

func TestMakeSeriesID(t *testing.T) {
	tests := []struct {
		name      string
		datasetID string
		parts     []string
		want      string
	}{
		{
			name:      "site and metric",
			datasetID: DatasetGasQuality,
			parts:     []string{"77", "CV"},
			want:      "NG_GAS_QUALITY_77_CV",
		},
		{
			name:      "lowercase parts are uppercased",
			datasetID: DatasetGasQuality,
			parts:     []string{"77", "wobbe"},
			want:      "NG_GAS_QUALITY_77_WOBBE",
		},
		{
			name:      "spaces become underscores",
			datasetID: DatasetInstantaneousFlow,
			parts:     []string{"St Fergus", "FLOWRATE"},
			want:      "NG_INSTANTANEOUS_FLOW_ST_FERGUS_FLOWRATE",
		},
		{
			name:      "commas and parens are stripped",
			datasetID: DatasetEntsog,
			parts:     []string{"Physical Flow", "point(1),a", "entry"},
			want:      "NG_ENTSOG_PHYSICAL_FLOW_POINT1A_ENTRY",
		},
		{
			name:      "empty parts are skipped",
			datasetID: DatasetGasPublications,
			parts:     []string{"", "PUBOBJ1", ""},
			want:      "NG_GAS_PUBLICATIONS_PUBOBJ1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MakeSeriesID(tt.datasetID, tt.parts...)
			if got != tt.want {
				t.Errorf("MakeSeriesID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMakeSeriesIDIsPure(t *testing.T) {
	a := MakeSeriesID(DatasetGasQuality, "77", "CV")
	b := MakeSeriesID(DatasetGasQuality, "77", "CV")

	if a != b {
		t.Errorf("same inputs produced different ids: %q vs %q", a, b)
	}
}
