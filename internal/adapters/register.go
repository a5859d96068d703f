package adapters

import (
	"net/http"

	"github.com/litshivang/gas-data-pipeline/internal/ingestion"
)

// RegisterAll wires every dataset adapter into the registry. A nil client
// gives each adapter the shared default; tests pass their own. The GIE API
// key may be empty, in which case AGSI/ALSI runs fail parameter validation
// before touching the journal.
func RegisterAll(reg *ingestion.Registry, client *http.Client, gieAPIKey string) {
	reg.Register(ingestion.DatasetGasQuality, func() ingestion.Adapter {
		return NewNationalGas(client)
	})

	reg.Register(ingestion.DatasetEntsog, func() ingestion.Adapter {
		return NewEntsog(client)
	})

	reg.Register(ingestion.DatasetInstantaneousFlow, func() ingestion.Adapter {
		return NewInstantaneousFlow(client)
	})

	reg.Register(ingestion.DatasetGasPublications, func() ingestion.Adapter {
		return NewGasPublications(client)
	})

	reg.Register(ingestion.DatasetAGSI, func() ingestion.Adapter {
		return NewAGSI(client, gieAPIKey)
	})

	reg.Register(ingestion.DatasetALSI, func() ingestion.Adapter {
		return NewALSI(client, gieAPIKey)
	})
}
