package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/litshivang/gas-data-pipeline/internal/ingestion"
)

type (
	// IngestRequest is the common trigger body. Dataset-specific fields are
	// ignored by adapters that do not use them.
	IngestRequest struct {
		FromDate       string   `json:"fromDate"`
		ToDate         string   `json:"toDate"`
		SiteIDs        []int    `json:"siteIds,omitempty"`
		OperatorKeys   []string `json:"operatorKeys,omitempty"`
		PointKeys      []string `json:"pointKeys,omitempty"`
		DirectionKeys  []string `json:"directionKeys,omitempty"`
		Indicators     []string `json:"indicators,omitempty"`
		Limit          int      `json:"limit,omitempty"`
		PublicationIDs []string `json:"publicationIds,omitempty"`
		Country        string   `json:"country,omitempty"`
	}

	// IngestAccepted is the 202 trigger response: the run executes in the
	// background and the journal carries its outcome.
	IngestAccepted struct {
		DatasetID string `json:"datasetId"`
		Status    string `json:"status"`
	}
)

func (s *Server) handleIngestGasQuality(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeIngestRequest(w, r)
	if !ok {
		return
	}

	if !s.requireWindow(w, r, req) {
		return
	}

	s.accept(w, r, ingestion.DatasetGasQuality, req.toParams())
}

func (s *Server) handleIngestEntsog(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeIngestRequest(w, r)
	if !ok {
		return
	}

	if !s.requireWindow(w, r, req) {
		return
	}

	if len(req.Indicators) == 0 && (len(req.PointKeys) == 0 || len(req.DirectionKeys) == 0) {
		WriteErrorResponse(w, r, s.logger,
			BadRequest("ENTSOG requires indicators or a pointKeys/directionKeys pair"))

		return
	}

	s.accept(w, r, ingestion.DatasetEntsog, req.toParams())
}

func (s *Server) handleIngestInstantaneous(w http.ResponseWriter, r *http.Request) {
	// The snapshot endpoint takes no parameters; an empty body is valid.
	req, ok := s.decodeIngestRequest(w, r)
	if !ok {
		return
	}

	s.accept(w, r, ingestion.DatasetInstantaneousFlow, req.toParams())
}

func (s *Server) handleIngestGasPublications(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeIngestRequest(w, r)
	if !ok {
		return
	}

	if !s.requireWindow(w, r, req) {
		return
	}

	if len(req.PublicationIDs) == 0 {
		WriteErrorResponse(w, r, s.logger, BadRequest("publicationIds must not be empty"))

		return
	}

	s.accept(w, r, ingestion.DatasetGasPublications, req.toParams())
}

func (s *Server) handleIngestAGSI(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeIngestRequest(w, r)
	if !ok {
		return
	}

	s.accept(w, r, ingestion.DatasetAGSI, req.toParams())
}

func (s *Server) handleIngestALSI(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeIngestRequest(w, r)
	if !ok {
		return
	}

	s.accept(w, r, ingestion.DatasetALSI, req.toParams())
}

// decodeIngestRequest parses the trigger body. An empty body decodes to the
// zero request; malformed JSON is a 400.
func (s *Server) decodeIngestRequest(w http.ResponseWriter, r *http.Request) (IngestRequest, bool) {
	var req IngestRequest

	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteErrorResponse(w, r, s.logger, BadRequest(fmt.Sprintf("malformed request body: %v", err)))

		return IngestRequest{}, false
	}

	return req, true
}

// requireWindow rejects requests without a parseable, correctly ordered date
// window before anything is submitted.
func (s *Server) requireWindow(w http.ResponseWriter, r *http.Request, req IngestRequest) bool {
	from, err := time.Parse("2006-01-02", req.FromDate)
	if err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest("fromDate must be YYYY-MM-DD"))

		return false
	}

	to, err := time.Parse("2006-01-02", req.ToDate)
	if err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest("toDate must be YYYY-MM-DD"))

		return false
	}

	if to.Before(from) {
		WriteErrorResponse(w, r, s.logger, BadRequest("toDate must not be before fromDate"))

		return false
	}

	return true
}

// accept submits the run to the worker pool and returns 202 immediately.
func (s *Server) accept(w http.ResponseWriter, r *http.Request, datasetID string, params ingestion.Params) {
	s.pool.Submit(datasetID, params)

	s.writeJSON(w, r, http.StatusAccepted, IngestAccepted{
		DatasetID: datasetID,
		Status:    "accepted",
	})
}

func (req IngestRequest) toParams() ingestion.Params {
	return ingestion.Params{
		FromDate:       req.FromDate,
		ToDate:         req.ToDate,
		SiteIDs:        req.SiteIDs,
		OperatorKeys:   req.OperatorKeys,
		PointKeys:      req.PointKeys,
		DirectionKeys:  req.DirectionKeys,
		Indicators:     req.Indicators,
		Limit:          req.Limit,
		PublicationIDs: req.PublicationIDs,
		Country:        req.Country,
	}
}
