package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/MrWong99/lidroute/internal/langid"
	"github.com/MrWong99/lidroute/internal/validation"
	"github.com/MrWong99/lidroute/pkg/types"
)

// RouteRequest is the body of POST /v1/route.
type RouteRequest struct {
	Text string `json:"text"`
}

// BatchRequest is the body of POST /v1/route/batch.
type BatchRequest struct {
	Texts []string `json:"texts"`
}

// BatchResponse is the reply of POST /v1/route/batch. Error is set when the
// deadline ended the batch early; unprocessed slots then hold error results.
type BatchResponse struct {
	Results []types.Result `json:"results"`
	Error   string         `json:"error,omitempty"`
}

// LanguagesResponse is the reply of GET /v1/languages.
type LanguagesResponse struct {
	Languages        []langid.Language `json:"languages"`
	RouteKeys        []types.RouteKey  `json:"route_keys"`
	Pipelines        []string          `json:"pipelines"`
	DefaultPipeline  string            `json:"default_pipeline"`
	Threshold        float64           `json:"threshold"`
	ClassifierLoaded bool              `json:"classifier_loaded"`
}

// InspectRequest is the body of POST /v1/inspect. An empty Lang uses the
// detected language.
type InspectRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang,omitempty"`
}

// InspectResponse is the reply of POST /v1/inspect.
type InspectResponse struct {
	LangCode    string                   `json:"lang_code"`
	CleanedText string                   `json:"cleaned_text"`
	Tokens      []validation.TokenReport `json:"tokens"`
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	res := s.backend.Router().Process(ctx, req.Text)
	if !res.OK() {
		logger(ctx).Debug("route request failed", "status", res.Status)
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if len(req.Texts) == 0 {
		writeError(w, r, http.StatusBadRequest, "texts must not be empty")
		return
	}
	if limit := s.batchLimit(); len(req.Texts) > limit {
		writeError(w, r, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("batch of %d texts exceeds the limit of %d", len(req.Texts), limit))
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	results, err := s.backend.Router().ProcessBatch(ctx, req.Texts)
	if err != nil {
		logger(ctx).Warn("batch ended early", "size", len(req.Texts), "err", err)
		writeJSON(w, r, http.StatusGatewayTimeout, BatchResponse{Results: results, Error: err.Error()})
		return
	}
	writeJSON(w, r, http.StatusOK, BatchResponse{Results: results})
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	rt := s.backend.Router()
	codes := rt.Codes()
	writeJSON(w, r, http.StatusOK, LanguagesResponse{
		Languages:        langid.Languages(),
		RouteKeys:        types.RouteKeys,
		Pipelines:        codes,
		DefaultPipeline:  codes[0],
		Threshold:        rt.Identifier().Threshold(),
		ClassifierLoaded: rt.Identifier().Loaded(),
	})
}

var errEmptyText = errors.New("text must not be empty")

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	var req InspectRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Text == "" {
		writeError(w, r, http.StatusBadRequest, errEmptyText.Error())
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	code, cleaned, tokens := s.backend.Router().Inspect(ctx, req.Text, req.Lang)
	writeJSON(w, r, http.StatusOK, InspectResponse{LangCode: code, CleanedText: cleaned, Tokens: tokens})
}
