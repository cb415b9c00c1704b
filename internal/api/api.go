package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"transit-backend/internal/core"
	"transit-backend/internal/history"
	"transit-backend/internal/lcstore"
	"transit-backend/pkg/models"
)

const appVersion = "1.0.0"

type BackendService struct {
	orchestrator *core.Orchestrator
	recent       *history.Recent
	transport    string
}

func NewBackendService(orchestrator *core.Orchestrator, recent *history.Recent, transport string) *BackendService {
	return &BackendService{orchestrator: orchestrator, recent: recent, transport: transport}
}

func (s *BackendService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) {
		return map[string]bool{"ok": true}, nil
	}))
	r.Get("/version", RestHandler(s.GetVersion))
	r.Route("/analyses", func(r chi.Router) {
		r.Post("/", RestHandler(s.SubmitAnalysis))
		r.Get("/", RestHandler(s.ListAnalyses))
		r.Get("/{analysis_id}", RestHandler(s.GetAnalysis))
		r.Get("/{analysis_id}/windows", RestHandler(s.GetTransitWindows))
	})
}

func (s *BackendService) GetVersion(r *http.Request) (any, error) {
	return map[string]string{
		"app":       "transit-backend",
		"version":   appVersion,
		"transport": s.transport,
	}, nil
}

func (s *BackendService) SubmitAnalysis(r *http.Request) (any, error) {
	req, err := ParseRequest[models.AnalyzeRequest](r)
	if err != nil {
		return nil, err
	}

	result, err := s.orchestrator.Analyze(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInsufficientData):
			return nil, CodedErrorf(http.StatusUnprocessableEntity, "insufficient_data: %v", err)
		case errors.Is(err, core.ErrInvalidRequest):
			return nil, CodedErrorf(http.StatusBadRequest, "%v", err)
		case errors.Is(err, lcstore.ErrNotFound):
			return nil, CodedErrorf(http.StatusNotFound, "%v", err)
		default:
			return nil, CodedErrorf(http.StatusInternalServerError, "error running analysis: %v", err)
		}
	}

	s.recent.Add(result)

	return result, nil
}

func (s *BackendService) ListAnalyses(r *http.Request) (any, error) {
	return s.recent.List(), nil
}

func (s *BackendService) GetAnalysis(r *http.Request) (any, error) {
	id, err := URLParamUUID(r, "analysis_id")
	if err != nil {
		return nil, err
	}

	result, ok := s.recent.Get(id)
	if !ok {
		return nil, CodedErrorf(http.StatusNotFound, "analysis %v not found", id)
	}

	return result, nil
}

type windowParams struct {
	Start float64 `schema:"start,required"`
	End   float64 `schema:"end,required"`
}

// GetTransitWindows returns the transit overlay intervals of an analysis'
// detection over the requested visible range. An analysis without a
// detection yields an empty list.
func (s *BackendService) GetTransitWindows(r *http.Request) (any, error) {
	id, err := URLParamUUID(r, "analysis_id")
	if err != nil {
		return nil, err
	}

	params, err := ParseRequestQueryParams[windowParams](r)
	if err != nil {
		return nil, err
	}

	result, ok := s.recent.Get(id)
	if !ok {
		return nil, CodedErrorf(http.StatusNotFound, "analysis %v not found", id)
	}

	if len(result.Detections) == 0 {
		return []models.TransitWindow{}, nil
	}

	return core.TransitWindows(result.Detections[0], params.Start, params.End), nil
}
