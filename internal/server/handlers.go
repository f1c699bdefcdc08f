package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-enricher/internal/model"
	"github.com/sells-group/lead-enricher/internal/pipeline"
	"github.com/sells-group/lead-enricher/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// writeFailure maps a pipeline error to a status code.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	if eris.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "lead not found")
		return
	}
	zap.L().Error("server: request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}

type stageResponse struct {
	Success bool              `json:"success"`
	LeadID  string            `json:"lead_id"`
	Stage   model.StageReport `json:"stage"`
	Data    any               `json:"data"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	var req usernameRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts := pipeline.Options{ExternalURL: req.ExternalURL}

	if req.Async {
		if s.starter == nil {
			writeError(w, http.StatusBadRequest, "async enrichment is not enabled")
			return
		}
		workflowID, runID, err := s.starter.StartEnrichment(r.Context(), req.Username, opts)
		if err != nil {
			writeFailure(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{
			"success":     true,
			"username":    req.Username,
			"workflow_id": workflowID,
			"run_id":      runID,
		})
		return
	}

	report, err := s.enricher.Enrich(r.Context(), req.Username, opts)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "report": report})
}

func (s *Server) handleEnrichProfile(w http.ResponseWriter, r *http.Request) {
	var req usernameRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lead, out, err := s.enricher.EnrichProfile(r.Context(), req.Username)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stageResponse{Success: true, LeadID: lead.ID, Stage: out.Report, Data: out.Data})
}

// stageHandler serves the stages that operate on an existing lead.
func (s *Server) stageHandler(name model.StageName) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req stageRequest
		if err := s.decode(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		out, err := s.enricher.RunStage(r.Context(), req.LeadID, name, pipeline.Options{ExternalURL: req.ExternalURL})
		if err != nil {
			writeFailure(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stageResponse{Success: true, LeadID: req.LeadID, Stage: out.Report, Data: out.Data})
	}
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	lead, err := s.enricher.Lead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "lead": lead})
}
