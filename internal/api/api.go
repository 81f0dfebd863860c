// Package api exposes the HTTP surface of the ramble server: unit
// ingestion, read endpoints for processed knowledge, and the Prometheus
// metrics scrape handler.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ashishact/ramble/internal/store"
)

// maxBodyBytes caps the ingest request body. Units are conversational
// turns, not documents.
const maxBodyBytes = 64 * 1024

// Ingester accepts a conversational unit and starts its processing.
type Ingester interface {
	Ingest(ctx context.Context, sessionID, speaker, text string) (*store.Unit, error)
}

// Server serves the /v1 API routes.
type Server struct {
	store    store.Store
	ingester Ingester
	log      *slog.Logger
}

// New creates an API server over the given store and ingester.
func New(st store.Store, ing Ingester, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{store: st, ingester: ing, log: log}
}

// Register adds all API routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/units", s.createUnit)
	mux.HandleFunc("GET /v1/units/{id}", s.getUnit)
	mux.HandleFunc("GET /v1/units/{id}/events", s.getUnitEvents)
	mux.HandleFunc("GET /v1/sessions/{id}/units", s.getSessionUnits)
	mux.HandleFunc("GET /v1/entities/{name}", s.getEntity)
	mux.HandleFunc("GET /v1/claims", s.getClaims)
	mux.Handle("GET /metrics", promhttp.Handler())
}

// ─── Request / response shapes ───────────────────────────────────────────────

type createUnitRequest struct {
	SessionID string `json:"session_id"`
	Speaker   string `json:"speaker,omitempty"`
	Text      string `json:"text"`
}

type createUnitResponse struct {
	UnitID    string `json:"unit_id"`
	SessionID string `json:"session_id"`
}

type unitResponse struct {
	ID               string          `json:"id"`
	SessionID        string          `json:"session_id"`
	Speaker          string          `json:"speaker,omitempty"`
	Text             string          `json:"text"`
	PreprocessedText string          `json:"preprocessed_text,omitempty"`
	Spans            []spanResponse  `json:"spans,omitempty"`
	Claims           []claimResponse `json:"claims,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

type spanResponse struct {
	Kind  string `json:"kind"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

type claimResponse struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Polarity   string   `json:"polarity"`
	Confidence float64  `json:"confidence"`
	EntityIDs  []string `json:"entity_ids,omitempty"`
}

type eventResponse struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type entityResponse struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Type    string   `json:"type,omitempty"`
	Aliases []string `json:"aliases,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ─── Handlers ────────────────────────────────────────────────────────────────

func (s *Server) createUnit(w http.ResponseWriter, r *http.Request) {
	var req createUnitRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	// Drain so keep-alive connections can be reused.
	_, _ = io.Copy(io.Discard, body)

	if req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "session_id is required"})
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "text is required"})
		return
	}

	unit, err := s.ingester.Ingest(r.Context(), req.SessionID, req.Speaker, req.Text)
	if err != nil {
		s.log.Error("ingest failed", "session_id", req.SessionID, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "ingest failed"})
		return
	}

	// Processing continues asynchronously; 202 signals acceptance.
	writeJSON(w, http.StatusAccepted, createUnitResponse{
		UnitID:    unit.ID,
		SessionID: unit.SessionID,
	})
}

func (s *Server) getUnit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	unit, err := s.store.GetUnit(r.Context(), id)
	if err != nil {
		s.serverError(w, "load unit", err)
		return
	}
	if unit == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unit not found"})
		return
	}

	resp := unitResponse{
		ID:               unit.ID,
		SessionID:        unit.SessionID,
		Speaker:          unit.Speaker,
		Text:             unit.Text,
		PreprocessedText: unit.PreprocessedText,
		CreatedAt:        unit.CreatedAt,
	}

	spans, err := s.store.SpansByUnit(r.Context(), id)
	if err != nil {
		s.serverError(w, "load spans", err)
		return
	}
	for _, sp := range spans {
		resp.Spans = append(resp.Spans, spanResponse{
			Kind:  sp.Kind,
			Start: sp.Start,
			End:   sp.End,
			Text:  sp.Text,
		})
	}

	claims, err := s.store.ClaimsByUnit(r.Context(), id)
	if err != nil {
		s.serverError(w, "load claims", err)
		return
	}
	for _, c := range claims {
		resp.Claims = append(resp.Claims, claimView(c))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getUnitEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	unit, err := s.store.GetUnit(r.Context(), id)
	if err != nil {
		s.serverError(w, "load unit", err)
		return
	}
	if unit == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unit not found"})
		return
	}

	records, err := s.store.EventsForUnit(r.Context(), id)
	if err != nil {
		s.serverError(w, "load events", err)
		return
	}
	events := make([]eventResponse, 0, len(records))
	for _, rec := range records {
		events = append(events, eventResponse{
			Type:      rec.Type,
			Payload:   json.RawMessage(rec.Payload),
			CreatedAt: rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"unit_id": id, "events": events})
}

func (s *Server) getSessionUnits(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	units, err := s.store.UnitsBySession(r.Context(), id)
	if err != nil {
		s.serverError(w, "load session units", err)
		return
	}
	resp := make([]unitResponse, 0, len(units))
	for _, u := range units {
		resp = append(resp, unitResponse{
			ID:               u.ID,
			SessionID:        u.SessionID,
			Speaker:          u.Speaker,
			Text:             u.Text,
			PreprocessedText: u.PreprocessedText,
			CreatedAt:        u.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "units": resp})
}

func (s *Server) getEntity(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ent, err := s.store.GetEntityByName(r.Context(), name)
	if err != nil {
		s.serverError(w, "load entity", err)
		return
	}
	if ent == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "entity not found"})
		return
	}
	writeJSON(w, http.StatusOK, entityResponse{
		ID:      ent.ID,
		Name:    ent.Name,
		Type:    ent.Type,
		Aliases: ent.Aliases,
	})
}

func (s *Server) getClaims(w http.ResponseWriter, r *http.Request) {
	claims, err := s.store.AllClaims(r.Context())
	if err != nil {
		s.serverError(w, "load claims", err)
		return
	}

	// Optional entity filter.
	entityID := r.URL.Query().Get("entity")

	resp := make([]claimResponse, 0, len(claims))
	for _, c := range claims {
		if entityID != "" && !slices.Contains(c.EntityIDs, entityID) {
			continue
		}
		resp = append(resp, claimView(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"claims": resp})
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func claimView(c *store.Claim) claimResponse {
	return claimResponse{
		ID:         c.ID,
		Text:       c.Text,
		Polarity:   c.Polarity,
		Confidence: c.Confidence,
		EntityIDs:  c.EntityIDs,
	}
}

func (s *Server) serverError(w http.ResponseWriter, op string, err error) {
	s.log.Error("api: "+op, "err", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failure"}`, http.StatusInternalServerError)
	}
}
