// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/poiesic/diseasekb/core"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Diagnoser answers symptom queries.
type Diagnoser interface {
	Advise(ctx context.Context, query string) ([]core.RetrievalHit, error)
	AdviseTopK(ctx context.Context, query string, k int) ([]core.RetrievalHit, error)
	RankedPrecautions(ctx context.Context, disease, query string) ([]core.RankedPrecaution, error)
}

// Catalog reports knowledge base readiness.
type Catalog interface {
	Built() bool
	Len() int
}

// Handler serves the diagnosis endpoints.
type Handler struct {
	diagnoser Diagnoser
	catalog   Catalog
	logger    *slog.Logger
}

// NewHandler creates a Handler. catalog may be nil, in which case /healthz
// always reports ok.
func NewHandler(diagnoser Diagnoser, catalog Catalog, logger *slog.Logger) (*Handler, error) {
	if diagnoser == nil {
		return nil, ErrDiagnoserRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		diagnoser: diagnoser,
		catalog:   catalog,
		logger:    logger.With("component", "api"),
	}, nil
}

// Routes registers the endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Root)
	r.Get("/healthz", h.Health)
	r.Post("/diagnose", h.Diagnose)
	r.Post("/precautions", h.Precautions)
}

// Root handles GET /.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, StatusResponse{Message: StatusMessage, Disclaimer: Disclaimer})
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	if h.catalog == nil {
		WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
		return
	}
	if !h.catalog.Built() {
		WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "building"})
		return
	}
	WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok", Diseases: h.catalog.Len()})
}

// Diagnose handles POST /diagnose.
func (h *Handler) Diagnose(w http.ResponseWriter, r *http.Request) {
	var body SymptomInput
	if err := decode(w, r, &body); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		WriteError(w, r, validationError("text is required"), h.logger)
		return
	}

	var (
		hits []core.RetrievalHit
		err  error
	)
	if body.TopK == nil {
		hits, err = h.diagnoser.Advise(r.Context(), body.Text)
	} else {
		hits, err = h.diagnoser.AdviseTopK(r.Context(), body.Text, *body.TopK)
	}
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, DiagnosisResponse{Disclaimer: Disclaimer, Predictions: Predictions(hits)})
}

// Predictions converts advisor hits to response items.
// A nil precaution list becomes an empty one.
func Predictions(hits []core.RetrievalHit) []DiseasePrediction {
	predictions := make([]DiseasePrediction, len(hits))
	for i, hit := range hits {
		precautions := hit.Precautions
		if precautions == nil {
			precautions = []string{}
		}
		predictions[i] = DiseasePrediction{
			Disease:     hit.Disease,
			Confidence:  hit.Similarity,
			Description: hit.Description,
			Precautions: precautions,
		}
	}
	return predictions
}

// Precautions handles POST /precautions.
func (h *Handler) Precautions(w http.ResponseWriter, r *http.Request) {
	var body PrecautionInput
	if err := decode(w, r, &body); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	disease := strings.TrimSpace(body.Disease)
	if disease == "" {
		WriteError(w, r, validationError("disease is required"), h.logger)
		return
	}

	ranked, err := h.diagnoser.RankedPrecautions(r.Context(), disease, body.Text)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	out := make([]RankedPrecaution, len(ranked))
	for i, p := range ranked {
		out[i] = RankedPrecaution{Precaution: p.Precaution, RelevanceScore: p.RelevanceScore}
	}
	WriteJSON(w, http.StatusOK, PrecautionResponse{Disease: disease, Precautions: out})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return validationError("request body is empty")
		}
		return validationError("invalid JSON: %v", err)
	}
	return nil
}
