package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/okurganov/contextual-rag/internal/core/domain"
	"github.com/okurganov/contextual-rag/internal/core/ports"
	"github.com/okurganov/contextual-rag/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	ingestor ports.DocumentIngestor
	querySvc ports.DocumentQueryService
	reader   ports.DocumentReader
	metrics  *metrics.HTTPServerMetrics
}

func NewRouter(
	ingestor ports.DocumentIngestor,
	querySvc ports.DocumentQueryService,
	reader ports.DocumentReader,
	serverMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		ingestor: ingestor,
		querySvc: querySvc,
		reader:   reader,
		metrics:  serverMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.createDocument)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	mux.HandleFunc("/v1/rag/query", rt.queryRAG)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
		return requestIDMiddleware(accessLogMiddleware(rt.metrics.Middleware(serviceName, mux)))
	}
	return requestIDMiddleware(accessLogMiddleware(mux))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) createDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Contents string `json:"contents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	doc, err := rt.ingestor.Submit(r.Context(), req.Contents)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordIngestAccepted(serviceName, len(req.Contents))
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) queryRAG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Prompt         string           `json:"prompt"`
		Timeframe      domain.Timeframe `json:"timeframe"`
		TopK           int              `json:"top_k"`
		ScoreThreshold float64          `json:"score_threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "prompt is required"})
		return
	}

	start := time.Now()
	result, err := rt.querySvc.Query(r.Context(), domain.QueryRequest{
		Prompt:         req.Prompt,
		Timeframe:      req.Timeframe,
		TopK:           req.TopK,
		ScoreThreshold: req.ScoreThreshold,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordRAGObservation(serviceName, "/v1/rag/query", len(result.Chunks), result.FusedCount, result.Degraded, time.Since(start))
	}
	writeJSON(w, http.StatusOK, result)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
