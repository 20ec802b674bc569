package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okurganov/contextual-rag/internal/core/domain"
	"github.com/okurganov/contextual-rag/internal/observability/metrics"
)

type ingestorFake struct {
	doc *domain.Document
	err error

	gotContents string
}

func (f *ingestorFake) Submit(_ context.Context, contents string) (*domain.Document, error) {
	f.gotContents = contents
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

type queryServiceFake struct {
	result *domain.QueryResult
	err    error

	gotReq domain.QueryRequest
}

func (f *queryServiceFake) Query(_ context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type readerFake struct {
	doc *domain.Document
	err error
}

func (f *readerFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

func newTestRouter(ingestor *ingestorFake, querySvc *queryServiceFake, reader *readerFake) http.Handler {
	return NewRouter(ingestor, querySvc, reader, metrics.NewHTTPServerMetrics("api-test")).Handler()
}

func TestCreateDocumentReturns201WithDocument(t *testing.T) {
	ingestor := &ingestorFake{doc: &domain.Document{ID: "doc-1", Status: domain.StatusCreated}}
	handler := newTestRouter(ingestor, &queryServiceFake{}, &readerFake{})

	payload, _ := json.Marshal(map[string]string{"contents": "hello world"})
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	if ingestor.gotContents != "hello world" {
		t.Fatalf("unexpected contents: %q", ingestor.gotContents)
	}

	var doc domain.Document
	if err := json.Unmarshal(res.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if doc.ID != "doc-1" || doc.Status != domain.StatusCreated {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestCreateDocumentMapsInvalidInputTo400(t *testing.T) {
	ingestor := &ingestorFake{err: domain.WrapError(domain.ErrInvalidInput, "submit", errors.New("contents is required"))}
	handler := newTestRouter(ingestor, &queryServiceFake{}, &readerFake{})

	payload, _ := json.Marshal(map[string]string{"contents": ""})
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestGetDocumentByIDReturns404ForNotFound(t *testing.T) {
	reader := &readerFake{err: domain.WrapError(domain.ErrNotFound, "get", errors.New("id missing"))}
	handler := newTestRouter(&ingestorFake{}, &queryServiceFake{}, reader)

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestQueryRAGForwardsRequestFields(t *testing.T) {
	querySvc := &queryServiceFake{result: &domain.QueryResult{
		Keywords: []string{"sky"},
		Queries:  []string{"why is the sky blue"},
		Chunks:   []domain.RerankedChunk{{ID: "c-1", DocID: "doc-1", Text: "t", Score: 0.9}},
		Answer:   "because of scattering",
	}}
	handler := newTestRouter(&ingestorFake{}, querySvc, &readerFake{})

	payload, _ := json.Marshal(map[string]any{
		"prompt":          "why is the sky blue",
		"timeframe":       map[string]int64{"from": 1000, "to": 2000},
		"top_k":           3,
		"score_threshold": 0.7,
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/rag/query", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if querySvc.gotReq.Prompt != "why is the sky blue" {
		t.Fatalf("unexpected prompt: %q", querySvc.gotReq.Prompt)
	}
	if querySvc.gotReq.Timeframe.From != 1000 || querySvc.gotReq.Timeframe.To != 2000 {
		t.Fatalf("unexpected timeframe: %+v", querySvc.gotReq.Timeframe)
	}
	if querySvc.gotReq.TopK != 3 || querySvc.gotReq.ScoreThreshold != 0.7 {
		t.Fatalf("unexpected tuning: %+v", querySvc.gotReq)
	}

	var body map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["answer"] != "because of scattering" {
		t.Fatalf("unexpected answer: %v", body["answer"])
	}
	if _, ok := body["chunks"]; !ok {
		t.Fatalf("expected chunks in response: %v", body)
	}
}

func TestQueryRAGRejectsBlankPrompt(t *testing.T) {
	handler := newTestRouter(&ingestorFake{}, &queryServiceFake{}, &readerFake{})

	payload, _ := json.Marshal(map[string]string{"prompt": "   "})
	req := httptest.NewRequest(http.MethodPost, "/v1/rag/query", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestQueryRAGMapsTemporaryTo503(t *testing.T) {
	querySvc := &queryServiceFake{err: domain.WrapError(domain.ErrTemporary, "embed", errors.New("connection refused"))}
	handler := newTestRouter(&ingestorFake{}, querySvc, &readerFake{})

	payload, _ := json.Marshal(map[string]string{"prompt": "q"})
	req := httptest.NewRequest(http.MethodPost, "/v1/rag/query", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestRequestIDHeaderIsEchoed(t *testing.T) {
	handler := newTestRouter(&ingestorFake{}, &queryServiceFake{}, &readerFake{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "req-42")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if got := res.Header().Get("X-Request-Id"); got != "req-42" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
}
