// Package tei talks to a text-embeddings-inference rerank endpoint
// serving a cross-encoder model.
package tei

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okurganov/contextual-rag/internal/core/domain"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Rerank scores each text against the query. Raw scores are requested so
// the caller controls the sigmoid conversion and thresholding itself.
func (c *Client) Rerank(ctx context.Context, query string, texts []string) ([]domain.RerankScore, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := map[string]any{
		"query":      query,
		"texts":      texts,
		"raw_scores": true,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "rerank", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		msg := strings.TrimSpace(string(respBody))
		statusErr := fmt.Errorf("rerank status: %s", resp.Status)
		if msg != "" {
			statusErr = fmt.Errorf("rerank status: %s: %s", resp.Status, msg)
		}
		if isRetryableHTTPStatus(resp.StatusCode) {
			return nil, domain.WrapError(domain.ErrTemporary, "rerank", statusErr)
		}
		return nil, statusErr
	}

	var scores []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&scores); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	out := make([]domain.RerankScore, 0, len(scores))
	for _, s := range scores {
		out = append(out, domain.RerankScore{Index: s.Index, Score: s.Score})
	}
	return out, nil
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
