package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"helpdesk-insights-be/internal/insights"
)

// RemoteClassifier calls a grouping service that speaks the
// {reasons} -> {grouped} contract over HTTP.
type RemoteClassifier struct {
	url    string
	apiKey string
	client *http.Client
}

func NewRemoteClassifier(url, apiKey string, client *http.Client) *RemoteClassifier {
	if client == nil {
		client = &http.Client{Timeout: defaultClassifierTimeout}
	}
	return &RemoteClassifier{url: url, apiKey: apiKey, client: client}
}

// GroupReasons implements insights.Classifier.
func (c *RemoteClassifier) GroupReasons(ctx context.Context, reasons []insights.ReasonCount) ([]insights.Category, error) {
	b, err := json.Marshal(map[string]interface{}{"reasons": reasons})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", insights.ErrClassificationUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", insights.ErrClassificationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s", insights.ErrClassificationUnavailable, resp.StatusCode, string(bodyBytes))
	}

	var parsed struct {
		Grouped []categoryDTO `json:"grouped"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", insights.ErrClassificationUnavailable, err)
	}
	return toCategories(parsed.Grouped)
}
