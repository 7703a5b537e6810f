package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk-insights-be/internal/insights"
)

func sampleReasons() []insights.ReasonCount {
	return []insights.ReasonCount{
		{Reason: "erro no boleto", Count: 5},
		{Reason: "boleto não chegou", Count: 3},
		{Reason: "senha bloqueada", Count: 2},
		{Reason: "esqueci a senha", Count: 1},
	}
}

const groupedJSON = `[{"category": "Problemas com Boleto", "count": 8, "original_reasons": ["Erro no boleto", "boleto não chegou"]},` +
	`{"category": "Acesso à Conta", "count": 3, "original_reasons": ["senha bloqueada", "esqueci a senha"]}]`

func TestNewClassifierProviders(t *testing.T) {
	c, err := NewClassifier(GroupingOptions{Provider: "local"})
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = NewClassifier(GroupingOptions{})
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = NewClassifier(GroupingOptions{Provider: "groq"})
	assert.Error(t, err)

	_, err = NewClassifier(GroupingOptions{Provider: "remote"})
	assert.Error(t, err)

	_, err = NewClassifier(GroupingOptions{Provider: "mystery", APIKey: "k"})
	assert.ErrorIs(t, err, ErrUnknownProvider)

	c, err = NewClassifier(GroupingOptions{Provider: "Remote", URL: "http://localhost:1"})
	require.NoError(t, err)
	assert.IsType(t, &RemoteClassifier{}, c)

	c, err = NewClassifier(GroupingOptions{Provider: "anthropic", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, defaultAnthropicModel, c.(*LLMGroupingService).model)
}

func TestGroqGrouping(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		content := "```json\n" + groupedJSON + "\n```"
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
	defer srv.Close()

	c, err := NewClassifier(GroupingOptions{Provider: "groq", APIKey: "test-key", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	cats, err := c.GroupReasons(context.Background(), sampleReasons())

	require.NoError(t, err)
	assert.Equal(t, defaultGroqModel, got["model"])
	assert.InDelta(t, 0.2, got["temperature"], 0.0001)
	messages := got["messages"].([]interface{})
	require.Len(t, messages, 2)
	assert.Contains(t, messages[1].(map[string]interface{})["content"], `"erro no boleto" (5x)`)

	require.Len(t, cats, 2)
	assert.Equal(t, "Problemas com Boleto", cats[0].Label)
	assert.Equal(t, 8, cats[0].Count)
	assert.Equal(t, []string{"erro no boleto", "boleto não chegou"}, cats[0].AbsorbedReasons)
}

func TestGeminiGrouping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "gem-key", r.Header.Get("x-goog-api-key"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]string{{"text": `{"grouped": ` + groupedJSON + `}`}},
				}},
			},
		})
	}))
	defer srv.Close()

	c, err := NewClassifier(GroupingOptions{Provider: "gemini", APIKey: "gem-key", BaseURL: srv.URL})
	require.NoError(t, err)

	cats, err := c.GroupReasons(context.Background(), sampleReasons())

	require.NoError(t, err)
	assert.Len(t, cats, 2)
}

func TestAnthropicGrouping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "ant-key", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":            "msg_01",
			"type":          "message",
			"role":          "assistant",
			"model":         defaultAnthropicModel,
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"content":       []map[string]string{{"type": "text", "text": groupedJSON}},
			"usage":         map[string]int{"input_tokens": 10, "output_tokens": 20},
		})
	}))
	defer srv.Close()

	c, err := NewClassifier(GroupingOptions{Provider: "anthropic", APIKey: "ant-key", BaseURL: srv.URL})
	require.NoError(t, err)

	cats, err := c.GroupReasons(context.Background(), sampleReasons())

	require.NoError(t, err)
	assert.Len(t, cats, 2)
}

func TestProviderFailuresAreUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	for _, provider := range []string{"groq", "openai", "gemini", "anthropic"} {
		t.Run(provider, func(t *testing.T) {
			calls.Store(0)
			c, err := NewClassifier(GroupingOptions{Provider: provider, APIKey: "k", BaseURL: srv.URL})
			require.NoError(t, err)

			_, err = c.GroupReasons(context.Background(), sampleReasons())

			assert.ErrorIs(t, err, insights.ErrClassificationUnavailable)
			assert.Equal(t, int32(1), calls.Load(), "no retries")
		})
	}
}

func TestProviderTimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c, err := NewClassifier(GroupingOptions{Provider: "openai", APIKey: "k", BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.GroupReasons(context.Background(), sampleReasons())

	assert.ErrorIs(t, err, insights.ErrClassificationUnavailable)
}

func TestMalformedModelOutputFallsBackThroughClusterer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "Claro! Aqui estão as categorias: [{"}},
			},
		})
	}))
	defer srv.Close()

	c, err := NewClassifier(GroupingOptions{Provider: "groq", APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	reasons := append(sampleReasons(), insights.ReasonCount{Reason: "cancelamento", Count: 1})

	res := insights.NewClusterer(c, nil).Cluster(context.Background(), reasons)

	assert.False(t, res.Grouped)
	require.Len(t, res.Categories, 5)
	for i, cat := range res.Categories {
		assert.Equal(t, reasons[i].Count, cat.Count)
		assert.Equal(t, []string{reasons[i].Reason}, cat.AbsorbedReasons)
	}
}
