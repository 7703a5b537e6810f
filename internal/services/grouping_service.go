package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"helpdesk-insights-be/config"
	"helpdesk-insights-be/internal/insights"
)

// Classifier providers.
const (
	ProviderLocal     = "local"
	ProviderGroq      = "groq"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderRemote    = "remote"
)

const (
	defaultGroqBaseURL       = "https://api.groq.com/openai/v1"
	defaultOpenAIBaseURL     = "https://api.openai.com/v1"
	defaultGeminiBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	defaultGroqModel         = "llama-3.1-8b-instant"
	defaultOpenAIModel       = "gpt-4o-mini"
	defaultGeminiModel       = "gemini-1.5-flash"
	defaultAnthropicModel    = "claude-3-5-haiku-latest"
	defaultClassifierTimeout = 15 * time.Second

	groupingTemperature = 0.2
	groupingMaxTokens   = 1024
	// maxErrorBody bounds how much of a failed response ends up in logs.
	maxErrorBody = 512
)

// ErrUnknownProvider is returned for an unsupported CLASSIFIER_PROVIDER.
var ErrUnknownProvider = errors.New("unknown classifier provider")

// GroupingOptions configures the classification capability.
type GroupingOptions struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	// URL is the endpoint of the remote provider.
	URL     string
	Timeout time.Duration
}

func GroupingOptionsFromConfig(cfg *config.Config) GroupingOptions {
	return GroupingOptions{
		Provider: cfg.ClassifierProvider,
		APIKey:   cfg.ClassifierAPIKey,
		Model:    cfg.ClassifierModel,
		BaseURL:  cfg.ClassifierBaseURL,
		URL:      cfg.ClassifierURL,
		Timeout:  cfg.ClassifierTimeout,
	}
}

// NewClassifier builds the configured classifier. The local provider returns nil,
// which makes the clusterer return reasons ungrouped.
func NewClassifier(opts GroupingOptions) (insights.Classifier, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultClassifierTimeout
	}
	client := &http.Client{Timeout: opts.Timeout}
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))

	switch provider {
	case "", ProviderLocal:
		return nil, nil
	case ProviderRemote:
		if opts.URL == "" {
			return nil, errors.New("remote classifier requires CLASSIFIER_URL")
		}
		return NewRemoteClassifier(opts.URL, opts.APIKey, client), nil
	case ProviderGroq, ProviderOpenAI, ProviderGemini, ProviderAnthropic:
		if opts.APIKey == "" {
			return nil, fmt.Errorf("%s classifier requires CLASSIFIER_API_KEY", provider)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, opts.Provider)
	}

	s := &LLMGroupingService{
		provider: provider,
		apiKey:   opts.APIKey,
		model:    opts.Model,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		client:   client,
	}
	switch provider {
	case ProviderGroq:
		s.model = withDefault(s.model, defaultGroqModel)
		s.baseURL = withDefault(s.baseURL, defaultGroqBaseURL)
	case ProviderOpenAI:
		s.model = withDefault(s.model, defaultOpenAIModel)
		s.baseURL = withDefault(s.baseURL, defaultOpenAIBaseURL)
	case ProviderGemini:
		s.model = withDefault(s.model, defaultGeminiModel)
		s.baseURL = withDefault(s.baseURL, defaultGeminiBaseURL)
	case ProviderAnthropic:
		s.model = withDefault(s.model, defaultAnthropicModel)
		clientOpts := []option.RequestOption{
			option.WithAPIKey(opts.APIKey),
			option.WithHTTPClient(client),
			option.WithMaxRetries(0),
		}
		if s.baseURL != "" {
			clientOpts = append(clientOpts, option.WithBaseURL(s.baseURL))
		}
		s.anthropic = anthropic.NewClient(clientOpts...)
	}
	return s, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// LLMGroupingService groups reasons with a hosted language model. It makes exactly
// one request per call and does not retry.
type LLMGroupingService struct {
	provider  string
	apiKey    string
	model     string
	baseURL   string
	client    *http.Client
	anthropic anthropic.Client
}

// GroupReasons implements insights.Classifier.
func (s *LLMGroupingService) GroupReasons(ctx context.Context, reasons []insights.ReasonCount) ([]insights.Category, error) {
	prompt := buildGroupingPrompt(reasons)

	var (
		text string
		err  error
	)
	switch s.provider {
	case ProviderGemini:
		text, err = s.callGemini(ctx, prompt)
	case ProviderAnthropic:
		text, err = s.callAnthropic(ctx, prompt)
	default:
		text, err = s.callChatCompletions(ctx, prompt)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", insights.ErrClassificationUnavailable, s.provider, err)
	}
	return ParseGrouping(text)
}

// callChatCompletions calls an OpenAI-compatible chat completions API (Groq, OpenAI).
func (s *LLMGroupingService) callChatCompletions(ctx context.Context, prompt string) (string, error) {
	type message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	reqBody := map[string]interface{}{
		"model": s.model,
		"messages": []message{
			{Role: "system", Content: groupingSystemPrompt},
			{Role: "user", Content: prompt},
		},
		"temperature": groupingTemperature,
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	headers := map[string]string{"Authorization": "Bearer " + s.apiKey}
	if err := s.postJSON(ctx, s.baseURL+"/chat/completions", headers, reqBody, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	return parsed.Choices[0].Message.Content, nil
}

// callGemini calls the Google Gemini generateContent API.
func (s *LLMGroupingService) callGemini(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent", s.baseURL, s.model)

	reqBody := map[string]interface{}{
		"systemInstruction": map[string]interface{}{
			"parts": []map[string]string{{"text": groupingSystemPrompt}},
		},
		"contents": []map[string]interface{}{
			{
				"role":  "user",
				"parts": []map[string]string{{"text": prompt}},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":      groupingTemperature,
			"maxOutputTokens":  groupingMaxTokens,
			"responseMimeType": "application/json",
		},
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	headers := map[string]string{"x-goog-api-key": s.apiKey}
	if err := s.postJSON(ctx, url, headers, reqBody, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no content in Gemini response")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// callAnthropic calls the Anthropic Messages API.
func (s *LLMGroupingService) callAnthropic(ctx context.Context, prompt string) (string, error) {
	msg, err := s.anthropic.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(s.model),
		MaxTokens:   groupingMaxTokens,
		Temperature: anthropic.Float(groupingTemperature),
		System:      []anthropic.TextBlockParam{{Text: groupingSystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("no text in Anthropic response")
	}
	return sb.String(), nil
}

func (s *LLMGroupingService) postJSON(ctx context.Context, url string, headers map[string]string, body, out interface{}) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
