package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"incomeinsight/ml"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel   = "gemini-1.5-flash-latest"

	maxResponseBytes = 1 << 20
)

// Explainer produces a natural-language explanation of a prediction.
type Explainer interface {
	Explain(ctx context.Context, profile ml.Profile, label string) (string, error)
}

type GeminiConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	Timeout         time.Duration
	Temperature     float64
	TopP            float64
	MaxOutputTokens int
}

func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:          apiKey,
		BaseURL:         DefaultGeminiBaseURL,
		Model:           DefaultGeminiModel,
		Timeout:         30 * time.Second,
		Temperature:     0.7,
		TopP:            0.9,
		MaxOutputTokens: 300,
	}
}

type GeminiExplainer struct {
	apiKey     string
	endpoint   string
	client     *http.Client
	generation geminiGenerationConfig
}

func NewGeminiExplainer(config GeminiConfig) (*GeminiExplainer, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	defaults := DefaultGeminiConfig(config.APIKey)
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxOutputTokens <= 0 {
		config.MaxOutputTokens = defaults.MaxOutputTokens
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(config.BaseURL, "/"), config.Model)
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid gemini endpoint: %w", err)
	}
	return &GeminiExplainer{
		apiKey:   config.APIKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: config.Timeout},
		generation: geminiGenerationConfig{
			Temperature:     config.Temperature,
			TopP:            config.TopP,
			MaxOutputTokens: config.MaxOutputTokens,
		},
	}, nil
}

func (g *GeminiExplainer) Explain(ctx context.Context, profile ml.Profile, label string) (string, error) {
	requestBody := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{{Text: BuildPrompt(profile, label)}},
		}},
		GenerationConfig: g.generation,
	}
	payload, err := json.Marshal(requestBody)
	if err != nil {
		return "", err
	}

	u, _ := url.Parse(g.endpoint)
	q := u.Query()
	q.Set("key", g.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", &ExplanationError{Kind: TransportFailure, Err: redactURL(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &ExplanationError{Kind: TransportFailure, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &ExplanationError{Kind: RequestFailure, StatusCode: resp.StatusCode, Raw: string(body)}
	}

	text, err := firstCandidateText(body)
	if err != nil {
		return "", &ExplanationError{Kind: ParseFailure, StatusCode: resp.StatusCode, Raw: string(body), Err: err}
	}
	return text, nil
}

func firstCandidateText(body []byte) (string, error) {
	var apiResp geminiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", err
	}
	if len(apiResp.Candidates) == 0 {
		return "", errors.New("response has no candidates")
	}
	parts := apiResp.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return "", errors.New("first candidate has no parts")
	}
	if parts[0].Text == nil {
		return "", errors.New("first part has no text")
	}
	return *parts[0].Text, nil
}

// redactURL drops the request URL, which carries the API key, from client errors.
func redactURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}
