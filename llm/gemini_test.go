package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"incomeinsight/ml"
)

func testProfile() ml.Profile {
	return ml.Profile{
		Age:           45,
		Education:     "Bachelors",
		MaritalStatus: "Married-civ-spouse",
		Occupation:    "Exec-managerial",
		Sex:           "Male",
		HoursPerWeek:  50,
		CapitalGain:   5000,
		CapitalLoss:   0,
	}
}

func newTestExplainer(t *testing.T, url string) *GeminiExplainer {
	t.Helper()
	config := DefaultGeminiConfig("test-key")
	config.BaseURL = url
	config.Timeout = 2 * time.Second
	explainer, err := NewGeminiExplainer(config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return explainer
}

func TestGeminiExplainerSuccess(t *testing.T) {
	var got geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/models/gemini-1.5-flash-latest:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("api key not sent as query param")
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("invalid request json: %v", err)
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Keep investing."}]}}]}`))
	}))
	defer server.Close()

	text, err := newTestExplainer(t, server.URL).Explain(context.Background(), testProfile(), ">50K")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Keep investing." {
		t.Fatalf("unexpected text %q", text)
	}

	if len(got.Contents) != 1 || len(got.Contents[0].Parts) != 1 {
		t.Fatalf("unexpected contents: %+v", got.Contents)
	}
	prompt := got.Contents[0].Parts[0].Text
	for _, want := range []string{
		"The predicted income category for this individual is: >50K.",
		"- Age: 45",
		"- Education: Bachelors",
		"- Marital Status: Married-civ-spouse",
		"- Occupation: Exec-managerial",
		"- Sex: Male",
		"- Hours/Week: 50",
		"- Capital Gain: 5000",
		"- Capital Loss: 0",
		"no more than 200 words",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if got.GenerationConfig.Temperature != 0.7 || got.GenerationConfig.TopP != 0.9 || got.GenerationConfig.MaxOutputTokens != 300 {
		t.Fatalf("unexpected generation config: %+v", got.GenerationConfig)
	}
}

func TestGeminiExplainerRequestFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":500,"message":"backend unavailable"}}`))
	}))
	defer server.Close()

	_, err := newTestExplainer(t, server.URL).Explain(context.Background(), testProfile(), "<=50K")
	var explErr *ExplanationError
	if !errors.As(err, &explErr) {
		t.Fatalf("expected ExplanationError, got %v", err)
	}
	if explErr.Kind != RequestFailure {
		t.Fatalf("expected request failure, got %s", explErr.Kind)
	}
	if explErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", explErr.StatusCode)
	}
	if !strings.Contains(explErr.Raw, "backend unavailable") {
		t.Fatalf("raw body not attached: %q", explErr.Raw)
	}
}

func TestGeminiExplainerParseFailure(t *testing.T) {
	cases := map[string]string{
		"missing candidates": `{"promptFeedback":{"blockReason":"SAFETY"}}`,
		"empty candidates":   `{"candidates":[]}`,
		"no parts":           `{"candidates":[{"content":{"parts":[]}}]}`,
		"no text":            `{"candidates":[{"content":{"parts":[{"inlineData":{}}]}}]}`,
		"not json":           `<html>oops</html>`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer server.Close()

			_, err := newTestExplainer(t, server.URL).Explain(context.Background(), testProfile(), "<=50K")
			var explErr *ExplanationError
			if !errors.As(err, &explErr) {
				t.Fatalf("expected ExplanationError, got %v", err)
			}
			if explErr.Kind != ParseFailure {
				t.Fatalf("expected parse failure, got %s", explErr.Kind)
			}
			if explErr.Raw != body {
				t.Fatalf("expected raw body %q, got %q", body, explErr.Raw)
			}
		})
	}
}

func TestGeminiExplainerTransportFailureHidesKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestExplainer(t, url).Explain(context.Background(), testProfile(), "<=50K")
	var explErr *ExplanationError
	if !errors.As(err, &explErr) {
		t.Fatalf("expected ExplanationError, got %v", err)
	}
	if explErr.Kind != TransportFailure {
		t.Fatalf("expected transport failure, got %s", explErr.Kind)
	}
	if strings.Contains(err.Error(), "test-key") {
		t.Fatalf("error leaks api key: %v", err)
	}
}

func TestNewGeminiExplainerRequiresKey(t *testing.T) {
	if _, err := NewGeminiExplainer(DefaultGeminiConfig("  ")); err == nil {
		t.Fatal("expected error without api key")
	}
}
