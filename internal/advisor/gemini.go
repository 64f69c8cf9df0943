package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiProvider calls the generateContent REST endpoint.
type GeminiProvider struct {
	apiKey      string
	model       string
	baseURL     string
	httpClient  *http.Client
	temperature float64
	topP        float64
}

func NewGeminiProvider(apiKey, model, baseURL string, timeout time.Duration) *GeminiProvider {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	return &GeminiProvider{
		apiKey:      apiKey,
		model:       model,
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: timeout},
		temperature: DefaultTemperature,
		topP:        DefaultTopP,
	}
}

func (g *GeminiProvider) Name() string { return "gemini" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiRequest struct {
	Contents []struct {
		Parts []geminiPart `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		Temperature float64 `json:"temperature"`
		TopP        float64 `json:"topP"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate returns the concatenated text of the first candidate, which may be empty.
func (g *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	var reqBody geminiRequest
	reqBody.Contents = append(reqBody.Contents, struct {
		Parts []geminiPart `json:"parts"`
	}{Parts: []geminiPart{{Text: prompt}}})
	reqBody.GenerationConfig.Temperature = g.temperature
	reqBody.GenerationConfig.TopP = g.topP

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini error %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var out geminiResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("parse gemini response: %w", err)
	}
	if len(out.Candidates) == 0 {
		return "", nil
	}
	var text strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return strings.TrimSpace(text.String()), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
