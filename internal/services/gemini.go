package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"api-chatbot/internal/metrics"
)

// CompletionGateway turns a prompt into generated text. Implementations make
// exactly one upstream attempt per call and never cache.
type CompletionGateway interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type GeminiGateway struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
	rateChan  chan struct{} // Token bucket
}

// NewGeminiGateway builds the gateway. An empty apiKey is accepted so the
// server can boot; every call then fails with ReasonMissingCredential.
func NewGeminiGateway(ctx context.Context, apiKey, modelName string, concurrentReqs int) (*GeminiGateway, error) {
	if concurrentReqs < 1 {
		concurrentReqs = 1
	}

	// Token bucket bounding concurrent upstream calls
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	g := &GeminiGateway{modelName: modelName, rateChan: rateChan}
	if apiKey == "" {
		return g, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	g.client = client
	g.model = client.GenerativeModel(modelName)
	return g, nil
}

func (g *GeminiGateway) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

func (g *GeminiGateway) ModelName() string { return g.modelName }

// Complete sends a plain text prompt.
func (g *GeminiGateway) Complete(ctx context.Context, prompt string) (string, error) {
	return g.CompleteParts(ctx, prompt)
}

// CompleteParts sends a structured prompt made of several text parts.
func (g *GeminiGateway) CompleteParts(ctx context.Context, parts ...string) (string, error) {
	if g.model == nil {
		return "", &ProviderError{Reason: ReasonMissingCredential, Err: errors.New("GEMINI_API_KEY is not set")}
	}
	if len(parts) == 0 {
		return "", &ProviderError{Reason: ReasonUpstream, Err: errors.New("empty prompt")}
	}

	if err := g.acquireRate(ctx); err != nil {
		return "", &ProviderError{Reason: ReasonUnavailable, Err: err}
	}
	defer g.releaseRate()

	genParts := make([]genai.Part, 0, len(parts))
	for _, p := range parts {
		genParts = append(genParts, genai.Text(p))
	}

	start := time.Now()
	resp, err := g.model.GenerateContent(ctx, genParts...)
	metrics.ProviderLatency.
		WithLabelValues(g.modelName, strconv.FormatBool(err == nil)).
		Observe(time.Since(start).Seconds())
	if err != nil {
		return "", &ProviderError{Reason: ReasonUpstream, Err: err}
	}

	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		return "", &ProviderError{Reason: ReasonEmptyResponse}
	}
	return text, nil
}

// acquireRate blocks until a rate slot is available
func (g *GeminiGateway) acquireRate(ctx context.Context) error {
	select {
	case <-g.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *GeminiGateway) releaseRate() {
	g.rateChan <- struct{}{}
}

// extractText joins the text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}

	var text strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return text.String()
}
