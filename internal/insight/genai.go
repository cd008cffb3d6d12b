package insight

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-3-flash-preview"

// GenAISummarizer generates text with Google's Gemini API.
type GenAISummarizer struct {
	client *genai.Client
	model  string
}

func NewGenAISummarizer(ctx context.Context, apiKey string, model string) (*GenAISummarizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAISummarizer{client: client, model: model}, nil
}

func (g *GenAISummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	return responseText(resp), nil
}

func (g *GenAISummarizer) Name() string {
	return fmt.Sprintf("genai:%s", g.model)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return strings.TrimSpace(sb.String())
}
