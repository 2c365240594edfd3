// Package ai wraps the external text generator behind the
// services.Generator contract. The generator is untrusted: everything it
// returns is re-validated and scrubbed by the profile synthesizer.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/soaringjerry/Kringle/internal/services"
)

const defaultModel = "gemini-2.0-flash"

const promptTemplate = `You are a Secret Santa profile generator.
Analyze this participant:
- Quiz answers: %s
- Secret hint (their own words): %q

Respond with ONLY a raw JSON object (no markdown, no code fences) of the form:
{"tags": ["...", "...", "..."], "clues": ["...", "...", "..."]}

Rules:
- "tags": up to 3 short hashtag-style descriptors.
- "clues": exactly 3 strings describing the participant.
- Clue 1: a witty observation built from their quiz answers.
- Clue 2: rework the secret hint into a rumor or whisper; if the hint is
  empty, use their gift preference instead.
- Clue 3: must contain this encoded text exactly as given: %q
  (it is their scrambled name encoded with %s; present it as a puzzle to solve).
- NEVER include the participant's real name anywhere in the output.`

// Client generates profiles with the Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("generator API key is required")
	}
	if model == "" {
		model = defaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

var _ services.Generator = (*Client)(nil)

func (c *Client) GenerateProfile(ctx context.Context, req services.GenerateRequest) (*services.Profile, error) {
	answers, err := json.Marshal(req.Answers)
	if err != nil {
		return nil, fmt.Errorf("marshal answers: %w", err)
	}
	prompt := fmt.Sprintf(promptTemplate, answers, req.Answers["reveal"], req.PuzzleCode, req.PuzzleHint)

	result, err := c.client.Models.GenerateContent(ctx, c.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"})
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	text := cleanJSONContent(result.Text())
	if text == "" {
		return nil, fmt.Errorf("empty generator response")
	}

	var profile services.Profile
	if err := json.Unmarshal([]byte(text), &profile); err != nil {
		return nil, fmt.Errorf("generator returned invalid JSON: %w", err)
	}
	return &profile, nil
}

// cleanJSONContent strips markdown code fences some models wrap around
// JSON despite instructions.
func cleanJSONContent(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
