package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

var (
	ErrNoChoices       = errors.New("scorer returned no choices")
	ErrBadScorePayload = errors.New("scorer returned an unparseable score payload")
)

const scorerSystemPrompt = "You are the arbiter of an AI shard battle. " +
	"Score both responses to the prompt against the rubric. " +
	"Reply with JSON only: " +
	`{"challenger_score": 0-100, "defender_score": 0-100, "reasoning": "..."}`

// ChatScorer scores rounds through an OpenAI-compatible chat-completions
// endpoint.
type ChatScorer struct {
	Model string

	Client *resty.Client
}

func NewChatScorer(baseURL, apiKey, model string) *ChatScorer {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/"))

	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}

	return &ChatScorer{
		Model:  model,
		Client: client,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (s *ChatScorer) Score(ctx context.Context, req ScoreRequest) (RoundVerdict, error) {
	userPrompt := fmt.Sprintf(
		"Mode: %s\nRubric: %s\n\nPrompt:\n%s\n\nChallenger response:\n%s\n\nDefender response:\n%s",
		req.Mode, req.Rubric, req.Prompt, req.ChallengerResponse, req.DefenderResponse)

	var chatResp chatResponse

	resp, err := s.Client.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: s.Model,
			Messages: []chatMessage{
				{Role: "system", Content: scorerSystemPrompt},
				{Role: "user", Content: userPrompt},
			},
			Temperature: 0.2,
		}).
		SetResult(&chatResp).
		Post("/chat/completions")
	if err != nil {
		return RoundVerdict{}, fmt.Errorf("scorer request failed: %w", err)
	}

	if resp.IsError() {
		return RoundVerdict{}, fmt.Errorf("scorer returned status %d", resp.StatusCode()) //nolint:err113
	}

	if len(chatResp.Choices) == 0 {
		return RoundVerdict{}, ErrNoChoices
	}

	return ParseVerdict(chatResp.Choices[0].Message.Content)
}

// ParseVerdict extracts a verdict from loosely formatted model output. Code
// fences are tolerated; anything else unparseable is an error that callers
// resolve to the fallback.
func ParseVerdict(content string) (RoundVerdict, error) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var verdict RoundVerdict

	err := json.Unmarshal([]byte(trimmed), &verdict)
	if err != nil {
		return RoundVerdict{}, fmt.Errorf("%w: %w", ErrBadScorePayload, err)
	}

	return verdict, nil
}
