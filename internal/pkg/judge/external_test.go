package judge_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Legatia/Siphon-sub001/internal/pkg/judge"
)

func scoreRequest() judge.ScoreRequest {
	return judge.ScoreRequest{
		Mode:               "debate",
		Rubric:             "argument strength 40%, evidence 30%, rebuttal 20%, clarity 10%",
		Prompt:             "Should shards dream?",
		ChallengerResponse: "Yes.",
		DefenderResponse:   "No.",
	}
}

func chatCompletion(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
}

func TestChatScorerScore(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatCompletion(
			"```json\n{\"challenger_score\": 71, \"defender_score\": 64, \"reasoning\": \"stronger rebuttal\"}\n```"))
	}))
	t.Cleanup(server.Close)

	scorer := judge.NewChatScorer(server.URL, "test-key", "gpt-4o-mini")

	verdict, err := scorer.Score(context.Background(), scoreRequest())
	require.NoError(t, err)

	assert.Equal(t, 71, verdict.ChallengerScore)
	assert.Equal(t, 64, verdict.DefenderScore)
	assert.Equal(t, "stronger rebuttal", verdict.Reasoning)
	assert.False(t, verdict.Fallback)
}

func TestChatScorerErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	scorer := judge.NewChatScorer(server.URL, "", "gpt-4o-mini")

	_, err := scorer.Score(context.Background(), scoreRequest())

	assert.ErrorContains(t, err, "503")
}

func TestChatScorerNoChoices(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	t.Cleanup(server.Close)

	scorer := judge.NewChatScorer(server.URL, "", "gpt-4o-mini")

	_, err := scorer.Score(context.Background(), scoreRequest())

	assert.ErrorIs(t, err, judge.ErrNoChoices)
}
