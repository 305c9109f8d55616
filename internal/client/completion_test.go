package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cleberrangel/task-estimation-api/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedChat struct {
	apiKey      string
	contentType string
	body        chatRequest
}

func newChatServer(t *testing.T, status int, response string, captured *capturedChat) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.apiKey = r.Header.Get("api-key")
		captured.contentType = r.Header.Get("Content-Type")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured.body))

		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
}

func TestAskTrimsAnswerAndSendsComposedPrompt(t *testing.T) {
	var got capturedChat
	srv := newChatServer(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"  X \n"}}]}`, &got)
	defer srv.Close()

	c := NewCompletionClient(CompletionConfig{Endpoint: srv.URL, APIKey: "llm-key"}, srv.Client())
	answer, err := c.Ask(context.Background(), "What is it?", "a PDF body")
	require.NoError(t, err)

	assert.Equal(t, "X", answer)
	assert.Equal(t, "llm-key", got.apiKey)
	assert.Equal(t, "application/json", got.contentType)
	require.Len(t, got.body.Messages, 1)
	assert.Equal(t, "user", got.body.Messages[0].Role)
	assert.Equal(t, "Context:\na PDF body\n\nQuestion: What is it?", got.body.Messages[0].Content)
	assert.Equal(t, 150, got.body.MaxTokens)
	assert.InDelta(t, 0.7, got.body.Temperature, 1e-9)
}

func TestCompleteUsesGivenSampling(t *testing.T) {
	var got capturedChat
	srv := newChatServer(t, http.StatusOK, `{"choices":[{"message":{"content":"{}"}}]}`, &got)
	defer srv.Close()

	c := NewCompletionClient(CompletionConfig{Endpoint: srv.URL, APIKey: "k"}, srv.Client())
	_, err := c.Complete(context.Background(), "raw prompt", model.EstimationSampling)
	require.NoError(t, err)

	assert.Equal(t, "raw prompt", got.body.Messages[0].Content)
	assert.Equal(t, 1500, got.body.MaxTokens)
	assert.InDelta(t, 0.1, got.body.Temperature, 1e-9)
}

func TestAskNon200ReturnsRequestError(t *testing.T) {
	var got capturedChat
	srv := newChatServer(t, http.StatusUnauthorized, `{"error":"bad key"}`, &got)
	defer srv.Close()

	c := NewCompletionClient(CompletionConfig{Endpoint: srv.URL, APIKey: "k"}, srv.Client())
	_, err := c.Ask(context.Background(), "q", "ctx")

	var reqErr *model.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusUnauthorized, reqErr.StatusCode)
	assert.Contains(t, reqErr.Body, "bad key")
	assert.NotErrorIs(t, err, model.ErrRateLimited)
}

func TestAskRateLimited(t *testing.T) {
	var got capturedChat
	srv := newChatServer(t, http.StatusTooManyRequests, `{}`, &got)
	defer srv.Close()

	c := NewCompletionClient(CompletionConfig{Endpoint: srv.URL, APIKey: "k"}, srv.Client())
	_, err := c.Ask(context.Background(), "q", "ctx")
	assert.ErrorIs(t, err, model.ErrRateLimited)
}

func TestAskWithoutChoices(t *testing.T) {
	var got capturedChat
	srv := newChatServer(t, http.StatusOK, `{"choices":[]}`, &got)
	defer srv.Close()

	c := NewCompletionClient(CompletionConfig{Endpoint: srv.URL, APIKey: "k"}, srv.Client())
	_, err := c.Ask(context.Background(), "q", "ctx")
	assert.ErrorIs(t, err, model.ErrEmptyCompletion)
}

func TestAskTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewCompletionClient(CompletionConfig{Endpoint: url, APIKey: "k"}, nil)
	_, err := c.Ask(context.Background(), "q", "ctx")

	var transport *model.TransportError
	assert.ErrorAs(t, err, &transport)
}
