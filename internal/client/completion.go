package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cleberrangel/task-estimation-api/internal/logger"
	"github.com/cleberrangel/task-estimation-api/internal/model"
	"github.com/cleberrangel/task-estimation-api/internal/prompt"
	"golang.org/x/time/rate"
)

// CompletionRequestsPerMinute limite conservador para a API de completion
const CompletionRequestsPerMinute = 120

// CompletionConfig configuração do endpoint de chat completions
type CompletionConfig struct {
	// Endpoint URL completa do deployment (incluindo api-version)
	Endpoint string
	APIKey   string
	Sampling model.Sampling
}

// CompletionClient cliente para um endpoint de chat completions no formato Azure OpenAI
type CompletionClient struct {
	cfg        CompletionConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewCompletionClient cria um novo cliente de completion
func NewCompletionClient(cfg CompletionConfig, httpClient *http.Client) *CompletionClient {
	if cfg.Sampling.MaxTokens == 0 {
		cfg.Sampling = model.DefaultSampling
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &CompletionClient{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/CompletionRequestsPerMinute), 5),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Ask envia a instrução com o contexto usando a amostragem padrão
func (c *CompletionClient) Ask(ctx context.Context, instruction, contextText string) (string, error) {
	return c.Complete(ctx, prompt.Compose(contextText, instruction), c.cfg.Sampling)
}

// Complete envia um prompt já montado como única mensagem do usuário
func (c *CompletionClient) Complete(ctx context.Context, text string, sampling model.Sampling) (string, error) {
	log := logger.Get(ctx)

	if err := c.limiter.Wait(ctx); err != nil {
		return "", &model.TransportError{Op: "rate limiter", Err: err}
	}

	payload, err := json.Marshal(chatRequest{
		Messages:    []chatMessage{{Role: "user", Content: text}},
		MaxTokens:   sampling.MaxTokens,
		Temperature: sampling.Temperature,
	})
	if err != nil {
		return "", &model.TransportError{Op: "serializar completion", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &model.TransportError{Op: "criar request de completion", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.cfg.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("Falha de rede na completion")
		return "", &model.TransportError{Op: "enviar completion", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &model.TransportError{Op: "ler completion", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		log.Error().
			Int("status", resp.StatusCode).
			Str("body", truncate(string(body), 512)).
			Msg("Completion rejeitada")
		return "", &model.RequestError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var decoded chatResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", &model.TransportError{Op: "decodificar completion", Err: err}
	}
	if len(decoded.Choices) == 0 {
		return "", model.ErrEmptyCompletion
	}

	answer := strings.TrimSpace(decoded.Choices[0].Message.Content)
	log.Info().
		Int("prompt_length", len(text)).
		Int("answer_length", len(answer)).
		Int("max_tokens", sampling.MaxTokens).
		Dur("latency", time.Since(start)).
		Msg("Completion recebida")
	return answer, nil
}
