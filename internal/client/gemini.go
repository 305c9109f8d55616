package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cleberrangel/task-estimation-api/internal/logger"
	"github.com/cleberrangel/task-estimation-api/internal/model"
	"github.com/cleberrangel/task-estimation-api/internal/prompt"
	"google.golang.org/genai"
)

// GeminiClient responde prompts pela API do Gemini com o mesmo contrato
// Ask/Complete do CompletionClient
type GeminiClient struct {
	client   *genai.Client
	model    string
	sampling model.Sampling
}

// NewGeminiClient cria um cliente de completion baseado no Gemini
func NewGeminiClient(ctx context.Context, apiKey, modelName string, sampling model.Sampling) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("chave da API do Gemini não configurada")
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	if sampling.MaxTokens == 0 {
		sampling = model.DefaultSampling
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("criar cliente gemini: %w", err)
	}

	return &GeminiClient{client: c, model: modelName, sampling: sampling}, nil
}

// Ask envia a instrução com o contexto usando a amostragem padrão
func (g *GeminiClient) Ask(ctx context.Context, instruction, contextText string) (string, error) {
	return g.Complete(ctx, prompt.Compose(contextText, instruction), g.sampling)
}

// Complete envia um prompt já montado como única mensagem do usuário
func (g *GeminiClient) Complete(ctx context.Context, text string, sampling model.Sampling) (string, error) {
	temperature := float32(sampling.Temperature)
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(sampling.MaxTokens),
	})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			logger.Get(ctx).Error().
				Int("status", apiErr.Code).
				Str("message", apiErr.Message).
				Msg("Requisição ao Gemini rejeitada")
			return "", &model.RequestError{StatusCode: apiErr.Code, Body: apiErr.Message}
		}
		return "", &model.TransportError{Op: "gerar conteúdo no gemini", Err: err}
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", model.ErrEmptyCompletion
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}

	answer := strings.TrimSpace(b.String())
	if answer == "" {
		return "", model.ErrEmptyCompletion
	}
	return answer, nil
}
