package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cleberrangel/task-estimation-api/internal/logger"
	"github.com/cleberrangel/task-estimation-api/internal/model"
)

// WebhookService envia resultados de análises assíncronas para webhooks
type WebhookService struct {
	httpClient *http.Client
}

// NewWebhookService cria um novo serviço de webhook.
// Timeout controlado pelo contexto de quem chama.
func NewWebhookService(httpClient *http.Client) *WebhookService {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &WebhookService{httpClient: httpClient}
}

// SendAnswer envia a resposta da análise
func (w *WebhookService) SendAnswer(ctx context.Context, webhookURL string, result *model.AnalysisResult) error {
	return w.send(ctx, webhookURL, model.WebhookPayload{
		Success: true,
		Answer:  result.Answer,
		Source:  result.Source,
	})
}

// SendError envia o resultado de erro para o webhook
func (w *WebhookService) SendError(ctx context.Context, webhookURL string, message string) error {
	return w.send(ctx, webhookURL, model.WebhookPayload{
		Success: false,
		Error:   message,
	})
}

// send envia o payload para o webhook
func (w *WebhookService) send(ctx context.Context, webhookURL string, payload model.WebhookPayload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("criar request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("enviar webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook retornou status %d: %s", resp.StatusCode, string(respBody))
	}

	logger.Get(ctx).Info().
		Str("url", webhookURL).
		Int("status", resp.StatusCode).
		Bool("success", payload.Success).
		Msg("Webhook enviado com sucesso")

	return nil
}
