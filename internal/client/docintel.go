package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cleberrangel/task-estimation-api/internal/logger"
	"github.com/cleberrangel/task-estimation-api/internal/model"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// DocIntelAPIVersion versão da API de análise de documentos
	DocIntelAPIVersion = "2023-07-31"

	// DefaultDocIntelModel modelo de leitura de texto
	DefaultDocIntelModel = "prebuilt-read"

	// DefaultPollInterval intervalo fixo entre consultas de status
	DefaultPollInterval = time.Second

	// DocIntelRequestsPerMinute limite conservador de chamadas (envio + polls)
	DocIntelRequestsPerMinute = 600

	// DefaultTimeout timeout padrão para cada requisição HTTP
	DefaultTimeout = 60 * time.Second

	headerSubscriptionKey   = "Ocp-Apim-Subscription-Key"
	headerOperationLocation = "Operation-Location"
)

// Sleeper aguarda d ou até o contexto terminar
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep é o Sleeper padrão
func ContextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProgressFunc recebe uma cópia do job a cada resposta de poll
type ProgressFunc func(job model.AnalysisJob)

// DocIntelConfig configuração do cliente de análise de documentos
type DocIntelConfig struct {
	Endpoint        string
	APIKey          string
	Model           string
	PollInterval    time.Duration
	MaxPollAttempts int // 0 = sem limite
}

// DocIntelClient envia documentos para análise e acompanha o job até o estado terminal
type DocIntelClient struct {
	cfg        DocIntelConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	sleep      Sleeper
	now        func() time.Time
}

// DocIntelOption customiza o cliente
type DocIntelOption func(*DocIntelClient)

// WithHTTPClient substitui o http.Client
func WithHTTPClient(hc *http.Client) DocIntelOption {
	return func(c *DocIntelClient) { c.httpClient = hc }
}

// WithSleeper substitui a espera entre polls
func WithSleeper(s Sleeper) DocIntelOption {
	return func(c *DocIntelClient) { c.sleep = s }
}

// WithClock substitui a fonte de tempo usada nos timestamps do job
func WithClock(now func() time.Time) DocIntelOption {
	return func(c *DocIntelClient) { c.now = now }
}

// WithLimiter substitui o rate limiter
func WithLimiter(l *rate.Limiter) DocIntelOption {
	return func(c *DocIntelClient) { c.limiter = l }
}

// NewDocIntelClient cria um novo cliente
func NewDocIntelClient(cfg DocIntelConfig, opts ...DocIntelOption) *DocIntelClient {
	if cfg.Model == "" {
		cfg.Model = DefaultDocIntelModel
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")

	c := &DocIntelClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/DocIntelRequestsPerMinute), 10),
		sleep:   ContextSleep,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// analyzeOperation corpo retornado pela consulta de status
type analyzeOperation struct {
	Status        string `json:"status"`
	AnalyzeResult *struct {
		Content string `json:"content"`
	} `json:"analyzeResult"`
}

func (c *DocIntelClient) analyzeURL() string {
	return fmt.Sprintf("%s/formrecognizer/documentModels/%s:analyze?api-version=%s",
		c.cfg.Endpoint, c.cfg.Model, DocIntelAPIVersion)
}

// SubmitAndAwait envia a URL do documento e retorna o texto extraído
func (c *DocIntelClient) SubmitAndAwait(ctx context.Context, sourceURL string) (string, error) {
	return c.SubmitAndAwaitWithProgress(ctx, sourceURL, nil)
}

// SubmitAndAwaitWithProgress é SubmitAndAwait com observador de progresso
func (c *DocIntelClient) SubmitAndAwaitWithProgress(ctx context.Context, sourceURL string, progress ProgressFunc) (string, error) {
	job, err := c.Submit(ctx, sourceURL)
	if err != nil {
		return "", err
	}
	return c.Await(ctx, job, progress)
}

// SubmitDocumentAndAwait envia os bytes do documento e retorna o texto extraído
func (c *DocIntelClient) SubmitDocumentAndAwait(ctx context.Context, document io.Reader, progress ProgressFunc) (string, error) {
	job, err := c.SubmitDocument(ctx, document)
	if err != nil {
		return "", err
	}
	return c.Await(ctx, job, progress)
}

// Submit envia {"urlSource": url} e cria o job pendente
func (c *DocIntelClient) Submit(ctx context.Context, sourceURL string) (*model.AnalysisJob, error) {
	body, err := json.Marshal(map[string]string{"urlSource": sourceURL})
	if err != nil {
		return nil, &model.TransportError{Op: "serializar envio", Err: err}
	}
	return c.submit(ctx, sourceURL, "application/json", bytes.NewReader(body))
}

// SubmitDocument envia o documento como application/octet-stream
func (c *DocIntelClient) SubmitDocument(ctx context.Context, document io.Reader) (*model.AnalysisJob, error) {
	return c.submit(ctx, "", "application/octet-stream", document)
}

func (c *DocIntelClient) submit(ctx context.Context, sourceURL, contentType string, body io.Reader) (*model.AnalysisJob, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &model.TransportError{Op: "rate limiter", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.analyzeURL(), body)
	if err != nil {
		return nil, &model.TransportError{Op: "criar request de envio", Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(headerSubscriptionKey, c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &model.TransportError{Op: "enviar documento", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		logger.Get(ctx).Error().
			Int("status", resp.StatusCode).
			Str("source_url", sourceURL).
			Msg("Envio para análise rejeitado")
		return nil, &model.SubmissionError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	location := resp.Header.Get(headerOperationLocation)
	if location == "" {
		return nil, &model.SubmissionError{StatusCode: resp.StatusCode, Body: "header Operation-Location ausente"}
	}

	job := model.NewAnalysisJob(uuid.New().String(), sourceURL, location, c.now())
	logger.Get(ctx).Info().
		Str("job_id", job.ID).
		Str("source_url", sourceURL).
		Msg("Documento enviado para análise")
	return job, nil
}

// Await consulta o status do job em intervalo fixo até sucesso, falha ou limite
func (c *DocIntelClient) Await(ctx context.Context, job *model.AnalysisJob, progress ProgressFunc) (string, error) {
	ctx = logger.WithJobID(ctx, job.ID)
	log := logger.Get(ctx)

	for {
		op, raw, err := c.poll(ctx, job.StatusURL)
		if err != nil {
			return "", err
		}

		if err := job.Observe(op.Status, c.now()); err != nil {
			return "", err
		}
		if progress != nil {
			progress(*job)
		}

		switch job.State {
		case model.AnalysisSucceeded:
			if op.AnalyzeResult == nil || op.AnalyzeResult.Content == "" {
				log.Warn().Int("attempts", job.Attempts).Msg("Análise concluída sem conteúdo")
				return "", model.ErrEmptyResult
			}
			log.Info().
				Int("attempts", job.Attempts).
				Int("content_length", len(op.AnalyzeResult.Content)).
				Msg("Análise concluída")
			return op.AnalyzeResult.Content, nil

		case model.AnalysisFailed:
			log.Error().Int("attempts", job.Attempts).Msg("Análise falhou")
			return "", &model.AnalysisFailedError{Raw: raw}
		}

		if c.cfg.MaxPollAttempts > 0 && job.Attempts >= c.cfg.MaxPollAttempts {
			log.Warn().
				Int("attempts", job.Attempts).
				Str("remote_status", job.RemoteStatus).
				Msg("Limite de polling atingido")
			return "", fmt.Errorf("%w: %d tentativas", model.ErrPollLimitExceeded, job.Attempts)
		}

		log.Debug().
			Int("attempt", job.Attempts).
			Str("remote_status", job.RemoteStatus).
			Dur("interval", c.cfg.PollInterval).
			Msg("Análise pendente, aguardando")

		if err := c.sleep(ctx, c.cfg.PollInterval); err != nil {
			return "", &model.TransportError{Op: "aguardar próximo poll", Err: err}
		}
	}
}

// poll faz um GET na URL de status e devolve o corpo decodificado e o texto bruto
func (c *DocIntelClient) poll(ctx context.Context, statusURL string) (*analyzeOperation, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", &model.TransportError{Op: "rate limiter", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, "", &model.TransportError{Op: "criar request de status", Err: err}
	}
	req.Header.Set(headerSubscriptionKey, c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", &model.TransportError{Op: "consultar status", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &model.TransportError{Op: "ler status", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, "", &model.TransportError{
			Op:  "consultar status",
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 512)),
		}
	}

	var op analyzeOperation
	if err := json.Unmarshal(body, &op); err != nil {
		return nil, "", &model.TransportError{Op: "decodificar status", Err: err}
	}
	return &op, string(body), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
