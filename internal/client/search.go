package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cleberrangel/task-estimation-api/internal/logger"
	"github.com/cleberrangel/task-estimation-api/internal/model"
	"golang.org/x/time/rate"
)

const (
	// SearchAPIVersion versão da API REST do Azure AI Search
	SearchAPIVersion = "2021-04-30-Preview"
	// DefaultSearchTop tasks de referência por consulta
	DefaultSearchTop = 5
	// SearchRequestsPerMinute limite para o serviço de busca
	SearchRequestsPerMinute = 60
)

// SearchConfig configuração do índice de tasks de referência
type SearchConfig struct {
	// Endpoint https://<serviço>.search.windows.net
	Endpoint string
	APIKey   string
	Index    string
	Top      int
}

// SearchClient consulta a base de conhecimento de tasks no Azure AI Search
type SearchClient struct {
	cfg        SearchConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSearchClient cria um novo cliente de busca
func NewSearchClient(cfg SearchConfig, httpClient *http.Client) *SearchClient {
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if cfg.Top <= 0 {
		cfg.Top = DefaultSearchTop
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &SearchClient{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/SearchRequestsPerMinute), 3),
	}
}

type searchRequest struct {
	Search string `json:"search"`
	Top    int    `json:"top"`
}

type searchResponse struct {
	Value []model.ReferenceTask `json:"value"`
}

func (c *SearchClient) searchURL() string {
	return c.cfg.Endpoint + "/indexes/" + url.PathEscape(c.cfg.Index) +
		"/docs/search?api-version=" + SearchAPIVersion
}

// Search devolve as tasks mais parecidas com query, na ordem de relevância do índice
func (c *SearchClient) Search(ctx context.Context, query string) ([]model.ReferenceTask, error) {
	log := logger.Get(ctx)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &model.TransportError{Op: "rate limiter", Err: err}
	}

	payload, err := json.Marshal(searchRequest{Search: query, Top: c.cfg.Top})
	if err != nil {
		return nil, &model.TransportError{Op: "serializar busca", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.searchURL(), bytes.NewReader(payload))
	if err != nil {
		return nil, &model.TransportError{Op: "criar request de busca", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.cfg.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("Falha de rede na busca de tasks")
		return nil, &model.TransportError{Op: "enviar busca", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.TransportError{Op: "ler busca", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		log.Error().
			Int("status", resp.StatusCode).
			Str("body", truncate(string(body), 512)).
			Msg("Busca de tasks rejeitada")
		return nil, &model.RequestError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var decoded searchResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &model.TransportError{Op: "decodificar busca", Err: err}
	}

	log.Info().
		Str("index", c.cfg.Index).
		Int("results", len(decoded.Value)).
		Dur("latency", time.Since(start)).
		Msg("Tasks de referência recebidas")
	return decoded.Value, nil
}
