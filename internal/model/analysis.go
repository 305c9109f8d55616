package model

import (
	"fmt"
	"time"
)

// AnalysisState é o estado de um job de análise de documento
type AnalysisState string

const (
	AnalysisPending   AnalysisState = "pending"
	AnalysisSucceeded AnalysisState = "succeeded"
	AnalysisFailed    AnalysisState = "failed"
)

// Terminal indica se o estado não aceita mais transições
func (s AnalysisState) Terminal() bool {
	return s == AnalysisSucceeded || s == AnalysisFailed
}

// ParseAnalysisState converte o status remoto. Qualquer valor desconhecido
// ("notStarted", "running", ...) é tratado como pendente.
func ParseAnalysisState(status string) AnalysisState {
	switch status {
	case "succeeded":
		return AnalysisSucceeded
	case "failed":
		return AnalysisFailed
	default:
		return AnalysisPending
	}
}

// AnalysisJob acompanha uma análise assíncrona desde o envio até o estado terminal
type AnalysisJob struct {
	ID           string        `json:"id"`
	SourceURL    string        `json:"source_url,omitempty"`
	StatusURL    string        `json:"status_url"`
	State        AnalysisState `json:"state"`
	RemoteStatus string        `json:"remote_status,omitempty"`
	Attempts     int           `json:"attempts"`
	SubmittedAt  time.Time     `json:"submitted_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// NewAnalysisJob cria o job no estado pendente, após o envio aceito
func NewAnalysisJob(id, sourceURL, statusURL string, now time.Time) *AnalysisJob {
	return &AnalysisJob{
		ID:          id,
		SourceURL:   sourceURL,
		StatusURL:   statusURL,
		State:       AnalysisPending,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
}

// Observe registra uma resposta de poll e aplica a transição correspondente
func (j *AnalysisJob) Observe(remoteStatus string, now time.Time) error {
	if j.State.Terminal() {
		return fmt.Errorf("job %s já está em estado terminal %s", j.ID, j.State)
	}
	j.Attempts++
	j.RemoteStatus = remoteStatus
	j.State = ParseAnalysisState(remoteStatus)
	j.UpdatedAt = now
	return nil
}

// Sampling parâmetros de amostragem da completion
type Sampling struct {
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// DefaultSampling valores usados nas perguntas livres
var DefaultSampling = Sampling{MaxTokens: 150, Temperature: 0.7}

// EstimationSampling valores usados na geração do documento de estimativa
var EstimationSampling = Sampling{MaxTokens: 1500, Temperature: 0.1}
