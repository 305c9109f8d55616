package model

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyResult indica análise concluída sem conteúdo extraído
	ErrEmptyResult = errors.New("análise concluída sem conteúdo")

	// ErrPollLimitExceeded indica que o job não terminou dentro do limite de polls
	ErrPollLimitExceeded = errors.New("limite de tentativas de polling excedido")

	// ErrEmptyCompletion indica resposta 200 sem choices
	ErrEmptyCompletion = errors.New("resposta do modelo sem conteúdo")

	// ErrEmptyCSV indica CSV sem cabeçalho
	ErrEmptyCSV = errors.New("csv vazio")

	// ErrRateLimited indica que a API externa retornou 429
	ErrRateLimited = errors.New("rate limit excedido na API externa")
)

// SubmissionError envio do documento rejeitado (status != 202 ou sem Operation-Location)
type SubmissionError struct {
	StatusCode int
	Body       string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("envio para análise rejeitado (status %d): %s", e.StatusCode, e.Body)
}

// AnalysisFailedError o job remoto terminou com status "failed"
type AnalysisFailedError struct {
	Raw string
}

func (e *AnalysisFailedError) Error() string {
	return fmt.Sprintf("análise falhou: %s", e.Raw)
}

// RequestError a API de completion respondeu com status diferente de 200
type RequestError struct {
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("requisição rejeitada (status %d): %s", e.StatusCode, e.Body)
}

// Is permite errors.Is(err, ErrRateLimited) para respostas 429
func (e *RequestError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == 429
}

// TransportError falha de rede ou de decode em uma chamada externa
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedCsvError linha com menos campos que o cabeçalho
type MalformedCsvError struct {
	Line int
	Got  int
	Want int
}

func (e *MalformedCsvError) Error() string {
	return fmt.Sprintf("csv malformado na linha %d: %d campos, esperado %d", e.Line, e.Got, e.Want)
}

// InvalidEstimateError documento de estimativa viola um invariante ou o schema
type InvalidEstimateError struct {
	Task   string
	Reason string
}

func (e *InvalidEstimateError) Error() string {
	if e.Task == "" {
		return fmt.Sprintf("documento de estimativa inválido: %s", e.Reason)
	}
	return fmt.Sprintf("task %q inválida: %s", e.Task, e.Reason)
}

// ExtractionError marca falhas da etapa de extração de texto do PDF
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extração de texto do PDF: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// IsExtractionError indica se o erro veio da etapa de extração
func IsExtractionError(err error) bool {
	var ext *ExtractionError
	return errors.As(err, &ext)
}
