package model

// PDFFailureMessage mensagem exibida ao usuário quando a extração do PDF falha
const PDFFailureMessage = "Failed to extract text from PDF."

// AnalyzePDFRequest payload de entrada para análise de PDF por URL
type AnalyzePDFRequest struct {
	PDFURL     string `json:"pdf_url" binding:"required,url"`
	SessionID  string `json:"session_id,omitempty"`
	WebhookURL string `json:"webhook_url" binding:"omitempty,url"`
}

// EstimateRequest payload de entrada para geração do documento de estimativa
type EstimateRequest struct {
	PDFURL       string `json:"pdf_url" binding:"omitempty,url"`
	Text         string `json:"text,omitempty"`
	Requirements string `json:"requirements,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
}

// AnalysisResult resultado textual de uma análise
type AnalysisResult struct {
	Answer string `json:"answer"`
	Source string `json:"source,omitempty"`
}

// Response representa a resposta padrão da API
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// Meta contém metadados da resposta
type Meta struct {
	TotalRows int `json:"total_rows,omitempty"`
	// Attempts consultas de status até o job de extração terminar
	Attempts int `json:"attempts,omitempty"`
}

// ErrorResponse representa uma resposta de erro
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WebhookPayload representa o payload enviado para o webhook
type WebhookPayload struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Answer  string `json:"answer,omitempty"`
	Source  string `json:"source,omitempty"`
}
