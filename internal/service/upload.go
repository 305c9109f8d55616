package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cleberrangel/task-estimation-api/internal/logger"
	"github.com/cleberrangel/task-estimation-api/internal/metrics"
	"github.com/cleberrangel/task-estimation-api/internal/model"
	"github.com/cleberrangel/task-estimation-api/internal/repository"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// File upload errors
var (
	ErrInvalidFile     = errors.New("arquivo inválido ou corrompido")
	ErrFileTooLarge    = errors.New("arquivo excede limite de 10MB")
	ErrUnsupportedType = errors.New("formato de arquivo não suportado (use PDF, CSV ou XLSX)")
	ErrEmptyFile       = errors.New("arquivo está vazio")
	ErrNoColumns       = errors.New("arquivo não contém colunas")
)

const (
	// MaxFileSize is the maximum allowed file size (10MB)
	MaxFileSize = 10 * 1024 * 1024
	// TempFileExpiry is how long staged files are kept before cleanup
	TempFileExpiry = 1 * time.Hour
	// cleanupInterval período do loop de limpeza
	cleanupInterval = 10 * time.Minute

	uploadPrefix = "uploads/"
	pdfSignature = "%PDF-"
)

// StagedFile arquivo enviado e gravado no storage
type StagedFile struct {
	Key         string    `json:"key"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	StagedAt    time.Time `json:"staged_at"`
}

// UploadService valida uploads e guarda PDFs no storage até expirarem
type UploadService struct {
	storage repository.FileStorage
	expiry  time.Duration
	now     func() time.Time

	stagedMu sync.Mutex
	staged   map[string]time.Time
}

// NewUploadService creates a new upload service
func NewUploadService(storage repository.FileStorage) *UploadService {
	return &UploadService{
		storage: storage,
		expiry:  TempFileExpiry,
		now:     time.Now,
		staged:  make(map[string]time.Time),
	}
}

// ValidateFileFormat validates the extension and returns its content type
func (s *UploadService) ValidateFileFormat(filename string) (string, error) {
	ct := contentTypeFor(strings.ToLower(filepath.Ext(filename)))
	if ct == "" {
		return "", ErrUnsupportedType
	}
	return ct, nil
}

// ReadUpload lê o upload respeitando o limite de tamanho
func (s *UploadService) ReadUpload(filename string, reader io.Reader, size int64) ([]byte, error) {
	if size > MaxFileSize {
		return nil, ErrFileTooLarge
	}
	if _, err := s.ValidateFileFormat(filename); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(reader, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("erro ao ler upload: %w", err)
	}
	if len(data) > MaxFileSize {
		return nil, ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if strings.EqualFold(filepath.Ext(filename), ".pdf") && !bytes.HasPrefix(data, []byte(pdfSignature)) {
		return nil, ErrInvalidFile
	}
	return data, nil
}

// Stage grava o arquivo em uploads/<uuid><ext> e registra para expiração
func (s *UploadService) Stage(ctx context.Context, filename string, data []byte) (*StagedFile, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	ct, err := s.ValidateFileFormat(filename)
	if err != nil {
		return nil, err
	}

	key := uploadPrefix + uuid.NewString() + ext
	if err := s.storage.Write(ctx, key, data); err != nil {
		return nil, fmt.Errorf("erro ao salvar arquivo: %w", err)
	}

	now := s.now()
	s.stagedMu.Lock()
	s.staged[key] = now
	s.stagedMu.Unlock()

	metrics.Get().IncrementFileUpload(int64(len(data)))
	logger.Audit(ctx, logger.AuditEvent{
		Action:     logger.AuditActionFileUpload,
		Resource:   "upload",
		ResourceID: key,
		Success:    true,
		Details: map[string]interface{}{
			"filename": filename,
			"size":     len(data),
		},
	})

	return &StagedFile{
		Key:         key,
		Filename:    filename,
		Size:        int64(len(data)),
		ContentType: ct,
		StagedAt:    now,
	}, nil
}

// URL endereço que o Document Intelligence usa para baixar o arquivo
func (s *UploadService) URL(ctx context.Context, key string) (string, error) {
	return s.storage.URL(ctx, key)
}

// Remove apaga o arquivo do storage. Se a remoção falhar o arquivo continua
// rastreado e a limpeza periódica tenta de novo.
func (s *UploadService) Remove(ctx context.Context, key string) error {
	if err := s.storage.Delete(ctx, key); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	s.stagedMu.Lock()
	delete(s.staged, key)
	s.stagedMu.Unlock()
	return nil
}

// StagedCount número de arquivos aguardando expiração
func (s *UploadService) StagedCount() int {
	s.stagedMu.Lock()
	defer s.stagedMu.Unlock()
	return len(s.staged)
}

// Run executa o loop de limpeza até o contexto terminar
func (s *UploadService) Run(ctx context.Context) error {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanupExpiredFiles(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

// cleanupExpiredFiles removes staged files older than the expiry
func (s *UploadService) cleanupExpiredFiles(ctx context.Context) int {
	now := s.now()

	s.stagedMu.Lock()
	var expired []string
	for key, staged := range s.staged {
		if now.Sub(staged) > s.expiry {
			expired = append(expired, key)
		}
	}
	s.stagedMu.Unlock()

	removed := 0
	for _, key := range expired {
		if err := s.Remove(ctx, key); err != nil {
			logger.Get(ctx).Warn().Err(err).Str("key", key).Msg("Falha ao remover arquivo expirado")
			continue
		}
		removed++
		metrics.Get().IncrementFileExpired()
		logger.Audit(ctx, logger.AuditEvent{
			Action:     logger.AuditActionFileExpire,
			Resource:   "upload",
			ResourceID: key,
			Success:    true,
		})
	}
	return removed
}

// ReadTable converte um upload CSV ou XLSX em tabela header -> valor
func ReadTable(filename string, data []byte) (*model.CsvTable, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ParseCSVReader(bytes.NewReader(data))
	case ".xlsx":
		return readXLSXTable(data)
	default:
		return nil, ErrUnsupportedType
	}
}

// readXLSXTable lê a primeira planilha; a primeira linha é o cabeçalho
func readXLSXTable(data []byte) (*model.CsvTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("erro ao ler linhas: %w", err)
	}
	if len(rows) == 0 {
		return nil, model.ErrEmptyCSV
	}

	headers := normalizeRow(rows[0], len(rows[0]))
	if len(headers) == 0 {
		return nil, ErrNoColumns
	}

	table := &model.CsvTable{Headers: headers, Rows: make([]model.CsvRow, 0, len(rows)-1)}
	for _, row := range rows[1:] {
		// GetRows omite células vazias no fim da linha
		table.Rows = append(table.Rows, model.NewCsvRow(headers, normalizeRow(row, len(headers))))
	}
	return table, nil
}

// normalizeRow ensures a row has the correct number of columns
func normalizeRow(row []string, columnCount int) []string {
	normalized := make([]string, columnCount)
	for i := 0; i < columnCount && i < len(row); i++ {
		normalized[i] = strings.TrimSpace(row[i])
	}
	return normalized
}

// contentTypeFor returns the content type for a file extension
func contentTypeFor(ext string) string {
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".csv":
		return "text/csv"
	case ".xlsx":
		return xlsxContentType
	default:
		return ""
	}
}
