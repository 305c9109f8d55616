package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cleberrangel/task-estimation-api/internal/config"
	"github.com/cleberrangel/task-estimation-api/internal/logger"
)

// ErrNotFound arquivo não existe no storage
var ErrNotFound = errors.New("arquivo não encontrado")

// FileStorage guarda os arquivos enviados e exportados.
// Chaves usam "/" como separador, independente do backend.
type FileStorage interface {
	Write(ctx context.Context, key string, data []byte) error
	Read(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// URL devolve um endereço que o Document Intelligence consegue baixar
	URL(ctx context.Context, key string) (string, error)
}

// NewFileStorage escolhe o backend conforme STORAGE_TYPE
func NewFileStorage(ctx context.Context, cfg *config.Config) (FileStorage, error) {
	switch cfg.StorageType {
	case config.StorageS3:
		return NewS3Storage(ctx, S3Options{
			Bucket:        cfg.S3Bucket,
			Prefix:        cfg.S3Prefix,
			Region:        cfg.S3Region,
			PresignExpiry: cfg.PresignExpiry,
		})
	default:
		return NewLocalStorage(cfg.StorageBaseDir, cfg.PublicBaseURL)
	}
}

// LocalStorage grava arquivos no disco (pode ser montado como volume).
// Os arquivos são servidos pela rota /files/*path.
type LocalStorage struct {
	mu      sync.RWMutex
	baseDir string
	baseURL string
}

// NewLocalStorage cria o diretório base se necessário
func NewLocalStorage(baseDir, publicBaseURL string) (*LocalStorage, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolver diretório base: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("criar diretório base: %w", err)
	}

	logger.Global().Info().Str("dir", abs).Msg("Storage local inicializado")
	return &LocalStorage{
		baseDir: abs,
		baseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}, nil
}

// resolve mantém qualquer chave dentro do diretório base
func (s *LocalStorage) resolve(key string) string {
	return filepath.Join(s.baseDir, filepath.Clean("/"+key))
}

// Path caminho absoluto do arquivo no disco
func (s *LocalStorage) Path(key string) string {
	return s.resolve(key)
}

func (s *LocalStorage) Write(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	full := s.resolve(key)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("criar diretório de %s: %w", key, err)
	}

	// Escrita atômica: arquivo temporário + rename
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("escrever arquivo temporário: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renomear arquivo temporário: %w", err)
	}
	return nil
}

func (s *LocalStorage) Read(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.resolve(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("ler %s: %w", key, err)
	}
	return data, nil
}

func (s *LocalStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.resolve(key)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return fmt.Errorf("remover %s: %w", key, err)
	}
	return nil
}

func (s *LocalStorage) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, err := os.Stat(s.resolve(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", key, err)
	}
	return !info.IsDir(), nil
}

// URL endereço público do arquivo. Exige PUBLIC_BASE_URL acessível pelo Azure.
func (s *LocalStorage) URL(_ context.Context, key string) (string, error) {
	if s.baseURL == "" {
		return "", fmt.Errorf("PUBLIC_BASE_URL não configurada para o storage local")
	}
	return s.baseURL + "/files/" + strings.TrimPrefix(filepath.ToSlash(filepath.Clean("/"+key)), "/"), nil
}
