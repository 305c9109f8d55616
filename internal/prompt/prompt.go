// Package prompt guarda as instruções enviadas ao endpoint de completion e o
// layout fixo Context/Question em que elas são embrulhadas.
package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"text/template"

	"github.com/cleberrangel/task-estimation-api/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplates []byte

// Set conjunto de instruções carregado
type Set struct {
	ProjectSummary string `yaml:"project_summary"`
	CSVInsights    string `yaml:"csv_insights"`
	SearchQuery    string `yaml:"search_query"`
	TaskEstimation string `yaml:"task_estimation"`

	estimation *template.Template
}

var (
	defaultOnce sync.Once
	defaultSet  *Set
	defaultErr  error
)

// Default devolve os templates embutidos no binário
func Default() (*Set, error) {
	defaultOnce.Do(func() {
		defaultSet, defaultErr = Parse(defaultTemplates)
	})
	return defaultSet, defaultErr
}

// LoadFile lê templates de path. Chaves ausentes usam os embutidos
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ler prompts: %w", err)
	}
	base, err := Default()
	if err != nil {
		return nil, err
	}

	override, err := Parse(data)
	if err != nil && !errors.Is(err, errMissingTemplate) {
		return nil, err
	}
	merged := *base
	if override != nil {
		if override.ProjectSummary != "" {
			merged.ProjectSummary = override.ProjectSummary
		}
		if override.CSVInsights != "" {
			merged.CSVInsights = override.CSVInsights
		}
		if override.SearchQuery != "" {
			merged.SearchQuery = override.SearchQuery
		}
		if override.TaskEstimation != "" {
			merged.TaskEstimation = override.TaskEstimation
		}
	}
	return merged.compile()
}

var errMissingTemplate = errors.New("template de prompt ausente")

// Parse decodifica um documento YAML de templates
func Parse(data []byte) (*Set, error) {
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decodificar prompts: %w", err)
	}
	if s.ProjectSummary == "" || s.CSVInsights == "" || s.SearchQuery == "" || s.TaskEstimation == "" {
		return &s, errMissingTemplate
	}
	return s.compile()
}

func (s Set) compile() (*Set, error) {
	s.ProjectSummary = strings.TrimSpace(s.ProjectSummary)
	s.CSVInsights = strings.TrimSpace(s.CSVInsights)
	s.SearchQuery = strings.TrimSpace(s.SearchQuery)

	tmpl, err := template.New("task_estimation").Option("missingkey=error").Parse(s.TaskEstimation)
	if err != nil {
		return nil, fmt.Errorf("compilar task_estimation: %w", err)
	}
	s.estimation = tmpl
	return &s, nil
}

// Estimation renderiza a instrução de estimativa de tarefas.
// rates e references são opcionais; sem eles as seções somem do texto.
func (s *Set) Estimation(requirements string, rates []model.RoleRate, references []model.ReferenceTask) (string, error) {
	var b strings.Builder
	err := s.estimation.Execute(&b, struct {
		Requirements string
		Rates        []model.RoleRate
		References   []model.ReferenceTask
	}{
		Requirements: strings.TrimSpace(requirements),
		Rates:        rates,
		References:   references,
	})
	if err != nil {
		return "", fmt.Errorf("renderizar task_estimation: %w", err)
	}
	return strings.TrimSpace(b.String()), nil
}

// SearchContext junta o texto do projeto e os requisitos extras para gerar a consulta
func SearchContext(projectText, requirements string) string {
	requirements = strings.TrimSpace(requirements)
	if requirements == "" {
		return projectText
	}
	return projectText + "\n\nAdditional user requirements:\n" + requirements
}

// Compose embrulha a instrução e o contexto no layout esperado pelo modelo
func Compose(context, instruction string) string {
	return "Context:\n" + context + "\n\nQuestion: " + instruction
}
