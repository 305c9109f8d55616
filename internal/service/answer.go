package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/cleberrangel/task-estimation-api/internal/model"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// answerSchema descreve o documento list_of_all_tasks
var answerSchema = map[string]any{
	"type":     "object",
	"required": []string{"list_of_all_tasks"},
	"properties": map[string]any{
		"list_of_all_tasks": map[string]any{
			"type":                 "object",
			"additionalProperties": map[string]any{"$ref": "#/definitions/task"},
		},
	},
	"definitions": map[string]any{
		"task": map[string]any{
			"type":     "object",
			"required": []string{"description", "fitting_employees", "estimated_days"},
			"properties": map[string]any{
				"description": map[string]any{"type": "string"},
				"fitting_employees": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type":     "object",
						"required": []string{"role", "count"},
						"properties": map[string]any{
							"role":  map[string]any{"type": "string", "minLength": 1},
							"count": map[string]any{"type": "integer", "minimum": 0},
						},
					},
				},
				"estimated_days": map[string]any{
					"type":     "object",
					"required": []string{"min", "most_likely", "max"},
					"properties": map[string]any{
						"min":         map[string]any{"type": "number", "minimum": 0},
						"most_likely": map[string]any{"type": "number", "minimum": 0},
						"max":         map[string]any{"type": "number", "minimum": 0},
					},
				},
				"potential_issues": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
			},
		},
	},
}

var (
	compiledOnce   sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func answerValidator() (*jsonschema.Schema, error) {
	compiledOnce.Do(func() {
		b, err := json.Marshal(answerSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("answer.json", bytes.NewReader(b)); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile("answer.json")
	})
	return compiledSchema, compileErr
}

// LoadAnswer lê, valida e decodifica um documento de estimativa
func LoadAnswer(r io.Reader) (*model.AnswerDocument, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ler documento: %w", err)
	}
	return ParseAnswer(data)
}

// ParseAnswer valida o JSON contra o schema, decodifica preservando a ordem
// das tasks e verifica min <= most_likely <= max
func ParseAnswer(data []byte) (*model.AnswerDocument, error) {
	data = []byte(stripCodeFence(string(data)))

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, &model.InvalidEstimateError{Reason: fmt.Sprintf("JSON inválido: %v", err)}
	}

	schema, err := answerValidator()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(generic); err != nil {
		return nil, &model.InvalidEstimateError{Reason: err.Error()}
	}

	var doc model.AnswerDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &model.InvalidEstimateError{Reason: err.Error()}
	}
	if err := doc.Tasks().Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// stripCodeFence remove ```json ... ``` quando o modelo embrulha a resposta em Markdown
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
