package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Employee representa um perfil necessário para executar uma task
type Employee struct {
	Role  string `json:"role"`
	Count int    `json:"count"`
}

// String formata o perfil como "Role (count)"
func (e Employee) String() string {
	return fmt.Sprintf("%s (%d)", e.Role, e.Count)
}

// EstimatedDays contém a estimativa de três pontos em dias
type EstimatedDays struct {
	Min        float64 `json:"min"`
	MostLikely float64 `json:"most_likely"`
	Max        float64 `json:"max"`
}

// Ordered indica se Min <= MostLikely <= Max
func (d EstimatedDays) Ordered() bool {
	return d.Min <= d.MostLikely && d.MostLikely <= d.Max
}

// TaskEstimate é uma unidade de trabalho estimada.
// Name é a chave da task dentro de list_of_all_tasks e não aparece no corpo JSON.
type TaskEstimate struct {
	Name             string        `json:"-"`
	Description      string        `json:"description"`
	FittingEmployees []Employee    `json:"fitting_employees"`
	EstimatedDays    EstimatedDays `json:"estimated_days"`
	PotentialIssues  []string      `json:"potential_issues"`
}

// Validate verifica os invariantes da estimativa
func (t TaskEstimate) Validate() error {
	if !t.EstimatedDays.Ordered() {
		return &InvalidEstimateError{
			Task:   t.Name,
			Reason: fmt.Sprintf("estimated_days fora de ordem (min=%g, most_likely=%g, max=%g)", t.EstimatedDays.Min, t.EstimatedDays.MostLikely, t.EstimatedDays.Max),
		}
	}
	for _, e := range t.FittingEmployees {
		if e.Count < 0 {
			return &InvalidEstimateError{
				Task:   t.Name,
				Reason: fmt.Sprintf("count negativo para role %q", e.Role),
			}
		}
	}
	return nil
}

// TaskCollection mapeia nome -> TaskEstimate preservando a ordem de inserção.
// A ordem sobrevive a decode, encode, renderização e exportação.
type TaskCollection struct {
	tasks []TaskEstimate
	index map[string]int
}

// NewTaskCollection cria uma coleção com as tasks na ordem informada
func NewTaskCollection(tasks ...TaskEstimate) *TaskCollection {
	c := &TaskCollection{}
	for _, t := range tasks {
		c.Add(t)
	}
	return c
}

// Add insere a task no fim; se o nome já existe, substitui no lugar
func (c *TaskCollection) Add(t TaskEstimate) {
	if c.index == nil {
		c.index = make(map[string]int)
	}
	if i, ok := c.index[t.Name]; ok {
		c.tasks[i] = t
		return
	}
	c.index[t.Name] = len(c.tasks)
	c.tasks = append(c.tasks, t)
}

// Get busca uma task pelo nome
func (c *TaskCollection) Get(name string) (TaskEstimate, bool) {
	if c == nil || c.index == nil {
		return TaskEstimate{}, false
	}
	i, ok := c.index[name]
	if !ok {
		return TaskEstimate{}, false
	}
	return c.tasks[i], true
}

// Len retorna o número de tasks
func (c *TaskCollection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.tasks)
}

// Tasks retorna uma cópia das tasks em ordem de inserção
func (c *TaskCollection) Tasks() []TaskEstimate {
	if c == nil {
		return nil
	}
	out := make([]TaskEstimate, len(c.tasks))
	copy(out, c.tasks)
	return out
}

// Names retorna os nomes em ordem de inserção
func (c *TaskCollection) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, len(c.tasks))
	for i, t := range c.tasks {
		names[i] = t.Name
	}
	return names
}

// Roles retorna os perfis distintos de fitting_employees na ordem em que aparecem.
// Nomes vazios são ignorados.
func (c *TaskCollection) Roles() []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]bool)
	var roles []string
	for _, t := range c.tasks {
		for _, e := range t.FittingEmployees {
			role := strings.TrimSpace(e.Role)
			if role == "" || seen[role] {
				continue
			}
			seen[role] = true
			roles = append(roles, role)
		}
	}
	return roles
}

// Validate valida todas as tasks e retorna o primeiro erro encontrado
func (c *TaskCollection) Validate() error {
	for _, t := range c.Tasks() {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON escreve o objeto com as chaves em ordem de inserção
func (c TaskCollection) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, t := range c.tasks {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(t.Name)
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON lê o objeto token a token para manter a ordem das chaves
func (c *TaskCollection) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("list_of_all_tasks deve ser um objeto JSON")
	}

	*c = TaskCollection{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("chave inesperada: %v", tok)
		}

		var t TaskEstimate
		if err := dec.Decode(&t); err != nil {
			return fmt.Errorf("task %q: %w", name, err)
		}
		t.Name = name
		c.Add(t)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// AnswerDocument é o documento de estimativa (answer.json)
type AnswerDocument struct {
	ListOfAllTasks TaskCollection `json:"list_of_all_tasks"`
}

// Tasks atalho para a coleção do documento
func (d *AnswerDocument) Tasks() *TaskCollection {
	return &d.ListOfAllTasks
}

// RoleRate é uma linha do catálogo de perfis e diárias
type RoleRate struct {
	Role      string  `json:"role"`
	DailyRate float64 `json:"daily_rate"`
}
