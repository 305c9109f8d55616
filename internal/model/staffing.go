package model

// ReferenceTask é uma task de projeto anterior guardada no índice de busca.
// Os nomes dos campos seguem o índice da base de conhecimento.
type ReferenceTask struct {
	ID              string  `json:"id,omitempty"`
	MSCW            string  `json:"MSCW"`
	Area            string  `json:"Area"`
	Module          string  `json:"Module"`
	Feature         string  `json:"Feature"`
	Task            string  `json:"Task"`
	Profile         string  `json:"Profile"`
	MinDays         float64 `json:"MinDays"`
	RealDays        float64 `json:"RealDays"`
	MaxDays         float64 `json:"MaxDays"`
	Contingency     float64 `json:"Contingency"`
	EstimatedDays   float64 `json:"EstimatedDays"`
	EstimatedPrice  float64 `json:"EstimatedPrice"`
	PotentialIssues string  `json:"PotentialIssues,omitempty"`
	Score           float64 `json:"@search.score,omitempty"`
}

// AvailableEmployee funcionário livre para ser alocado
type AvailableEmployee struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// Staffing funcionários disponíveis para os perfis pedidos
type Staffing struct {
	Roles     []string            `json:"roles"`
	Employees []AvailableEmployee `json:"employees"`
}
