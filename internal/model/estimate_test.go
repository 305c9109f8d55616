package model

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleAnswer = `{
  "list_of_all_tasks": {
    "Zeta setup": {
      "description": "Provision infra",
      "fitting_employees": [{"role": "DevOps", "count": 1}],
      "estimated_days": {"min": 1, "most_likely": 2, "max": 4},
      "potential_issues": ["quota limits"]
    },
    "Alpha API": {
      "description": "Build the API",
      "fitting_employees": [{"role": "Backend", "count": 2}, {"role": "QA", "count": 1}],
      "estimated_days": {"min": 3, "most_likely": 5, "max": 8.5},
      "potential_issues": []
    }
  }
}`

var timeZero = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestAnswerDocumentPreservesOrder(t *testing.T) {
	var doc AnswerDocument
	require.NoError(t, json.Unmarshal([]byte(sampleAnswer), &doc))

	assert.Equal(t, []string{"Zeta setup", "Alpha API"}, doc.Tasks().Names())

	alpha, ok := doc.Tasks().Get("Alpha API")
	require.True(t, ok)
	assert.Equal(t, 8.5, alpha.EstimatedDays.Max)
	assert.Len(t, alpha.FittingEmployees, 2)

	out, err := json.Marshal(doc)
	require.NoError(t, err)

	var again AnswerDocument
	require.NoError(t, json.Unmarshal(out, &again))
	assert.Equal(t, doc.Tasks().Names(), again.Tasks().Names())
}

func TestTaskCollectionAddReplacesInPlace(t *testing.T) {
	c := NewTaskCollection(
		TaskEstimate{Name: "a", Description: "first"},
		TaskEstimate{Name: "b"},
	)
	c.Add(TaskEstimate{Name: "a", Description: "second"})

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"a", "b"}, c.Names())
	got, _ := c.Get("a")
	assert.Equal(t, "second", got.Description)
}

func TestTaskEstimateValidate(t *testing.T) {
	ok := TaskEstimate{Name: "x", EstimatedDays: EstimatedDays{Min: 1, MostLikely: 1, Max: 2}}
	assert.NoError(t, ok.Validate())

	bad := TaskEstimate{Name: "x", EstimatedDays: EstimatedDays{Min: 3, MostLikely: 2, Max: 4}}
	var invalid *InvalidEstimateError
	assert.ErrorAs(t, bad.Validate(), &invalid)

	negative := TaskEstimate{Name: "y", FittingEmployees: []Employee{{Role: "Dev", Count: -1}}}
	assert.ErrorAs(t, negative.Validate(), &invalid)
}

func TestTaskCollectionRoles(t *testing.T) {
	var doc AnswerDocument
	require.NoError(t, json.Unmarshal([]byte(sampleAnswer), &doc))
	assert.Equal(t, []string{"DevOps", "Backend", "QA"}, doc.Tasks().Roles())

	doc.Tasks().Add(TaskEstimate{
		Name:             "Beta UI",
		FittingEmployees: []Employee{{Role: " QA ", Count: 1}, {Role: "", Count: 1}, {Role: "Designer", Count: 1}},
		EstimatedDays:    EstimatedDays{Min: 1, MostLikely: 1, Max: 1},
	})
	assert.Equal(t, []string{"DevOps", "Backend", "QA", "Designer"}, doc.Tasks().Roles())

	var empty *TaskCollection
	assert.Empty(t, empty.Roles())
}

func TestReferenceTaskDecodesIndexDocument(t *testing.T) {
	var ref ReferenceTask
	require.NoError(t, json.Unmarshal([]byte(`{
		"@search.score": 2.5, "id": "7", "MSCW": "1 Must Have", "Area": "03 Setup",
		"Module": "Infra", "Feature": "Setup Projects", "Task": "Create repos",
		"Profile": "2 Fullstack Developer", "MinDays": 1, "RealDays": 2, "MaxDays": 3,
		"Contingency": 0, "EstimatedDays": 2, "EstimatedPrice": 480, "PotentialIssues": "Scope creep"
	}`), &ref))

	assert.Equal(t, "Create repos", ref.Task)
	assert.Equal(t, 2.5, ref.Score)
	assert.Equal(t, 480.0, ref.EstimatedPrice)
	assert.Equal(t, "Scope creep", ref.PotentialIssues)
}

func TestEmployeeString(t *testing.T) {
	assert.Equal(t, "Backend (2)", Employee{Role: "Backend", Count: 2}.String())
}

func TestAnalysisJobTerminalStates(t *testing.T) {
	job := NewAnalysisJob("1", "http://x/doc.pdf", "http://x/op/1", timeZero)
	require.NoError(t, job.Observe("running", timeZero))
	assert.Equal(t, AnalysisPending, job.State)

	require.NoError(t, job.Observe("succeeded", timeZero))
	assert.Equal(t, AnalysisSucceeded, job.State)
	assert.Equal(t, 2, job.Attempts)

	assert.Error(t, job.Observe("running", timeZero))
	assert.Equal(t, AnalysisSucceeded, job.State)
}

func TestCsvRowKeepsHeaderOrder(t *testing.T) {
	row := NewCsvRow([]string{"name", "age", "city"}, []string{"Ann", "30", "Oslo"})
	out, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Ann","age":"30","city":"Oslo"}`, string(out))
}

// Ordem de inserção sobrevive a encode + decode para qualquer quantidade de tasks
func TestTaskCollectionOrderProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("encode/decode keeps insertion order", prop.ForAll(
		func(n int) bool {
			c := &TaskCollection{}
			for i := n; i > 0; i-- {
				c.Add(TaskEstimate{
					Name:          fmt.Sprintf("task-%03d", i),
					EstimatedDays: EstimatedDays{Min: 1, MostLikely: 2, Max: 3},
				})
			}

			data, err := json.Marshal(AnswerDocument{ListOfAllTasks: *c})
			if err != nil {
				return false
			}
			var doc AnswerDocument
			if err := json.Unmarshal(data, &doc); err != nil {
				return false
			}
			return assert.ObjectsAreEqual(c.Names(), doc.Tasks().Names())
		},
		gen.IntRange(0, 40),
	))

	properties.TestingRun(t)
}
