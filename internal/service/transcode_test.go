package service

import (
	"encoding/csv"
	"fmt"
	"strings"
	"testing"

	"github.com/cleberrangel/task-estimation-api/internal/model"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nonEmptyAlpha() gopter.Gen {
	return gen.AlphaString().SuchThat(func(s string) bool { return s != "" })
}

// Para qualquer CSV com cabeçalho e N linhas, ParseCSV devolve N linhas com
// as mesmas chaves do cabeçalho e valores sem espaços nas bordas
func TestParseCSVRowCountProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.MaxSize = 20
	properties := gopter.NewProperties(parameters)

	headers := []string{"name", "role", "city"}

	properties.Property("one mapping per data row, trimmed values", prop.ForAll(
		func(rows [][]string) bool {
			var b strings.Builder
			b.WriteString(" name, role ,city\n")
			for _, r := range rows {
				b.WriteString("  " + r[0] + " ," + r[1] + "  , " + r[2] + "\n")
			}

			table, err := ParseCSV(b.String())
			if err != nil {
				t.Logf("parse error: %v", err)
				return false
			}
			if len(table.Rows) != len(rows) {
				return false
			}
			if !assert.ObjectsAreEqual(headers, table.Headers) {
				return false
			}
			for i, row := range table.Rows {
				if !assert.ObjectsAreEqual(headers, row.Keys()) {
					return false
				}
				for j, h := range headers {
					if v, _ := row.Get(h); v != rows[i][j] {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(gen.SliceOfN(3, nonEmptyAlpha())),
	))

	properties.TestingRun(t)
}

func TestParseCSVShortRow(t *testing.T) {
	_, err := ParseCSV("a,b,c\n1,2,3\n4,5\n")

	var malformed *model.MalformedCsvError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, 3, malformed.Line)
	assert.Equal(t, 2, malformed.Got)
	assert.Equal(t, 3, malformed.Want)
}

func TestParseCSVQuotedFields(t *testing.T) {
	table, err := ParseCSV("name,notes\r\n\"Doe, John\",\"said \"\"hi\"\"\"\r\n")
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)

	name, _ := table.Rows[0].Get("name")
	notes, _ := table.Rows[0].Get("notes")
	assert.Equal(t, "Doe, John", name)
	assert.Equal(t, `said "hi"`, notes)
}

func TestParseCSVStrayQuoteInUnquotedField(t *testing.T) {
	table, err := ParseCSV("product,size\nTV,55\" screen\nRadio,small\n")
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	size, _ := table.Rows[0].Get("size")
	assert.Equal(t, `55" screen`, size)
	size, _ = table.Rows[1].Get("size")
	assert.Equal(t, "small", size)
}

func TestParseCSVIgnoresExtraFields(t *testing.T) {
	table, err := ParseCSV("a,b\n1,2,3\n")
	require.NoError(t, err)
	assert.Equal(t, 2, table.Rows[0].Len())
}

func TestParseCSVEmpty(t *testing.T) {
	_, err := ParseCSV("")
	assert.ErrorIs(t, err, model.ErrEmptyCSV)

	table, err := ParseCSV("only,header\n")
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
}

func TestToCSVExactOutput(t *testing.T) {
	tasks := model.NewTaskCollection(model.TaskEstimate{
		Name:             "Setup",
		Description:      "Init repo",
		FittingEmployees: []model.Employee{{Role: "Dev", Count: 2}, {Role: "QA", Count: 1}},
		EstimatedDays:    model.EstimatedDays{Min: 1, MostLikely: 2, Max: 3.5},
		PotentialIssues:  []string{"Scope creep", "Delays"},
	})

	want := "Task;Description;Fitting Employees;Min Days;Most Likely Days;Max Days;Potential Issues\n" +
		"Setup;Init repo;\"Dev (2)\nQA (1)\";1;2;3.5;\"Scope creep\nDelays\""
	assert.Equal(t, want, ToCSV(tasks))
}

func TestToCSVQuotesScalarDelimiters(t *testing.T) {
	tasks := model.NewTaskCollection(model.TaskEstimate{
		Name:        "API; v2",
		Description: `the "core" part`,
	})

	out := ToCSV(tasks)
	lines := strings.SplitN(out, "\n", 2)
	assert.Equal(t, `"API; v2";"the ""core"" part";"";0;0;0;""`, lines[1])
}

func TestToCSVNeutralizesFormulaCells(t *testing.T) {
	tasks := model.NewTaskCollection(model.TaskEstimate{
		Name:            "=HYPERLINK(\"http://x\")",
		Description:     "+1 day",
		PotentialIssues: []string{"@SUM(A1)", "ok"},
	}, model.TaskEstimate{
		Name:        "-cmd",
		Description: "plain - text",
	})

	lines := strings.Split(ToCSV(tasks), "\n")
	assert.True(t, strings.HasPrefix(lines[1], `"'=HYPERLINK(""http://x"")";'+1 day;`), lines[1])
	assert.Contains(t, ToCSV(tasks), `"'@SUM(A1)`)
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "'-cmd;plain - text;"))
}

func TestToCSVHeaderOnly(t *testing.T) {
	assert.Equal(t, strings.Join(ExportHeaders, ";"), ToCSV(model.NewTaskCollection()))
}

// Para K tasks, ToCSV produz K+1 registros de 7 campos e mantém a ordem
func TestToCSVRecordCountProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.MaxSize = 15
	properties := gopter.NewProperties(parameters)

	properties.Property("K tasks -> K+1 records with 7 fields", prop.ForAll(
		func(names []string, issues []string, count int) bool {
			tasks := &model.TaskCollection{}
			for i, n := range names {
				tasks.Add(model.TaskEstimate{
					Name:             fmt.Sprintf("%s-%d", n, i),
					Description:      "desc " + n,
					FittingEmployees: []model.Employee{{Role: n, Count: count}},
					EstimatedDays:    model.EstimatedDays{Min: 1, MostLikely: 2, Max: 3},
					PotentialIssues:  issues,
				})
			}

			r := csv.NewReader(strings.NewReader(ToCSV(tasks)))
			r.Comma = ';'
			records, err := r.ReadAll()
			if err != nil {
				t.Logf("read back: %v", err)
				return false
			}
			if len(records) != tasks.Len()+1 {
				return false
			}
			for i, rec := range records {
				if len(rec) != len(ExportHeaders) {
					return false
				}
				if i > 0 && rec[0] != tasks.Names()[i-1] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(nonEmptyAlpha()),
		gen.SliceOf(nonEmptyAlpha()),
		gen.IntRange(0, 10),
	))

	properties.TestingRun(t)
}
