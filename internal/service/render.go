package service

import (
	"io"

	"github.com/cleberrangel/task-estimation-api/internal/model"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TableHeaders colunas da tabela HTML, em ordem
var TableHeaders = []string{"Task", "Description", "Fitting Employees", "Estimated Days", "Potential Issues"}

// ContentContainerID id do container onde a tabela é inserida na página
const ContentContainerID = "json-content"

// RenderTable monta a tabela com uma linha de cabeçalho e uma linha por task,
// na ordem de inserção da coleção
func RenderTable(tasks *model.TaskCollection) *html.Node {
	table := element(atom.Table, html.Attribute{Key: "class", Val: "task-table"})

	thead := element(atom.Thead)
	headRow := element(atom.Tr)
	for _, h := range TableHeaders {
		headRow.AppendChild(withText(element(atom.Th), h))
	}
	thead.AppendChild(headRow)
	table.AppendChild(thead)

	tbody := element(atom.Tbody)
	for _, t := range tasks.Tasks() {
		row := element(atom.Tr)
		row.AppendChild(withText(element(atom.Td), t.Name))
		row.AppendChild(withText(element(atom.Td), t.Description))
		row.AppendChild(listCellNode(employeeLines(t.FittingEmployees)))
		row.AppendChild(listCellNode([]string{
			"Min: " + formatDays(t.EstimatedDays.Min),
			"Most Likely: " + formatDays(t.EstimatedDays.MostLikely),
			"Max: " + formatDays(t.EstimatedDays.Max),
		}))
		row.AppendChild(listCellNode(t.PotentialIssues))
		tbody.AppendChild(row)
	}
	table.AppendChild(tbody)

	return table
}

// WriteTable escreve apenas o elemento <table>
func WriteTable(w io.Writer, tasks *model.TaskCollection) error {
	return html.Render(w, RenderTable(tasks))
}

// WritePage escreve um documento HTML completo com a tabela dentro do container
func WritePage(w io.Writer, title string, tasks *model.TaskCollection) error {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html)
	head := element(atom.Head)
	meta := element(atom.Meta, html.Attribute{Key: "charset", Val: "utf-8"})
	head.AppendChild(meta)
	head.AppendChild(withText(element(atom.Title), title))
	root.AppendChild(head)

	body := element(atom.Body)
	container := element(atom.Div, html.Attribute{Key: "id", Val: ContentContainerID})
	container.AppendChild(RenderTable(tasks))
	body.AppendChild(container)
	root.AppendChild(body)
	doc.AppendChild(root)

	return html.Render(w, doc)
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     a.String(),
		DataAtom: a,
		Attr:     attrs,
	}
}

func withText(n *html.Node, text string) *html.Node {
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
}

func listCellNode(items []string) *html.Node {
	td := element(atom.Td)
	ul := element(atom.Ul)
	for _, item := range items {
		ul.AppendChild(withText(element(atom.Li), item))
	}
	td.AppendChild(ul)
	return td
}
