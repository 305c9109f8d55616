package model

import (
	"bytes"
	"encoding/json"
)

// CsvRow mapeia header -> valor, com as chaves na ordem do cabeçalho
type CsvRow struct {
	keys   []string
	values map[string]string
}

// NewCsvRow monta uma linha a partir dos headers e valores posicionais.
// Headers repetidos mantêm a primeira posição e o último valor.
func NewCsvRow(headers, values []string) CsvRow {
	r := CsvRow{values: make(map[string]string, len(headers))}
	for i, h := range headers {
		if _, seen := r.values[h]; !seen {
			r.keys = append(r.keys, h)
		}
		v := ""
		if i < len(values) {
			v = values[i]
		}
		r.values[h] = v
	}
	return r
}

// Get retorna o valor da coluna
func (r CsvRow) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys retorna as colunas na ordem do cabeçalho
func (r CsvRow) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len número de colunas distintas
func (r CsvRow) Len() int {
	return len(r.keys)
}

// MarshalJSON serializa como objeto preservando a ordem das colunas
func (r CsvRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// CsvTable é o resultado do parse de um CSV com cabeçalho
type CsvTable struct {
	Headers []string
	Rows    []CsvRow
}

// MarshalJSON serializa apenas as linhas, como array de objetos
func (t CsvTable) MarshalJSON() ([]byte, error) {
	if t.Rows == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.Rows)
}
