// Package sqlbuilder accumulates query arguments and renders placeholders in
// the dialect of the target database.
package sqlbuilder

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type PlaceholderStyle int

const (
	// PlaceholderQuestion renders numbered SQLite parameters (?1, ?2, ...).
	PlaceholderQuestion PlaceholderStyle = iota
	PlaceholderDollar
)

// JSONType is the SQL type a JSON element is cast to.
type JSONType int

const (
	JSONInt JSONType = iota
	JSONText
)

// JSONField names one key of the objects passed to Records.
type JSONField struct {
	Key  string
	Type JSONType
}

type Builder struct {
	Style PlaceholderStyle
	args  []any
}

func New(style PlaceholderStyle) *Builder {
	return &Builder{Style: style}
}

// Arg records v and returns its placeholder.
func (b *Builder) Arg(v any) string {
	b.args = append(b.args, v)
	n := strconv.Itoa(len(b.args))
	if b.Style == PlaceholderDollar {
		return "$" + n
	}
	return "?" + n
}

// IntList binds ids as a single JSON array parameter and returns a subquery
// yielding one row per id in column value, ready for an IN (...) clause.
// The statement uses one bind variable however long the list is.
func (b *Builder) IntList(ids []int64) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, id := range ids {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatInt(id, 10))
	}
	sb.WriteByte(']')
	return b.scalarList(sb.String(), JSONInt)
}

// TextList is IntList for strings.
func (b *Builder) TextList(values []string) string {
	if values == nil {
		values = []string{}
	}
	// A []string always marshals.
	data, _ := json.Marshal(values)
	return b.scalarList(string(data), JSONText)
}

// Records binds rows, a slice of JSON objects, as a single parameter and
// returns a subquery with one column per field, named after its key.
func (b *Builder) Records(rows any, fields ...JSONField) (string, error) {
	if len(fields) == 0 {
		return "", fmt.Errorf("records need at least one field")
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("encode records: %w", err)
	}
	source := b.jsonSource(string(data))

	cols := make([]string, len(fields))
	for i, f := range fields {
		var elem string
		if b.Style == PlaceholderDollar {
			elem = "j.value ->> '" + f.Key + "'"
		} else {
			elem = "json_extract(j.value, '$." + f.Key + "')"
		}
		cols[i] = fmt.Sprintf("CAST(%s AS %s) AS %s", elem, b.castType(f.Type), f.Key)
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), source), nil
}

func (b *Builder) scalarList(data string, t JSONType) string {
	source := b.jsonSource(data)
	elem := "j.value"
	if b.Style == PlaceholderDollar {
		elem = "j.value #>> '{}'"
	}
	return fmt.Sprintf("SELECT CAST(%s AS %s) AS value FROM %s", elem, b.castType(t), source)
}

// jsonSource binds data and returns a table expression with one row per
// array element, exposed as j.value.
func (b *Builder) jsonSource(data string) string {
	ph := b.Arg(data)
	if b.Style == PlaceholderDollar {
		return "jsonb_array_elements(CAST(CAST(" + ph + " AS TEXT) AS jsonb)) AS j(value)"
	}
	return "json_each(" + ph + ") AS j"
}

func (b *Builder) castType(t JSONType) string {
	switch {
	case t == JSONText:
		return "TEXT"
	case b.Style == PlaceholderDollar:
		return "BIGINT"
	default:
		return "INTEGER"
	}
}

func (b *Builder) Args() []any { return b.args }
func (b *Builder) Len() int    { return len(b.args) }
