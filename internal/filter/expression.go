// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package filter

import (
	"fmt"
	"strconv"
	"strings"

	"pagedtable/datatable"
)

// CompOp is a comparison operator in a filter expression.
type CompOp int

const (
	OpEqual CompOp = iota
	OpNotEqual
	OpGreater
	OpLess
	OpGreaterEqual
	OpLessEqual
	OpContains
)

// operators are tried longest first so ">=" wins over "=".
var operators = []struct {
	op     CompOp
	symbol string
}{
	{OpGreaterEqual, ">="},
	{OpLessEqual, "<="},
	{OpNotEqual, "!="},
	{OpEqual, "="},
	{OpGreater, ">"},
	{OpLess, "<"},
	{OpContains, "~"},
}

func (op CompOp) String() string {
	for _, o := range operators {
		if o.op == op {
			return o.symbol
		}
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// Condition compares one column against a literal. An empty ColumnID
// means "any column contains Value".
type Condition struct {
	ColumnID string
	Op       CompOp
	Value    string
}

// Expression is a chain of conditions joined left to right by Ops.
// len(Ops) == len(Conditions)-1.
type Expression struct {
	Conditions []Condition
	Ops        []LogicOp
	source     string
}

// ParseExpression parses text such as `age > 30 AND status = single`
// against the known column ids (matched case-insensitively). A blank
// text yields nil.
func ParseExpression(text string, columnIDs []string) (*Expression, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	known := make(map[string]string, len(columnIDs))
	for _, id := range columnIDs {
		known[strings.ToLower(id)] = id
	}

	expr := &Expression{source: strings.TrimSpace(text)}
	var current []string
	flush := func() error {
		if len(current) == 0 {
			return fmt.Errorf("%w: missing condition in %q", datatable.ErrInvalidFilter, text)
		}
		cond, err := parseCondition(strings.Join(current, " "), known)
		if err != nil {
			return err
		}
		expr.Conditions = append(expr.Conditions, cond)
		current = current[:0]
		return nil
	}

	for _, word := range strings.Fields(text) {
		switch strings.ToUpper(word) {
		case "AND", "OR":
			if err := flush(); err != nil {
				return nil, err
			}
			op := LogicAND
			if strings.EqualFold(word, "OR") {
				op = LogicOR
			}
			expr.Ops = append(expr.Ops, op)
		default:
			current = append(current, word)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return expr, nil
}

func parseCondition(text string, known map[string]string) (Condition, error) {
	for _, o := range operators {
		idx := strings.Index(text, o.symbol)
		if idx <= 0 {
			continue
		}
		name := strings.TrimSpace(text[:idx])
		id, ok := known[strings.ToLower(name)]
		if !ok {
			return Condition{}, fmt.Errorf("%w: %s", datatable.ErrColumnNotFound, name)
		}
		value := strings.Trim(strings.TrimSpace(text[idx+len(o.symbol):]), `"'`)
		return Condition{ColumnID: id, Op: o.op, Value: value}, nil
	}
	return Condition{Op: OpContains, Value: strings.Trim(text, `"'`)}, nil
}

// Evaluate implements datatable.Filter.
func (e *Expression) Evaluate(row datatable.Record, columnIDs []string) (bool, error) {
	if e == nil || len(e.Conditions) == 0 {
		return true, nil
	}
	result, err := e.Conditions[0].match(row, columnIDs)
	if err != nil {
		return false, err
	}
	for i, op := range e.Ops {
		next, err := e.Conditions[i+1].match(row, columnIDs)
		if err != nil {
			return false, err
		}
		if op == LogicAND {
			result = result && next
		} else {
			result = result || next
		}
	}
	return result, nil
}

// Description implements datatable.Filter.
func (e *Expression) Description() string {
	if e == nil {
		return "empty expression"
	}
	return e.source
}

func (c Condition) match(row datatable.Record, columnIDs []string) (bool, error) {
	if c.ColumnID == "" {
		return Global{Text: c.Value}.Evaluate(row, columnIDs)
	}

	idx := -1
	for i, id := range columnIDs {
		if id == c.ColumnID {
			idx = i
			break
		}
	}
	if idx < 0 || idx >= len(row) {
		return false, fmt.Errorf("%w: %s", datatable.ErrColumnNotFound, c.ColumnID)
	}
	cell := row[idx]
	if cell.IsNull {
		return c.Op == OpNotEqual, nil
	}

	switch c.Op {
	case OpEqual:
		return strings.EqualFold(cell.Formatted, c.Value), nil
	case OpNotEqual:
		return !strings.EqualFold(cell.Formatted, c.Value), nil
	case OpContains:
		return strings.Contains(strings.ToLower(cell.Formatted), strings.ToLower(c.Value)), nil
	}

	var cmp int
	lit, err := strconv.ParseFloat(c.Value, 64)
	if cell.Type.Numeric() && err == nil {
		cmp = datatable.Compare(cell, datatable.NewValue(lit, datatable.TypeFloat))
	} else {
		cmp = datatable.CompareAlphanumeric(cell.Formatted, c.Value)
	}

	switch c.Op {
	case OpGreater:
		return cmp > 0, nil
	case OpLess:
		return cmp < 0, nil
	case OpGreaterEqual:
		return cmp >= 0, nil
	case OpLessEqual:
		return cmp <= 0, nil
	}
	return false, fmt.Errorf("%w: operator %s", datatable.ErrInvalidFilter, c.Op)
}
