// Package filter provides the row filters used by the table engine.
package filter

import (
	"fmt"
	"strings"

	"pagedtable/datatable"
)

// LogicOp represents a logical operator for combining filters.
type LogicOp int

const (
	// LogicAND requires all filters to pass.
	LogicAND LogicOp = iota
	// LogicOR requires at least one filter to pass.
	LogicOR
)

// String returns the string representation of a LogicOp.
func (op LogicOp) String() string {
	switch op {
	case LogicAND:
		return "AND"
	case LogicOR:
		return "OR"
	default:
		return fmt.Sprintf("unknown(%d)", op)
	}
}

// Composite combines multiple filters with AND or OR logic.
type Composite struct {
	Filters []datatable.Filter
	Logic   LogicOp
}

// All returns an AND composite of filters, skipping nils.
func All(filters ...datatable.Filter) *Composite {
	c := &Composite{Logic: LogicAND}
	for _, f := range filters {
		if f != nil {
			c.Filters = append(c.Filters, f)
		}
	}
	return c
}

// Evaluate implements datatable.Filter.
func (f *Composite) Evaluate(row datatable.Record, columnIDs []string) (bool, error) {
	if len(f.Filters) == 0 {
		return true, nil
	}

	switch f.Logic {
	case LogicAND:
		for _, filter := range f.Filters {
			passes, err := filter.Evaluate(row, columnIDs)
			if err != nil {
				return false, err
			}
			if !passes {
				return false, nil
			}
		}
		return true, nil

	case LogicOR:
		for _, filter := range f.Filters {
			passes, err := filter.Evaluate(row, columnIDs)
			if err != nil {
				return false, err
			}
			if passes {
				return true, nil
			}
		}
		return false, nil

	default:
		return false, fmt.Errorf("%w: unknown logic operator %d", datatable.ErrInvalidFilter, f.Logic)
	}
}

// Description implements datatable.Filter.
func (f *Composite) Description() string {
	if len(f.Filters) == 0 {
		return "empty filter"
	}

	descriptions := make([]string, len(f.Filters))
	for i, filter := range f.Filters {
		descriptions[i] = filter.Description()
	}
	return "(" + strings.Join(descriptions, " "+f.Logic.String()+" ") + ")"
}

// Global keeps rows where any column's formatted value contains Text,
// case-insensitively. An empty Text keeps every row.
type Global struct {
	Text string
}

// Evaluate implements datatable.Filter.
func (g Global) Evaluate(row datatable.Record, _ []string) (bool, error) {
	needle := strings.ToLower(g.Text)
	if needle == "" {
		return true, nil
	}
	for _, v := range row {
		if v.IsNull {
			continue
		}
		if strings.Contains(strings.ToLower(v.Formatted), needle) {
			return true, nil
		}
	}
	return false, nil
}

// Description implements datatable.Filter.
func (g Global) Description() string {
	return fmt.Sprintf("any column contains %q", g.Text)
}
