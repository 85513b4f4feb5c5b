package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagedtable/datatable"
)

var testColumns = []string{"name", "age", "status", "joined"}

func row(name string, age int, status string) datatable.Record {
	return datatable.Record{
		datatable.NewValue(name, datatable.TypeString),
		datatable.NewValue(age, datatable.TypeInt),
		datatable.NewValue(status, datatable.TypeString),
		datatable.NewValue(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), datatable.TypeTimestamp),
	}
}

func eval(t *testing.T, f datatable.Filter, r datatable.Record) bool {
	t.Helper()
	ok, err := f.Evaluate(r, testColumns)
	require.NoError(t, err)
	return ok
}

func TestGlobal(t *testing.T) {
	r := row("Jane Smith", 31, "single")

	assert.True(t, eval(t, Global{Text: "smith"}, r))
	assert.True(t, eval(t, Global{Text: "SINGLE"}, r))
	assert.True(t, eval(t, Global{Text: "31"}, r))
	assert.True(t, eval(t, Global{}, r))
	assert.False(t, eval(t, Global{Text: "doe"}, r))
}

func TestGlobalSkipsNulls(t *testing.T) {
	r := datatable.Record{datatable.NewNullValue(datatable.TypeString)}
	ok, err := Global{Text: "null"}.Evaluate(r, []string{"name"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestComposite(t *testing.T) {
	r := row("Jane Smith", 31, "single")

	and := All(Global{Text: "jane"}, nil, Global{Text: "single"})
	assert.Len(t, and.Filters, 2)
	assert.True(t, eval(t, and, r))

	and = All(Global{Text: "jane"}, Global{Text: "complicated"})
	assert.False(t, eval(t, and, r))

	or := &Composite{Logic: LogicOR, Filters: []datatable.Filter{Global{Text: "bob"}, Global{Text: "jane"}}}
	assert.True(t, eval(t, or, r))
	assert.Contains(t, or.Description(), " OR ")

	assert.True(t, eval(t, All(), r))
}

func TestParseExpression(t *testing.T) {
	tests := []struct {
		text string
		want []bool
	}{
		{"age > 30", []bool{true, false, false}},
		{"age <= 30", []bool{false, true, true}},
		{"Status = single", []bool{true, false, false}},
		{"status != single", []bool{false, true, true}},
		{"name ~ ali", []bool{false, true, false}},
		{"age > 20 AND status = complicated", []bool{false, true, false}},
		{"status = single or age < 20", []bool{true, false, true}},
		{"smith", []bool{true, false, false}},
	}

	rows := []datatable.Record{
		row("Jane Smith", 31, "single"),
		row("Alice Brown", 25, "complicated"),
		row("Bob Stone", 12, "relationship"),
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			expr, err := ParseExpression(tt.text, testColumns)
			require.NoError(t, err)
			for i, r := range rows {
				assert.Equal(t, tt.want[i], eval(t, expr, r), "row %d", i)
			}
		})
	}
}

func TestParseExpressionNumericVersusText(t *testing.T) {
	expr, err := ParseExpression("age > 9", testColumns)
	require.NoError(t, err)
	// numeric, not lexical: 12 > 9
	assert.True(t, eval(t, expr, row("Bob", 12, "single")))
}

func TestParseExpressionErrors(t *testing.T) {
	_, err := ParseExpression("height > 3", testColumns)
	assert.ErrorIs(t, err, datatable.ErrColumnNotFound)

	_, err = ParseExpression("age > 3 AND", testColumns)
	assert.ErrorIs(t, err, datatable.ErrInvalidFilter)

	expr, err := ParseExpression("   ", testColumns)
	require.NoError(t, err)
	assert.Nil(t, expr)
}

func TestScript(t *testing.T) {
	s, err := CompileScript(`return row["age"].(int64) > 30 && strings.HasSuffix(row["name"].(string), "Smith")`)
	require.NoError(t, err)

	assert.True(t, eval(t, s, row("Jane Smith", 31, "single")))
	assert.False(t, eval(t, s, row("Jane Smith", 30, "single")))
	assert.False(t, eval(t, s, row("Jane Doe", 40, "single")))
	assert.Contains(t, s.Description(), "script")
}

func TestScriptCompileError(t *testing.T) {
	_, err := CompileScript(`return row["age"] >`)
	assert.ErrorIs(t, err, datatable.ErrInvalidFilter)
}

func TestScriptPanicBecomesError(t *testing.T) {
	s, err := CompileScript(`return row["name"].(int64) > 0`)
	require.NoError(t, err)

	_, err = s.Evaluate(row("Jane", 1, "single"), testColumns)
	assert.ErrorIs(t, err, datatable.ErrInvalidFilter)
}
