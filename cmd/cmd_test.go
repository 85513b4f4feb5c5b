package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	arrowadapter "pagedtable/adapters/arrow"
	"pagedtable/config"
	"pagedtable/dummy"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInferSourceKind(t *testing.T) {
	v := config.New()
	v.Set("source.file", "people.csv")
	cfg := config.FromViper(v)
	assert.True(t, inferSourceKind(v, cfg))
	assert.Equal(t, config.SourceFile, cfg.Source.Kind)

	v = config.New()
	v.Set("source.profile", "open.share")
	cfg = config.FromViper(v)
	assert.True(t, inferSourceKind(v, cfg))
	assert.Equal(t, config.SourceDeltaSharing, cfg.Source.Kind)

	v = config.New()
	v.Set("source.kind", config.SourceDummy)
	v.Set("source.file", "people.csv")
	cfg = config.FromViper(v)
	assert.False(t, inferSourceKind(v, cfg))
	assert.Equal(t, config.SourceDummy, cfg.Source.Kind)
}

func TestExportFormat(t *testing.T) {
	cases := []struct {
		opts exportOptions
		want arrowadapter.ExportFormat
	}{
		{exportOptions{}, arrowadapter.FormatCSV},
		{exportOptions{out: "rows.parquet"}, arrowadapter.FormatParquet},
		{exportOptions{out: "rows.csv", format: "json"}, arrowadapter.FormatJSON},
	}
	for _, c := range cases {
		got, err := c.opts.exportFormat()
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}

	_, err := exportOptions{out: "rows.xlsx"}.exportFormat()
	assert.Error(t, err)
}

func TestExportSortedAndFiltered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.csv")
	_, err := execute(t, "export", "--rows", "250", "--sort", "age:desc", "--where", "age > 40", "-o", path)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)

	header := records[0]
	require.Equal(t, dummy.ColAge, header[3])

	want := 0
	for _, p := range dummy.MakeData(250, 42) {
		if p.Age > 40 {
			want++
		}
	}
	require.Len(t, records[1:], want)

	prev := 1 << 30
	for _, r := range records[1:] {
		age, err := strconv.Atoi(r[3])
		require.NoError(t, err)
		assert.Greater(t, age, 40)
		assert.LessOrEqual(t, age, prev)
		prev = age
	}
}

func TestExportJSONToStdout(t *testing.T) {
	out, err := execute(t, "export", "--rows", "5", "--format", "json")
	require.NoError(t, err)

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Len(t, rows, 5)
	assert.Contains(t, rows[0], dummy.ColFirstName)
}

func TestExportRejectsUnknownSortColumn(t *testing.T) {
	_, err := execute(t, "export", "--rows", "5", "--sort", "shoeSize")
	assert.Error(t, err)
}

func TestDeltaSharingWithoutTable(t *testing.T) {
	_, err := execute(t, "export", "--profile", filepath.Join(t.TempDir(), "missing.share"))
	assert.Error(t, err)
}
