package windows

import (
	"image/color"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagedtable/datatable"
	"pagedtable/internal/filter"
)

func TestCleanFilename(t *testing.T) {
	assert.Equal(t, "people", cleanFilename("/tmp/data/people.csv"))
	assert.Equal(t, "shareschemaorders", cleanFilename("profile.share#share.schema.orders"))
	assert.Equal(t, "my_table", cleanFilename("my table"))
	assert.Equal(t, "export", cleanFilename("???"))
	assert.Equal(t, "notes", cleanFilename("notes.parquet"))
}

func TestTabTitle(t *testing.T) {
	assert.Equal(t, "people.csv", tabTitle("/tmp/data/people.csv"))
	assert.Equal(t, "s.a.t", tabTitle("p.share#s.a.t"))
	long := "abcdefghijklmnopqrstuvwxyz0123456789"
	assert.Len(t, tabTitle(long), 32)
}

func TestFilterOptionsCompile(t *testing.T) {
	ids := []string{"age", "status"}

	f, err := FilterOptions{Mode: ModeExpression, Text: "  "}.Compile(ids)
	require.NoError(t, err)
	assert.Nil(t, f)

	f, err = FilterOptions{Mode: ModeExpression, Text: "age > 30"}.Compile(ids)
	require.NoError(t, err)
	assert.IsType(t, &filter.Expression{}, f)

	_, err = FilterOptions{Mode: ModeExpression, Text: "height > 3"}.Compile(ids)
	assert.ErrorIs(t, err, datatable.ErrColumnNotFound)

	f, err = FilterOptions{Mode: ModeScript, Text: `return row["age"] != nil`}.Compile(ids)
	require.NoError(t, err)
	assert.IsType(t, &filter.Script{}, f)
}

func TestColumnsLayout(t *testing.T) {
	a, b := canvas.NewRectangle(color.Black), canvas.NewRectangle(color.Black)
	l := &columnsLayout{widths: []float32{40, 60}}
	l.Layout([]fyne.CanvasObject{a, b}, fyne.NewSize(500, 30))

	assert.Equal(t, fyne.NewPos(0, 0), a.Position())
	assert.Equal(t, fyne.NewSize(40, 30), a.Size())
	assert.Equal(t, fyne.NewPos(40, 0), b.Position())
	assert.Equal(t, float32(100), l.MinSize([]fyne.CanvasObject{a, b}).Width)
}

func TestBodyLayoutMatchesTotalHeight(t *testing.T) {
	top, row, bottom := canvas.NewRectangle(color.Black), canvas.NewRectangle(color.Black), canvas.NewRectangle(color.Black)
	l := &bodyLayout{width: 300, heights: []float32{350, 35, 700}}
	objects := []fyne.CanvasObject{top, row, bottom}

	assert.Equal(t, fyne.NewSize(300, 1085), l.MinSize(objects))
	l.Layout(objects, fyne.NewSize(300, 1085))
	assert.Equal(t, float32(350), row.Position().Y)
	assert.Equal(t, float32(385), bottom.Position().Y)
	assert.Equal(t, float32(700), bottom.Size().Height)
}

func TestFileDialogMatches(t *testing.T) {
	fd := &FileDialog{extensions: DataFileExtensions}
	assert.True(t, fd.matches("people.CSV"))
	assert.True(t, fd.matches("part-0.parquet"))
	assert.False(t, fd.matches("profile.share"))
}
