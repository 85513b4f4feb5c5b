package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	arrowadapter "pagedtable/adapters/arrow"
	"pagedtable/datatable"
	"pagedtable/internal/filter"
	"pagedtable/internal/grid"
)

type exportOptions struct {
	format string
	out    string
	sort   string
	search string
	where  string
}

func newExportCommand(rt *runtime) *cobra.Command {
	var opts exportOptions
	cmd := &cobra.Command{
		Use:     "export",
		Args:    cobra.NoArgs,
		Aliases: []string{"x"},
		Short:   "Fetch every page and write the rows to a file",
		Long: `Fetch every page of the configured source through the grid, apply the
sort and filters, and write the result as Parquet, CSV or JSON.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd.Context(), rt, opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.format, "format", "f", "", "parquet, csv or json (default from --out's extension, else csv)")
	f.StringVarP(&opts.out, "out", "o", "", "output file (default stdout)")
	f.StringVar(&opts.sort, "sort", "", "sort such as age:desc,lastName:asc")
	f.StringVar(&opts.search, "search", "", "keep rows with a cell containing this text")
	f.StringVar(&opts.where, "where", "", "filter expression such as 'age > 30 AND status = single'")
	return cmd
}

func (o exportOptions) exportFormat() (arrowadapter.ExportFormat, error) {
	name := o.format
	if name == "" {
		if i := strings.LastIndex(o.out, "."); i >= 0 {
			name = o.out[i+1:]
		} else {
			name = "csv"
		}
	}
	return arrowadapter.ParseFormat(name)
}

func runExport(ctx context.Context, rt *runtime, opts exportOptions, stdout io.Writer) error {
	format, err := opts.exportFormat()
	if err != nil {
		return err
	}
	sorting, err := datatable.ParseSorting(opts.sort)
	if err != nil {
		return err
	}

	opened, err := openSource(ctx, rt.cfg, rt.log)
	if err != nil {
		return err
	}
	g, err := grid.New(opened.src, opened.columns, rt.cfg.GridConfig(), rt.log, grid.WithDispatcher(grid.Inline))
	if err != nil {
		return err
	}
	defer g.Close()

	if err := exportRows(ctx, g, sorting, opts); err != nil {
		return err
	}

	w := stdout
	if opts.out != "" {
		file, err := os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("%w: %v", datatable.ErrExportFailed, err)
		}
		defer file.Close()
		w = file
	}

	rows := g.Rows()
	if err := arrowadapter.Write(w, format, g.Table().ColumnInfos(), rows); err != nil {
		return err
	}
	rt.log.WithFields(logrus.Fields{
		"rows":   len(rows),
		"format": format.String(),
		"out":    opts.out,
	}).Info("export finished")
	return nil
}

// exportRows loads every page of sorting into g and applies the filters.
func exportRows(ctx context.Context, g *grid.Grid, sorting datatable.Sorting, opts exportOptions) error {
	if sorting.IsSorted() {
		for _, s := range sorting {
			if !g.Table().CanSort(s.ColumnID) {
				return fmt.Errorf("%w: %s", datatable.ErrInvalidSortColumn, s.ColumnID)
			}
		}
		g.SetSorting(sorting)
	}
	if err := g.FetchAll(ctx); err != nil {
		return err
	}

	g.SetGlobalFilter(opts.search)
	expr, err := filter.ParseExpression(opts.where, g.Table().ColumnIDs())
	if err != nil {
		return err
	}
	if expr != nil {
		g.SetFilters([]datatable.Filter{expr})
	}
	if err := g.Model().FilterErr; err != nil {
		return err
	}
	return nil
}
