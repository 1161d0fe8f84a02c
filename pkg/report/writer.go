package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/seismo-tools/hazengine/pkg/models/domain"
)

// Writer renders a report as reStructuredText
type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

const rstTemplate = `{{.Title}}
{{underline .Title "="}}

{{metaTable .Meta}}{{if .NumSites}}
num_sites = {{.NumSites}}, num_levels = {{.NumLevels}}
{{end}}{{range .Sections}}
{{.Title}}
{{underline .Title "-"}}
{{if .Table}}{{table .Table}}{{end}}{{if .Literal}}::

{{indent .Literal}}
{{end}}{{end}}`

// Write renders the report to w
func (wr *Writer) Write(report *domain.Report, w io.Writer) error {
	funcMap := template.FuncMap{
		"underline": func(s, ch string) string {
			return strings.Repeat(ch, len(s))
		},
		"table": renderGrid,
		"metaTable": func(meta domain.RunMeta) string {
			return renderGrid(&domain.ReportTable{
				Header: []string{"checksum32", "date", "engine_version"},
				Rows: [][]string{{
					fmt.Sprintf("%d", meta.Checksum32),
					meta.Date.Format("2006-01-02T15:04:05"),
					meta.EngineVersion,
				}},
			})
		},
		"indent": func(s string) string {
			lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
			for i, line := range lines {
				lines[i] = "  " + line
			}
			return strings.Join(lines, "\n")
		},
	}

	t, err := template.New("report").Funcs(funcMap).Parse(rstTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(w, report)
}

// renderGrid produces an RST grid table with padded columns
func renderGrid(table *domain.ReportTable) string {
	widths := make([]int, len(table.Header))
	for i, cell := range table.Header {
		widths[i] = len(cell)
	}
	for _, row := range table.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	separator := func() {
		b.WriteString("+")
		for _, w := range widths {
			b.WriteString(strings.Repeat("-", w+2))
			b.WriteString("+")
		}
		b.WriteString("\n")
	}
	writeRow := func(cells []string) {
		b.WriteString("|")
		for i, w := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			fmt.Fprintf(&b, " %-*s |", w, cell)
		}
		b.WriteString("\n")
	}

	separator()
	writeRow(table.Header)
	separator()
	for _, row := range table.Rows {
		writeRow(row)
	}
	separator()
	return b.String()
}

// Exporter writes report files into the datastore directory; it is the
// engine's default export step.
type Exporter struct {
	builder *Builder
	writer  *Writer
}

func NewExporter(builder *Builder) *Exporter {
	return &Exporter{builder: builder, writer: NewWriter()}
}

// Export builds and writes report_<id>.rst under dir, returning the
// full path of the written file.
func (e *Exporter) Export(ctx context.Context, jobID int64, dir string) (string, error) {
	report, err := e.builder.Build(ctx, jobID)
	if err != nil {
		return "", err
	}

	fname := filepath.Join(dir, fmt.Sprintf("report_%d.rst", jobID))
	f, err := os.Create(fname)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if err := e.writer.Write(report, f); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return fname, nil
}
