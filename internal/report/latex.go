package report

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/openbondlab/bondspread/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// LaTeX table rendering — booktabs tabular fragments
// ════════════════════════════════════════════════════════════════════

// Table is a rendered-ready LaTeX table: column headers plus string rows.
// The fragments are meant to be \input into a surrounding table environment.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ColumnSpec returns the tabular column layout: first column left-aligned,
// the rest right-aligned.
func (t Table) ColumnSpec() string {
	if len(t.Columns) == 0 {
		return ""
	}
	return "l" + strings.Repeat("r", len(t.Columns)-1)
}

var latexTableTmpl = template.Must(template.New("table").Funcs(template.FuncMap{
	"join": func(cells []string) string { return strings.Join(cells, " & ") },
}).Parse(`\begin{tabular}{{"{"}}{{.ColumnSpec}}{{"}"}}
\toprule
{{join .Columns}} \\
\midrule
{{range .Rows}}{{join .}} \\
{{end}}\bottomrule
\end{tabular}
`))

// RenderLaTeX writes the table as a booktabs tabular fragment.
func RenderLaTeX(w io.Writer, t Table) error {
	escaped := Table{
		Columns: escapeCells(t.Columns),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		escaped.Rows[i] = escapeCells(row)
	}
	return latexTableTmpl.Execute(w, escaped)
}

var latexEscaper = strings.NewReplacer(
	"&", `\&`,
	"%", `\%`,
	"$", `\$`,
	"#", `\#`,
	"_", `\_`,
	"{", `\{`,
	"}", `\}`,
)

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = latexEscaper.Replace(c)
	}
	return out
}

// formatCell renders a float for table output, blank for Missing.
func formatCell(v float64) string {
	if models.IsMissing(v) {
		return ""
	}
	return fmt.Sprintf("%.4f", v)
}
