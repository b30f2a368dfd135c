package fundamentals

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/finsightlab/finsight/pkg/models"
)

// tableTemplate renders the metric table as a plain HTML table: one row
// per metric, one column per fiscal period (newest first). Missing
// values render as "N/A".
var tableTemplate = template.Must(template.New("fundamentals").Parse(`<table border="1">
  <thead>
    <tr>
      <th>Metric</th>
      <th>Unit</th>
{{- range .Periods}}
      <th>{{.}}</th>
{{- end}}
    </tr>
  </thead>
  <tbody>
{{- range .Rows}}
    <tr>
      <td>{{.Name}}</td>
      <td>{{.Unit}}</td>
{{- range .Values}}
      <td>{{.}}</td>
{{- end}}
    </tr>
{{- end}}
  </tbody>
</table>`))

type renderRow struct {
	Name   string
	Unit   models.MetricUnit
	Values []string
}

type renderTable struct {
	Periods []string
	Rows    []renderRow
}

// RenderHTML renders the metric table to an HTML string for embedding in
// the rating prompt and exports.
func RenderHTML(table models.MetricTable) (string, error) {
	rt := renderTable{Periods: table.Periods}
	for _, row := range table.Rows {
		rr := renderRow{Name: row.Name, Unit: row.Unit}
		for _, v := range row.Values {
			rr.Values = append(rr.Values, formatValue(v))
		}
		rt.Rows = append(rt.Rows, rr)
	}

	var sb strings.Builder
	if err := tableTemplate.Execute(&sb, rt); err != nil {
		return "", fmt.Errorf("execute fundamentals template: %w", err)
	}
	return sb.String(), nil
}

// formatValue renders a nullable metric value. Values are shown with two
// decimals; missing values as "N/A".
func formatValue(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *v)
}
