package output

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/vsinha/prodplan/pkg/application/dto"
	"github.com/vsinha/prodplan/pkg/application/services/report"
)

const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Production Plan {{.RunID}}</title>
<style>
body { font-family: Arial, sans-serif; margin: 24px; color: #333; }
h1 { font-size: 22px; }
h2 { font-size: 17px; margin-top: 28px; }
table { border-collapse: collapse; margin-bottom: 12px; }
th, td { border: 1px solid #ddd; padding: 4px 8px; font-size: 12px; text-align: left; }
th { background: #f0f0f0; }
.meta { color: #666; font-size: 12px; }
.warning { color: #b26a00; }
</style>
</head>
<body>
<h1>Production Plan</h1>
<p class="meta">Run {{.RunID}} &middot; as of {{.AsOf}}{{if .RunTime}} &middot; run time {{.RunTime}}{{end}}{{if .ConfirmedAt}} &middot; confirmed {{.ConfirmedAt}}{{end}} &middot; generated {{.GeneratedAt}}</p>
{{range .Tables}}
<h2>{{.Name}}</h2>
{{if .Rows}}<table>
<tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</table>{{else}}<p class="meta">No rows.</p>{{end}}
{{if eq .Name $.LoadSheet}}{{$.Chart}}{{end}}
{{end}}
{{if .Plans}}<h2>Machine Plans</h2>
{{range .Plans}}<h3>{{.Table.Name}}</h3>
<table>
<tr>{{range .Table.Headers}}<th>{{.}}</th>{{end}}</tr>
{{range .Table.Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</table>
{{end}}{{end}}
{{if .Warnings}}<h2>Warnings</h2>
<ul>{{range .Warnings}}<li class="warning">{{.}}</li>{{end}}</ul>{{end}}
</body>
</html>
`

var reportTmpl = template.Must(template.New("report").Parse(reportTemplate))

// TemplateData is what the HTML report template renders
type TemplateData struct {
	RunID       string
	AsOf        string
	RunTime     string
	ConfirmedAt string
	GeneratedAt string
	LoadSheet   string
	Tables      []report.Table
	Plans       []report.MachinePlan
	Warnings    []string
	Chart       template.HTML
}

// HTMLReport renders a planning run as a standalone HTML page
type HTMLReport struct {
	now func() time.Time
}

// NewHTMLReport creates a new HTML report generator
func NewHTMLReport() *HTMLReport {
	return &HTMLReport{now: time.Now}
}

// GenerateHTML renders the report tables, the machine load chart and the machine plans
func (hr *HTMLReport) GenerateHTML(result *dto.PlanningResult, rep *report.Report, config Config) (string, error) {
	data := &TemplateData{
		RunID:       result.RunID,
		AsOf:        result.Policy.AsOf.Format("2006-01-02"),
		GeneratedAt: hr.now().Format("2006-01-02 15:04:05"),
		LoadSheet:   report.SheetMachineLoad,
		Tables:      rep.Tables(),
		Plans:       report.MachinePlans(result),
		Warnings:    result.Warnings,
		// the chart escapes machine ids itself
		Chart: template.HTML(NewLoadChart(rep.MachineLoad).GenerateSVG(rep.MachineLoad)),
	}
	if config.RunTime > 0 {
		data.RunTime = hr.formatDuration(config.RunTime)
	}
	if result.IsConfirmed() {
		data.ConfirmedAt = result.ConfirmedAt.Format("2006-01-02 15:04:05")
	}

	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

func (hr *HTMLReport) formatDuration(d time.Duration) string {
	if d < time.Second {
		return "< 1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

// generateHTMLOutput creates the HTML report file
func generateHTMLOutput(result *dto.PlanningResult, rep *report.Report, config Config) error {
	if config.OutputDir == "" {
		return fmt.Errorf("output directory required for HTML format")
	}

	page, err := NewHTMLReport().GenerateHTML(result, rep, config)
	if err != nil {
		return fmt.Errorf("failed to generate HTML report: %w", err)
	}

	filename, err := writeOutputFile(config.OutputDir, "production_report.html", []byte(page))
	if err != nil {
		return err
	}
	if config.Verbose {
		fmt.Fprintf(config.stdout(), "🌐 HTML report saved to: %s\n", filename)
	}
	return nil
}
