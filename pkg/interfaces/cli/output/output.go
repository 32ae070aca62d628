package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vsinha/prodplan/pkg/application/dto"
	"github.com/vsinha/prodplan/pkg/application/services/report"
)

// Output formats accepted by Generate
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatHTML = "html"
	FormatSVG  = "svg"
)

// Formats lists every supported output format
var Formats = []string{FormatText, FormatJSON, FormatCSV, FormatXLSX, FormatHTML, FormatSVG}

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
	RunTime   time.Duration
	// Stdout receives console output; os.Stdout when nil
	Stdout io.Writer
}

func (c Config) stdout() io.Writer {
	if c.Stdout == nil {
		return os.Stdout
	}
	return c.Stdout
}

// Generate creates output in the specified format
func Generate(result *dto.PlanningResult, config Config) error {
	if result == nil {
		return fmt.Errorf("no planning result to render")
	}
	rep := report.Build(result)

	switch config.Format {
	case FormatText, "":
		return generateTextOutput(result, rep, config)
	case FormatJSON:
		return generateJSONOutput(result, rep, config)
	case FormatCSV:
		return generateCSVOutput(result, rep, config)
	case FormatXLSX:
		return generateXLSXOutput(result, rep, config)
	case FormatHTML:
		return generateHTMLOutput(result, rep, config)
	case FormatSVG:
		return generateSVGOutput(rep, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// generateTextOutput prints fixed-width tables, and saves them when an output directory is set
func generateTextOutput(result *dto.PlanningResult, rep *report.Report, config Config) error {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "📊 Production Plan Summary\n")
	fmt.Fprintf(&buf, "==========================\n\n")
	fmt.Fprintf(&buf, "Run: %s\n", result.RunID)
	fmt.Fprintf(&buf, "As Of: %s\n", result.Policy.AsOf.Format("2006-01-02"))
	if config.RunTime > 0 {
		fmt.Fprintf(&buf, "Run Time: %v\n", config.RunTime)
	}
	if result.IsConfirmed() {
		fmt.Fprintf(&buf, "Confirmed: %s\n", result.ConfirmedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(&buf)

	for i, table := range rep.Tables() {
		// the summary is printed even when a run produced nothing
		if i > 0 && len(table.Rows) == 0 {
			continue
		}
		writeTextTable(&buf, table)
	}

	for _, plan := range report.MachinePlans(result) {
		writeTextTable(&buf, plan.Table)
	}

	if len(result.Warnings) > 0 {
		fmt.Fprintf(&buf, "⚠️  Warnings:\n")
		for _, warning := range result.Warnings {
			fmt.Fprintf(&buf, "  - %s\n", warning)
		}
		fmt.Fprintln(&buf)
	}

	stdout := config.stdout()
	if _, err := stdout.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write text output: %w", err)
	}

	if config.OutputDir != "" {
		filename, err := writeOutputFile(config.OutputDir, "production_plan.txt", buf.Bytes())
		if err != nil {
			return err
		}
		if config.Verbose {
			fmt.Fprintf(stdout, "💾 Results saved to: %s\n", filename)
		}
	}

	return nil
}

// writeTextTable prints one table with columns padded to their widest cell
func writeTextTable(w io.Writer, table report.Table) {
	widths := make([]int, len(table.Headers))
	for i, header := range table.Headers {
		widths[i] = len(header)
	}
	for _, row := range table.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	fmt.Fprintf(w, "%s:\n", table.Name)
	writeTextRow(w, table.Headers, widths)
	dashes := make([]string, len(widths))
	for i, width := range widths {
		dashes[i] = strings.Repeat("-", width)
	}
	writeTextRow(w, dashes, widths)
	for _, row := range table.Rows {
		writeTextRow(w, row, widths)
	}
	fmt.Fprintln(w)
}

func writeTextRow(w io.Writer, cells []string, widths []int) {
	padded := make([]string, len(widths))
	for i, width := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		padded[i] = fmt.Sprintf("%-*s", width, cell)
	}
	fmt.Fprintln(w, strings.TrimRight(strings.Join(padded, " "), " "))
}

// jsonDocument is the JSON rendering of a run
type jsonDocument struct {
	Result       *dto.PlanningResult  `json:"result"`
	Report       *report.Report       `json:"report"`
	MachinePlans []report.MachinePlan `json:"machine_plans"`
}

// generateJSONOutput creates JSON output
func generateJSONOutput(result *dto.PlanningResult, rep *report.Report, config Config) error {
	jsonData, err := json.MarshalIndent(jsonDocument{
		Result:       result,
		Report:       rep,
		MachinePlans: report.MachinePlans(result),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	stdout := config.stdout()
	if config.OutputDir == "" {
		fmt.Fprintln(stdout, string(jsonData))
		return nil
	}

	filename, err := writeOutputFile(config.OutputDir, "production_plan.json", jsonData)
	if err != nil {
		return err
	}
	if config.Verbose {
		fmt.Fprintf(stdout, "💾 JSON results saved to: %s\n", filename)
	}
	return nil
}

// generateCSVOutput writes one CSV file per report table and machine plan
func generateCSVOutput(result *dto.PlanningResult, rep *report.Report, config Config) error {
	if config.OutputDir == "" {
		return fmt.Errorf("output directory required for CSV format")
	}
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tables := rep.Tables()
	for _, plan := range report.MachinePlans(result) {
		tables = append(tables, plan.Table)
	}

	stdout := config.stdout()
	if config.Verbose {
		fmt.Fprintf(stdout, "💾 CSV results saved to:\n")
	}
	for _, table := range tables {
		filename := filepath.Join(config.OutputDir, fileSlug(table.Name)+".csv")
		if err := writeTableCSV(table, filename); err != nil {
			return fmt.Errorf("failed to write %s CSV: %w", table.Name, err)
		}
		if config.Verbose {
			fmt.Fprintf(stdout, "  %s: %s\n", table.Name, filename)
		}
	}

	return nil
}

func writeTableCSV(table report.Table, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(table.Headers); err != nil {
		return err
	}
	if err := writer.WriteAll(table.Rows); err != nil {
		return err
	}
	return file.Close()
}

func writeOutputFile(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	filename := filepath.Join(dir, name)
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return filename, nil
}

// fileSlug turns a table name into a lowercase file name stem
func fileSlug(name string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
