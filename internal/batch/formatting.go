package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// report is the serialised form used by the json and yaml formats.
type report struct {
	Files   []FileResult `json:"files" yaml:"files"`
	Summary Stats        `json:"summary" yaml:"summary"`
}

// formatBatchResults formats the batch processing results in the specified format.
func formatBatchResults(r *Result, format string) (string, error) {
	switch format {
	case "json":
		return formatJSON(r)
	case "yaml":
		return formatYAML(r)
	case "csv":
		return formatCSV(r)
	case "text", "":
		return formatText(r), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

func newReport(r *Result) report {
	files := r.Files
	if files == nil {
		files = []FileResult{}
	}
	return report{Files: files, Summary: r.Stats()}
}

// formatJSON formats results as JSON.
func formatJSON(r *Result) (string, error) {
	bts, err := json.MarshalIndent(newReport(r), "", "  ")
	return string(bts), err
}

// formatYAML formats results as YAML.
func formatYAML(r *Result) (string, error) {
	bts, err := yaml.Marshal(newReport(r))
	return string(bts), err
}

// formatCSV formats results as CSV, one row per file.
func formatCSV(r *Result) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)
	if err := writer.Write([]string{
		"path", "class", "height", "width", "channels", "thumbnail", "duration_ms", "error",
	}); err != nil {
		return "", err
	}

	for _, f := range r.Files {
		if err := writer.Write([]string{
			f.Path,
			f.Class,
			strconv.Itoa(f.Height),
			strconv.Itoa(f.Width),
			strconv.Itoa(f.Channels),
			f.Thumbnail,
			strconv.FormatFloat(f.DurationMS, 'f', 3, 64),
			f.Error,
		}); err != nil {
			return "", err
		}
	}
	writer.Flush()
	return output.String(), writer.Error()
}

// formatText formats results as plain text.
func formatText(r *Result) string {
	var output strings.Builder
	for _, f := range r.Files {
		if !f.OK() {
			fmt.Fprintf(&output, "FAIL %s: %s\n", f.Path, f.Error)
			continue
		}
		fmt.Fprintf(&output, "OK   %s [%s] %dx%dx%d", f.Path, f.Class, f.Height, f.Width, f.Channels)
		if f.Thumbnail != "" {
			fmt.Fprintf(&output, " -> %s", f.Thumbnail)
		}
		output.WriteString("\n")
	}
	s := r.Stats()
	fmt.Fprintf(&output, "%d decoded, %d failed\n", s.Succeeded, s.Failed)
	return output.String()
}
