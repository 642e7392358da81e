package result

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// WriteJSON writes the broken links as a formatted JSON array to the writer.
// Uses flat array format (not wrapped with metadata) for simpler CI integration.
func WriteJSON(w io.Writer, links []BrokenLink) error {
	if links == nil {
		links = []BrokenLink{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(links); err != nil {
		return fmt.Errorf("write json output: %w", err)
	}
	return nil
}

// WriteYAML writes the broken links as a YAML sequence to the writer.
func WriteYAML(w io.Writer, links []BrokenLink) error {
	if links == nil {
		links = []BrokenLink{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(links); err != nil {
		return fmt.Errorf("write yaml output: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close yaml encoder: %w", err)
	}
	return nil
}

// WriteCSV writes the broken links as CSV to the writer.
// Always includes a header row, even if there are no broken links.
// Column order: url, status_code, error_type, error, files
// Referencing files are joined with ";".
func WriteCSV(w io.Writer, links []BrokenLink) error {
	cw := csv.NewWriter(w)

	header := []string{"url", "status_code", "error_type", "error", "files"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, link := range links {
		record := []string{
			link.URL,
			statusCodeStr(link.StatusCode),
			string(link.ErrorCategory),
			link.Error,
			strings.Join(link.Files, ";"),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record for %s: %w", link.URL, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv output: %w", err)
	}
	return nil
}

// statusCodeStr converts an HTTP status code to a string.
// Returns empty string for 0 (no HTTP status).
func statusCodeStr(code int) string {
	if code == 0 {
		return ""
	}
	return strconv.Itoa(code)
}
