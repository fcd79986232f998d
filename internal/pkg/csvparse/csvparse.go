// Package csvparse normalizes and parses the semicolon-separated inventory
// exports that arrive in the input folder. The exporting tool is not strictly
// RFC 4180: lines may be wrapped in an extra layer of quotes and rows may be
// shorter than the header, so parsing is deliberately lenient.
package csvparse

import (
	"encoding/csv"
	"fmt"
	"regexp"
	"strings"
)

// Record maps a normalized header key to the trimmed cell value of one row.
type Record map[string]string

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	nonKeyChars   = regexp.MustCompile(`[^a-zA-Z0-9_]`)
)

// Parse converts raw semicolon-separated CSV text into one Record per data
// row. The first row supplies the keys and is not emitted. Empty input yields
// an empty slice.
func Parse(raw string) ([]Record, error) {
	cleaned := normalizeLines(raw)
	if cleaned == "" {
		return []Record{}, nil
	}

	reader := csv.NewReader(strings.NewReader(cleaned))
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(rows) == 0 {
		return []Record{}, nil
	}

	headers := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		headers[i] = NormalizeKey(cell)
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(Record, len(headers))
		for i, cell := range row {
			if i >= len(headers) {
				break
			}
			rec[headers[i]] = cleanValue(cell)
		}
		records = append(records, rec)
	}

	return records, nil
}

// NormalizeKey turns a raw header cell into a stable lookup key: trimmed,
// quotes and backslashes stripped, whitespace collapsed to underscores,
// remaining non-alphanumerics dropped, lowercased.
func NormalizeKey(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(`"`, "", `\`, "").Replace(s)
	s = whitespaceRun.ReplaceAllString(s, "_")
	s = nonKeyChars.ReplaceAllString(s, "")
	return strings.ToLower(s)
}

// normalizeLines trims every line and removes a whole-line quote layer some
// exporters add around each row. A line is only unwrapped when the outer
// quotes are its only quotes; otherwise they belong to the fields.
func normalizeLines(raw string) string {
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) >= 2 &&
			strings.HasPrefix(line, `"`) && strings.HasSuffix(line, `"`) &&
			strings.Count(line, `"`) == 2 {
			line = strings.TrimSpace(line[1 : len(line)-1])
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// cleanValue strips one layer of surrounding double quotes and trims.
func cleanValue(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}
