package normalize

import (
	"strings"
)

const (
	utf8BOM = "\ufeff"
	quote   = '"'
)

// DetectSeparator picks the column separator for a header line: tab wins over
// semicolon, comma is the default.
func DetectSeparator(line string) rune {
	switch {
	case strings.ContainsRune(line, '\t'):
		return '\t'
	case strings.ContainsRune(line, ';'):
		return ';'
	default:
		return ','
	}
}

// ParseDelimited parses tabular text of unknown separator into one map per
// data row, keyed by the lower-cased header names. Blank lines are dropped,
// short rows are padded with "" and extra fields are ignored. When a header
// name repeats, the first column with that name wins.
//
// Quoted fields are not split on the separator and lose their surrounding
// quotes. Escaped quotes ("") and multi-line fields are not supported.
func ParseDelimited(text string) []map[string]string {
	lines := nonBlankLines(text)
	if len(lines) == 0 {
		return []map[string]string{}
	}

	header := strings.TrimPrefix(lines[0], utf8BOM)
	sep := DetectSeparator(header)

	names := splitFields(header, sep)
	for i, n := range names {
		names[i] = strings.ToLower(n)
	}

	rows := make([]map[string]string, 0, len(lines)-1)

	for _, line := range lines[1:] {
		fields := splitFields(line, sep)
		row := make(map[string]string, len(names))

		for i, name := range names {
			if _, taken := row[name]; taken {
				continue
			}

			value := ""
			if i < len(fields) {
				value = fields[i]
			}

			row[name] = value
		}

		rows = append(rows, row)
	}

	return rows
}

func nonBlankLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))

	for _, l := range raw {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(strings.TrimPrefix(l, utf8BOM)) == "" {
			continue
		}

		lines = append(lines, l)
	}

	return lines
}

// splitFields is a single pass scanner: every quote toggles the in-quote
// state and the separator only splits outside quotes.
func splitFields(line string, sep rune) []string {
	fields := make([]string, 0, 8)

	var (
		sb       strings.Builder
		inQuotes bool
	)

	for _, r := range line {
		switch {
		case r == quote:
			inQuotes = !inQuotes
			sb.WriteRune(r)
		case r == sep && !inQuotes:
			fields = append(fields, cleanField(sb.String()))
			sb.Reset()
		default:
			sb.WriteRune(r)
		}
	}

	fields = append(fields, cleanField(sb.String()))

	return fields
}

func cleanField(s string) string {
	s = strings.TrimSpace(s)

	if len(s) >= 2 && s[0] == quote && s[len(s)-1] == quote {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	return s
}
