package phone

import "strings"

// headerIndicators are substrings that mark a header cell as the phone column.
// "broj" is Serbo-Croatian for number.
var headerIndicators = []string{"phone", "tel", "number", "mobile", "cell", "contact", "/", "broj"}

const (
	sampleColumns   = 5   // columns inspected by the content heuristic
	sampleRows      = 20  // rows sampled per column
	phoneLikeCutoff = 0.7 // share of samples that must look like phone numbers
)

// Column is the result of DetectColumn.
type Column struct {
	Index  int
	Name   string
	Reason string // "header", "content" or "fallback"
}

// DetectColumn picks the column of a table that holds phone numbers.
//
// A header cell containing one of the indicator words wins. Otherwise the
// first five columns are sampled and the first whose non-empty values mostly
// look like phone numbers wins. The fallback is column 1 (column 0 for
// single-column tables).
func DetectColumn(header []string, rows [][]string) Column {
	for i, name := range header {
		lower := strings.ToLower(name)
		for _, indicator := range headerIndicators {
			if strings.Contains(lower, indicator) {
				return Column{Index: i, Name: name, Reason: "header"}
			}
		}
	}

	width := len(header)
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	limit := sampleColumns
	if width < limit {
		limit = width
	}
	for col := 0; col < limit; col++ {
		sampled, phoneLike := 0, 0
		for _, row := range rows {
			if sampled == sampleRows {
				break
			}
			if col >= len(row) || strings.TrimSpace(row[col]) == "" {
				continue
			}
			sampled++
			if LooksLikePhone(row[col]) {
				phoneLike++
			}
		}
		if sampled > 0 && float64(phoneLike)/float64(sampled) > phoneLikeCutoff {
			return Column{Index: col, Name: columnName(header, col), Reason: "content"}
		}
	}

	idx := 0
	if width > 1 {
		idx = 1
	}
	return Column{Index: idx, Name: columnName(header, idx), Reason: "fallback"}
}

func columnName(header []string, idx int) string {
	if idx < len(header) {
		return header[idx]
	}
	return ""
}
