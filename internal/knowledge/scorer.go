package knowledge

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"crm_engine/internal/entities"
)

// Score counts how many query terms and years occur as substrings of the
// row's concatenated values. Never negative.
func Score(row entities.Row, q Query) int {
	if q.Empty() {
		return 0
	}
	haystack := Haystack(row)

	score := 0
	for _, t := range q.Terms {
		if strings.Contains(haystack, t) {
			score++
		}
	}
	for _, y := range q.Years {
		if strings.Contains(haystack, y) {
			score++
		}
	}
	return score
}

// Haystack joins every value of the row, lowercased, in key order.
func Haystack(row entities.Row) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(strings.ToLower(Stringify(row[k])))
		sb.WriteString(" | ")
	}
	return sb.String()
}

// Stringify renders a row value the way it is shown to the model.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	default:
		return fmt.Sprint(val)
	}
}

type scoredRow struct {
	row   entities.Row
	score int
}

// Rank returns rows with a positive score, highest first. Ties keep input order.
func Rank(rows []entities.Row, q Query) []entities.Row {
	scored := make([]scoredRow, 0, len(rows))
	for _, r := range rows {
		if s := Score(r, q); s > 0 {
			scored = append(scored, scoredRow{row: r, score: s})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	out := make([]entities.Row, len(scored))
	for i, s := range scored {
		out[i] = s.row
	}
	return out
}
