package knowledge

import (
	"fmt"
	"sort"
	"strings"

	"crm_engine/internal/entities"
)

const behaviorRules = `BEHAVIOR RULES:
- Only state prices, stock, specifications and order numbers that appear in the reference data or in a tool result. Never invent them.
- When the customer wants to register their details or place an order, call the matching tool. Never claim an action was done without calling the tool.
- When a tool returns an order number or total, repeat it to the customer exactly as returned.
- Do not describe your internal process (for example "let me check" or "searching the database"). Answer directly.
- Never show tool names, function-call syntax, JSON or XML tags in your replies.
- If the reference data does not contain the answer, say so honestly and offer to help with something else.`

// Compose builds the system prompt: the agent's own instructions, one
// reference-data block per base, then the fixed behavior rules.
func Compose(basePrompt string, bases []Base) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(basePrompt))

	for _, b := range bases {
		sb.WriteString("\n\n")
		writeBase(&sb, b)
	}

	sb.WriteString("\n\n")
	sb.WriteString(behaviorRules)
	return sb.String()
}

func writeBase(sb *strings.Builder, b Base) {
	fmt.Fprintf(sb, "=== REFERENCE DATA: %s ===\n", b.Meta.Name)
	if b.Meta.Description != "" {
		fmt.Fprintf(sb, "Description: %s\n", b.Meta.Description)
	}
	columns := RowColumns(b.Meta.Columns, b.Rows)
	if len(columns) > 0 {
		fmt.Fprintf(sb, "Columns: %s\n", strings.Join(columns, ", "))
	}
	if len(b.Rows) == 0 {
		sb.WriteString("(no rows)\n")
	}
	for i, row := range b.Rows {
		fmt.Fprintf(sb, "%d. %s\n", i+1, FormatRow(row, columns))
	}
	fmt.Fprintf(sb, "=== END REFERENCE DATA: %s ===", b.Meta.Name)
}

// FormatRow renders "col: value | col: value" in column order. Empty values are omitted.
func FormatRow(row entities.Row, columns []string) string {
	parts := make([]string, 0, len(row))
	for _, col := range columns {
		v, ok := row[col]
		if !ok {
			continue
		}
		s := strings.TrimSpace(Stringify(v))
		if s == "" {
			continue
		}
		parts = append(parts, col+": "+s)
	}
	return strings.Join(parts, " | ")
}

// RowColumns returns the advisory column list followed by any extra keys the
// rows carry, sorted.
func RowColumns(declared []string, rows []entities.Row) []string {
	seen := make(map[string]bool, len(declared))
	out := make([]string, 0, len(declared))
	for _, c := range declared {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}

	var extra []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}
