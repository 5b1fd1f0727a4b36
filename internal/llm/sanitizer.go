package llm

import (
	"regexp"
	"strings"
)

var (
	toolMarkupBlock = regexp.MustCompile(`(?s)<(function_calls|function_call|tool_call|tool_calls|tool_use|tool_result|invoke|parameter)\b[^>]*>.*?</(function_calls|function_call|tool_call|tool_calls|tool_use|tool_result|invoke|parameter)>`)
	toolMarkupTag   = regexp.MustCompile(`</?(function_calls|function_call|tool_call|tool_calls|tool_use|tool_result|invoke|parameter)\b[^>]*>`)
	toolCodeFence   = regexp.MustCompile("(?s)```[a-zA-Z_]*\\s*[^`]*?(query_database|save_contact|create_order|tool_call|\"arguments\"|\"tool\"\\s*:|\"function\"\\s*:)[^`]*?```")
	inlineToolCall  = regexp.MustCompile(`\b(query_database|save_contact|create_order)\s*\([^)]*\)`)

	narration = []*regexp.Regexp{
		narrationPhrase(`(déjame|dejame|permíteme|permiteme|perm[ií]tame|d[ée]jeme)\s+(revisar|verificar|consultar|buscar|checar|ver)`),
		narrationPhrase(`\b(voy a|estoy|ahora)\s+(revisar|verificar|consultar|buscar|checar|buscando|revisando|consultando|verificando)`),
		narrationPhrase(`\b(buscando|consultando|revisando|verificando)\s+(en\s+)?(la\s+|el\s+|nuestra\s+|nuestro\s+)?(base de datos|cat[aá]logo|inventario|sistema)`),
		narrationPhrase(`\bun momento\b`),
		narrationPhrase(`\b(let me|i'll|i will|allow me to)\s+(check|look|search|verify|query|look up)`),
		narrationPhrase(`\b(searching|checking|looking up|querying)\s+(the\s+|our\s+)?(database|catalog|inventory|system)`),
		narrationPhrase(`\bone moment\b`),
	}

	trailingSpace = regexp.MustCompile(`[ \t]+\n`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)
)

// narrationPhrase matches a phrase plus a short tail that must close with
// "...", "…", ":", "." or "!". The tail carries no digits or currency, so a
// sentence quoting prices or order numbers never matches.
func narrationPhrase(phrase string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + phrase + `[^.!?:\n\d$]{0,30}(\.\.\.|…|:|\.|!)[ \t]*`)
}

// Sanitize strips leaked tool markup and process narration from a model
// reply, then normalizes blank lines.
func Sanitize(text string) string {
	text = toolMarkupBlock.ReplaceAllString(text, "")
	text = toolMarkupTag.ReplaceAllString(text, "")
	text = toolCodeFence.ReplaceAllString(text, "")
	text = inlineToolCall.ReplaceAllString(text, "")
	for _, re := range narration {
		text = re.ReplaceAllString(text, "")
	}
	text = trailingSpace.ReplaceAllString(text, "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
