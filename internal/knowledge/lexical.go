package knowledge

import (
	"strings"
	"unicode"
)

// Query is the normalized form of a free-text message used for row ranking.
type Query struct {
	Terms []string
	// Years keep the digits as typed so "08" never matches a bare 8.
	Years []string
}

func (q Query) Empty() bool {
	return len(q.Terms) == 0 && len(q.Years) == 0
}

var stopwords = map[string]bool{
	// es
	"que": true, "los": true, "las": true, "del": true, "una": true, "uno": true, "unos": true,
	"unas": true, "por": true, "para": true, "con": true, "sin": true, "como": true, "pero": true,
	"mas": true, "más": true, "este": true, "esta": true, "esto": true, "estos": true, "estas": true,
	"ese": true, "esa": true, "eso": true, "sus": true, "hay": true, "tiene": true, "tienen": true,
	"tienes": true, "quiero": true, "busco": true, "necesito": true, "hola": true, "buenas": true,
	"buenos": true, "dias": true, "días": true, "tardes": true, "noches": true, "gracias": true,
	"favor": true, "cual": true, "cuál": true, "cuales": true, "cuáles": true, "cuanto": true,
	"cuánto": true, "cuanta": true, "cuánta": true, "donde": true, "dónde": true, "cuando": true,
	"cuándo": true, "qué": true, "son": true, "está": true, "están": true, "estan": true,
	"algo": true, "alguno": true, "alguna": true, "algún": true, "sobre": true, "entre": true,
	"muy": true, "puede": true, "pueden": true, "puedo": true, "quisiera": true, "saber": true,
	"información": true, "informacion": true,
	// en
	"the": true, "and": true, "for": true, "are": true, "but": true, "not": true, "you": true,
	"your": true, "all": true, "any": true, "can": true, "had": true, "her": true, "was": true,
	"one": true, "our": true, "out": true, "has": true, "have": true, "his": true, "how": true,
	"its": true, "may": true, "who": true, "did": true, "get": true, "with": true, "this": true,
	"that": true, "these": true, "those": true, "from": true, "what": true, "which": true,
	"when": true, "where": true, "there": true, "about": true, "would": true, "could": true,
	"should": true, "want": true, "need": true, "looking": true, "hello": true, "hi": true,
	"thanks": true, "please": true, "some": true, "does": true, "tell": true, "know": true,
	"information": true,
}

// ParseQuery lowercases text, strips punctuation (keeping accented letters),
// drops short tokens and stopwords, and pulls explicit 2-4 digit years out
// verbatim.
// Terms and years keep first-occurrence order and contain no duplicates.
func ParseQuery(text string) Query {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, strings.ToLower(text))

	var q Query
	seenTerm := make(map[string]bool)
	seenYear := make(map[string]bool)

	for _, tok := range strings.Fields(cleaned) {
		if isYear(tok) {
			if !seenYear[tok] {
				seenYear[tok] = true
				q.Years = append(q.Years, tok)
			}
			continue
		}
		if len([]rune(tok)) <= 2 || stopwords[tok] || seenTerm[tok] {
			continue
		}
		seenTerm[tok] = true
		q.Terms = append(q.Terms, tok)
	}
	return q
}

func isYear(tok string) bool {
	if len(tok) < 2 || len(tok) > 4 {
		return false
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
