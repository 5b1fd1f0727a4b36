package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		terms []string
		years []string
	}{
		{
			name:  "spanish question with model year",
			text:  "¿Tienen el Toyota Corolla 2019 en stock?",
			terms: []string{"toyota", "corolla", "stock"},
			years: []string{"2019"},
		},
		{
			name:  "accented letters survive punctuation stripping",
			text:  "Precio del café: ¡3 años!",
			terms: []string{"precio", "café", "años"},
		},
		{
			name:  "english stopwords dropped",
			text:  "What is the price of the blue shirt?",
			terms: []string{"price", "blue", "shirt"},
		},
		{
			name:  "duplicates collapse",
			text:  "rojo ROJO rojo, 24 24",
			terms: []string{"rojo"},
			years: []string{"24"},
		},
		{
			name: "only stopwords and short tokens",
			text: "hola, ¿qué es? ok",
		},
		{
			name:  "two digit year keeps its leading zero",
			text:  "modelo 08",
			terms: []string{"modelo"},
			years: []string{"08"},
		},
		{
			name:  "five digit numbers are terms not years",
			text:  "código 12345",
			terms: []string{"código", "12345"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := ParseQuery(tt.text)
			assert.Equal(t, tt.terms, q.Terms)
			assert.Equal(t, tt.years, q.Years)
		})
	}
}

func TestParseQuery_Deterministic(t *testing.T) {
	text := "Busco zapatos negros talla 42 modelo 2021, baratos"
	first := ParseQuery(text)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, ParseQuery(text))
	}
}

func TestQuery_Empty(t *testing.T) {
	assert.True(t, Query{}.Empty())
	assert.False(t, Query{Years: []string{"2020"}}.Empty())
	assert.False(t, Query{Terms: []string{"x"}}.Empty())
}
