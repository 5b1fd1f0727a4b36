package knowledge

import (
	"testing"

	"crm_engine/internal/entities"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	row := entities.Row{"marca": "Toyota", "modelo": "Corolla XEi", "año": float64(2019), "precio": 18500}

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"all terms and year", "toyota corolla 2019", 3},
		{"substring of a field", "coro", 1},
		{"year mismatch", "toyota 2020", 1},
		{"integer value", "18500", 1},
		{"nothing matches", "bicicleta", 0},
		{"empty query", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(row, ParseQuery(tt.query)))
		})
	}
}

func TestScore_ShortYearMatchesExactDigits(t *testing.T) {
	q := ParseQuery("modelo 08")

	assert.Equal(t, 0, Score(entities.Row{"year": "2018", "price": 1800}, q))
	assert.Equal(t, 1, Score(entities.Row{"year": "2008"}, q))
}

func TestScore_NeverNegativeAndMonotonic(t *testing.T) {
	rows := []entities.Row{
		{},
		{"a": nil},
		{"name": "camisa azul", "size": "XL"},
		{"name": "pantalón", "color": "azul marino"},
	}
	q := ParseQuery("camisa azul marino")
	for _, r := range rows {
		assert.GreaterOrEqual(t, Score(r, q), 0)
	}

	one := Score(rows[2], Query{Terms: []string{"camisa"}})
	two := Score(rows[2], Query{Terms: []string{"camisa", "azul"}})
	assert.Equal(t, 1, one)
	assert.Equal(t, 2, two)
}

func TestRank_StableDescending(t *testing.T) {
	rows := []entities.Row{
		{"id": "a", "desc": "red"},
		{"id": "b", "desc": "red shoe"},
		{"id": "c", "desc": "blue"},
		{"id": "d", "desc": "red"},
		{"id": "e", "desc": "red shoe"},
	}
	ranked := Rank(rows, Query{Terms: []string{"red", "shoe"}})

	var ids []string
	for _, r := range ranked {
		ids = append(ids, r["id"].(string))
	}
	assert.Equal(t, []string{"b", "e", "a", "d"}, ids)
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "12.5", Stringify(12.5))
	assert.Equal(t, "2019", Stringify(float64(2019)))
	assert.Equal(t, "true", Stringify(true))
	assert.Equal(t, "7", Stringify(7))
}
