package knowledge

import (
	"strings"
	"testing"

	"crm_engine/internal/entities"

	"github.com/stretchr/testify/assert"
)

func TestCompose(t *testing.T) {
	bases := []Base{{
		Meta: entities.KnowledgeBase{Name: "Catalog", Description: "Products for sale", Columns: []string{"product", "price"}},
		Rows: []entities.Row{
			{"product": "Tumbler", "price": float64(12.5), "stock": "yes"},
			{"product": "Mug", "price": ""},
		},
	}}

	prompt := Compose("  You are Ana, a sales assistant.  ", bases)

	assert.True(t, strings.HasPrefix(prompt, "You are Ana, a sales assistant.\n\n=== REFERENCE DATA: Catalog ==="))
	assert.Contains(t, prompt, "Description: Products for sale\n")
	assert.Contains(t, prompt, "Columns: product, price, stock\n")
	assert.Contains(t, prompt, "1. product: Tumbler | price: 12.5 | stock: yes\n")
	assert.Contains(t, prompt, "2. product: Mug\n")
	assert.Contains(t, prompt, "=== END REFERENCE DATA: Catalog ===")
	assert.True(t, strings.HasSuffix(prompt, behaviorRules))
	assert.Equal(t, prompt, Compose("  You are Ana, a sales assistant.  ", bases))
}

func TestCompose_NoBases(t *testing.T) {
	prompt := Compose("Base.", nil)
	assert.Equal(t, "Base.\n\n"+behaviorRules, prompt)
	assert.NotContains(t, prompt, "REFERENCE DATA")
}

func TestCompose_EmptyBase(t *testing.T) {
	prompt := Compose("Base.", []Base{{Meta: entities.KnowledgeBase{Name: "Empty"}}})
	assert.Contains(t, prompt, "=== REFERENCE DATA: Empty ===\n(no rows)\n=== END REFERENCE DATA: Empty ===")
}
