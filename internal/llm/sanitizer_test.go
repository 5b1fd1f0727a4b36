package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain text untouched",
			in:   "Tenemos el Corolla 2019 por 18500 USD.",
			want: "Tenemos el Corolla 2019 por 18500 USD.",
		},
		{
			name: "leaked xml tool markup",
			in:   "Claro.\n<function_calls><invoke name=\"query_database\"><parameter name=\"searchQuery\">corolla</parameter></invoke></function_calls>\nEl precio es 18500.",
			want: "Claro.\n\nEl precio es 18500.",
		},
		{
			name: "stray tool tags",
			in:   "<tool_call>Hola</tool_call> amigo </tool_result>",
			want: "amigo",
		},
		{
			name: "tool-like code fence",
			in:   "Listo.\n```json\n{\"tool\": \"create_order\", \"arguments\": {}}\n```\nTu pedido está en proceso.",
			want: "Listo.\n\nTu pedido está en proceso.",
		},
		{
			name: "ordinary code fence kept",
			in:   "Horario:\n```\nLun-Vie 9-18\n```",
			want: "Horario:\n```\nLun-Vie 9-18\n```",
		},
		{
			name: "inline call",
			in:   "query_database({\"searchQuery\": \"camisa\"}) Sí tenemos camisas.",
			want: "Sí tenemos camisas.",
		},
		{
			name: "spanish narration",
			in:   "Déjame revisar el inventario. Sí, hay 3 unidades.",
			want: "Sí, hay 3 unidades.",
		},
		{
			name: "english narration",
			in:   "Let me check that for you... We have 3 units left.",
			want: "We have 3 units left.",
		},
		{
			name: "searching phrase",
			in:   "Buscando en la base de datos...\nEl modelo cuesta 200.",
			want: "El modelo cuesta 200.",
		},
		{
			name: "narration before a price keeps the answer",
			in:   "Claro, déjame revisar: el Ford Ranger 2020 cuesta $30,000 y hay 3 en stock.",
			want: "Claro, el Ford Ranger 2020 cuesta $30,000 y hay 3 en stock.",
		},
		{
			name: "english narration before a price keeps the answer",
			in:   "Sure, let me check: the Ranger costs $30,000 and we have 3 in stock.",
			want: "Sure, the Ranger costs $30,000 and we have 3 in stock.",
		},
		{
			name: "un momento inside a sentence with an order number",
			in:   "Claro, en un momento le enviamos su pedido PED-00008 por $45,000.",
			want: "Claro, en un momento le enviamos su pedido PED-00008 por $45,000.",
		},
		{
			name: "blank line runs collapse",
			in:   "Hola\n\n\n\n\nAdiós   \n\n\n",
			want: "Hola\n\nAdiós",
		},
		{
			name: "only narration",
			in:   "Un momento, por favor.",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}
