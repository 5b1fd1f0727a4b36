package tools

import (
	"encoding/json"

	"crm_engine/internal/llm"

	"github.com/invopop/jsonschema"
)

const (
	QueryDatabase = "query_database"
	SaveContact   = "save_contact"
	CreateOrder   = "create_order"
)

type QueryDatabaseArgs struct {
	SearchQuery string            `json:"searchQuery,omitempty" jsonschema:"description=Free-text search over the knowledge base rows"`
	Filters     map[string]string `json:"filters,omitempty" jsonschema:"description=Exact column filters; each value must appear in that column (case-insensitive)"`
	Limit       int               `json:"limit,omitempty" jsonschema:"description=Maximum rows to return (at most 50),minimum=1,maximum=50"`
}

type SaveContactArgs struct {
	Name    string `json:"name" jsonschema:"description=Full name of the customer"`
	Phone   string `json:"phone" jsonschema:"description=Phone number including country code"`
	Company string `json:"company,omitempty" jsonschema:"description=Company name"`
	Email   string `json:"email,omitempty" jsonschema:"description=Email address"`
}

type OrderItemArgs struct {
	Product   string  `json:"product" jsonschema:"description=Product name exactly as listed in the reference data"`
	Quantity  float64 `json:"quantity" jsonschema:"description=Units ordered (greater than zero),minimum=0"`
	UnitPrice float64 `json:"unitPrice" jsonschema:"description=Price per unit from the reference data,minimum=0"`
}

type CreateOrderArgs struct {
	Items []OrderItemArgs `json:"items" jsonschema:"description=Line items of the order,minItems=1"`
	Notes string          `json:"notes,omitempty" jsonschema:"description=Delivery or other notes"`
}

var reflector = &jsonschema.Reflector{
	AllowAdditionalProperties: false,
	DoNotReference:            true,
	ExpandedStruct:            true,
}

// parameters reflects v into a plain JSON schema map without the $schema key,
// which neither provider accepts inside a tool definition.
func parameters(v any) map[string]any {
	raw, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		panic(err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	delete(out, "$schema")
	delete(out, "$id")
	return out
}

var catalog = []llm.ToolSpec{
	{
		Name:        QueryDatabase,
		Description: "Search the loaded knowledge base rows (products, prices, stock, specifications). Use it before quoting any data that is not already in the conversation.",
		Parameters:  parameters(&QueryDatabaseArgs{}),
	},
	{
		Name:        SaveContact,
		Description: "Save or update the customer's contact details. The phone number identifies the contact.",
		Parameters:  parameters(&SaveContactArgs{}),
	},
	{
		Name:        CreateOrder,
		Description: "Create an order for the customer. Returns the order number and total, which must be relayed exactly.",
		Parameters:  parameters(&CreateOrderArgs{}),
	},
}

// Catalog returns the fixed tool set offered to every agent.
func Catalog() []llm.ToolSpec {
	return append([]llm.ToolSpec(nil), catalog...)
}
