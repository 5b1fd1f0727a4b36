package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"crm_engine/internal/entities"
	"crm_engine/internal/knowledge"
	"crm_engine/internal/llm"
	"crm_engine/internal/metrics"
	"crm_engine/internal/repository"
	logx "crm_engine/pkg/logger"
)

const (
	defaultQueryLimit = 10
	maxQueryLimit     = 50

	acknowledgement = "Acknowledged."
)

// Context identifies who a tool call acts on behalf of.
type Context struct {
	OrganizationID string
	ConversationID string
	ContactName    string
	ContactPhone   string
}

// Executor runs tool calls for one orchestrator run. query_database reads only
// the bases handed in at construction; the write tools go to the repositories.
type Executor struct {
	contacts repository.ContactRepository
	orders   repository.OrderRepository
	bases    []knowledge.Base
	tc       Context
}

func NewExecutor(contacts repository.ContactRepository, orders repository.OrderRepository, bases []knowledge.Base, tc Context) *Executor {
	return &Executor{contacts: contacts, orders: orders, bases: bases, tc: tc}
}

func (e *Executor) Execute(ctx context.Context, call llm.ToolCall) string {
	var (
		result string
		err    error
	)
	switch call.Name {
	case QueryDatabase:
		var args QueryDatabaseArgs
		if err = decodeArgs(call.Arguments, &args); err == nil {
			result = e.queryDatabase(args)
		}
	case SaveContact:
		var args SaveContactArgs
		if err = decodeArgs(call.Arguments, &args); err == nil {
			result, err = e.saveContact(ctx, args)
		}
	case CreateOrder:
		var args CreateOrderArgs
		if err = decodeArgs(call.Arguments, &args); err == nil {
			result, err = e.createOrder(ctx, args)
		}
	default:
		logx.Warn().Str("tool", call.Name).Str("org_id", e.tc.OrganizationID).Msg("unknown tool requested")
		metrics.ToolCallsTotal.WithLabelValues("unknown", "ignored").Inc()
		return acknowledgement
	}

	if err != nil {
		logx.Warn().Err(err).Str("tool", call.Name).Str("org_id", e.tc.OrganizationID).
			Str("conversation_id", e.tc.ConversationID).Msg("tool execution failed")
		metrics.ToolCallsTotal.WithLabelValues(call.Name, "error").Inc()
		return fmt.Sprintf("Error executing %s: %v", call.Name, err)
	}
	metrics.ToolCallsTotal.WithLabelValues(call.Name, "ok").Inc()
	return result
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

type queryHit struct {
	base    string
	columns []string
	row     entities.Row
	score   int
}

func (e *Executor) queryDatabase(args QueryDatabaseArgs) string {
	total := 0
	for _, b := range e.bases {
		total += len(b.Rows)
	}
	if total == 0 {
		return "No knowledge base is loaded for this agent."
	}

	limit := args.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}

	q := knowledge.ParseQuery(args.SearchQuery)
	var hits []queryHit
	for _, b := range e.bases {
		columns := knowledge.RowColumns(b.Meta.Columns, b.Rows)
		for _, row := range b.Rows {
			if !matchesFilters(row, args.Filters) {
				continue
			}
			score := 0
			if !q.Empty() {
				if score = knowledge.Score(row, q); score == 0 {
					continue
				}
			}
			hits = append(hits, queryHit{base: b.Meta.Name, columns: columns, row: row, score: score})
		}
	}

	if len(hits) == 0 {
		if args.SearchQuery != "" {
			return fmt.Sprintf("No results found for %q.", args.SearchQuery)
		}
		return "No results found."
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	shown := hits
	if len(shown) > limit {
		shown = shown[:limit]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d result(s), showing %d:\n", len(hits), len(shown))
	for i, h := range shown {
		fmt.Fprintf(&sb, "%d. [%s] %s\n", i+1, h.base, knowledge.FormatRow(h.row, h.columns))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// matchesFilters requires every filter column to exist on the row (key compared
// case-insensitively) and to contain the filter value.
func matchesFilters(row entities.Row, filters map[string]string) bool {
	for key, want := range filters {
		want = strings.ToLower(strings.TrimSpace(want))
		found := false
		for col, v := range row {
			if strings.EqualFold(col, key) && strings.Contains(strings.ToLower(knowledge.Stringify(v)), want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (e *Executor) saveContact(ctx context.Context, args SaveContactArgs) (string, error) {
	phone := NormalizePhone(args.Phone)
	if phone == "" {
		return "", errors.New("phone is required")
	}
	name := strings.TrimSpace(args.Name)

	existing, err := e.contacts.FindByPhone(ctx, e.tc.OrganizationID, phone)
	switch {
	case err == nil:
		if name != "" {
			existing.Name = name
		}
		if c := strings.TrimSpace(args.Company); c != "" {
			existing.Company = c
		}
		if m := strings.TrimSpace(args.Email); m != "" {
			existing.Email = m
		}
		if err := e.contacts.Update(ctx, existing); err != nil {
			return "", fmt.Errorf("update contact: %w", err)
		}
		return fmt.Sprintf("Contact updated: %s (%s).", existing.Name, existing.Phone), nil
	case !errors.Is(err, repository.ErrNotFound):
		return "", fmt.Errorf("find contact: %w", err)
	}

	if name == "" {
		name = e.tc.ContactName
	}
	contact := &entities.Contact{
		OrganizationID: e.tc.OrganizationID,
		Name:           name,
		Phone:          phone,
		Company:        strings.TrimSpace(args.Company),
		Email:          strings.TrimSpace(args.Email),
		FunnelStage:    entities.DefaultFunnelStage,
	}
	if err := e.contacts.Create(ctx, contact); err != nil {
		return "", fmt.Errorf("create contact: %w", err)
	}
	return fmt.Sprintf("Contact saved: %s (%s).", contact.Name, contact.Phone), nil
}

func (e *Executor) createOrder(ctx context.Context, args CreateOrderArgs) (string, error) {
	if len(args.Items) == 0 {
		return "", errors.New("an order needs at least one item")
	}

	items := make([]entities.OrderItem, 0, len(args.Items))
	var total float64
	for i, it := range args.Items {
		product := strings.TrimSpace(it.Product)
		if product == "" {
			return "", fmt.Errorf("item %d has no product", i+1)
		}
		if it.Quantity <= 0 {
			return "", fmt.Errorf("item %d (%s) has a non-positive quantity", i+1, product)
		}
		if it.UnitPrice < 0 {
			return "", fmt.Errorf("item %d (%s) has a negative price", i+1, product)
		}
		item := entities.OrderItem{Product: product, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
		total += item.Subtotal()
		items = append(items, item)
	}

	count, err := e.orders.Count(ctx, e.tc.OrganizationID)
	if err != nil {
		return "", fmt.Errorf("count orders: %w", err)
	}

	order := &entities.Order{
		OrganizationID: e.tc.OrganizationID,
		ConversationID: e.tc.ConversationID,
		OrderNumber:    entities.OrderNumber(count + 1),
		CustomerName:   e.tc.ContactName,
		CustomerPhone:  e.tc.ContactPhone,
		Items:          items,
		Total:          total,
		Notes:          strings.TrimSpace(args.Notes),
		Status:         entities.OrderStatusNew,
	}
	if err := e.orders.Create(ctx, order); err != nil {
		return "", fmt.Errorf("create order: %w", err)
	}
	return fmt.Sprintf("Order %s created. Total: %.2f. Status: %s.", order.OrderNumber, order.Total, order.Status), nil
}

// NormalizePhone keeps digits and a leading plus sign.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var sb strings.Builder
	for i, r := range phone {
		if r >= '0' && r <= '9' || (r == '+' && i == 0) {
			sb.WriteRune(r)
		}
	}
	if sb.String() == "+" {
		return ""
	}
	return sb.String()
}
