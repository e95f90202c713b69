package schema

import "strings"

type Role int

const (
	RoleTimestamp Role = iota
	RoleTotal
	RolePayment
)

func (r Role) String() string {
	switch r {
	case RoleTimestamp:
		return "timestamp"
	case RoleTotal:
		return "total"
	case RolePayment:
		return "payment"
	default:
		return "unknown"
	}
}

var roleKeywords = []struct {
	role     Role
	keywords []string
}{
	{RoleTimestamp, []string{"data", "hora", "datetime"}},
	{RoleTotal, []string{"total", "valor"}},
	{RolePayment, []string{"pagamento", "forma"}},
}

// MatchRole classifies a column name. Each column takes at most one role and
// the checks run in timestamp, total, payment order; "id" never matches.
func MatchRole(column string) (Role, bool) {
	name := strings.ToLower(strings.TrimSpace(column))
	if name == "" || name == "id" {
		return 0, false
	}
	for _, rk := range roleKeywords {
		for _, kw := range rk.keywords {
			if strings.Contains(name, kw) {
				return rk.role, true
			}
		}
	}
	return 0, false
}

// Layout maps the roles a table exposes to their actual column names.
// A missing key means the table has no column for that role.
type Layout struct {
	Table    string
	Columns  map[Role]string
	Fallback bool
}

// Resolve assigns roles from catalog columns listed in ordinal order.
// Only the roles asked for are kept and the first matching column wins.
func Resolve(table string, columns []string, wanted ...Role) Layout {
	want := make(map[Role]bool, len(wanted))
	for _, r := range wanted {
		want[r] = true
	}

	layout := Layout{Table: table, Columns: make(map[Role]string, len(wanted))}
	for _, col := range columns {
		role, ok := MatchRole(col)
		if !ok || !want[role] {
			continue
		}
		if _, taken := layout.Columns[role]; !taken {
			layout.Columns[role] = col
		}
	}
	return layout
}

func (l Layout) Column(role Role) (string, bool) {
	name, ok := l.Columns[role]
	return name, ok
}

const (
	OrderTable     = "pedidos"
	OrderLineTable = "pedido_itens"
)

var canonicalColumns = map[Role]string{
	RoleTimestamp: "data_hora",
	RoleTotal:     "total",
	RolePayment:   "forma_pagamento",
}

// OrderFallback is assumed when the order table's catalog cannot be read:
// every role present under its canonical name.
func OrderFallback() Layout {
	cols := make(map[Role]string, len(canonicalColumns))
	for r, c := range canonicalColumns {
		cols[r] = c
	}
	return Layout{Table: OrderTable, Columns: cols, Fallback: true}
}

// OrderLineFallback assumes no per-line payment column.
func OrderLineFallback() Layout {
	return Layout{Table: OrderLineTable, Columns: map[Role]string{}, Fallback: true}
}

// OrderSchema is the resolved write layout for one sale.
type OrderSchema struct {
	Order     Layout
	OrderLine Layout
	// Cached is set when the layout was served from a cache and may predate
	// a column change.
	Cached bool
}
