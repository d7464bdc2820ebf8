package domain

import (
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strings"
	"time"
)

const (
	// EqPrefix marks a query value as an equality predicate.
	EqPrefix = "eq."

	// OrderParam is the reserved query parameter that selects the sort order.
	OrderParam = "order"
)

// Predicate is a single equality test on a JSON field.
type Predicate struct {
	Field string
	Value string
}

// Order sorts results chronologically on Field.
type Order struct {
	Field string
	Desc  bool
}

// Filter is a conjunction of equality predicates with an optional order.
// The zero value matches every review and keeps insertion order.
type Filter struct {
	Predicates []Predicate
	Order      *Order
}

// ParseFilter builds a Filter from PostgREST-style query parameters such as
// shop_id=eq.S&order=created_at.desc. Values without the eq. prefix are
// ignored. Only the first value of a repeated key is used.
func ParseFilter(q url.Values) Filter {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var f Filter
	for _, key := range keys {
		values := q[key]
		if len(values) == 0 {
			continue
		}
		value := values[0]

		if key == OrderParam {
			if value == "" {
				continue
			}
			field, dir, _ := strings.Cut(value, ".")
			f.Order = &Order{Field: field, Desc: dir == "desc"}
			continue
		}

		if v, ok := strings.CutPrefix(value, EqPrefix); ok {
			f.Predicates = append(f.Predicates, Predicate{Field: key, Value: v})
		}
	}
	return f
}

// Eq returns a copy of f with an additional equality predicate.
func (f Filter) Eq(field, value string) Filter {
	preds := make([]Predicate, 0, len(f.Predicates)+1)
	preds = append(preds, f.Predicates...)
	f.Predicates = append(preds, Predicate{Field: field, Value: value})
	return f
}

// Matches reports whether r satisfies every predicate. A predicate on an
// unknown field never matches.
func (f Filter) Matches(r *Review) bool {
	for _, p := range f.Predicates {
		v, ok := r.Field(p.Field)
		if !ok || v != p.Value {
			return false
		}
	}
	return true
}

// Apply returns the matching reviews in a new slice, stably sorted by the
// filter's order. The result is never nil.
func (f Filter) Apply(reviews []Review) []Review {
	out := make([]Review, 0, len(reviews))
	for i := range reviews {
		if f.Matches(&reviews[i]) {
			out = append(out, reviews[i])
		}
	}

	if f.Order == nil {
		return out
	}

	field, desc := f.Order.Field, f.Order.Desc
	slices.SortStableFunc(out, func(a, b Review) int {
		c := orderTime(&a, field).Compare(orderTime(&b, field))
		if desc {
			return -c
		}
		return c
	})
	return out
}

// orderTime reads field as a timestamp. Unknown fields and unparseable
// values yield the zero time.
func orderTime(r *Review, field string) time.Time {
	if field == "created_at" {
		return r.CreatedAt
	}
	v, ok := r.Field(field)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// sqlColumns maps filterable JSON fields to column expressions.
var sqlColumns = map[string]string{
	"id":          "id",
	"shop_id":     "shop_id",
	"product_id":  "product_id",
	"rating":      "CAST(rating AS TEXT)",
	"comment":     "comment",
	"author_name": "author_name",
	"status":      "status",
	"created_at":  "created_at",
}

// SQL translates the filter into a WHERE clause and an ORDER BY clause for
// the reviews table. Placeholders are numbered from argStart. Predicates on
// unknown fields become FALSE. Rows that tie on the order key, or all rows
// when no chronological order applies, keep insertion order via seq.
func (f Filter) SQL(argStart int) (where, orderBy string, args []any) {
	conds := make([]string, 0, len(f.Predicates))
	n := argStart

	for _, p := range f.Predicates {
		col, ok := sqlColumns[p.Field]
		if !ok {
			conds = append(conds, "FALSE")
			continue
		}

		if p.Field == "created_at" {
			// Equality is on the canonical RFC 3339 form, so the value must
			// round-trip exactly.
			t, err := time.Parse(time.RFC3339Nano, p.Value)
			if err != nil || t.UTC().Format(time.RFC3339Nano) != p.Value {
				conds = append(conds, "FALSE")
				continue
			}
			conds = append(conds, fmt.Sprintf("%s = $%d", col, n))
			args = append(args, t)
			n++
			continue
		}

		conds = append(conds, fmt.Sprintf("%s = $%d", col, n))
		args = append(args, p.Value)
		n++
	}

	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	orderBy = "ORDER BY seq"
	if f.Order != nil && f.Order.Field == "created_at" {
		if f.Order.Desc {
			orderBy = "ORDER BY created_at DESC, seq"
		} else {
			orderBy = "ORDER BY created_at, seq"
		}
	}

	return where, orderBy, args
}
