package domain

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReviews() []Review {
	return []Review{
		{ID: "a", ShopID: "s1", ProductID: "p1", Rating: 5, Status: StatusApproved, CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "b", ShopID: "s1", ProductID: "p1", Rating: 4, Status: StatusApproved, CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "c", ShopID: "s1", ProductID: "p1", Rating: 3, Status: StatusPending, CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "d", ShopID: "s2", ProductID: "p1", Rating: 2, Status: StatusApproved, CreatedAt: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "e", ShopID: "s1", ProductID: "p2", Rating: 1, Status: StatusApproved, CreatedAt: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)},
	}
}

func ids(reviews []Review) []string {
	out := make([]string, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, r.ID)
	}
	return out
}

// ============================================================================
// ParseFilter Tests
// ============================================================================

func TestParseFilter_EqPredicatesAndOrder(t *testing.T) {
	q := url.Values{
		"shop_id":    {"eq.s1"},
		"product_id": {"eq.p1"},
		"order":      {"created_at.desc"},
	}

	f := ParseFilter(q)

	assert.ElementsMatch(t, []Predicate{
		{Field: "shop_id", Value: "s1"},
		{Field: "product_id", Value: "p1"},
	}, f.Predicates)
	require.NotNil(t, f.Order)
	assert.Equal(t, "created_at", f.Order.Field)
	assert.True(t, f.Order.Desc)
}

func TestParseFilter_IgnoresValuesWithoutEqPrefix(t *testing.T) {
	f := ParseFilter(url.Values{"shop_id": {"s1"}, "rating": {"gt.3"}})
	assert.Empty(t, f.Predicates)
	assert.Nil(t, f.Order)
}

func TestParseFilter_FirstValueWins(t *testing.T) {
	f := ParseFilter(url.Values{"shop_id": {"eq.s1", "eq.s2"}})
	require.Len(t, f.Predicates, 1)
	assert.Equal(t, "s1", f.Predicates[0].Value)
}

func TestParseFilter_OrderDirectionDefaultsToAscending(t *testing.T) {
	for _, v := range []string{"created_at.asc", "created_at", "created_at.sideways"} {
		f := ParseFilter(url.Values{"order": {v}})
		require.NotNil(t, f.Order, v)
		assert.Equal(t, "created_at", f.Order.Field, v)
		assert.False(t, f.Order.Desc, v)
	}
}

func TestParseFilter_EmptyEqValue(t *testing.T) {
	f := ParseFilter(url.Values{"comment": {"eq."}})
	require.Len(t, f.Predicates, 1)
	assert.Equal(t, "", f.Predicates[0].Value)
}

// ============================================================================
// Apply Tests
// ============================================================================

func TestApply_ConjunctionAndDescendingOrder(t *testing.T) {
	f := ParseFilter(url.Values{
		"shop_id":    {"eq.s1"},
		"product_id": {"eq.p1"},
		"status":     {"eq.approved"},
		"order":      {"created_at.desc"},
	})

	got := f.Apply(sampleReviews())
	assert.Equal(t, []string{"b", "a"}, ids(got))
}

func TestApply_AscendingOrder(t *testing.T) {
	f := ParseFilter(url.Values{"shop_id": {"eq.s1"}, "order": {"created_at.asc"}})
	got := f.Apply(sampleReviews())
	assert.Equal(t, []string{"a", "c", "b", "e"}, ids(got))
}

func TestApply_NoOrderKeepsInsertionOrder(t *testing.T) {
	got := Filter{}.Apply(sampleReviews())
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(got))
}

func TestApply_RatingComparesAsString(t *testing.T) {
	f := ParseFilter(url.Values{"rating": {"eq.5"}})
	assert.Equal(t, []string{"a"}, ids(f.Apply(sampleReviews())))

	f = ParseFilter(url.Values{"rating": {"eq.05"}})
	assert.Empty(t, f.Apply(sampleReviews()))
}

func TestApply_UnknownFieldMatchesNothing(t *testing.T) {
	f := ParseFilter(url.Values{"colour": {"eq.red"}})
	got := f.Apply(sampleReviews())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestApply_NoMatchReturnsEmptySlice(t *testing.T) {
	f := ParseFilter(url.Values{"shop_id": {"eq.nope"}})
	got := f.Apply(sampleReviews())
	assert.NotNil(t, got)
	assert.Len(t, got, 0)
}

func TestApply_UnparseableOrderFieldKeepsInsertionOrder(t *testing.T) {
	f := ParseFilter(url.Values{"order": {"author_name.desc"}})
	got := f.Apply(sampleReviews())
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(got))
}

func TestApply_StableOnTies(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	in := []Review{{ID: "x", CreatedAt: ts}, {ID: "y", CreatedAt: ts}, {ID: "z", CreatedAt: ts.Add(time.Hour)}}

	f := ParseFilter(url.Values{"order": {"created_at.desc"}})
	assert.Equal(t, []string{"z", "x", "y"}, ids(f.Apply(in)))
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	in := sampleReviews()
	f := ParseFilter(url.Values{"order": {"created_at.desc"}})
	_ = f.Apply(in)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(in))
}

func TestApply_CreatedAtEquality(t *testing.T) {
	f := ParseFilter(url.Values{"created_at": {"eq.2026-02-01T00:00:00Z"}})
	assert.Equal(t, []string{"c"}, ids(f.Apply(sampleReviews())))
}

func TestFilter_Eq(t *testing.T) {
	base := ParseFilter(url.Values{"shop_id": {"eq.s1"}})
	f := base.Eq("status", "approved")

	assert.Len(t, base.Predicates, 1)
	assert.Len(t, f.Predicates, 2)
	assert.Equal(t, []string{"a", "b", "e"}, ids(f.Apply(sampleReviews())))
}

// ============================================================================
// SQL Translation Tests
// ============================================================================

func TestSQL_EmptyFilter(t *testing.T) {
	where, orderBy, args := Filter{}.SQL(1)
	assert.Empty(t, where)
	assert.Equal(t, "ORDER BY seq", orderBy)
	assert.Empty(t, args)
}

func TestSQL_PredicatesAndOrder(t *testing.T) {
	f := Filter{
		Predicates: []Predicate{
			{Field: "shop_id", Value: "s1"},
			{Field: "rating", Value: "5"},
			{Field: "status", Value: "approved"},
		},
		Order: &Order{Field: "created_at", Desc: true},
	}

	where, orderBy, args := f.SQL(1)

	assert.Equal(t, "WHERE shop_id = $1 AND CAST(rating AS TEXT) = $2 AND status = $3", where)
	assert.Equal(t, "ORDER BY created_at DESC, seq", orderBy)
	assert.Equal(t, []any{"s1", "5", "approved"}, args)
}

func TestSQL_ArgStartOffset(t *testing.T) {
	f := Filter{Predicates: []Predicate{{Field: "product_id", Value: "p1"}}}
	where, _, args := f.SQL(3)
	assert.Equal(t, "WHERE product_id = $3", where)
	assert.Equal(t, []any{"p1"}, args)
}

func TestSQL_UnknownFieldIsFalse(t *testing.T) {
	f := Filter{Predicates: []Predicate{
		{Field: "colour", Value: "red"},
		{Field: "shop_id", Value: "s1"},
	}}
	where, _, args := f.SQL(1)
	assert.Equal(t, "WHERE FALSE AND shop_id = $1", where)
	assert.Equal(t, []any{"s1"}, args)
}

func TestSQL_CreatedAtEquality(t *testing.T) {
	f := Filter{Predicates: []Predicate{{Field: "created_at", Value: "2026-02-01T00:00:00Z"}}}
	where, _, args := f.SQL(1)
	assert.Equal(t, "WHERE created_at = $1", where)
	require.Len(t, args, 1)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), args[0])

	f = Filter{Predicates: []Predicate{{Field: "created_at", Value: "yesterday"}}}
	where, _, args = f.SQL(1)
	assert.Equal(t, "WHERE FALSE", where)
	assert.Empty(t, args)
}

func TestSQL_NonChronologicalOrderFallsBackToSeq(t *testing.T) {
	f := Filter{Order: &Order{Field: "author_name", Desc: true}}
	_, orderBy, _ := f.SQL(1)
	assert.Equal(t, "ORDER BY seq", orderBy)

	f = Filter{Order: &Order{Field: "created_at"}}
	_, orderBy, _ = f.SQL(1)
	assert.Equal(t, "ORDER BY created_at, seq", orderBy)
}
