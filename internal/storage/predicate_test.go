package storage

import (
	"testing"
	"time"

	"tally/internal/core"
)

func TestWhereClauseEmpty(t *testing.T) {
	where, args := whereClause(core.ListFilter{})
	if where != "" || len(args) != 0 {
		t.Fatalf("empty filter expected no clause, got %q with %d args", where, len(args))
	}
}

func TestWhereClauseSingleConditions(t *testing.T) {
	kind := core.Expense
	from := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 8, 31, 23, 59, 59, 0, time.UTC)
	catID := int64(3)

	cases := []struct {
		name     string
		filter   core.ListFilter
		want     string
		argCount int
	}{
		{"type", core.ListFilter{Type: &kind}, " WHERE t.type = ?", 1},
		{"from", core.ListFilter{From: &from}, " WHERE t.date >= ?", 1},
		{"to", core.ListFilter{To: &to}, " WHERE t.date <= ?", 1},
		{"category", core.ListFilter{CategoryID: &catID}, " WHERE t.category_id = ?", 1},
	}
	for _, tc := range cases {
		where, args := whereClause(tc.filter)
		if where != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, where)
		}
		if len(args) != tc.argCount {
			t.Fatalf("%s: expected %d args, got %d", tc.name, tc.argCount, len(args))
		}
	}
}

func TestWhereClauseConjunction(t *testing.T) {
	kind := core.Income
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	catID := int64(7)

	where, args := whereClause(core.ListFilter{Type: &kind, From: &from, To: &to, CategoryID: &catID})
	want := " WHERE t.type = ? AND t.date >= ? AND t.date <= ? AND t.category_id = ?"
	if where != want {
		t.Fatalf("expected %q, got %q", want, where)
	}
	if len(args) != 4 {
		t.Fatalf("expected 4 args, got %d", len(args))
	}
	if args[0] != "INCOME" {
		t.Fatalf("expected first arg INCOME, got %v", args[0])
	}
	if args[3] != int64(7) {
		t.Fatalf("expected last arg 7, got %v", args[3])
	}
}

func TestWhereClauseNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	from := time.Date(2025, 8, 1, 2, 0, 0, 0, loc)
	_, args := whereClause(core.ListFilter{From: &from})
	got, ok := args[0].(time.Time)
	if !ok {
		t.Fatalf("expected time.Time arg, got %T", args[0])
	}
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC, got %v", got.Location())
	}
	if !got.Equal(from) {
		t.Fatalf("UTC conversion changed the instant: %v != %v", got, from)
	}
}
