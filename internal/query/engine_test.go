package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"tally/internal/core"
)

// fakeReader answers the three engine reads from an in-memory ledger,
// applying the filter the same way the SQL predicate would.
type fakeReader struct {
	transactions []core.Transaction

	// recorded arguments of the last TransactionPage call
	gotLimit  int
	gotOffset int

	pageErr  error
	sumsErr  error
	countErr error
}

func (f *fakeReader) matches(tx core.Transaction, filter core.ListFilter) bool {
	if filter.Type != nil && tx.Type != *filter.Type {
		return false
	}
	if filter.From != nil && tx.Date.Before(*filter.From) {
		return false
	}
	if filter.To != nil && tx.Date.After(*filter.To) {
		return false
	}
	if filter.CategoryID != nil && tx.CategoryID != *filter.CategoryID {
		return false
	}
	return true
}

func (f *fakeReader) TransactionPage(_ context.Context, filter core.ListFilter, limit, offset int) ([]core.Transaction, error) {
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	f.gotLimit = limit
	f.gotOffset = offset

	var matched []core.Transaction
	for _, tx := range f.transactions {
		if f.matches(tx, filter) {
			matched = append(matched, tx)
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (f *fakeReader) SumsByType(_ context.Context, filter core.ListFilter) (map[core.TransactionType]core.Money, error) {
	if f.sumsErr != nil {
		return nil, f.sumsErr
	}
	sums := make(map[core.TransactionType]core.Money)
	for _, tx := range f.transactions {
		if f.matches(tx, filter) {
			sums[tx.Type] = core.Money{Cents: sums[tx.Type].Cents + tx.Amount.Cents}
		}
	}
	return sums, nil
}

func (f *fakeReader) CountTransactions(_ context.Context, filter core.ListFilter) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	var count int64
	for _, tx := range f.transactions {
		if f.matches(tx, filter) {
			count++
		}
	}
	return count, nil
}

func seedLedger(n int, kind core.TransactionType, cents int64) []core.Transaction {
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	txs := make([]core.Transaction, n)
	for i := range txs {
		txs[i] = core.Transaction{
			ID:         int64(i + 1),
			Type:       kind,
			Amount:     core.Money{Cents: cents},
			Date:       base.Add(time.Duration(i) * time.Hour),
			CategoryID: 1,
		}
	}
	return txs
}

func TestListPageSizeFallback(t *testing.T) {
	store := &fakeReader{transactions: seedLedger(5, core.Expense, 100)}
	engine := NewEngine(store)

	for _, size := range []int{0, -3, 15, 999} {
		env, err := engine.List(context.Background(), core.ListFilter{}, 1, size)
		if err != nil {
			t.Fatalf("pageSize %d: %v", size, err)
		}
		if env.PageSize != 10 || store.gotLimit != 10 {
			t.Fatalf("pageSize %d expected fallback to 10, got envelope=%d limit=%d", size, env.PageSize, store.gotLimit)
		}
	}

	env, err := engine.List(context.Background(), core.ListFilter{}, 1, 50)
	if err != nil {
		t.Fatalf("pageSize 50: %v", err)
	}
	if env.PageSize != 50 {
		t.Fatalf("expected allowed pageSize 50 to pass through, got %d", env.PageSize)
	}
}

func TestListPageClamp(t *testing.T) {
	store := &fakeReader{transactions: seedLedger(5, core.Expense, 100)}
	engine := NewEngine(store)

	env, err := engine.List(context.Background(), core.ListFilter{}, -2, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if env.Page != 1 || store.gotOffset != 0 {
		t.Fatalf("expected clamp to page 1 offset 0, got page=%d offset=%d", env.Page, store.gotOffset)
	}

	if _, err := engine.List(context.Background(), core.ListFilter{}, 3, 20); err != nil {
		t.Fatalf("list: %v", err)
	}
	if store.gotOffset != 40 {
		t.Fatalf("expected offset 40 for page 3 size 20, got %d", store.gotOffset)
	}
}

func TestListTotalsNetInvariant(t *testing.T) {
	ledger := append(seedLedger(3, core.Income, 1000), seedLedger(4, core.Expense, 250)...)
	engine := NewEngine(&fakeReader{transactions: ledger})

	env, err := engine.List(context.Background(), core.ListFilter{}, 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if env.Totals.Income.Cents != 3000 {
		t.Fatalf("expected income 3000, got %d", env.Totals.Income.Cents)
	}
	if env.Totals.Expense.Cents != 1000 {
		t.Fatalf("expected expense 1000, got %d", env.Totals.Expense.Cents)
	}
	if env.Totals.Net.Cents != env.Totals.Income.Cents-env.Totals.Expense.Cents {
		t.Fatalf("net invariant broken: %d != %d - %d",
			env.Totals.Net.Cents, env.Totals.Income.Cents, env.Totals.Expense.Cents)
	}
}

func TestListAbsentGroupIsZero(t *testing.T) {
	kind := core.Expense
	engine := NewEngine(&fakeReader{transactions: seedLedger(25, core.Expense, 100)})

	env, err := engine.List(context.Background(), core.ListFilter{Type: &kind}, 3, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(env.Items) != 5 {
		t.Fatalf("expected 5 items on page 3 of 25, got %d", len(env.Items))
	}
	if env.TotalCount != 25 {
		t.Fatalf("expected totalCount 25, got %d", env.TotalCount)
	}
	if env.Totals.Income.Cents != 0 {
		t.Fatalf("expected zero income total, got %d", env.Totals.Income.Cents)
	}
	if env.Totals.Net.Cents != -2500 {
		t.Fatalf("expected net -2500, got %d", env.Totals.Net.Cents)
	}
}

func TestListInvertedDateRange(t *testing.T) {
	from := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	engine := NewEngine(&fakeReader{transactions: seedLedger(10, core.Income, 500)})

	env, err := engine.List(context.Background(), core.ListFilter{From: &from, To: &to}, 1, 10)
	if err != nil {
		t.Fatalf("inverted range must not error: %v", err)
	}
	if len(env.Items) != 0 || env.TotalCount != 0 {
		t.Fatalf("expected empty result, got %d items count=%d", len(env.Items), env.TotalCount)
	}
	if env.Totals != (core.Totals{}) {
		t.Fatalf("expected zero totals, got %+v", env.Totals)
	}
	if env.Items == nil {
		t.Fatal("items must be an empty slice, not nil")
	}
}

func TestListPropagatesStoreErrors(t *testing.T) {
	storeErr := errors.New("database locked")
	for _, store := range []*fakeReader{
		{pageErr: storeErr},
		{sumsErr: storeErr},
		{countErr: storeErr},
	} {
		_, err := NewEngine(store).List(context.Background(), core.ListFilter{}, 1, 10)
		if !errors.Is(err, storeErr) {
			t.Fatalf("expected store error to propagate, got %v", err)
		}
	}
}

func TestEnvelopeTotalPages(t *testing.T) {
	cases := []struct {
		count int64
		size  int
		want  int64
	}{
		{0, 10, 1},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 10, 3},
		{100, 50, 2},
	}
	for _, tc := range cases {
		env := Envelope{TotalCount: tc.count, PageSize: tc.size}
		if got := env.TotalPages(); got != tc.want {
			t.Fatalf("TotalPages(count=%d size=%d) expected %d, got %d", tc.count, tc.size, tc.want, got)
		}
	}
}
