// Package query implements the transaction query engine: filter
// normalization, concurrent page/sums/count reads and envelope assembly.
package query

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"tally/internal/core"
)

// LedgerReader is the read surface the engine needs from the store. All
// three methods take the same filter, so the page, the grouped sums and the
// count always answer for one logical predicate.
type LedgerReader interface {
	TransactionPage(ctx context.Context, f core.ListFilter, limit, offset int) ([]core.Transaction, error)
	SumsByType(ctx context.Context, f core.ListFilter) (map[core.TransactionType]core.Money, error)
	CountTransactions(ctx context.Context, f core.ListFilter) (int64, error)
}

// Envelope bundles a page of transactions with the aggregate totals and
// pagination metadata for the same predicate.
type Envelope struct {
	Items      []core.Transaction `json:"items"`
	Totals     core.Totals        `json:"totals"`
	Page       int                `json:"page"`
	PageSize   int                `json:"pageSize"`
	TotalCount int64              `json:"totalCount"`
}

// TotalPages derives the page count from TotalCount and PageSize. It is
// never below 1, so an empty result still has a first page.
func (e Envelope) TotalPages() int64 {
	pages := (e.TotalCount + int64(e.PageSize) - 1) / int64(e.PageSize)
	if pages < 1 {
		return 1
	}
	return pages
}

// Engine answers list queries against a ledger store. It holds no state of
// its own and performs no writes.
type Engine struct {
	store LedgerReader
}

func NewEngine(store LedgerReader) *Engine {
	return &Engine{store: store}
}

// List returns one page of transactions matching the filter together with
// grouped totals and the total match count.
//
// Page and pageSize are normalized, never rejected: pages below 1 clamp to 1
// and a pageSize outside {10, 20, 50} falls back to 10. The three reads run
// concurrently and are joined before the envelope is assembled.
func (e *Engine) List(ctx context.Context, f core.ListFilter, page, pageSize int) (Envelope, error) {
	page = core.NormalizePage(page)
	pageSize = core.NormalizePageSize(pageSize)
	offset := (page - 1) * pageSize

	var (
		items []core.Transaction
		sums  map[core.TransactionType]core.Money
		count int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = e.store.TransactionPage(gctx, f, pageSize, offset)
		if err != nil {
			return fmt.Errorf("transaction page: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		sums, err = e.store.SumsByType(gctx, f)
		if err != nil {
			return fmt.Errorf("grouped sums: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		count, err = e.store.CountTransactions(gctx, f)
		if err != nil {
			return fmt.Errorf("match count: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Envelope{}, fmt.Errorf("list transactions: %w", err)
	}

	income := sums[core.Income]
	expense := sums[core.Expense]

	slog.DebugContext(ctx, "List query answered",
		"page", page,
		"page_size", pageSize,
		"items", len(items),
		"total_count", count)

	if items == nil {
		items = []core.Transaction{}
	}
	return Envelope{
		Items: items,
		Totals: core.Totals{
			Income:  income,
			Expense: expense,
			Net:     income.Sub(expense),
		},
		Page:       page,
		PageSize:   pageSize,
		TotalCount: count,
	}, nil
}
