package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"tally/internal/amqp"
	"tally/internal/core"
)

type fakeLedger struct {
	nextID    int64
	inserted  []core.TransactionInput
	deleted   []int64
	insertErr error
	deleteErr error
}

func (f *fakeLedger) InsertTransaction(_ context.Context, in core.TransactionInput) (core.Transaction, error) {
	if f.insertErr != nil {
		return core.Transaction{}, f.insertErr
	}
	f.nextID++
	f.inserted = append(f.inserted, in)
	return core.Transaction{
		ID:         f.nextID,
		Type:       in.Type,
		Amount:     in.Amount,
		Date:       in.Date,
		Note:       in.Note,
		CategoryID: in.CategoryID,
	}, nil
}

func (f *fakeLedger) DeleteTransaction(_ context.Context, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakePublisher struct {
	events []*amqp.LedgerEvent
	err    error
}

func (f *fakePublisher) PublishEvent(_ context.Context, event *amqp.LedgerEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func validInput() core.TransactionInput {
	return core.TransactionInput{
		Type:       core.Expense,
		Amount:     core.Money{Cents: 1250},
		CategoryID: 2,
	}
}

func TestCreateDefaultsDateToNow(t *testing.T) {
	ledger := &fakeLedger{}
	svc := NewTransactionService(ledger, nil)

	before := time.Now().UTC()
	created, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	after := time.Now().UTC()

	if created.Date.Before(before) || created.Date.After(after) {
		t.Fatalf("expected date defaulted to now, got %v", created.Date)
	}
	if created.ID == 0 {
		t.Fatal("expected a server-assigned id")
	}
	if created.Note != nil {
		t.Fatalf("expected nil note, got %v", *created.Note)
	}
}

func TestCreateKeepsExplicitDate(t *testing.T) {
	ledger := &fakeLedger{}
	svc := NewTransactionService(ledger, nil)

	in := validInput()
	in.Date = time.Date(2025, 7, 14, 9, 30, 0, 0, time.UTC)
	created, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !created.Date.Equal(in.Date) {
		t.Fatalf("expected %v, got %v", in.Date, created.Date)
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	ledger := &fakeLedger{}
	svc := NewTransactionService(ledger, nil)

	cases := []struct {
		name   string
		mutate func(*core.TransactionInput)
		want   error
	}{
		{"missing type", func(in *core.TransactionInput) { in.Type = "" }, core.ErrInvalidType},
		{"zero amount", func(in *core.TransactionInput) { in.Amount = core.Money{} }, core.ErrInvalidAmount},
		{"missing category", func(in *core.TransactionInput) { in.CategoryID = 0 }, core.ErrMissingCategory},
	}
	for _, tc := range cases {
		in := validInput()
		tc.mutate(&in)
		_, err := svc.Create(context.Background(), in)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if len(ledger.inserted) != 0 {
		t.Fatalf("invalid inputs must not reach the store, got %d inserts", len(ledger.inserted))
	}
}

func TestCreatePublishesEvent(t *testing.T) {
	ledger := &fakeLedger{}
	events := &fakePublisher{}
	svc := NewTransactionService(ledger, events)

	created, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(events.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events.events))
	}
	if events.events[0].Kind != amqp.EventTransactionCreated || events.events[0].ID != created.ID {
		t.Fatalf("unexpected event %+v", events.events[0])
	}
}

func TestCreateSurvivesPublishFailure(t *testing.T) {
	ledger := &fakeLedger{}
	events := &fakePublisher{err: errors.New("broker down")}
	svc := NewTransactionService(ledger, events)

	if _, err := svc.Create(context.Background(), validInput()); err != nil {
		t.Fatalf("publish failure must not fail the create: %v", err)
	}
	if len(ledger.inserted) != 1 {
		t.Fatalf("expected the insert to land, got %d", len(ledger.inserted))
	}
}

func TestDeletePublishesEvent(t *testing.T) {
	ledger := &fakeLedger{}
	events := &fakePublisher{}
	svc := NewTransactionService(ledger, events)

	if err := svc.Delete(context.Background(), 42); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(ledger.deleted) != 1 || ledger.deleted[0] != 42 {
		t.Fatalf("expected delete of id 42, got %v", ledger.deleted)
	}
	if len(events.events) != 1 || events.events[0].Kind != amqp.EventTransactionDeleted {
		t.Fatalf("expected a deleted event, got %v", events.events)
	}
}

func TestDeleteNotFoundPassesThrough(t *testing.T) {
	ledger := &fakeLedger{deleteErr: core.ErrNotFound}
	events := &fakePublisher{}
	svc := NewTransactionService(ledger, events)

	if err := svc.Delete(context.Background(), 99); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(events.events) != 0 {
		t.Fatal("no event must be published for a failed delete")
	}
}
