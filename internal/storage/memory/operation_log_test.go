package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/sreeramp-official/solana-token-app/internal/domain"
	"github.com/sreeramp-official/solana-token-app/internal/storage"
)

func makeOperation(id, wallet string, ts int64) *domain.OperationRecord {
	return &domain.OperationRecord{
		OperationID: id,
		Kind:        domain.OperationSend,
		Wallet:      wallet,
		Mint:        "mint1",
		RawAmount:   "1500",
		Signature:   "sig-" + id,
		Status:      domain.OperationConfirmed,
		Timestamp:   ts,
	}
}

func TestOperationLog_InsertAndGetByID(t *testing.T) {
	store := NewOperationLog()
	ctx := context.Background()

	if err := store.Insert(ctx, makeOperation("op1", "wallet1", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "op1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Signature != "sig-op1" {
		t.Errorf("Signature mismatch: got %s", got.Signature)
	}
	if got.Kind != domain.OperationSend {
		t.Errorf("Kind mismatch: got %s", got.Kind)
	}
}

func TestOperationLog_Duplicate(t *testing.T) {
	store := NewOperationLog()
	ctx := context.Background()

	if err := store.Insert(ctx, makeOperation("op1", "wallet1", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	err := store.Insert(ctx, makeOperation("op1", "wallet1", 2000))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestOperationLog_GetByIDNotFound(t *testing.T) {
	store := NewOperationLog()

	_, err := store.GetByID(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestOperationLog_ListByWallet(t *testing.T) {
	store := NewOperationLog()
	ctx := context.Background()

	ops := []*domain.OperationRecord{
		makeOperation("a", "wallet1", 1000),
		makeOperation("b", "wallet2", 1500),
		makeOperation("c", "wallet1", 3000),
		makeOperation("d", "wallet1", 2000),
	}
	for _, op := range ops {
		if err := store.Insert(ctx, op); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.ListByWallet(ctx, "wallet1", 0)
	if err != nil {
		t.Fatalf("ListByWallet failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	want := []string{"c", "d", "a"}
	for i, id := range want {
		if got[i].OperationID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].OperationID, id)
		}
	}

	limited, err := store.ListByWallet(ctx, "wallet1", 2)
	if err != nil {
		t.Fatalf("ListByWallet failed: %v", err)
	}
	if len(limited) != 2 || limited[0].OperationID != "c" {
		t.Errorf("limit not applied to newest records: %+v", limited)
	}
}

func TestOperationLog_GetByTimeRange(t *testing.T) {
	store := NewOperationLog()
	ctx := context.Background()

	for _, op := range []*domain.OperationRecord{
		makeOperation("late", "w", 3000),
		makeOperation("early", "w", 1000),
		makeOperation("mid", "w", 2000),
	} {
		if err := store.Insert(ctx, op); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetByTimeRange(ctx, 1000, 2000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records (inclusive bounds), got %d", len(got))
	}
	if got[0].OperationID != "early" || got[1].OperationID != "mid" {
		t.Errorf("expected ascending order, got %s, %s", got[0].OperationID, got[1].OperationID)
	}
}
