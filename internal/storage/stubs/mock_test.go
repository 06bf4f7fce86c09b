package stubs

import (
	"context"
	"sync"
	"testing"

	"covercraft/internal/storage"
)

func TestMockLedger_GetAccountCreatesDefault(t *testing.T) {
	db := NewMockLedger()
	ctx := context.Background()

	if err := db.Initialize(ctx); err != nil {
		t.Fatalf("Failed to initialize ledger: %v", err)
	}

	acc, err := db.GetAccount(ctx, "42")
	if err != nil {
		t.Fatalf("Failed to get account: %v", err)
	}

	if acc.UserID != "42" {
		t.Errorf("Expected user ID '42', got '%s'", acc.UserID)
	}
	if acc.CoversUsed != 0 || acc.Balance != 0 {
		t.Errorf("Expected zero account, got %+v", acc)
	}
}

func TestMockLedger_IncrementCovers(t *testing.T) {
	db := NewMockLedger()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := db.IncrementCovers(ctx, "42"); err != nil {
			t.Fatalf("Failed to increment covers: %v", err)
		}
	}

	acc, err := db.GetAccount(ctx, "42")
	if err != nil {
		t.Fatalf("Failed to get account: %v", err)
	}
	if acc.CoversUsed != 3 {
		t.Errorf("Expected 3 covers used, got %d", acc.CoversUsed)
	}

	// Other users are unaffected
	other, _ := db.GetAccount(ctx, "7")
	if other.CoversUsed != 0 {
		t.Errorf("Expected 0 covers for other user, got %d", other.CoversUsed)
	}
}

func TestMockLedger_AddBalance(t *testing.T) {
	db := NewMockLedger()
	ctx := context.Background()

	if err := db.AddBalance(ctx, "42", 100); err != nil {
		t.Fatalf("Failed to add balance: %v", err)
	}
	if err := db.AddBalance(ctx, "42", -100); err != nil {
		t.Fatalf("Failed to debit balance: %v", err)
	}

	// Debit below zero is refused and leaves the balance untouched
	if err := db.AddBalance(ctx, "42", -1); err != storage.ErrInsufficientBalance {
		t.Errorf("Expected ErrInsufficientBalance, got %v", err)
	}

	acc, _ := db.GetAccount(ctx, "42")
	if acc.Balance != 0 {
		t.Errorf("Expected balance 0, got %d", acc.Balance)
	}
}

func TestMockLedger_EmptyUserID(t *testing.T) {
	db := NewMockLedger()
	ctx := context.Background()

	if _, err := db.GetAccount(ctx, ""); err != storage.ErrInvalidUserID {
		t.Errorf("Expected ErrInvalidUserID, got %v", err)
	}
	if err := db.IncrementCovers(ctx, ""); err != storage.ErrInvalidUserID {
		t.Errorf("Expected ErrInvalidUserID, got %v", err)
	}
	if err := db.AddBalance(ctx, "", 1); err != storage.ErrInvalidUserID {
		t.Errorf("Expected ErrInvalidUserID, got %v", err)
	}
}

func TestMockLedger_ConcurrentIncrements(t *testing.T) {
	db := NewMockLedger()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = db.IncrementCovers(ctx, "42")
		}()
	}
	wg.Wait()

	acc, _ := db.GetAccount(ctx, "42")
	if acc.CoversUsed != 50 {
		t.Errorf("Expected 50 covers used, got %d", acc.CoversUsed)
	}
}
