package service

import (
	"context"
	"errors"
	"slices"
	"testing"

	"go.uber.org/zap"

	"github.com/NOTMORSE-PROG/vocanova/internal/domain/entities"
	"github.com/NOTMORSE-PROG/vocanova/internal/repository"
)

func TestPurchase(t *testing.T) {
	tests := []struct {
		name        string
		currency    int
		item        string
		wantErr     error
		wantBalance int
		wantStock   int
	}{
		{"refused when price exceeds balance", 20, "freeze_time", ErrInsufficientFunds, 20, 0},
		{"exact balance", 30, "freeze_time", nil, 0, 1},
		{"change left", 50, "fifty_fifty", nil, 30, 1},
		{"unknown item", 100, "double_points", repository.ErrPowerUpNotFound, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			f.createUser(t, "u1", tt.currency)
			shop := NewShopService(f.store, repository.NewPowerUpCatalog(), f.publisher, nil, zap.NewNop())

			balance, err := shop.Purchase(ctx, "u1", tt.item)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Purchase() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil || errors.Is(err, ErrInsufficientFunds) {
				if balance != tt.wantBalance {
					t.Errorf("balance = %d, want %d", balance, tt.wantBalance)
				}
			}

			wantCurrency := tt.currency
			if tt.wantErr == nil {
				wantCurrency = tt.wantBalance
			}
			if c := f.currency(t, "u1"); c != wantCurrency {
				t.Errorf("stored currency = %d, want %d", c, wantCurrency)
			}

			if typ, ok := entities.ParsePowerUpType(tt.item); ok {
				if n := f.remoteCount(t, "u1", typ); n != tt.wantStock {
					t.Errorf("inventory = %d, want %d", n, tt.wantStock)
				}
			}

			u, err := repository.NewUserRepository(f.store).Get(ctx, "u1")
			if err != nil {
				t.Fatal(err)
			}
			if got := slices.Contains(u.PurchasedItems, tt.item); got != (tt.wantErr == nil) {
				t.Errorf("PurchasedItems = %v", u.PurchasedItems)
			}
		})
	}
}

func TestPurchaseUnknownUser(t *testing.T) {
	f := newFixture(t)
	shop := NewShopService(f.store, repository.NewPowerUpCatalog(), f.publisher, nil, zap.NewNop())

	_, err := shop.Purchase(context.Background(), "ghost", "freeze_time")
	if !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("Purchase() error = %v, want ErrUserNotFound", err)
	}
	if n := f.remoteCount(t, "ghost", entities.FreezeTime); n != 0 {
		t.Errorf("inventory = %d, want 0", n)
	}
}
