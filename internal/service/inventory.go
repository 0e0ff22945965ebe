package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/NOTMORSE-PROG/vocanova/internal/docstore"
	"github.com/NOTMORSE-PROG/vocanova/internal/domain/entities"
	"github.com/NOTMORSE-PROG/vocanova/internal/repository"
)

// InventoryService spends and refunds power-ups. Every change reads the
// stored count in the same transaction, so a count never drops below zero
// however many sessions share the inventory.
type InventoryService struct {
	store docstore.Store
}

func NewInventoryService(store docstore.Store) *InventoryService {
	return &InventoryService{store: store}
}

// Get returns the stored inventory.
func (s *InventoryService) Get(ctx context.Context, uid string) (entities.Inventory, error) {
	return repository.NewPowerUpRepository(s.store).Get(ctx, uid)
}

// Spend takes one unit of t and returns how many are left. When none are
// stored it returns ErrNoInventory together with the stored count.
func (s *InventoryService) Spend(ctx context.Context, uid string, t entities.PowerUpType) (int, error) {
	return s.adjust(ctx, uid, t, -1)
}

// Refund gives back one unit of t and returns the new count.
func (s *InventoryService) Refund(ctx context.Context, uid string, t entities.PowerUpType) (int, error) {
	return s.adjust(ctx, uid, t, 1)
}

func (s *InventoryService) adjust(ctx context.Context, uid string, t entities.PowerUpType, delta int) (int, error) {
	if t.InventoryKey() == "" {
		return 0, ErrUnknownPowerUp
	}

	var owned int
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		repo := repository.NewPowerUpRepository(tx)

		inv, err := repo.Get(ctx, uid)
		if err != nil {
			return err
		}
		owned = inv.Count(t)
		if owned+delta < 0 {
			return ErrNoInventory
		}

		if err := repo.Increment(ctx, uid, t, delta); err != nil {
			return err
		}
		owned += delta
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNoInventory) {
			return owned, err
		}
		return 0, fmt.Errorf("adjust %s by %d: %w", t, delta, err)
	}
	return owned, nil
}
