package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/NOTMORSE-PROG/vocanova/internal/docstore"
	"github.com/NOTMORSE-PROG/vocanova/internal/domain/entities"
)

const inventoryCollection = "user_powerups"

// InventoryPath returns the path of a user's power-up inventory document.
func InventoryPath(uid string) string {
	return docstore.Join(inventoryCollection, uid)
}

// DecodeInventory reads the counts of every known power-up. Missing or
// non-numeric counts read as zero. Counts are returned as stored, so a
// negative count stays visible and a later purchase is not hidden by it.
func DecodeInventory(data map[string]any) entities.Inventory {
	inv := make(entities.Inventory, len(entities.PowerUpTypes))
	for _, t := range entities.PowerUpTypes {
		key := t.InventoryKey()
		n, _ := docstore.Int64(data[key])
		inv[key] = int(n)
	}
	return inv
}

// PowerUpRepository provides access to power-up inventories.
type PowerUpRepository struct {
	db docstore.Tx
}

func NewPowerUpRepository(db docstore.Tx) *PowerUpRepository {
	return &PowerUpRepository{db: db}
}

// Get returns the inventory. A user without an inventory document owns nothing.
func (r *PowerUpRepository) Get(ctx context.Context, uid string) (entities.Inventory, error) {
	data, err := r.db.Get(ctx, InventoryPath(uid))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return DecodeInventory(nil), nil
		}
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	return DecodeInventory(data), nil
}

// Increment atomically changes the count of one power-up by delta.
func (r *PowerUpRepository) Increment(ctx context.Context, uid string, t entities.PowerUpType, delta int) error {
	key := t.InventoryKey()
	if key == "" {
		return fmt.Errorf("increment inventory: %w", ErrPowerUpNotFound)
	}
	if err := r.db.Increment(ctx, InventoryPath(uid), key, int64(delta)); err != nil {
		return fmt.Errorf("increment inventory %s: %w", key, err)
	}
	return nil
}
