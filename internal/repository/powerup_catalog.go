package repository

import (
	"errors"

	"github.com/NOTMORSE-PROG/vocanova/internal/domain/entities"
)

var ErrPowerUpNotFound = errors.New("power-up not found")

// PowerUpCatalog is the static shop catalog. Power-up ids are their inventory keys.
type PowerUpCatalog struct {
	items []entities.PowerUp
}

func NewPowerUpCatalog() *PowerUpCatalog {
	items := make([]entities.PowerUp, 0, len(entities.PowerUpTypes))
	for _, t := range entities.PowerUpTypes {
		items = append(items, catalogEntry(t))
	}
	return &PowerUpCatalog{items: items}
}

func catalogEntry(t entities.PowerUpType) entities.PowerUp {
	p := entities.PowerUp{ID: t.InventoryKey(), Type: t}
	switch t {
	case entities.FreezeTime:
		p.Name = "Freeze Time"
		p.Description = "Stops the question timer for 10 seconds."
		p.Price = 30
	case entities.FiftyFifty:
		p.Name = "50/50"
		p.Description = "Removes two wrong answers from the current question."
		p.Price = 20
	case entities.ReverseTime:
		p.Name = "Reverse Time"
		p.Description = "Go back to the previous question and answer it again."
		p.Price = 40
	}
	return p
}

func (c *PowerUpCatalog) All() []entities.PowerUp {
	return append([]entities.PowerUp(nil), c.items...)
}

func (c *PowerUpCatalog) GetByID(id string) (*entities.PowerUp, error) {
	for _, p := range c.items {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, ErrPowerUpNotFound
}
