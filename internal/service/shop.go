package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/NOTMORSE-PROG/vocanova/internal/docstore"
	"github.com/NOTMORSE-PROG/vocanova/internal/domain/entities"
	"github.com/NOTMORSE-PROG/vocanova/internal/event"
	"github.com/NOTMORSE-PROG/vocanova/internal/metrics"
	"github.com/NOTMORSE-PROG/vocanova/internal/repository"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

// ShopService sells power-ups for currency.
type ShopService struct {
	store     docstore.Store
	catalog   PowerUpCatalog
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewShopService(
	store docstore.Store,
	catalog PowerUpCatalog,
	publisher EventPublisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *ShopService {
	return &ShopService{
		store:     store,
		catalog:   catalog,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

func (s *ShopService) Catalog() []entities.PowerUp {
	return s.catalog.All()
}

// Purchase debits the price and adds one unit to the inventory in a single
// transaction. It returns the remaining balance. When the balance is below
// the price nothing changes and ErrInsufficientFunds is returned.
func (s *ShopService) Purchase(ctx context.Context, uid, itemID string) (int, error) {
	item, err := s.catalog.GetByID(itemID)
	if err != nil {
		return 0, fmt.Errorf("purchase %s: %w", itemID, err)
	}

	var balance int
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		users := repository.NewUserRepository(tx)

		user, err := users.Get(ctx, uid)
		if err != nil {
			return err
		}
		if user.Currency < item.Price {
			balance = user.Currency
			return ErrInsufficientFunds
		}

		if err := users.IncrementCurrency(ctx, uid, -item.Price); err != nil {
			return err
		}
		if err := repository.NewPowerUpRepository(tx).Increment(ctx, uid, item.Type, 1); err != nil {
			return err
		}
		if !user.HasPurchased(item.ID) {
			if err := users.SetPurchasedItems(ctx, uid, append(user.PurchasedItems, item.ID)); err != nil {
				return err
			}
		}

		balance = user.Currency - item.Price
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			s.metrics.Purchase(item.ID, "refused")
			return balance, err
		}
		s.metrics.Purchase(item.ID, "failed")
		return 0, fmt.Errorf("purchase %s: %w", item.ID, err)
	}

	s.metrics.Purchase(item.ID, "ok")
	s.logger.Info("power-up purchased",
		zap.String("uid", uid),
		zap.String("item", item.ID),
		zap.Int("balance", balance),
	)

	e := event.New(event.PowerUpPurchased, uid, map[string]any{"item": item.ID, "price": item.Price})
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("failed to publish purchase event", zap.Error(err))
	}

	return balance, nil
}
