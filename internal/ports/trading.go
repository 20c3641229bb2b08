package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/betbot/simbot/internal/domain"
)

// Shared, small interfaces for strategies to depend on (avoid per-strategy duplication).

type MidPriceGetter interface {
	MidPrice(ctx context.Context, instrument domain.Instrument) (decimal.Decimal, error)
}

type OrderBookGetter interface {
	OrderBook(ctx context.Context, instrument domain.Instrument) (*domain.OrderBook, error)
}

type PositionGetter interface {
	CurrentPosition(ctx context.Context, instrument domain.Instrument) (decimal.Decimal, error)
}

// Clock abstracts the time source so tests can inject a fake one.
type Clock interface {
	Now() time.Time
}

// Composite convenience interfaces.

type MarketDataProvider interface {
	MidPriceGetter
	OrderBookGetter
	Clock
}

type SimTradingService interface {
	MidPriceGetter
	OrderBookGetter
	PositionGetter
	Clock
}
