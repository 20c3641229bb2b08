// Package services 把交易所连接器适配成策略依赖的窄接口。
package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/betbot/simbot/internal/domain"
	"github.com/betbot/simbot/internal/exchange"
)

// MarketDataService 实现 ports.SimTradingService。
//
// 错误原样上抛：把失败折叠成安全默认值（零仓位、无价格）
// 是策略核心的决策，不在这一层做。
type MarketDataService struct {
	connector exchange.Connector
}

func NewMarketDataService(connector exchange.Connector) *MarketDataService {
	return &MarketDataService{connector: connector}
}

func (s *MarketDataService) MidPrice(ctx context.Context, instrument domain.Instrument) (decimal.Decimal, error) {
	return s.connector.MidPrice(ctx, instrument)
}

func (s *MarketDataService) OrderBook(ctx context.Context, instrument domain.Instrument) (*domain.OrderBook, error) {
	return s.connector.OrderBook(ctx, instrument)
}

func (s *MarketDataService) CurrentPosition(ctx context.Context, instrument domain.Instrument) (decimal.Decimal, error) {
	return s.connector.CurrentPosition(ctx, instrument)
}

func (s *MarketDataService) Now() time.Time {
	return time.Now()
}
