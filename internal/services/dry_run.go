package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/betbot/simbot/internal/domain"
	"github.com/betbot/simbot/internal/exchange"
	"github.com/betbot/simbot/internal/exchange/paper"
)

// DryRunConnector 组合连接器：行情走真实交易所的公开接口，
// 下单 / 撤单 / 仓位全部落在内存纸面账本上。
// 用于在不触达真实资金的情况下完整演练决策循环。
type DryRunConnector struct {
	market exchange.Connector
	sim    *paper.Connector
}

func NewDryRunConnector(market exchange.Connector) *DryRunConnector {
	return &DryRunConnector{market: market, sim: paper.New()}
}

func (d *DryRunConnector) Name() string {
	return fmt.Sprintf("paper(%s)", d.market.Name())
}

func (d *DryRunConnector) CurrentPosition(ctx context.Context, instrument domain.Instrument) (decimal.Decimal, error) {
	return d.sim.CurrentPosition(ctx, instrument)
}

func (d *DryRunConnector) OrderBook(ctx context.Context, instrument domain.Instrument) (*domain.OrderBook, error) {
	return d.market.OrderBook(ctx, instrument)
}

func (d *DryRunConnector) MidPrice(ctx context.Context, instrument domain.Instrument) (decimal.Decimal, error) {
	return d.market.MidPrice(ctx, instrument)
}

func (d *DryRunConnector) PlaceOrder(ctx context.Context, intent domain.OrderIntent) (string, error) {
	// 同步纸面盘口到最新行情，让穿越判断贴近真实
	if book, err := d.market.OrderBook(ctx, intent.Instrument); err == nil {
		d.sim.SetBook(book)
	} else if mid, err := d.market.MidPrice(ctx, intent.Instrument); err == nil {
		d.sim.SetMid(mid)
	}
	return d.sim.PlaceOrder(ctx, intent)
}

func (d *DryRunConnector) CancelOrder(ctx context.Context, instrument domain.Instrument, orderID string, keepPosition bool) error {
	return d.sim.CancelOrder(ctx, instrument, orderID, keepPosition)
}

func (d *DryRunConnector) OpenOrders(ctx context.Context, instrument domain.Instrument) ([]string, error) {
	return d.sim.OpenOrders(ctx, instrument)
}
