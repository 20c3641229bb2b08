package exchange

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/betbot/simbot/internal/domain"
)

// Connector 交易所连接器接口。
//
// 所有方法失败时返回 error；把失败映射为安全默认值（零仓位、无价格）
// 是上层（services / 策略）的职责，连接器只负责如实上报。
type Connector interface {
	Name() string

	CurrentPosition(ctx context.Context, instrument domain.Instrument) (decimal.Decimal, error)
	OrderBook(ctx context.Context, instrument domain.Instrument) (*domain.OrderBook, error)
	MidPrice(ctx context.Context, instrument domain.Instrument) (decimal.Decimal, error)

	// PlaceOrder 提交订单意图，返回交易所订单 ID。
	PlaceOrder(ctx context.Context, intent domain.OrderIntent) (string, error)
	// CancelOrder 撤单。keepPosition=true 表示只撤挂单、保留已建立的仓位。
	CancelOrder(ctx context.Context, instrument domain.Instrument, orderID string, keepPosition bool) error
	// OpenOrders 返回该标的当前仍在挂单簿上的订单 ID。
	// 执行层用它做成交对账：不在列表里的已知订单视为已离场。
	OpenOrders(ctx context.Context, instrument domain.Instrument) ([]string, error)
}
