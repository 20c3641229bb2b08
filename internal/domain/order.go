package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side 订单方向
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite 返回相反方向
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// PositionAction 仓位动作：OPEN 开仓 / CLOSE 平仓
type PositionAction string

const (
	PositionActionOpen  PositionAction = "OPEN"
	PositionActionClose PositionAction = "CLOSE"
)

// ExecutionStrategy 执行方式（目前只用 LIMIT）
type ExecutionStrategy string

const (
	ExecutionStrategyLimit  ExecutionStrategy = "LIMIT"
	ExecutionStrategyMarket ExecutionStrategy = "MARKET"
)

// OrderIntent 订单意图（值对象）。
//
// 由策略创建、交给执行层消费，创建后不再修改。
// Label 编码动作和时间戳，用于在交易所侧追踪订单来源。
type OrderIntent struct {
	Timestamp  time.Time
	Instrument Instrument
	Side       Side
	Amount     decimal.Decimal
	Price      decimal.Decimal
	Action     PositionAction
	Leverage   int
	Strategy   ExecutionStrategy
	Label      string
}

// IntentLabel 生成订单意图的 label：sim_open_1700000000 / sim_close_1700000000
func IntentLabel(action PositionAction, ts time.Time) string {
	name := "open"
	if action == PositionActionClose {
		name = "close"
	}
	return fmt.Sprintf("sim_%s_%d", name, ts.Unix())
}
