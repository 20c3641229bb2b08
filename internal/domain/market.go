package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PositionMode 仓位模式
type PositionMode string

const (
	PositionModeOneway PositionMode = "ONEWAY"
	PositionModeHedge  PositionMode = "HEDGE"
)

// Instrument 交易标的：交易所 + 交易对
type Instrument struct {
	Exchange    string `yaml:"exchange" json:"exchange"`
	TradingPair string `yaml:"trading_pair" json:"trading_pair"`
}

func (i Instrument) String() string {
	return fmt.Sprintf("%s:%s", i.Exchange, i.TradingPair)
}

// BookEntry 订单簿单个档位
type BookEntry struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// OrderBook 订单簿快照。
// Bids 按价格从高到低、Asks 按价格从低到高排列（交易所返回顺序）。
type OrderBook struct {
	Bids []BookEntry `json:"bids"`
	Asks []BookEntry `json:"asks"`
}

// Mid 从盘口最优档计算中间价；任一侧为空返回 false。
func (b *OrderBook) Mid() (decimal.Decimal, bool) {
	if b == nil || len(b.Bids) == 0 || len(b.Asks) == 0 {
		return decimal.Zero, false
	}
	two := decimal.NewFromInt(2)
	return b.Bids[0].Price.Add(b.Asks[0].Price).Div(two), true
}
