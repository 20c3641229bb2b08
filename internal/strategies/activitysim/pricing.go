package activitysim

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/betbot/simbot/internal/domain"
)

var bpsDivisor = decimal.NewFromInt(10000)

// crossingPrice 从对手盘头部档位均匀采样一个穿越价：
// 买单吃 asks、卖单吃 bids，采样范围 min(配置深度, 实际档数)。
// 不总是取最优价：固定吃一档会形成确定性的排队行为，
// 从头部随机采样让成交轨迹更自然。
// 盘口为空或读取失败返回 false。
func (s *Strategy) crossingPrice(ctx context.Context, cfg Config, side domain.Side) (decimal.Decimal, bool) {
	book, err := s.trading.OrderBook(ctx, cfg.Instrument())
	if err != nil || book == nil {
		return decimal.Zero, false
	}
	entries := book.Asks
	if side == domain.SideSell {
		entries = book.Bids
	}
	if len(entries) == 0 {
		return decimal.Zero, false
	}
	depth := cfg.MaxOrderbookDepth
	if len(entries) < depth {
		depth = len(entries)
	}
	price := entries[s.rng.Intn(depth)].Price
	if !price.IsPositive() {
		return decimal.Zero, false
	}
	return price, true
}

// orderPrice 计算下单价：优先盘口穿越价，失败则退回
// 中间价 ± spread（买加卖减），保证任何情况下都给得出一个价。
func (s *Strategy) orderPrice(ctx context.Context, cfg Config, side domain.Side, mid decimal.Decimal) decimal.Decimal {
	if cfg.UseOrderbookPrices != nil && *cfg.UseOrderbookPrices {
		if price, ok := s.crossingPrice(ctx, cfg, side); ok {
			return price
		}
	}
	spread := decimal.NewFromFloat(cfg.SpreadBps).Div(bpsDivisor)
	if side == domain.SideBuy {
		return mid.Mul(decimal.NewFromInt(1).Add(spread))
	}
	return mid.Mul(decimal.NewFromInt(1).Sub(spread))
}

// randomNotionalQuote 在 [min, max] 报价货币区间均匀抽一个名义金额，
// 保留两位小数。只用于开仓；平仓量永远精确等于仓位。
func (s *Strategy) randomNotionalQuote(cfg Config) decimal.Decimal {
	v := cfg.MinOrderSizeQuote + s.rng.Float64()*(cfg.MaxOrderSizeQuote-cfg.MinOrderSizeQuote)
	return decimal.NewFromFloat(v).Round(2)
}
