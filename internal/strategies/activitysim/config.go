package activitysim

import (
	"fmt"

	"github.com/betbot/simbot/internal/domain"
)

const ID = "activitysim"

// Config 策略配置。
//
// 标注 hot-reload 的字段可以在运行期通过 Strategy.UpdateConfig 原子更新，
// 其余字段整个进程生命周期内不变。
type Config struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	ConnectorName string              `yaml:"connector_name" json:"connector_name"`
	TradingPair   string              `yaml:"trading_pair" json:"trading_pair"`
	Leverage      int                 `yaml:"leverage" json:"leverage"`
	PositionMode  domain.PositionMode `yaml:"position_mode" json:"position_mode"`

	// hot-reload
	UseOrderbookPrices *bool   `yaml:"use_orderbook_prices" json:"use_orderbook_prices"`
	MaxOrderbookDepth  int     `yaml:"max_orderbook_depth" json:"max_orderbook_depth"`
	SpreadBps          float64 `yaml:"spread_bps" json:"spread_bps"`

	// hot-reload；报价货币计价
	MinOrderSizeQuote float64 `yaml:"min_order_size_quote" json:"min_order_size_quote"`
	MaxOrderSizeQuote float64 `yaml:"max_order_size_quote" json:"max_order_size_quote"`

	// hot-reload
	OrderIntervalSeconds float64 `yaml:"order_interval_seconds" json:"order_interval_seconds"`
	StaleOrderSeconds    float64 `yaml:"stale_order_seconds" json:"stale_order_seconds"`
}

func (c *Config) GetName() string { return ID }

// Defaults 填充缺省值（对齐线上默认参数）
func (c *Config) Defaults() {
	if c.ConnectorName == "" {
		c.ConnectorName = "ekiden_perpetual"
	}
	if c.TradingPair == "" {
		c.TradingPair = "ENA-USDC"
	}
	if c.Leverage <= 0 {
		c.Leverage = 1
	}
	if c.PositionMode == "" {
		c.PositionMode = domain.PositionModeOneway
	}
	if c.UseOrderbookPrices == nil {
		t := true
		c.UseOrderbookPrices = &t
	}
	if c.MaxOrderbookDepth <= 0 {
		c.MaxOrderbookDepth = 10
	}
	if c.SpreadBps <= 0 {
		c.SpreadBps = 10
	}
	if c.MinOrderSizeQuote <= 0 {
		c.MinOrderSizeQuote = 10
	}
	if c.MaxOrderSizeQuote <= 0 {
		c.MaxOrderSizeQuote = 50
	}
	if c.OrderIntervalSeconds <= 0 {
		c.OrderIntervalSeconds = 2.0
	}
	if c.StaleOrderSeconds <= 0 {
		c.StaleOrderSeconds = 5.0
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config 不能为空")
	}
	if c.TradingPair == "" {
		return fmt.Errorf("trading_pair 不能为空")
	}
	if c.MinOrderSizeQuote <= 0 || c.MaxOrderSizeQuote <= 0 {
		return fmt.Errorf("订单金额必须 > 0")
	}
	if c.MinOrderSizeQuote > c.MaxOrderSizeQuote {
		return fmt.Errorf("min_order_size_quote (%v) 不能大于 max_order_size_quote (%v)",
			c.MinOrderSizeQuote, c.MaxOrderSizeQuote)
	}
	if c.MaxOrderbookDepth < 1 {
		return fmt.Errorf("max_orderbook_depth 必须 >= 1")
	}
	// spread >= 10000bps 会把卖出回退价打到 0，下游按名义/价格换算数量时除零
	if c.SpreadBps <= 0 || c.SpreadBps >= 10000 {
		return fmt.Errorf("spread_bps (%v) 必须在 (0, 10000) 区间", c.SpreadBps)
	}
	if c.OrderIntervalSeconds <= 0 {
		return fmt.Errorf("order_interval_seconds 必须 > 0")
	}
	if c.StaleOrderSeconds <= 0 {
		return fmt.Errorf("stale_order_seconds 必须 > 0")
	}
	return nil
}

// Instrument 返回配置对应的标的
func (c *Config) Instrument() domain.Instrument {
	return domain.Instrument{Exchange: c.ConnectorName, TradingPair: c.TradingPair}
}

// UpdatableConfig 热更新字段子集（控制面 POST /api/config 的载荷）
type UpdatableConfig struct {
	UseOrderbookPrices   *bool    `json:"use_orderbook_prices,omitempty"`
	MaxOrderbookDepth    *int     `json:"max_orderbook_depth,omitempty"`
	SpreadBps            *float64 `json:"spread_bps,omitempty"`
	MinOrderSizeQuote    *float64 `json:"min_order_size_quote,omitempty"`
	MaxOrderSizeQuote    *float64 `json:"max_order_size_quote,omitempty"`
	OrderIntervalSeconds *float64 `json:"order_interval_seconds,omitempty"`
	StaleOrderSeconds    *float64 `json:"stale_order_seconds,omitempty"`
}

// applyTo 把非空字段套用到目标配置；返回套用后的副本以便校验。
func (u UpdatableConfig) applyTo(c Config) Config {
	if u.UseOrderbookPrices != nil {
		c.UseOrderbookPrices = u.UseOrderbookPrices
	}
	if u.MaxOrderbookDepth != nil {
		c.MaxOrderbookDepth = *u.MaxOrderbookDepth
	}
	if u.SpreadBps != nil {
		c.SpreadBps = *u.SpreadBps
	}
	if u.MinOrderSizeQuote != nil {
		c.MinOrderSizeQuote = *u.MinOrderSizeQuote
	}
	if u.MaxOrderSizeQuote != nil {
		c.MaxOrderSizeQuote = *u.MaxOrderSizeQuote
	}
	if u.OrderIntervalSeconds != nil {
		c.OrderIntervalSeconds = *u.OrderIntervalSeconds
	}
	if u.StaleOrderSeconds != nil {
		c.StaleOrderSeconds = *u.StaleOrderSeconds
	}
	return c
}
