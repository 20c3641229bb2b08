// Package paper 提供内存撮合的纸面交易连接器，用于 dry-run 与测试。
//
// 撮合规则刻意简化：限价单价格穿过对手盘最优档即全部成交，
// 否则留作挂单等待撤销。仓位随成交即时更新。
package paper

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/simbot/internal/domain"
)

var log = logrus.WithField("exchange", "paper")

type restingOrder struct {
	id     string
	intent domain.OrderIntent
}

type Connector struct {
	mu       sync.Mutex
	book     *domain.OrderBook
	mid      decimal.Decimal
	position decimal.Decimal
	resting  map[string]restingOrder
}

func New() *Connector {
	return &Connector{resting: make(map[string]restingOrder)}
}

func (c *Connector) Name() string { return "paper" }

// SetBook 设置盘口快照（中间价随之更新）。
func (c *Connector) SetBook(book *domain.OrderBook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.book = book
	if mid, ok := book.Mid(); ok {
		c.mid = mid
	}
}

func (c *Connector) SetMid(mid decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mid = mid
}

func (c *Connector) SetPosition(amount decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = amount
}

func (c *Connector) CurrentPosition(ctx context.Context, instrument domain.Instrument) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position, nil
}

func (c *Connector) OrderBook(ctx context.Context, instrument domain.Instrument) (*domain.OrderBook, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.book == nil {
		return nil, errors.New("paper: no book")
	}
	return c.book, nil
}

func (c *Connector) MidPrice(ctx context.Context, instrument domain.Instrument) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mid.IsPositive() {
		return decimal.Zero, errors.New("paper: no mid price")
	}
	return c.mid, nil
}

func (c *Connector) PlaceOrder(ctx context.Context, intent domain.OrderIntent) (string, error) {
	if !intent.Amount.IsPositive() || !intent.Price.IsPositive() {
		return "", errors.New("paper: amount and price must be positive")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	id := uuid.New().String()
	if c.crossesLocked(intent) {
		c.fillLocked(intent)
		log.Debugf("paper fill: %s %s %s@%s -> position=%s",
			intent.Action, intent.Side, intent.Amount, intent.Price, c.position)
		return id, nil
	}
	c.resting[id] = restingOrder{id: id, intent: intent}
	log.Debugf("paper resting: %s %s %s@%s id=%s", intent.Action, intent.Side, intent.Amount, intent.Price, id)
	return id, nil
}

func (c *Connector) CancelOrder(ctx context.Context, instrument domain.Instrument, orderID string, keepPosition bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.resting[orderID]; !ok {
		return errors.Errorf("paper: unknown order %s", orderID)
	}
	delete(c.resting, orderID)
	return nil
}

// OpenOrders 返回当前仍在挂单的订单 ID。已成交的订单不在其中，
// 执行层据此立即释放对应执行器。
func (c *Connector) OpenOrders(ctx context.Context, instrument domain.Instrument) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.resting))
	for id := range c.resting {
		ids = append(ids, id)
	}
	return ids, nil
}

// RestingCount 返回当前挂单数（测试辅助）。
func (c *Connector) RestingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.resting)
}

func (c *Connector) crossesLocked(intent domain.OrderIntent) bool {
	if c.book == nil {
		// 无盘口时按中间价撮合
		return c.mid.IsPositive()
	}
	if intent.Side == domain.SideBuy {
		return len(c.book.Asks) > 0 && intent.Price.GreaterThanOrEqual(c.book.Asks[0].Price)
	}
	return len(c.book.Bids) > 0 && intent.Price.LessThanOrEqual(c.book.Bids[0].Price)
}

func (c *Connector) fillLocked(intent domain.OrderIntent) {
	signed := intent.Amount
	if intent.Side == domain.SideSell {
		signed = signed.Neg()
	}
	c.position = c.position.Add(signed)
}
