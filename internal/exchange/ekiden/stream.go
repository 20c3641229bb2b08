package ekiden

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/betbot/simbot/internal/domain"
)

// MarketStream 维护单个交易对的实时盘口缓存。
//
// 连接断开时自动指数退避重连；缓存带更新时间戳，
// 读取方通过 maxAge 判断新鲜度，过期视为无数据（回退 REST）。
type MarketStream struct {
	url    string
	symbol string

	mu       sync.RWMutex
	book     *domain.OrderBook
	mid      decimal.Decimal
	updated  time.Time

	cancel context.CancelFunc
	doneC  chan struct{}
}

type streamMessage struct {
	Channel string      `json:"channel"`
	Symbol  string      `json:"symbol"`
	Bids    [][2]string `json:"bids,omitempty"`
	Asks    [][2]string `json:"asks,omitempty"`
	Mid     string      `json:"midPrice,omitempty"`
}

func NewMarketStream(wsURL, symbol string) *MarketStream {
	return &MarketStream{url: wsURL, symbol: symbol, doneC: make(chan struct{})}
}

// Start 启动读循环（非阻塞）；ctx 取消后退出。
func (s *MarketStream) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx)
}

func (s *MarketStream) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.doneC
}

// Book 返回缓存盘口；超过 maxAge 未更新时返回 false。
func (s *MarketStream) Book(maxAge time.Duration) (*domain.OrderBook, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.book == nil || time.Since(s.updated) > maxAge {
		return nil, false
	}
	return s.book, true
}

// Mid 返回缓存中间价；无数据或过期返回 false。
func (s *MarketStream) Mid(maxAge time.Duration) (decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.updated.IsZero() || time.Since(s.updated) > maxAge || !s.mid.IsPositive() {
		return decimal.Zero, false
	}
	return s.mid, true
}

func (s *MarketStream) run(ctx context.Context) {
	defer close(s.doneC)

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		if err := s.connectAndRead(ctx); err != nil {
			log.Warnf("行情流断开: %v，%v 后重连", err, backoff)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
}

func (s *MarketStream) connectAndRead(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := map[string]any{
		"op":   "subscribe",
		"args": []string{"depth:" + s.symbol, "ticker:" + s.symbol},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}
	log.Infof("行情流已连接: %s", s.symbol)

	// ctx 取消时主动关连接，解除 ReadMessage 阻塞
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var msg streamMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Debugf("忽略无法解析的消息: %v", err)
			continue
		}
		if msg.Symbol != "" && msg.Symbol != s.symbol {
			continue
		}
		s.apply(&msg)
	}
}

func (s *MarketStream) apply(msg *streamMessage) {
	switch msg.Channel {
	case "depth":
		bids, err := parseLevels(msg.Bids)
		if err != nil {
			log.Debugf("坏的 depth 消息: %v", err)
			return
		}
		asks, err := parseLevels(msg.Asks)
		if err != nil {
			log.Debugf("坏的 depth 消息: %v", err)
			return
		}
		book := &domain.OrderBook{Bids: bids, Asks: asks}
		s.mu.Lock()
		s.book = book
		if mid, ok := book.Mid(); ok {
			s.mid = mid
		}
		s.updated = time.Now()
		s.mu.Unlock()
	case "ticker":
		mid, err := decimal.NewFromString(msg.Mid)
		if err != nil || !mid.IsPositive() {
			return
		}
		s.mu.Lock()
		s.mid = mid
		s.updated = time.Now()
		s.mu.Unlock()
	}
}
