package ekiden

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/betbot/simbot/internal/domain"
)

// REST API 响应外壳：code==0 表示成功
type apiResponse[T any] struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data T      `json:"data"`
}

type positionData struct {
	Symbol string `json:"symbol"`
	Size   string `json:"size"` // 带符号：正多负空
}

type tickerData struct {
	Symbol   string `json:"symbol"`
	MidPrice string `json:"midPrice"`
	Mark     string `json:"markPrice"`
}

// depthData 档位为 [price, size] 字符串对（交易所惯例）
type depthData struct {
	Symbol string      `json:"symbol"`
	Bids   [][2]string `json:"bids"`
	Asks   [][2]string `json:"asks"`
}

type orderRequest struct {
	Symbol     string `json:"symbol"`
	Side       string `json:"side"`
	OrderType  string `json:"orderType"`
	Price      string `json:"price"`
	Qty        string `json:"qty"`
	Leverage   int    `json:"leverage,omitempty"`
	ReduceOnly bool   `json:"reduceOnly,omitempty"`
	ClientID   string `json:"clientId,omitempty"`
}

type orderData struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

func parseLevels(raw [][2]string) ([]domain.BookEntry, error) {
	entries := make([]domain.BookEntry, 0, len(raw))
	for _, lv := range raw {
		price, err := decimal.NewFromString(lv[0])
		if err != nil {
			return nil, errors.Wrapf(err, "bad level price %q", lv[0])
		}
		size, err := decimal.NewFromString(lv[1])
		if err != nil {
			return nil, errors.Wrapf(err, "bad level size %q", lv[1])
		}
		entries = append(entries, domain.BookEntry{Price: price, Size: size})
	}
	return entries, nil
}
