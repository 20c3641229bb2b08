// Package ekiden 提供 ekiden 永续合约交易所的 REST + WebSocket 连接器。
package ekiden

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/simbot/internal/domain"
)

var log = logrus.WithField("exchange", "ekiden")

const recvWindow = "5000"

// Config 连接器配置
type Config struct {
	BaseURL string
	WSURL   string
	APIKey  string
	Secret  string
	// BookMaxAge: WS 盘口快照的最大可接受年龄，超过则回退 REST
	BookMaxAge time.Duration
}

// Client 实现 exchange.Connector。
//
// 行情优先走 WS 缓存（stream.go），过期或未连接时回退 REST。
// 仓位 / 下单 / 撤单只走签名 REST。
type Client struct {
	cfg    Config
	http   *resty.Client
	stream *MarketStream
}

func New(cfg Config) *Client {
	if cfg.BookMaxAge <= 0 {
		cfg.BookMaxAge = 3 * time.Second
	}
	// resty 会自动读取 HTTP_PROXY / HTTPS_PROXY 环境变量
	hc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second)

	return &Client{cfg: cfg, http: hc}
}

func (c *Client) Name() string { return "ekiden_perpetual" }

// AttachStream 挂载行情流；调用方负责 stream.Start。
func (c *Client) AttachStream(s *MarketStream) { c.stream = s }

func (c *Client) CurrentPosition(ctx context.Context, instrument domain.Instrument) (decimal.Decimal, error) {
	var out apiResponse[[]positionData]
	if err := c.signedGet(ctx, "/v1/positions", map[string]string{"symbol": instrument.TradingPair}, &out); err != nil {
		return decimal.Zero, err
	}
	for _, p := range out.Data {
		if p.Symbol != instrument.TradingPair {
			continue
		}
		amount, err := decimal.NewFromString(p.Size)
		if err != nil {
			return decimal.Zero, errors.Wrapf(err, "bad position size %q", p.Size)
		}
		return amount, nil
	}
	// 交易所不返回空仓位条目：没有条目即为平仓
	return decimal.Zero, nil
}

func (c *Client) OrderBook(ctx context.Context, instrument domain.Instrument) (*domain.OrderBook, error) {
	if c.stream != nil {
		if book, ok := c.stream.Book(c.cfg.BookMaxAge); ok {
			return book, nil
		}
	}
	var out apiResponse[depthData]
	err := c.publicGet(ctx, "/v1/depth", map[string]string{"symbol": instrument.TradingPair, "limit": "50"}, &out)
	if err != nil {
		return nil, err
	}
	bids, err := parseLevels(out.Data.Bids)
	if err != nil {
		return nil, err
	}
	asks, err := parseLevels(out.Data.Asks)
	if err != nil {
		return nil, err
	}
	return &domain.OrderBook{Bids: bids, Asks: asks}, nil
}

func (c *Client) MidPrice(ctx context.Context, instrument domain.Instrument) (decimal.Decimal, error) {
	if c.stream != nil {
		if mid, ok := c.stream.Mid(c.cfg.BookMaxAge); ok {
			return mid, nil
		}
	}
	var out apiResponse[tickerData]
	if err := c.publicGet(ctx, "/v1/ticker", map[string]string{"symbol": instrument.TradingPair}, &out); err != nil {
		return decimal.Zero, err
	}
	mid, err := decimal.NewFromString(out.Data.MidPrice)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "bad mid price %q", out.Data.MidPrice)
	}
	return mid, nil
}

func (c *Client) PlaceOrder(ctx context.Context, intent domain.OrderIntent) (string, error) {
	req := orderRequest{
		Symbol:     intent.Instrument.TradingPair,
		Side:       string(intent.Side),
		OrderType:  string(intent.Strategy),
		Price:      intent.Price.String(),
		Qty:        intent.Amount.Abs().String(),
		Leverage:   intent.Leverage,
		ReduceOnly: intent.Action == domain.PositionActionClose,
		ClientID:   intent.Label,
	}
	var out apiResponse[orderData]
	if err := c.signedPost(ctx, "/v1/order", req, &out); err != nil {
		return "", err
	}
	log.Debugf("下单成功: %s %s %s@%s label=%s orderId=%s",
		req.Symbol, req.Side, req.Qty, req.Price, intent.Label, out.Data.OrderID)
	return out.Data.OrderID, nil
}

func (c *Client) OpenOrders(ctx context.Context, instrument domain.Instrument) ([]string, error) {
	var out apiResponse[[]orderData]
	if err := c.signedGet(ctx, "/v1/openOrders", map[string]string{"symbol": instrument.TradingPair}, &out); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(out.Data))
	for _, o := range out.Data {
		ids = append(ids, o.OrderID)
	}
	return ids, nil
}

func (c *Client) CancelOrder(ctx context.Context, instrument domain.Instrument, orderID string, keepPosition bool) error {
	// keepPosition 语义：只撤掉挂单，不附带市价平仓。
	// ekiden 的撤单接口本身只作用于挂单，置 closePosition=false 即可。
	body := map[string]any{
		"symbol":        instrument.TradingPair,
		"orderId":       orderID,
		"closePosition": !keepPosition,
	}
	var out apiResponse[orderData]
	return c.signedPost(ctx, "/v1/order/cancel", body, &out)
}

func (c *Client) publicGet(ctx context.Context, path string, params map[string]string, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(out).
		Get(path)
	return checkResponse(resp, err, path, out)
}

func (c *Client) signedGet(ctx context.Context, path string, params map[string]string, out any) error {
	r := c.http.R().SetContext(ctx).SetQueryParams(params).SetResult(out)
	c.sign(r, encodeQuery(params))
	resp, err := r.Get(path)
	return checkResponse(resp, err, path, out)
}

func (c *Client) signedPost(ctx context.Context, path string, body any, out any) error {
	r := c.http.R().SetContext(ctx).SetBody(body).SetResult(out)
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrapf(err, "marshal %s body", path)
	}
	c.sign(r, string(payload))
	resp, err := r.Post(path)
	return checkResponse(resp, err, path, out)
}

// sign 计算 HMAC-SHA256(timestamp + apiKey + recvWindow + payload) 签名头
func (c *Client) sign(r *resty.Request, payload string) {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	mac := hmac.New(sha256.New, []byte(c.cfg.Secret))
	mac.Write([]byte(ts + c.cfg.APIKey + recvWindow + payload))
	r.SetHeader("X-EKD-API-KEY", c.cfg.APIKey)
	r.SetHeader("X-EKD-TIMESTAMP", ts)
	r.SetHeader("X-EKD-RECV-WINDOW", recvWindow)
	r.SetHeader("X-EKD-SIGN", hex.EncodeToString(mac.Sum(nil)))
}

func checkResponse(resp *resty.Response, err error, path string, out any) error {
	if err != nil {
		return errors.Wrapf(err, "request %s", path)
	}
	if resp.IsError() {
		return errors.Errorf("request %s: http %d: %s", path, resp.StatusCode(), resp.String())
	}
	if coded, ok := out.(interface{ apiError() error }); ok {
		return coded.apiError()
	}
	return nil
}

func (r *apiResponse[T]) apiError() error {
	if r.Code != 0 {
		return errors.Errorf("api error %d: %s", r.Code, r.Msg)
	}
	return nil
}

func encodeQuery(params map[string]string) string {
	// 签名串顺序必须确定：symbol 在前（交易所要求），其余 key 升序。
	// map 遍历顺序随机，直接拼会让多参数请求的签名偶发对不上。
	keys := make([]string, 0, len(params))
	for k := range params {
		if k != "symbol" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	if v, ok := params["symbol"]; ok {
		b.WriteString("symbol=" + v)
	}
	for _, k := range keys {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k + "=" + params[k])
	}
	return b.String()
}
