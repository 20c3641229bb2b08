package ekiden

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseLevels(t *testing.T) {
	entries, err := parseLevels([][2]string{{"0.4321", "120.5"}, {"0.4320", "33"}})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if !entries[0].Price.Equal(decimal.RequireFromString("0.4321")) {
		t.Fatalf("bad price %s", entries[0].Price)
	}
	if !entries[1].Size.Equal(decimal.NewFromInt(33)) {
		t.Fatalf("bad size %s", entries[1].Size)
	}
}

func TestParseLevelsRejectsGarbage(t *testing.T) {
	if _, err := parseLevels([][2]string{{"not-a-price", "1"}}); err == nil {
		t.Fatalf("bad price must error")
	}
	if _, err := parseLevels([][2]string{{"1", ""}}); err == nil {
		t.Fatalf("empty size must error")
	}
}

func TestAPIResponseErrorMapping(t *testing.T) {
	var ok apiResponse[tickerData]
	if err := json.Unmarshal([]byte(`{"code":0,"msg":"","data":{"symbol":"ENAUSDC","midPrice":"0.43"}}`), &ok); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if err := ok.apiError(); err != nil {
		t.Fatalf("code 0 must not be an error: %v", err)
	}

	var bad apiResponse[tickerData]
	if err := json.Unmarshal([]byte(`{"code":1002,"msg":"invalid symbol"}`), &bad); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if err := bad.apiError(); err == nil {
		t.Fatalf("non-zero code must surface as an error")
	}
}

func TestEncodeQuerySymbolFirst(t *testing.T) {
	got := encodeQuery(map[string]string{"limit": "10", "symbol": "ENAUSDC"})
	if got != "symbol=ENAUSDC&limit=10" {
		t.Fatalf("symbol must lead the signing string, got %q", got)
	}
	if encodeQuery(nil) != "" {
		t.Fatalf("empty params must encode empty")
	}
}

// 签名串必须确定：symbol 在前，其余 key 升序，多次编码结果一致。
func TestEncodeQueryDeterministicWithManyParams(t *testing.T) {
	params := map[string]string{
		"symbol":  "ENAUSDC",
		"limit":   "10",
		"cursor":  "abc",
		"orderId": "42",
	}
	want := "symbol=ENAUSDC&cursor=abc&limit=10&orderId=42"
	for i := 0; i < 50; i++ {
		if got := encodeQuery(params); got != want {
			t.Fatalf("iteration %d: got %q, want %q", i, got, want)
		}
	}
}

func TestEncodeQueryWithoutSymbol(t *testing.T) {
	if got := encodeQuery(map[string]string{"b": "2", "a": "1"}); got != "a=1&b=2" {
		t.Fatalf("keys must be sorted, got %q", got)
	}
}
