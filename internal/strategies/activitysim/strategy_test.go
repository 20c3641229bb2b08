package activitysim

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/betbot/simbot/internal/domain"
	"github.com/betbot/simbot/internal/execution"
)

type fakeTrading struct {
	mid      decimal.Decimal
	midErr   error
	book     *domain.OrderBook
	bookErr  error
	position decimal.Decimal
	posErr   error
	now      time.Time
}

func (f *fakeTrading) MidPrice(ctx context.Context, _ domain.Instrument) (decimal.Decimal, error) {
	return f.mid, f.midErr
}

func (f *fakeTrading) OrderBook(ctx context.Context, _ domain.Instrument) (*domain.OrderBook, error) {
	return f.book, f.bookErr
}

func (f *fakeTrading) CurrentPosition(ctx context.Context, _ domain.Instrument) (decimal.Decimal, error) {
	return f.position, f.posErr
}

func (f *fakeTrading) Now() time.Time { return f.now }

type fakeExecutors struct {
	infos []execution.ExecutorInfo
}

func (f *fakeExecutors) ActiveExecutors() []execution.ExecutorInfo { return f.infos }

func newTestStrategy(ft *fakeTrading, fe *fakeExecutors) *Strategy {
	s := &Strategy{}
	s.Config.Defaults()
	_ = s.Defaults()
	s.rng = rand.New(rand.NewSource(42))
	s.trading = ft
	s.executors = fe
	return s
}

func createActionOf(t *testing.T, actions []execution.ExecutorAction) domain.OrderIntent {
	t.Helper()
	if len(actions) != 1 {
		t.Fatalf("expected exactly 1 action, got %d", len(actions))
	}
	create, ok := actions[0].(execution.CreateExecutorAction)
	if !ok {
		t.Fatalf("expected CreateExecutorAction, got %T", actions[0])
	}
	return create.Intent
}

func TestColdStartOpensWithRandomSideAndBoundedNotional(t *testing.T) {
	ft := &fakeTrading{mid: decimal.NewFromInt(100), now: time.Unix(1_700_000_000, 0)}
	s := newTestStrategy(ft, &fakeExecutors{})

	intent := createActionOf(t, s.determineActions(context.Background()))

	if intent.Action != domain.PositionActionOpen {
		t.Fatalf("expected OPEN, got %s", intent.Action)
	}
	if intent.Side != domain.SideBuy && intent.Side != domain.SideSell {
		t.Fatalf("unexpected side %q", intent.Side)
	}
	if s.lastOpenSide == nil || *s.lastOpenSide != intent.Side {
		t.Fatalf("lastOpenSide not recorded")
	}
	if s.completedRoundtrips != 0 {
		t.Fatalf("cold start must not count a roundtrip")
	}
	// 无盘口时退回 mid±spread 定价；名义金额 = amount*price ∈ [10, 50]
	// (除法精度留一点余量)
	notional := intent.Amount.Mul(intent.Price)
	if notional.LessThan(decimal.RequireFromString("9.99")) || notional.GreaterThan(decimal.RequireFromString("50.01")) {
		t.Fatalf("notional %s out of [10,50]", notional)
	}
	if intent.Label != "sim_open_1700000000" {
		t.Fatalf("unexpected label %q", intent.Label)
	}
}

func TestFlatOpensOppositeSideAndCountsRoundtrip(t *testing.T) {
	ft := &fakeTrading{mid: decimal.NewFromInt(100), now: time.Unix(1_700_000_000, 0)}
	s := newTestStrategy(ft, &fakeExecutors{})
	buy := domain.SideBuy
	s.lastOpenSide = &buy

	intent := createActionOf(t, s.determineActions(context.Background()))

	if intent.Action != domain.PositionActionOpen {
		t.Fatalf("expected OPEN, got %s", intent.Action)
	}
	if intent.Side != domain.SideSell {
		t.Fatalf("expected SELL (opposite of BUY), got %s", intent.Side)
	}
	if s.completedRoundtrips != 1 {
		t.Fatalf("expected exactly 1 roundtrip, got %d", s.completedRoundtrips)
	}
	if *s.lastOpenSide != domain.SideSell {
		t.Fatalf("lastOpenSide must follow the new open")
	}
}

func TestPositionedClosesExactAmountTowardZero(t *testing.T) {
	ft := &fakeTrading{
		mid:      decimal.NewFromInt(100),
		position: decimal.RequireFromString("-2.5"),
		now:      time.Unix(1_700_000_000, 0),
	}
	s := newTestStrategy(ft, &fakeExecutors{})
	buy := domain.SideBuy
	s.lastOpenSide = &buy

	intent := createActionOf(t, s.determineActions(context.Background()))

	if intent.Action != domain.PositionActionClose {
		t.Fatalf("expected CLOSE, got %s", intent.Action)
	}
	if intent.Side != domain.SideBuy {
		t.Fatalf("short position must be bought back, got %s", intent.Side)
	}
	if !intent.Amount.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("close amount must equal |position| exactly, got %s", intent.Amount)
	}
	if intent.Label != "sim_close_1700000000" {
		t.Fatalf("unexpected label %q", intent.Label)
	}
	// CLOSE 不更新 lastOpenSide，也不计 roundtrip
	if *s.lastOpenSide != domain.SideBuy || s.completedRoundtrips != 0 {
		t.Fatalf("close must not touch lastOpenSide/roundtrips")
	}
}

func TestNoOrderWhileExecutorActive(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	ft := &fakeTrading{mid: decimal.NewFromInt(100), now: now}
	fe := &fakeExecutors{infos: []execution.ExecutorInfo{
		{ID: "exec-1", CreatedAt: now.Add(-time.Second), Status: execution.ExecutorStatusActive},
	}}
	s := newTestStrategy(ft, fe)

	if actions := s.determineActions(context.Background()); len(actions) != 0 {
		t.Fatalf("expected no actions while an executor is active, got %d", len(actions))
	}
}

func TestNoOrderBeforeIntervalElapsed(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	ft := &fakeTrading{mid: decimal.NewFromInt(100), now: now}
	s := newTestStrategy(ft, &fakeExecutors{})
	s.lastOrderTime = now.Add(-time.Second) // 间隔 2s 未到

	if actions := s.determineActions(context.Background()); len(actions) != 0 {
		t.Fatalf("expected no actions before interval elapsed")
	}

	ft.now = now.Add(2 * time.Second)
	if actions := s.determineActions(context.Background()); len(actions) != 1 {
		t.Fatalf("expected an action once interval elapsed")
	}
}

func TestNoOrderWithoutValidMidPrice(t *testing.T) {
	for name, ft := range map[string]*fakeTrading{
		"error":    {midErr: context.DeadlineExceeded, now: time.Unix(1, 0)},
		"zero":     {mid: decimal.Zero, now: time.Unix(1, 0)},
		"negative": {mid: decimal.NewFromInt(-1), now: time.Unix(1, 0)},
	} {
		s := newTestStrategy(ft, &fakeExecutors{})
		if actions := s.determineActions(context.Background()); len(actions) != 0 {
			t.Fatalf("%s: expected no actions without a valid mid price", name)
		}
	}
}

func TestPositionErrorTreatedAsFlat(t *testing.T) {
	ft := &fakeTrading{
		mid:    decimal.NewFromInt(100),
		posErr: context.DeadlineExceeded,
		now:    time.Unix(1_700_000_000, 0),
	}
	s := newTestStrategy(ft, &fakeExecutors{})

	intent := createActionOf(t, s.determineActions(context.Background()))
	if intent.Action != domain.PositionActionOpen {
		t.Fatalf("unknown position must be treated as FLAT (OPEN), got %s", intent.Action)
	}
}

func TestStaleExecutorCancelledAndTickShortCircuits(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	ft := &fakeTrading{mid: decimal.NewFromInt(100), now: now}
	fe := &fakeExecutors{infos: []execution.ExecutorInfo{
		{ID: "exec-stale", CreatedAt: now.Add(-6 * time.Second), Status: execution.ExecutorStatusActive},
	}}
	s := newTestStrategy(ft, fe) // stale_order_seconds 默认 5

	actions := s.determineActions(context.Background())
	if len(actions) != 1 {
		t.Fatalf("expected exactly 1 action, got %d", len(actions))
	}
	stop, ok := actions[0].(execution.StopExecutorAction)
	if !ok {
		t.Fatalf("expected StopExecutorAction, got %T", actions[0])
	}
	if stop.ExecutorID != "exec-stale" || !stop.KeepPosition {
		t.Fatalf("cancel must target the stale executor and keep the position: %+v", stop)
	}
	if s.replacedOrders != 1 {
		t.Fatalf("expected replacedOrders=1, got %d", s.replacedOrders)
	}
}

func TestStaleCheckSameSnapshotYieldsSameCancels(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	ft := &fakeTrading{now: now}
	fe := &fakeExecutors{infos: []execution.ExecutorInfo{
		{ID: "exec-stale", CreatedAt: now.Add(-10 * time.Second), Status: execution.ExecutorStatusActive},
	}}
	s := newTestStrategy(ft, fe)

	first := s.checkStaleExecutors(s.snapshotConfig())
	second := s.checkStaleExecutors(s.snapshotConfig())
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("unchanged snapshot must yield the same cancellations: %d vs %d", len(first), len(second))
	}
	a := first[0].(execution.StopExecutorAction)
	b := second[0].(execution.StopExecutorAction)
	if a.ExecutorID != b.ExecutorID {
		t.Fatalf("no new cancellations may appear on re-run: %s vs %s", a.ExecutorID, b.ExecutorID)
	}
}

func TestFreshExecutorNotCancelled(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	ft := &fakeTrading{now: now}
	fe := &fakeExecutors{infos: []execution.ExecutorInfo{
		{ID: "exec-fresh", CreatedAt: now.Add(-time.Second), Status: execution.ExecutorStatusActive},
	}}
	s := newTestStrategy(ft, fe)

	if actions := s.checkStaleExecutors(s.snapshotConfig()); len(actions) != 0 {
		t.Fatalf("fresh executor must not be cancelled")
	}
}

// 完整序列 FLAT→OPEN(buy)→POSITIONED→CLOSE→FLAT→OPEN(sell)：
// roundtrip 只在第二次 OPEN 计一次，首次 OPEN 和 CLOSE 都不计。
func TestRoundtripCountedOnceAcrossFullCycle(t *testing.T) {
	ft := &fakeTrading{mid: decimal.NewFromInt(100), now: time.Unix(1_700_000_000, 0)}
	s := newTestStrategy(ft, &fakeExecutors{})
	buy := domain.SideBuy
	s.lastOpenSide = nil

	// tick 1: 冷启动 OPEN（固定成 BUY 以便断言）
	s.lastOpenSide = &buy
	s.lastOrderTime = time.Time{}
	s.completedRoundtrips = 0

	// tick 2: 有仓位 → CLOSE，不计数
	ft.position = decimal.NewFromInt(1)
	ft.now = ft.now.Add(3 * time.Second)
	intent := createActionOf(t, s.determineActions(context.Background()))
	if intent.Action != domain.PositionActionClose || s.completedRoundtrips != 0 {
		t.Fatalf("close leg must not count a roundtrip")
	}

	// tick 3: 回到 FLAT → 反向 OPEN，计数一次
	ft.position = decimal.Zero
	ft.now = ft.now.Add(3 * time.Second)
	intent = createActionOf(t, s.determineActions(context.Background()))
	if intent.Action != domain.PositionActionOpen || intent.Side != domain.SideSell {
		t.Fatalf("expected reversing OPEN sell, got %s %s", intent.Action, intent.Side)
	}
	if s.completedRoundtrips != 1 {
		t.Fatalf("expected exactly 1 roundtrip, got %d", s.completedRoundtrips)
	}

	// tick 4: 再次 FLAT → OPEN buy，再计一次
	ft.now = ft.now.Add(3 * time.Second)
	intent = createActionOf(t, s.determineActions(context.Background()))
	if intent.Side != domain.SideBuy || s.completedRoundtrips != 2 {
		t.Fatalf("expected second reversal to count: side=%s trips=%d", intent.Side, s.completedRoundtrips)
	}
}

func TestUpdateConfigRejectsInvalidAndAppliesValid(t *testing.T) {
	ft := &fakeTrading{now: time.Unix(1, 0)}
	s := newTestStrategy(ft, &fakeExecutors{})

	badMin := 100.0
	if err := s.UpdateConfig(UpdatableConfig{MinOrderSizeQuote: &badMin}); err == nil {
		t.Fatalf("min > max must be rejected")
	}
	if s.snapshotConfig().MinOrderSizeQuote != 10 {
		t.Fatalf("rejected update must not leak into config")
	}

	newSpread := 25.0
	if err := s.UpdateConfig(UpdatableConfig{SpreadBps: &newSpread}); err != nil {
		t.Fatalf("valid update rejected: %v", err)
	}
	if s.snapshotConfig().SpreadBps != 25 {
		t.Fatalf("valid update not applied")
	}
}

// 热更新把深度或 spread 推到非法值时必须整体拒绝：
// 深度 0 会让盘口采样崩掉，spread >= 10000 会产出零价并在数量换算时除零。
func TestUpdateConfigRejectsDegenerateDepthAndSpread(t *testing.T) {
	ft := &fakeTrading{mid: decimal.NewFromInt(100), book: testBook(), now: time.Unix(1_700_000_000, 0)}
	s := newTestStrategy(ft, &fakeExecutors{})

	zeroDepth := 0
	if err := s.UpdateConfig(UpdatableConfig{MaxOrderbookDepth: &zeroDepth}); err == nil {
		t.Fatalf("max_orderbook_depth=0 must be rejected")
	}
	fullSpread := 10000.0
	if err := s.UpdateConfig(UpdatableConfig{SpreadBps: &fullSpread}); err == nil {
		t.Fatalf("spread_bps=10000 must be rejected")
	}

	// 拒绝之后配置未被污染，下一个 tick 照常出单
	cfg := s.snapshotConfig()
	if cfg.MaxOrderbookDepth != 10 || cfg.SpreadBps != 10 {
		t.Fatalf("rejected update leaked into config: depth=%d spread=%v", cfg.MaxOrderbookDepth, cfg.SpreadBps)
	}
	if actions := s.determineActions(context.Background()); len(actions) != 1 {
		t.Fatalf("tick after rejected update must still emit an order")
	}
}
