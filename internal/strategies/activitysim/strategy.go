// Package activitysim 实现活动模拟策略：用小额往返交易把单一标的
// 持续拉回零仓位，以交易所上报的真实仓位为唯一事实来源。
package activitysim

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/simbot/internal/domain"
	"github.com/betbot/simbot/internal/execution"
	"github.com/betbot/simbot/internal/metrics"
	"github.com/betbot/simbot/internal/ports"
	"github.com/betbot/simbot/pkg/bbgo"
)

var log = logrus.WithField("strategy", ID)

// 决策节拍：每个 tick 从头评估一次状态机
const tickInterval = time.Second

func init() {
	bbgo.RegisterStrategy(ID, &Strategy{})
}

// actionApplier 执行层的窄接口（便于测试替换）
type actionApplier interface {
	Apply(ctx context.Context, actions []execution.ExecutorAction) error
}

// Strategy 往返决策引擎。
//
// 不维护成交账本：每个 tick 重新读取交易所仓位，FLAT 就开仓、
// 有仓就平仓。lastOpenSide 只是选择下次开仓方向的本地假设，
// 仓位读数和它冲突时永远以仓位为准。
type Strategy struct {
	Config `yaml:",inline" json:",inline"`

	trading   ports.SimTradingService
	executors execution.ActiveExecutorsGetter
	applier   actionApplier

	rng *rand.Rand

	cfgMu sync.RWMutex // 只保护热更新的配置字段

	// 引擎状态：tick 循环是唯一写者；stateMu 仅用于状态面板读取
	stateMu             sync.Mutex
	lastOrderTime       time.Time
	lastOpenSide        *domain.Side
	completedRoundtrips int64
	replacedOrders      int64

	loopOnce   sync.Once
	loopCancel context.CancelFunc
}

func (s *Strategy) ID() string   { return ID }
func (s *Strategy) Name() string { return ID }

func (s *Strategy) Defaults() error {
	s.Config.Defaults()
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return nil
}

func (s *Strategy) Validate() error { return s.Config.Validate() }

// UpdateConfig 原子套用热更新子集；校验失败不生效。
func (s *Strategy) UpdateConfig(u UpdatableConfig) error {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	next := u.applyTo(s.Config)
	if err := next.Validate(); err != nil {
		return err
	}
	s.Config = next
	log.Infof("配置已热更新: %+v", u)
	return nil
}

// snapshotConfig 拿一份一致的配置副本供单个 tick 使用
func (s *Strategy) snapshotConfig() Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.Config
}

// Bind 提前注入行情服务与执行引擎。在启动控制面 / 面板之前调用，
// 让状态读取先于策略循环就绪；Run 会复用已注入的依赖。
func (s *Strategy) Bind(trading ports.SimTradingService, executor *execution.Engine) {
	s.bind(trading, executor)
}

func (s *Strategy) bind(trading ports.SimTradingService, executor *execution.Engine) {
	if s.trading == nil && trading != nil {
		s.trading = trading
	}
	if executor != nil {
		if s.executors == nil {
			s.executors = executor
		}
		if s.applier == nil {
			s.applier = executor
		}
	}
}

// Run 启动 tick 循环，阻塞到 ctx 结束。
func (s *Strategy) Run(ctx context.Context, executor *execution.Engine, session *bbgo.Session) error {
	s.bind(session.Trading, executor)

	bbgo.StartLoopOnce(ctx, &s.loopOnce, func(c context.CancelFunc) { s.loopCancel = c }, tickInterval,
		func(loopCtx context.Context, tickC <-chan time.Time) {
			log.Infof("✅ [%s] 策略循环已启动: %s", ID, s.Config.Instrument())
			for {
				select {
				case <-loopCtx.Done():
					return
				case <-tickC:
					s.tick(loopCtx)
				}
			}
		})

	<-ctx.Done()
	return ctx.Err()
}

func (s *Strategy) Shutdown(ctx context.Context, wg *sync.WaitGroup) {
	if s.loopCancel != nil {
		s.loopCancel()
	}
}

// tick 执行一轮决策并把动作交给执行层
func (s *Strategy) tick(ctx context.Context) {
	actions := s.determineActions(ctx)
	if len(actions) == 0 {
		return
	}
	if err := s.applier.Apply(ctx, actions); err != nil {
		log.Errorf("动作执行失败: %v", err)
	}
}

// determineActions 是每个 tick 的完整决策协议：
//  1. 过期挂单优先：有撤单动作就立即返回，本 tick 不再下新单
//  2. 准入：无活跃执行器且距上次下单超过最小间隔
//  3. 中间价无效则放弃本 tick
//  4. 读真实仓位：FLAT 开新仓，否则精确平回零
func (s *Strategy) determineActions(ctx context.Context) []execution.ExecutorAction {
	cfg := s.snapshotConfig()

	if stale := s.checkStaleExecutors(cfg); len(stale) > 0 {
		return stale
	}
	if !s.shouldPlaceOrder(cfg) {
		return nil
	}

	mid, err := s.trading.MidPrice(ctx, cfg.Instrument())
	if err != nil || !mid.IsPositive() {
		// 没有可靠的价格基准就不交易
		return nil
	}

	position := s.exchangePosition(ctx, cfg)

	var (
		side   domain.Side
		amount decimal.Decimal
		action domain.PositionAction
	)

	s.stateMu.Lock()
	if position.IsZero() {
		if s.lastOpenSide == nil {
			// 冷启动：随机选方向
			side = domain.SideBuy
			if s.rng.Intn(2) == 1 {
				side = domain.SideSell
			}
		} else {
			side = s.lastOpenSide.Opposite()
			s.completedRoundtrips++
			metrics.CompletedRoundtrips.Add(1)
		}
		action = domain.PositionActionOpen
		opened := side
		s.lastOpenSide = &opened
	} else {
		// 永远朝零移动；平仓量必须精确等于仓位，不做随机化
		side = domain.Position{Amount: position}.ClosingSide()
		amount = position.Abs()
		action = domain.PositionActionClose
	}
	s.stateMu.Unlock()

	price := s.orderPrice(ctx, cfg, side, mid)
	if action == domain.PositionActionOpen {
		amount = s.randomNotionalQuote(cfg).Div(price)
	}

	now := s.trading.Now()
	s.stateMu.Lock()
	s.lastOrderTime = now
	s.stateMu.Unlock()

	intent := domain.OrderIntent{
		Timestamp:  now,
		Instrument: cfg.Instrument(),
		Side:       side,
		Amount:     amount,
		Price:      price,
		Action:     action,
		Leverage:   cfg.Leverage,
		Strategy:   domain.ExecutionStrategyLimit,
		Label:      domain.IntentLabel(action, now),
	}

	log.Infof("📝 [%s] %s %s amount=%s price=%s position=%s", ID, action, side, amount, price, position)
	metrics.OrdersPlaced.Add(1)

	return []execution.ExecutorAction{execution.CreateExecutorAction{Intent: intent}}
}

// checkStaleExecutors 给每个超龄执行器生成一个保留仓位的撤单动作。
// 有任何撤单动作时当前 tick 短路，避免撤单和下单在同一 tick 竞争。
func (s *Strategy) checkStaleExecutors(cfg Config) []execution.ExecutorAction {
	now := s.trading.Now()
	staleAfter := time.Duration(cfg.StaleOrderSeconds * float64(time.Second))

	var actions []execution.ExecutorAction
	for _, ex := range s.executors.ActiveExecutors() {
		if now.Sub(ex.CreatedAt) >= staleAfter {
			actions = append(actions, execution.StopExecutorAction{ExecutorID: ex.ID, KeepPosition: true})
			s.stateMu.Lock()
			s.replacedOrders++
			s.stateMu.Unlock()
			metrics.ReplacedOrders.Add(1)
			log.Infof("⏱ [%s] 撤掉过期挂单: executor=%s age=%v", ID, ex.ID, now.Sub(ex.CreatedAt))
		}
	}
	return actions
}

// shouldPlaceOrder 下单准入：无活跃执行器 + 间隔已到
func (s *Strategy) shouldPlaceOrder(cfg Config) bool {
	if len(s.executors.ActiveExecutors()) != 0 {
		return false
	}
	interval := time.Duration(cfg.OrderIntervalSeconds * float64(time.Second))
	s.stateMu.Lock()
	last := s.lastOrderTime
	s.stateMu.Unlock()
	return s.trading.Now().Sub(last) >= interval
}

// exchangePosition 读取交易所真实仓位；任何失败都按零仓位处理。
// 误把仓位当成零最多多跑一轮开平，不会造成仓位失控：
// 下一个 tick 平仓前会重新读取仓位。
func (s *Strategy) exchangePosition(ctx context.Context, cfg Config) decimal.Decimal {
	position, err := s.trading.CurrentPosition(ctx, cfg.Instrument())
	if err != nil {
		log.Debugf("读取仓位失败，按 FLAT 处理: %v", err)
		return decimal.Zero
	}
	return position
}
