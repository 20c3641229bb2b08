package bbgo

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/betbot/simbot/internal/domain"
	"github.com/betbot/simbot/internal/execution"
	"github.com/betbot/simbot/internal/ports"
	"github.com/betbot/simbot/pkg/shutdown"
)

var traderLog = logrus.WithField("component", "trader")

// Session 交易会话：把标的和数据通道一起交给策略。
type Session struct {
	Instrument domain.Instrument
	Trading    ports.SimTradingService
}

// StrategyID 策略 ID 接口，所有策略必须实现
type StrategyID interface {
	ID() string
}

// SingleInstrumentStrategy 单标的策略接口。
// Run 应阻塞到 ctx 结束。
type SingleInstrumentStrategy interface {
	StrategyID
	Run(ctx context.Context, executor *execution.Engine, session *Session) error
}

// StrategyDefaulter 可选：在 Validate 之前设置默认值
type StrategyDefaulter interface {
	Defaults() error
}

// StrategyValidator 可选：校验配置
type StrategyValidator interface {
	Validate() error
}

// StrategyInitializer 可选：Run 之前的初始化
type StrategyInitializer interface {
	Initialize() error
}

// StrategyShutdown 可选：系统关闭时的清理
type StrategyShutdown interface {
	Shutdown(ctx context.Context, wg *sync.WaitGroup)
}

// Trader 策略管理器：负责策略生命周期
type Trader struct {
	session  *Session
	executor *execution.Engine

	strategies   []SingleInstrumentStrategy
	strategiesMu sync.RWMutex

	shutdownManager *shutdown.Manager
}

func NewTrader(session *Session, executor *execution.Engine, sm *shutdown.Manager) *Trader {
	return &Trader{
		session:         session,
		executor:        executor,
		shutdownManager: sm,
	}
}

func (t *Trader) AddStrategy(strategy SingleInstrumentStrategy) {
	t.strategiesMu.Lock()
	defer t.strategiesMu.Unlock()
	t.strategies = append(t.strategies, strategy)
}

// Initialize 依次调用策略的 Defaults / Validate / Initialize
func (t *Trader) Initialize(ctx context.Context) error {
	t.strategiesMu.RLock()
	strategies := t.strategies
	t.strategiesMu.RUnlock()

	for _, s := range strategies {
		if defaulter, ok := s.(StrategyDefaulter); ok {
			if err := defaulter.Defaults(); err != nil {
				return fmt.Errorf("strategy %s defaults error: %w", s.ID(), err)
			}
		}
		if validator, ok := s.(StrategyValidator); ok {
			if err := validator.Validate(); err != nil {
				return fmt.Errorf("strategy %s validation error: %w", s.ID(), err)
			}
		}
		if initializer, ok := s.(StrategyInitializer); ok {
			if err := initializer.Initialize(); err != nil {
				return fmt.Errorf("strategy %s initialization error: %w", s.ID(), err)
			}
		}
	}
	return nil
}

// Run 启动所有策略；阻塞到全部退出。
func (t *Trader) Run(ctx context.Context) error {
	t.strategiesMu.RLock()
	strategies := t.strategies
	t.strategiesMu.RUnlock()

	var wg sync.WaitGroup
	errC := make(chan error, len(strategies))

	for _, s := range strategies {
		if sd, ok := s.(StrategyShutdown); ok && t.shutdownManager != nil {
			t.shutdownManager.OnShutdown(sd.Shutdown)
		}
		wg.Add(1)
		go func(s SingleInstrumentStrategy) {
			defer wg.Done()
			traderLog.Infof("启动策略: %s", s.ID())
			if err := s.Run(ctx, t.executor, t.session); err != nil && ctx.Err() == nil {
				traderLog.Errorf("策略 %s 退出: %v", s.ID(), err)
				errC <- fmt.Errorf("strategy %s: %w", s.ID(), err)
			}
		}(s)
	}

	wg.Wait()
	close(errC)
	return <-errC
}
