// Package execution 把策略产出的订单意图变成交易所的真实订单，
// 并维护“当前活跃执行器”快照供策略观察。
package execution

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/betbot/simbot/internal/domain"
	"github.com/betbot/simbot/internal/exchange"
	"github.com/betbot/simbot/internal/ports"
)

var log = logrus.WithField("component", "execution")

// ExecutorStatus 执行器状态
type ExecutorStatus string

const (
	ExecutorStatusActive  ExecutorStatus = "active"
	ExecutorStatusStopped ExecutorStatus = "stopped"
	ExecutorStatusFailed  ExecutorStatus = "failed"
)

// ExecutorInfo 活跃执行器的只读快照。
// 策略只关心 ID 和 CreatedAt（判断过期），其余字段用于观测。
type ExecutorInfo struct {
	ID        string
	OrderID   string
	Intent    domain.OrderIntent
	CreatedAt time.Time
	Status    ExecutorStatus
}

// ActiveExecutorsGetter 是策略观察执行器的窄接口。
type ActiveExecutorsGetter interface {
	ActiveExecutors() []ExecutorInfo
}

// Engine 执行器引擎：单实例管理一个连接器上的所有执行器。
type Engine struct {
	connector exchange.Connector
	clock     ports.Clock
	inFlight  *InFlightDeduper

	mu        sync.RWMutex
	executors map[string]*ExecutorInfo
}

func NewEngine(connector exchange.Connector, clock ports.Clock) *Engine {
	return &Engine{
		connector: connector,
		clock:     clock,
		inFlight:  NewInFlightDeduper(2 * time.Second),
		executors: make(map[string]*ExecutorInfo),
	}
}

// ActiveExecutors 返回活跃执行器快照，按创建时间升序。
func (e *Engine) ActiveExecutors() []ExecutorInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]ExecutorInfo, 0, len(e.executors))
	for _, ex := range e.executors {
		if ex.Status == ExecutorStatusActive {
			out = append(out, *ex)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Apply 依次执行动作。单个动作失败不中断后续动作，返回第一个错误。
func (e *Engine) Apply(ctx context.Context, actions []ExecutorAction) error {
	var firstErr error
	for _, a := range actions {
		var err error
		switch act := a.(type) {
		case CreateExecutorAction:
			err = e.create(ctx, act)
		case StopExecutorAction:
			err = e.stop(ctx, act)
		default:
			err = fmt.Errorf("unknown action %T", a)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (e *Engine) create(ctx context.Context, act CreateExecutorAction) error {
	intent := act.Intent

	// 同一意图短窗口去重：策略容忍偶发重复订单，但没必要主动制造
	key := intent.Label + "|" + string(intent.Side) + "|" + intent.Price.String()
	if err := e.inFlight.TryAcquire(key); err != nil {
		log.Warnf("跳过重复意图: %s", intent.Label)
		return nil
	}

	orderID, err := e.connector.PlaceOrder(ctx, intent)
	if err != nil {
		e.inFlight.Release(key)
		log.Errorf("下单失败: %s %s %s@%s: %v", intent.Label, intent.Side, intent.Amount, intent.Price, err)
		return err
	}

	createdAt := intent.Timestamp
	if createdAt.IsZero() {
		createdAt = e.clock.Now()
	}
	info := &ExecutorInfo{
		ID:        uuid.New().String(),
		OrderID:   orderID,
		Intent:    intent,
		CreatedAt: createdAt,
		Status:    ExecutorStatusActive,
	}
	e.mu.Lock()
	e.executors[info.ID] = info
	e.mu.Unlock()

	log.Infof("执行器已创建: %s %s %s %s@%s label=%s",
		info.ID[:8], intent.Action, intent.Side, intent.Amount, intent.Price, intent.Label)
	return nil
}

func (e *Engine) stop(ctx context.Context, act StopExecutorAction) error {
	e.mu.Lock()
	info, ok := e.executors[act.ExecutorID]
	if !ok || info.Status != ExecutorStatusActive {
		e.mu.Unlock()
		return nil
	}
	// 先摘掉再撤单：即使撤单失败，该订单也已超龄，
	// 残留的挂单会被下一轮对账视为事实纠正
	info.Status = ExecutorStatusStopped
	delete(e.executors, act.ExecutorID)
	e.mu.Unlock()

	if err := e.connector.CancelOrder(ctx, info.Intent.Instrument, info.OrderID, act.KeepPosition); err != nil {
		log.Errorf("撤单失败: executor=%s order=%s: %v", act.ExecutorID[:8], info.OrderID, err)
		return err
	}
	log.Infof("执行器已停止: %s keepPosition=%v", act.ExecutorID[:8], act.KeepPosition)
	return nil
}

// ReconcileFills 用交易所挂单列表校正活跃执行器：已知订单不在挂单簿上
// 即视为已成交（或被外部撤掉），立即移出活跃集合，让下单准入尽快放行。
// 先取快照再查挂单：快照之后新建的执行器不会被误杀。
func (e *Engine) ReconcileFills(ctx context.Context) error {
	snapshot := e.ActiveExecutors()
	if len(snapshot) == 0 {
		return nil
	}

	byInstrument := make(map[domain.Instrument][]ExecutorInfo)
	for _, ex := range snapshot {
		byInstrument[ex.Intent.Instrument] = append(byInstrument[ex.Intent.Instrument], ex)
	}

	var firstErr error
	for instrument, execs := range byInstrument {
		ids, err := e.connector.OpenOrders(ctx, instrument)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		open := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			open[id] = struct{}{}
		}
		for _, ex := range execs {
			if _, stillOpen := open[ex.OrderID]; !stillOpen {
				e.MarkFilled(ex.OrderID)
				log.Infof("订单已离场，释放执行器: %s order=%s", ex.ID[:8], ex.OrderID)
			}
		}
	}
	return firstErr
}

// StartReconciler 周期执行成交对账（非阻塞），ctx 结束后停止。
func (e *Engine) StartReconciler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := e.ReconcileFills(ctx); err != nil {
					log.Debugf("成交对账失败: %v", err)
				}
			}
		}
	}()
}

// MarkFilled 把执行器标记为完成并移出活跃集合。由成交对账调用；
// 仓位事实不依赖它：即使对账漏掉，仓位读数也会体现成交。
func (e *Engine) MarkFilled(orderID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, info := range e.executors {
		if info.OrderID == orderID {
			delete(e.executors, id)
			return
		}
	}
}
