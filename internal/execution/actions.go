package execution

import "github.com/betbot/simbot/internal/domain"

// ExecutorAction 策略每个 tick 产出的动作。
// 两种实现：CreateExecutorAction（下单）和 StopExecutorAction（撤单）。
type ExecutorAction interface {
	actionTag()
}

// CreateExecutorAction 创建一个订单执行器（即提交一笔订单意图）。
type CreateExecutorAction struct {
	Intent domain.OrderIntent
}

// StopExecutorAction 停止一个执行器。
// KeepPosition=true 时只撤掉未成交挂单，已建立的仓位保持不动。
type StopExecutorAction struct {
	ExecutorID   string
	KeepPosition bool
}

func (CreateExecutorAction) actionTag() {}
func (StopExecutorAction) actionTag()   {}
