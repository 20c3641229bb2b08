// Package shutdown 收集各组件的关闭钩子并在进程退出时统一执行。
package shutdown

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "shutdown")

// Handler 关闭钩子。ctx 带总超时；wg 供钩子内部启动的清理 goroutine 使用。
type Handler func(ctx context.Context, wg *sync.WaitGroup)

type hook struct {
	name string
	fn   Handler
}

// Manager 按注册的逆序执行关闭钩子（后注册的先关，贴近依赖方向）。
type Manager struct {
	mu    sync.Mutex
	hooks []hook
	done  bool
}

func NewManager() *Manager {
	return &Manager{}
}

// OnShutdown 注册一个匿名钩子。
func (m *Manager) OnShutdown(fn Handler) {
	m.OnShutdownNamed("", fn)
}

// OnShutdownNamed 注册一个带名字的钩子，便于关闭日志定位卡住的组件。
func (m *Manager) OnShutdownNamed(name string, fn Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook{name: name, fn: fn})
}

// Shutdown 逆序执行全部钩子，阻塞到完成或 ctx 超时。重复调用是 no-op。
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return
	}
	m.done = true
	hooks := make([]hook, len(m.hooks))
	copy(hooks, m.hooks)
	m.mu.Unlock()

	if len(hooks) == 0 {
		return
	}
	log.Infof("关闭中，%d 个钩子", len(hooks))

	var wg sync.WaitGroup
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for i := len(hooks) - 1; i >= 0; i-- {
			h := hooks[i]
			start := time.Now()
			h.fn(ctx, &wg)
			if h.name != "" {
				log.Debugf("钩子 %s 完成 (%v)", h.name, time.Since(start))
			}
		}
		wg.Wait()
	}()

	select {
	case <-finished:
		log.Info("关闭完成")
	case <-ctx.Done():
		log.Warnf("关闭超时退出: %v", ctx.Err())
	}
}
