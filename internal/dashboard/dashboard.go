// Package dashboard 提供终端实时状态面板（bubbletea）。
// 只读展示，不参与任何决策路径。
package dashboard

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "dashboard")

// StatusProvider 状态来源（由策略实现）
type StatusProvider interface {
	FormatStatus(ctx context.Context) []string
}

// Run 启动面板并阻塞到退出（q / ctrl+c 或 ctx 结束）。
func Run(ctx context.Context, provider StatusProvider) error {
	p := tea.NewProgram(newModel(ctx, provider), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		// ctx 结束导致的退出不算错误
		return nil
	}
	return err
}
