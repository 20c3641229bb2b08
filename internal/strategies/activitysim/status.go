package activitysim

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status 引擎状态的只读投影，供状态面板 / 控制面使用。
// 读取本身没有副作用，也不参与任何交易决策。
type Status struct {
	Instrument          string          `json:"instrument"`
	MidPrice            decimal.Decimal `json:"mid_price"`
	Position            decimal.Decimal `json:"position"`
	State               string          `json:"state"` // FLAT / LONG / SHORT
	LastOpenSide        string          `json:"last_open_side"`
	NextSide            string          `json:"next_side"`
	CompletedRoundtrips int64           `json:"completed_roundtrips"`
	ReplacedOrders      int64           `json:"replaced_orders"`
	ActiveExecutors     int             `json:"active_executors"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Snapshot 做一次新鲜的行情/仓位读取并汇总引擎状态。
// 依赖注入之前被调用（控制面比策略先启动时可能发生）返回空白状态。
func (s *Strategy) Snapshot(ctx context.Context) Status {
	cfg := s.snapshotConfig()

	if s.trading == nil {
		return Status{
			Instrument:   cfg.Instrument().String(),
			State:        "FLAT",
			LastOpenSide: "-",
			NextSide:     "?",
		}
	}

	mid, err := s.trading.MidPrice(ctx, cfg.Instrument())
	if err != nil {
		mid = decimal.Zero
	}
	position := s.exchangePosition(ctx, cfg)

	s.stateMu.Lock()
	last := "-"
	next := "?"
	if s.lastOpenSide != nil {
		last = string(*s.lastOpenSide)
		next = string(s.lastOpenSide.Opposite())
	}
	trips := s.completedRoundtrips
	replaced := s.replacedOrders
	s.stateMu.Unlock()

	state := "FLAT"
	if position.IsPositive() {
		state = "LONG"
	} else if position.IsNegative() {
		state = "SHORT"
	}

	active := 0
	if s.executors != nil {
		active = len(s.executors.ActiveExecutors())
	}

	return Status{
		Instrument:          cfg.Instrument().String(),
		MidPrice:            mid,
		Position:            position,
		State:               state,
		LastOpenSide:        last,
		NextSide:            next,
		CompletedRoundtrips: trips,
		ReplacedOrders:      replaced,
		ActiveExecutors:     active,
		UpdatedAt:           s.trading.Now(),
	}
}

// FormatStatus 渲染固定宽度的文本面板
func (s *Strategy) FormatStatus(ctx context.Context) []string {
	st := s.Snapshot(ctx)
	mid, _ := st.MidPrice.Float64()
	pos, _ := st.Position.Float64()

	return []string{
		"┌" + strings.Repeat("─", 80) + "┐",
		fmt.Sprintf("│ Activity Simulator: %-58s │", st.Instrument),
		"├" + strings.Repeat("─", 80) + "┤",
		fmt.Sprintf("│ Mid: %.6f  │  Position: %+.4f  │  State: %-20s│", mid, pos, st.State),
		fmt.Sprintf("│ Last: %-4s Next: %-4s │ Trips: %-4d │ Replaced: %-4d │ Active: %-2d│",
			st.LastOpenSide, st.NextSide, st.CompletedRoundtrips, st.ReplacedOrders, st.ActiveExecutors),
		"└" + strings.Repeat("─", 80) + "┘",
	}
}
