package domain

import "github.com/shopspring/decimal"

// Position 带符号的净仓位：正数多头、负数空头、零为平。
type Position struct {
	Instrument Instrument
	Amount     decimal.Decimal
}

func (p Position) IsFlat() bool { return p.Amount.IsZero() }

// StateLabel 返回 FLAT / LONG / SHORT，用于状态展示。
func (p Position) StateLabel() string {
	switch {
	case p.Amount.IsZero():
		return "FLAT"
	case p.Amount.IsPositive():
		return "LONG"
	default:
		return "SHORT"
	}
}

// ClosingSide 平仓方向：空头买回、多头卖出。对平仓位无意义。
func (p Position) ClosingSide() Side {
	if p.Amount.IsNegative() {
		return SideBuy
	}
	return SideSell
}
