package agent

import (
	"context"
	"time"

	"empire/internal/market"
	"empire/internal/types"

	"github.com/markcheno/go-talib"
)

const macroEMAPeriod = 50

// Macro gives a low-strength higher-timeframe bias from the slow EMA slope,
// and abstains entirely inside a calendar freeze window: around scheduled
// releases the macro picture is unreadable, not directional.
type Macro struct {
	calendar  *market.CalendarService
	timeframe string
	nowFn     func() time.Time
}

func NewMacro(calendar *market.CalendarService, timeframe string) *Macro {
	return &Macro{calendar: calendar, timeframe: timeframe, nowFn: time.Now}
}

func (m *Macro) Name() string { return "macro" }

func (m *Macro) Global() bool { return true }

func (m *Macro) Evaluate(ctx context.Context, symbol, timeframe string, window *market.Window) (*types.AgentSignal, error) {
	if m.calendar != nil && m.calendar.IsFreezeWindow(ctx, symbol, m.nowFn()) {
		return nil, nil
	}
	closes := window.Closes(m.timeframe)
	if len(closes) < macroEMAPeriod+2 {
		return nil, nil
	}
	ema := talib.Ema(closes, macroEMAPeriod)
	last := len(ema) - 1
	slope := ema[last] - ema[last-1]
	if slope == 0 {
		return nil, nil
	}
	dir := types.DirectionLong
	if slope < 0 {
		dir = types.DirectionShort
	}
	return &types.AgentSignal{
		Direction: dir,
		Strength:  0.4,
		Tags:      []string{"macro_trend"},
	}, nil
}
