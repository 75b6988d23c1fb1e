package market

import "context"

type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Window is the read-only market snapshot handed to every agent in a cycle.
// Candles are ordered oldest first, keyed by timeframe.
type Window struct {
	Symbol  string
	Price   float64
	Candles map[string][]Candle
}

// Series returns the candles for one timeframe, or nil.
func (w *Window) Series(timeframe string) []Candle {
	if w == nil {
		return nil
	}
	return w.Candles[timeframe]
}

// Closes extracts the close series for a timeframe, oldest first.
func (w *Window) Closes(timeframe string) []float64 {
	series := w.Series(timeframe)
	if len(series) == 0 {
		return nil
	}
	out := make([]float64, len(series))
	for i, c := range series {
		out[i] = c.Close
	}
	return out
}

// HighLowClose extracts the three series talib's range functions need.
func (w *Window) HighLowClose(timeframe string) (highs, lows, closes []float64) {
	series := w.Series(timeframe)
	if len(series) == 0 {
		return nil, nil, nil
	}
	highs = make([]float64, len(series))
	lows = make([]float64, len(series))
	closes = make([]float64, len(series))
	for i, c := range series {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
	}
	return highs, lows, closes
}

// Source supplies historical candles for a symbol/timeframe.
type Source interface {
	FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
}
