package types

import (
	"time"
)

// Direction is the closed set of directions an agent may vote for.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
	DirectionNone  Direction = "none"
)

func (d Direction) Valid() bool {
	switch d {
	case DirectionLong, DirectionShort, DirectionNone:
		return true
	}
	return false
}

// Opposite returns the opposing trade direction. None opposes nothing.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionLong:
		return DirectionShort
	case DirectionShort:
		return DirectionLong
	default:
		return DirectionNone
	}
}

// AgentSignal is the output of one agent for one (symbol, timeframe) at one
// evaluation time. Strength is bounded to [0,1]; the collector clamps values
// outside the range. Signals are created fresh each cycle and never mutated.
type AgentSignal struct {
	Agent     string    `json:"agent"`
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Direction Direction `json:"direction"`
	Strength  float64   `json:"strength"`
	Tags      []string  `json:"tags,omitempty"`
	At        time.Time `json:"at"`
}

// SignalSet indexes collected signals by agent then timeframe. Absent slots
// mean the agent produced nothing (timeout, error or no opinion).
type SignalSet map[string]map[string]AgentSignal

// Count returns the number of present signals.
func (s SignalSet) Count() int {
	n := 0
	for _, tfs := range s {
		n += len(tfs)
	}
	return n
}

// Add stores a signal under its agent/timeframe slot.
func (s SignalSet) Add(sig AgentSignal) {
	if sig.Agent == "" || sig.Timeframe == "" {
		return
	}
	tfs, ok := s[sig.Agent]
	if !ok {
		tfs = make(map[string]AgentSignal)
		s[sig.Agent] = tfs
	}
	tfs[sig.Timeframe] = sig
}
