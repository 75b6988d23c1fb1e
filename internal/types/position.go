package types

import (
	"time"
)

// PositionState models the per-symbol lifecycle:
// flat -> pending -> open -> closing -> flat.
type PositionState string

const (
	PositionFlat    PositionState = "flat"
	PositionPending PositionState = "pending"
	PositionOpen    PositionState = "open"
	PositionClosing PositionState = "closing"
)

// Position is the local view of the single logical holding for one symbol.
// The gateway is the source of truth for fills and closes; this struct is
// reconciled against it every cycle.
type Position struct {
	Symbol     string        `json:"symbol"`
	State      PositionState `json:"state"`
	Direction  Direction     `json:"direction"`
	EntryPrice float64       `json:"entry_price"`
	StopLoss   float64       `json:"stop_loss"`
	TakeProfit float64       `json:"take_profit"`
	Size       float64       `json:"size"`
	OrderID    string        `json:"order_id,omitempty"`
	OpenedAt   time.Time     `json:"opened_at,omitempty"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Active reports whether the position occupies exposure for correlation and
// risk checks (anything that is not flat).
func (p Position) Active() bool {
	return p.State != "" && p.State != PositionFlat
}

// AccountSnapshot mirrors the gateway's view of account funds.
type AccountSnapshot struct {
	Equity    float64   `json:"equity"`
	Available float64   `json:"available"`
	Currency  string    `json:"currency"`
	UpdatedAt time.Time `json:"updated_at"`
}
