package types

// AssetClass groups symbols that share session calendars and risk tiers.
type AssetClass string

const (
	AssetCurrency  AssetClass = "currency"
	AssetCrypto    AssetClass = "crypto"
	AssetIndex     AssetClass = "index"
	AssetCommodity AssetClass = "commodity"
)

// Symbol describes one tradable instrument. Immutable after config load.
type Symbol struct {
	Name             string
	Class            AssetClass
	PointSize        float64
	MinStopDistance  float64
	CorrelationGroup string
}

// RiskTier is the per-asset-class risk configuration bundle.
type RiskTier struct {
	RiskPerTradePct      float64
	MaxDailyLossPct      float64
	MaxParallelPositions int
	MaxDailyTrades       int
	RewardRiskRatio      float64
}
