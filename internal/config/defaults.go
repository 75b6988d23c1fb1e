package config

import "strings"

const (
	defaultAppEnv          = "dev"
	defaultAppLogLevel     = "info"
	defaultAppHTTPAddr     = ":9981"
	defaultInterval        = "1m"
	defaultAgentTimeoutSec = 10
	defaultMinScore        = 1.2
	defaultMinConfluence   = 2
	defaultAmbiguityMargin = 0.25
	defaultCooldownMin     = 15
	defaultDigestHour      = 20
	defaultOptimizeHour    = 19
	defaultStopATRMult     = 2.0
	defaultFreezeMinutes   = 30
	defaultCalendarRefresh = 15
	defaultGatewayTimeout  = 10
	defaultPaperEquity     = 10000
	defaultStorePath       = "data/empire.db"
	defaultTrackerDecay    = 0.85
	defaultTrackerHistory  = 5
	defaultTrackerHalfLife = 14.0
	defaultWeightSamples   = 5
	defaultAntiSpamSec     = 300
)

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.App.Env) == "" {
		c.App.Env = defaultAppEnv
	}
	if strings.TrimSpace(c.App.LogLevel) == "" {
		c.App.LogLevel = defaultAppLogLevel
	}
	if strings.TrimSpace(c.App.HTTPAddr) == "" {
		c.App.HTTPAddr = defaultAppHTTPAddr
	}
	if strings.TrimSpace(c.Engine.Interval) == "" {
		c.Engine.Interval = defaultInterval
	}
	if len(c.Engine.Timeframes) == 0 {
		c.Engine.Timeframes = []string{"5m", "15m", "1h"}
	}
	if c.Engine.AgentTimeoutSec <= 0 {
		c.Engine.AgentTimeoutSec = defaultAgentTimeoutSec
	}
	if c.Engine.MinScore <= 0 {
		c.Engine.MinScore = defaultMinScore
	}
	if c.Engine.MinConfluence <= 0 {
		c.Engine.MinConfluence = defaultMinConfluence
	}
	if c.Engine.AmbiguityMargin <= 0 {
		c.Engine.AmbiguityMargin = defaultAmbiguityMargin
	}
	if c.Engine.CooldownMinutes <= 0 {
		c.Engine.CooldownMinutes = defaultCooldownMin
	}
	if c.Engine.DigestHourUTC <= 0 {
		c.Engine.DigestHourUTC = defaultDigestHour
	}
	if c.Engine.OptimizeHourUTC <= 0 {
		c.Engine.OptimizeHourUTC = defaultOptimizeHour
	}
	if c.Engine.StopATRMultiplier <= 0 {
		c.Engine.StopATRMultiplier = defaultStopATRMult
	}
	if c.Weights.MinSamples <= 0 {
		c.Weights.MinSamples = defaultWeightSamples
	}
	if c.Calendar.FreezeMinutes <= 0 {
		c.Calendar.FreezeMinutes = defaultFreezeMinutes
	}
	if c.Calendar.RefreshMin <= 0 {
		c.Calendar.RefreshMin = defaultCalendarRefresh
	}
	if c.Gateway.TimeoutSec <= 0 {
		c.Gateway.TimeoutSec = defaultGatewayTimeout
	}
	if c.Gateway.PaperEquity <= 0 {
		c.Gateway.PaperEquity = defaultPaperEquity
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		c.Store.Path = defaultStorePath
	}
	if c.Tracker.Decay <= 0 || c.Tracker.Decay >= 1 {
		c.Tracker.Decay = defaultTrackerDecay
	}
	if c.Tracker.MinHistory <= 0 {
		c.Tracker.MinHistory = defaultTrackerHistory
	}
	if c.Tracker.InactivityHalfLifeDay <= 0 {
		c.Tracker.InactivityHalfLifeDay = defaultTrackerHalfLife
	}
	if c.Notify.AntiSpamSec <= 0 {
		c.Notify.AntiSpamSec = defaultAntiSpamSec
	}
	if c.RiskTiers == nil {
		c.RiskTiers = map[string]RiskTierConfig{}
	}
	for class, tier := range c.RiskTiers {
		if tier.RiskPerTradePct <= 0 {
			tier.RiskPerTradePct = 0.01
		}
		if tier.MaxDailyLossPct <= 0 {
			tier.MaxDailyLossPct = 0.05
		}
		if tier.MaxParallelPositions <= 0 {
			tier.MaxParallelPositions = 3
		}
		if tier.MaxDailyTrades <= 0 {
			tier.MaxDailyTrades = 10
		}
		if tier.RewardRiskRatio <= 0 {
			tier.RewardRiskRatio = 1.5
		}
		c.RiskTiers[class] = tier
	}
}
