package config

// Config is the root configuration carrier for the engine.
type Config struct {
	App       AppConfig                  `mapstructure:"app"`
	Engine    EngineConfig               `mapstructure:"engine"`
	Symbols   []SymbolConfig             `mapstructure:"symbols"`
	Weights   WeightsConfig              `mapstructure:"weights"`
	RiskTiers map[string]RiskTierConfig  `mapstructure:"risk_tiers"`
	Sessions  map[string]SessionConfig   `mapstructure:"sessions"`
	Gateway   GatewayConfig              `mapstructure:"gateway"`
	Calendar  CalendarConfig             `mapstructure:"calendar"`
	Sentiment SentimentConfig            `mapstructure:"sentiment"`
	Notify    NotifyConfig               `mapstructure:"notify"`
	Store     StoreConfig                `mapstructure:"store"`
	Tracker   TrackerConfig              `mapstructure:"tracker"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
	HTTPAddr string `mapstructure:"http_addr"`
}

// EngineConfig drives the per-symbol cycle and the gating thresholds.
type EngineConfig struct {
	Interval          string   `mapstructure:"interval"`
	Timeframes        []string `mapstructure:"timeframes"`
	AgentTimeoutSec   int      `mapstructure:"agent_timeout_seconds"`
	MinScore          float64  `mapstructure:"min_score"`
	MinConfluence     int      `mapstructure:"min_confluence"`
	AmbiguityMargin   float64  `mapstructure:"ambiguity_margin"`
	CooldownMinutes   int      `mapstructure:"cooldown_minutes"`
	DigestHourUTC     int      `mapstructure:"digest_hour_utc"`
	OptimizeHourUTC   int      `mapstructure:"optimize_hour_utc"`
	StopATRMultiplier float64  `mapstructure:"stop_atr_multiplier"`
}

type SymbolConfig struct {
	Name             string  `mapstructure:"name"`
	Enabled          bool    `mapstructure:"enabled"`
	Class            string  `mapstructure:"class"`
	PointSize        float64 `mapstructure:"point_size"`
	MinStopDistance  float64 `mapstructure:"min_stop_distance"`
	CorrelationGroup string  `mapstructure:"correlation_group"`
}

// WeightsConfig holds the static priors used until a performance bucket has
// enough samples to speak for itself.
type WeightsConfig struct {
	Agents     map[string]float64 `mapstructure:"agents"`
	Timeframes map[string]float64 `mapstructure:"timeframes"`
	MinSamples int                `mapstructure:"min_samples"`
}

type RiskTierConfig struct {
	RiskPerTradePct      float64 `mapstructure:"risk_per_trade_pct"`
	MaxDailyLossPct      float64 `mapstructure:"max_daily_loss_pct"`
	MaxParallelPositions int     `mapstructure:"max_parallel_positions"`
	MaxDailyTrades       int     `mapstructure:"max_daily_trades"`
	RewardRiskRatio      float64 `mapstructure:"reward_risk_ratio"`
}

// SessionConfig describes one asset class trading calendar. Blackouts are
// half-open [from, to) windows in "HH:MM" UTC.
type SessionConfig struct {
	AlwaysOpen bool             `mapstructure:"always_open"`
	OpenDays   []string         `mapstructure:"open_days"`
	OpenTime   string           `mapstructure:"open_time"`
	CloseTime  string           `mapstructure:"close_time"`
	Blackouts  []BlackoutWindow `mapstructure:"blackouts"`
}

type BlackoutWindow struct {
	Days []string `mapstructure:"days"`
	From string   `mapstructure:"from"`
	To   string   `mapstructure:"to"`
}

type GatewayConfig struct {
	Provider   string `mapstructure:"provider"`
	APIKey     string `mapstructure:"api_key"`
	APISecret  string `mapstructure:"api_secret"`
	TimeoutSec int    `mapstructure:"timeout_seconds"`
	DryRun     bool   `mapstructure:"dry_run"`
	// Paper equity used by the sim gateway when dry_run is on.
	PaperEquity float64 `mapstructure:"paper_equity"`
}

type CalendarConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	FeedURL       string `mapstructure:"feed_url"`
	FreezeMinutes int    `mapstructure:"freeze_minutes"`
	RefreshMin    int    `mapstructure:"refresh_minutes"`
}

type SentimentConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	FeedURL string `mapstructure:"feed_url"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	// AntiSpamSec suppresses identical notification kinds inside the window.
	AntiSpamSec int `mapstructure:"anti_spam_seconds"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type TrackerConfig struct {
	Decay                 float64 `mapstructure:"decay"`
	MinHistory            int     `mapstructure:"min_history"`
	InactivityHalfLifeDay float64 `mapstructure:"inactivity_half_life_days"`
}
