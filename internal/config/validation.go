package config

import (
	"fmt"
	"strings"
)

var validClasses = map[string]bool{
	"currency":  true,
	"crypto":    true,
	"index":     true,
	"commodity": true,
}

func validate(c *Config) error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols requires at least one entry")
	}
	seen := make(map[string]bool, len(c.Symbols))
	for i, sym := range c.Symbols {
		name := strings.TrimSpace(sym.Name)
		if name == "" {
			return fmt.Errorf("symbols[%d] missing name", i)
		}
		if seen[name] {
			return fmt.Errorf("symbols contains duplicate entry: %s", name)
		}
		seen[name] = true
		if !validClasses[strings.ToLower(sym.Class)] {
			return fmt.Errorf("symbols.%s has unknown class %q", name, sym.Class)
		}
		if sym.MinStopDistance < 0 {
			return fmt.Errorf("symbols.%s min_stop_distance must be >= 0", name)
		}
		if sym.PointSize <= 0 {
			return fmt.Errorf("symbols.%s point_size must be > 0", name)
		}
	}
	for class, tier := range c.RiskTiers {
		// "default" is the fallback tier for classes without their own entry.
		if key := strings.ToLower(class); key != "default" && !validClasses[key] {
			return fmt.Errorf("risk_tiers has unknown class %q", class)
		}
		if tier.RiskPerTradePct >= 1 {
			return fmt.Errorf("risk_tiers.%s risk_per_trade_pct must be a fraction < 1", class)
		}
		if tier.MaxDailyLossPct >= 1 {
			return fmt.Errorf("risk_tiers.%s max_daily_loss_pct must be a fraction < 1", class)
		}
	}
	if c.Engine.AmbiguityMargin >= 1 {
		return fmt.Errorf("engine.ambiguity_margin must be a fraction < 1")
	}
	if c.Engine.DigestHourUTC > 23 || c.Engine.OptimizeHourUTC > 23 {
		return fmt.Errorf("engine digest/optimize hours must be within 0..23")
	}
	if c.Notify.Telegram.Enabled {
		if strings.TrimSpace(c.Notify.Telegram.BotToken) == "" || strings.TrimSpace(c.Notify.Telegram.ChatID) == "" {
			return fmt.Errorf("notify.telegram requires bot_token and chat_id when enabled")
		}
	}
	if c.Calendar.Enabled && strings.TrimSpace(c.Calendar.FeedURL) == "" {
		return fmt.Errorf("calendar requires feed_url when enabled")
	}
	if !c.Gateway.DryRun {
		if strings.TrimSpace(c.Gateway.APIKey) == "" || strings.TrimSpace(c.Gateway.APISecret) == "" {
			return fmt.Errorf("gateway requires api_key and api_secret unless dry_run is set")
		}
	}
	return nil
}
