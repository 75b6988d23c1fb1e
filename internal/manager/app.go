// Package manager assembles the application: config, store, gateway,
// services, per-symbol cycles on their schedulers, the two global daily jobs
// and the HTTP surface.
package manager

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"empire/internal/agent"
	"empire/internal/config"
	"empire/internal/gate"
	"empire/internal/gateway/exchange"
	"empire/internal/gateway/exchange/binance"
	"empire/internal/gateway/exchange/sim"
	"empire/internal/gateway/notifier"
	"empire/internal/logger"
	"empire/internal/market"
	"empire/internal/orchestrator"
	"empire/internal/performance"
	"empire/internal/position"
	"empire/internal/scheduler"
	"empire/internal/store"
	"empire/internal/store/gormstore"
	httpapi "empire/internal/transport/http/live"
	"empire/internal/types"
)

const (
	breakerThreshold = 5
	breakerCooldown  = 30 * time.Second
)

// App owns every long-lived resource. Built once at startup, run until the
// root context cancels.
type App struct {
	cfg      *config.Watcher
	store    store.Store
	tracker  *performance.Tracker
	registry *position.Registry
	stats    *orchestrator.Stats
	notify   notifier.Notifier
	gateway  exchange.Exchange
	source   market.Source
	symbols  []types.Symbol
	cycles   []*orchestrator.Cycle
	interval time.Duration
	digest   *orchestrator.Digest
	server   *httpapi.Server
}

func NewApp(cfg *config.Config, cfgPath string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	symbols := enabledSymbols(cfg)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no enabled symbols in config")
	}
	names := make([]string, len(symbols))
	for i, s := range symbols {
		names[i] = s.Name
	}
	logger.Infof("✓ loaded %d symbol(s): %v", len(symbols), names)

	interval, ok := scheduler.ParseIntervalDuration(cfg.Engine.Interval)
	if !ok {
		return nil, fmt.Errorf("invalid engine interval: %q", cfg.Engine.Interval)
	}

	st, err := gormstore.New(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	tracker := performance.NewTracker(performance.Config{
		Decay:                 cfg.Tracker.Decay,
		MinHistory:            cfg.Tracker.MinHistory,
		InactivityHalfLifeDay: cfg.Tracker.InactivityHalfLifeDay,
	}, st)

	var notify notifier.Notifier = notifier.Nop{}
	if cfg.Notify.Telegram.Enabled {
		notify = notifier.NewTelegram(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID)
		if cfg.Notify.AntiSpamSec > 0 {
			notify = notifier.NewAntiSpam(notify, time.Duration(cfg.Notify.AntiSpamSec)*time.Second)
		}
		logger.Infof("✓ telegram notifications enabled")
	}

	data := binance.New(cfg.Gateway.APIKey, cfg.Gateway.APISecret, time.Duration(cfg.Gateway.TimeoutSec)*time.Second)
	var gw exchange.Exchange
	if cfg.Gateway.DryRun {
		gw = newPaperGateway(sim.New(cfg.Gateway.PaperEquity), data)
		logger.Infof("✓ dry-run: paper execution over live market data")
	} else {
		gw = data
	}
	gw = exchange.NewGuarded(gw, breakerThreshold, breakerCooldown)

	sessions, err := market.NewSessionCalendar(cfg.Sessions)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("session calendar: %w", err)
	}

	var freeze gate.FreezeSource
	var calendar *market.CalendarService
	if cfg.Calendar.Enabled {
		calendar = market.NewCalendarService(cfg.Calendar.FeedURL, cfg.Calendar.FreezeMinutes, cfg.Calendar.RefreshMin)
		freeze = calendar
		logger.Infof("✓ macro calendar feed enabled, freeze=±%dmin", cfg.Calendar.FreezeMinutes)
	}
	var sentiment *market.SentimentService
	if cfg.Sentiment.Enabled {
		sentiment = market.NewSentimentService(cfg.Sentiment.FeedURL)
		logger.Infof("✓ sentiment feed enabled")
	}

	registry := position.NewRegistry(symbols)
	stats := orchestrator.NewStats(st, registry)
	watcher := config.NewWatcher(cfgPath, cfg)

	groups := make(map[string]string, len(symbols))
	for _, s := range symbols {
		groups[s.Name] = s.CorrelationGroup
	}
	pipeline := gate.NewPipeline(
		gate.Quality{},
		gate.Session{Calendar: sessions},
		gate.Correlation{Positions: registry, Group: func(sym string) string { return groups[sym] }},
		gate.NewsFreeze{Calendar: freeze},
		gate.Cooldown{State: st},
		gate.Risk{Stats: stats},
	)

	higherTF := cfg.Engine.Timeframes[len(cfg.Engine.Timeframes)-1]
	shared := []agent.Agent{agent.NewTechnical(), agent.NewStructure()}
	if sentiment != nil {
		shared = append(shared, agent.NewSentiment(sentiment))
	}
	if calendar != nil {
		shared = append(shared, agent.NewMacro(calendar, higherTF))
	}

	cycles := make([]*orchestrator.Cycle, 0, len(symbols))
	for _, sym := range symbols {
		cycles = append(cycles, orchestrator.NewCycle(orchestrator.Cycle{
			Symbol:   sym,
			Config:   watcher,
			Agents:   shared,
			Gateway:  gw,
			Source:   data,
			Manager:  position.NewManager(sym, gw, registry),
			Registry: registry,
			Pipeline: pipeline,
			Tracker:  tracker,
			Store:    st,
			Stats:    stats,
			Notifier: notify,
		}))
	}

	server := httpapi.NewServer(cfg.App.HTTPAddr, httpapi.Deps{
		Registry: registry,
		Tracker:  tracker,
		Store:    st,
		Stats:    stats,
	})

	return &App{
		cfg:      watcher,
		store:    st,
		tracker:  tracker,
		registry: registry,
		stats:    stats,
		notify:   notify,
		gateway:  gw,
		source:   data,
		symbols:  symbols,
		cycles:   cycles,
		interval: interval,
		digest:   orchestrator.NewDigest(st, stats, notify, names),
		server:   server,
	}, nil
}

// Run blocks until ctx cancels. One scheduler goroutine per symbol, one
// daily runner for the whole process, one HTTP server.
func (a *App) Run(ctx context.Context) error {
	if a == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.store.Close()

	if err := a.cfg.Start(ctx); err != nil {
		logger.Warnf("config watcher unavailable, hot reload disabled: %v", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.server != nil {
		g.Go(func() error {
			if err := a.server.Start(ctx); err != nil {
				logger.Warnf("http server stopped: %v", err)
			}
			return nil
		})
	}

	for _, cycle := range a.cycles {
		cycle := cycle
		sched := scheduler.NewIntervalScheduler(ctx, cycle.Symbol.Name, a.interval)
		sched.RunImmediately = true
		g.Go(func() error {
			sched.Start(func() { cycle.Run(ctx) })
			return nil
		})
	}

	// The digest and optimization jobs are global: exactly one runner owns
	// them, regardless of how many symbols are configured.
	cfg := a.cfg.Current()
	daily := scheduler.NewDailyRunner(ctx, a.store)
	daily.Register(scheduler.DailyJob{Name: "digest", Hour: cfg.Engine.DigestHourUTC, Run: a.digest.Run})
	opt := &orchestrator.Optimization{Tracker: a.tracker}
	daily.Register(scheduler.DailyJob{Name: "optimization", Hour: cfg.Engine.OptimizeHourUTC, Run: opt.Run})
	g.Go(func() error {
		daily.Start()
		return nil
	})

	logger.Infof("engine running: %d symbol cycle(s) every %s", len(a.cycles), a.interval)
	a.notify.Notify("startup", fmt.Sprintf("engine started: %d symbols, interval %s", len(a.cycles), a.interval))

	return g.Wait()
}

func enabledSymbols(cfg *config.Config) []types.Symbol {
	out := make([]types.Symbol, 0, len(cfg.Symbols))
	for _, sc := range cfg.Symbols {
		if !sc.Enabled {
			continue
		}
		out = append(out, types.Symbol{
			Name:             sc.Name,
			Class:            types.AssetClass(sc.Class),
			PointSize:        sc.PointSize,
			MinStopDistance:  sc.MinStopDistance,
			CorrelationGroup: sc.CorrelationGroup,
		})
	}
	return out
}
