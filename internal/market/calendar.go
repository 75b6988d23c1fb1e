package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"empire/internal/logger"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

const calendarErrorBackoff = 2 * time.Minute

// calendarFeedSchema validates the upstream document before ingest so a
// malformed feed degrades to "no freeze" instead of poisoning the cache.
const calendarFeedSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["time", "impact"],
		"properties": {
			"time":       {"type": "string"},
			"impact":     {"type": "string"},
			"title":      {"type": "string"},
			"currencies": {"type": "array", "items": {"type": "string"}},
			"symbols":    {"type": "array", "items": {"type": "string"}}
		}
	}
}`

// CalendarEvent is one scheduled macro release from the feed.
type CalendarEvent struct {
	Title      string
	Time       time.Time
	Impact     string
	Currencies []string
	Symbols    []string
}

// CalendarService caches the economic calendar feed and answers freeze-window
// queries. Refreshes lazily on read; a fetch failure keeps the previous
// events and backs off.
type CalendarService struct {
	endpoint string
	freeze   time.Duration
	refresh  time.Duration
	client   *http.Client
	schema   *jsonschema.Schema

	mu         sync.RWMutex
	events     []CalendarEvent
	nextUpdate time.Time
	refreshMu  sync.Mutex
}

func NewCalendarService(endpoint string, freezeMinutes, refreshMinutes int) *CalendarService {
	schema := jsonschema.MustCompileString("calendar.json", calendarFeedSchema)
	return &CalendarService{
		endpoint: endpoint,
		freeze:   time.Duration(freezeMinutes) * time.Minute,
		refresh:  time.Duration(refreshMinutes) * time.Minute,
		client:   &http.Client{Timeout: 5 * time.Second},
		schema:   schema,
	}
}

// IsFreezeWindow reports whether symbol sits inside +/- freeze of any
// high-impact event affecting it.
func (s *CalendarService) IsFreezeWindow(ctx context.Context, symbol string, at time.Time) bool {
	if s == nil {
		return false
	}
	s.refreshIfStale(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ev := range s.events {
		if !strings.EqualFold(ev.Impact, "high") {
			continue
		}
		if !eventAffects(ev, symbol) {
			continue
		}
		delta := at.Sub(ev.Time)
		if delta < 0 {
			delta = -delta
		}
		if delta <= s.freeze {
			return true
		}
	}
	return false
}

func eventAffects(ev CalendarEvent, symbol string) bool {
	upper := strings.ToUpper(symbol)
	for _, s := range ev.Symbols {
		if strings.EqualFold(s, symbol) {
			return true
		}
	}
	for _, ccy := range ev.Currencies {
		if ccy != "" && strings.Contains(upper, strings.ToUpper(ccy)) {
			return true
		}
	}
	return false
}

func (s *CalendarService) refreshIfStale(ctx context.Context) {
	now := time.Now()
	s.mu.RLock()
	next := s.nextUpdate
	s.mu.RUnlock()
	if !next.IsZero() && now.Before(next) {
		return
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	s.mu.RLock()
	next = s.nextUpdate
	s.mu.RUnlock()
	if !next.IsZero() && now.Before(next) {
		return
	}
	if err := s.fetch(ctx); err != nil {
		logger.Warnf("calendar: refresh failed, keeping %d cached events: %v", len(s.events), err)
		s.mu.Lock()
		s.nextUpdate = now.Add(calendarErrorBackoff)
		s.mu.Unlock()
	}
}

func (s *CalendarService) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("calendar feed status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	events, err := parseCalendarFeed(s.schema, string(body))
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.events = events
	s.nextUpdate = time.Now().Add(s.refresh)
	s.mu.Unlock()
	logger.Debugf("calendar: loaded %d events", len(events))
	return nil
}

func parseCalendarFeed(schema *jsonschema.Schema, raw string) ([]CalendarEvent, error) {
	// The validator wants a decoded document; UseNumber keeps numeric
	// fidelity instead of forcing everything through float64.
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("calendar feed is not valid json: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("calendar feed schema: %w", err)
	}
	var events []CalendarEvent
	gjson.Parse(raw).ForEach(func(_, item gjson.Result) bool {
		ts, err := time.Parse(time.RFC3339, item.Get("time").String())
		if err != nil {
			return true
		}
		ev := CalendarEvent{
			Title:  item.Get("title").String(),
			Time:   ts.UTC(),
			Impact: item.Get("impact").String(),
		}
		for _, c := range item.Get("currencies").Array() {
			ev.Currencies = append(ev.Currencies, c.String())
		}
		for _, s := range item.Get("symbols").Array() {
			ev.Symbols = append(ev.Symbols, s.String())
		}
		events = append(events, ev)
		return true
	})
	return events, nil
}
