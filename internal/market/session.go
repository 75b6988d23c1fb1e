package market

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"empire/internal/config"
	"empire/internal/types"
)

// SessionCalendar answers whether a symbol's market is tradable at a given
// time, per asset-class schedule plus blackout windows. All times are UTC.
type SessionCalendar struct {
	classes map[types.AssetClass]classSession
}

type classSession struct {
	alwaysOpen bool
	openDays   map[time.Weekday]bool
	openMin    int
	closeMin   int
	blackouts  []blackout
}

type blackout struct {
	days map[time.Weekday]bool
	from int
	to   int
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
	"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday,
	"sat": time.Saturday,
}

// NewSessionCalendar compiles per-class session config. A class without an
// entry is treated as always open, so crypto works out of the box.
func NewSessionCalendar(sessions map[string]config.SessionConfig) (*SessionCalendar, error) {
	cal := &SessionCalendar{classes: make(map[types.AssetClass]classSession, len(sessions))}
	for class, sc := range sessions {
		cs := classSession{alwaysOpen: sc.AlwaysOpen}
		if !sc.AlwaysOpen {
			days, err := parseDays(sc.OpenDays)
			if err != nil {
				return nil, fmt.Errorf("sessions.%s: %w", class, err)
			}
			cs.openDays = days
			cs.openMin, err = parseClock(sc.OpenTime)
			if err != nil {
				return nil, fmt.Errorf("sessions.%s open_time: %w", class, err)
			}
			cs.closeMin, err = parseClock(sc.CloseTime)
			if err != nil {
				return nil, fmt.Errorf("sessions.%s close_time: %w", class, err)
			}
		}
		for _, bw := range sc.Blackouts {
			days, err := parseDays(bw.Days)
			if err != nil {
				return nil, fmt.Errorf("sessions.%s blackout: %w", class, err)
			}
			from, err := parseClock(bw.From)
			if err != nil {
				return nil, fmt.Errorf("sessions.%s blackout from: %w", class, err)
			}
			to, err := parseClock(bw.To)
			if err != nil {
				return nil, fmt.Errorf("sessions.%s blackout to: %w", class, err)
			}
			cs.blackouts = append(cs.blackouts, blackout{days: days, from: from, to: to})
		}
		cal.classes[types.AssetClass(strings.ToLower(class))] = cs
	}
	return cal, nil
}

// IsOpen reports whether the symbol's market is open at t.
func (c *SessionCalendar) IsOpen(sym types.Symbol, t time.Time) bool {
	t = t.UTC()
	cs, ok := c.classes[sym.Class]
	if !ok {
		return true
	}
	day := t.Weekday()
	minute := t.Hour()*60 + t.Minute()
	for _, bw := range cs.blackouts {
		if len(bw.days) > 0 && !bw.days[day] {
			continue
		}
		if inWindow(minute, bw.from, bw.to) {
			return false
		}
	}
	if cs.alwaysOpen {
		return true
	}
	if len(cs.openDays) > 0 && !cs.openDays[day] {
		return false
	}
	return inWindow(minute, cs.openMin, cs.closeMin)
}

// inWindow treats from==to as a full-day window and supports windows that
// wrap midnight (e.g. 22:00 -> 02:00).
func inWindow(minute, from, to int) bool {
	if from == to {
		return true
	}
	if from < to {
		return minute >= from && minute < to
	}
	return minute >= from || minute < to
}

func parseDays(names []string) (map[time.Weekday]bool, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make(map[time.Weekday]bool, len(names))
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if len(key) > 3 {
			key = key[:3]
		}
		day, ok := weekdayNames[key]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		out[day] = true
	}
	return out, nil
}

func parseClock(val string) (int, error) {
	val = strings.TrimSpace(val)
	parts := strings.SplitN(val, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", val)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("bad hour in %q", val)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad minute in %q", val)
	}
	return h*60 + m, nil
}
