package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"empire/internal/logger"

	"github.com/tidwall/gjson"
)

const (
	sentimentTTL          = 60 * time.Second
	sentimentErrorBackoff = 2 * time.Minute
)

// SentimentService caches per-symbol sentiment scores from an external feed.
// Scores are in [-1, 1]; a missing or stale feed yields (0, false) so the
// sentiment agent simply abstains.
type SentimentService struct {
	endpoint string
	client   *http.Client

	mu     sync.RWMutex
	scores map[string]sentimentEntry
}

type sentimentEntry struct {
	score float64
	at    time.Time
}

func NewSentimentService(endpoint string) *SentimentService {
	return &SentimentService{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
		scores:   make(map[string]sentimentEntry),
	}
}

// Score returns the cached sentiment for symbol, fetching when stale.
func (s *SentimentService) Score(ctx context.Context, symbol string) (float64, bool) {
	if s == nil || s.endpoint == "" {
		return 0, false
	}
	symbol = strings.ToUpper(symbol)
	s.mu.RLock()
	entry, ok := s.scores[symbol]
	s.mu.RUnlock()
	if ok && time.Since(entry.at) < sentimentTTL {
		return entry.score, true
	}
	score, err := s.fetch(ctx, symbol)
	if err != nil {
		logger.Debugf("sentiment: fetch %s failed: %v", symbol, err)
		if ok && time.Since(entry.at) < sentimentErrorBackoff {
			return entry.score, true
		}
		return 0, false
	}
	s.mu.Lock()
	s.scores[symbol] = sentimentEntry{score: score, at: time.Now()}
	s.mu.Unlock()
	return score, true
}

func (s *SentimentService) fetch(ctx context.Context, symbol string) (float64, error) {
	url := strings.ReplaceAll(s.endpoint, "{symbol}", symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("sentiment feed status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, err
	}
	raw := string(body)
	if !gjson.Valid(raw) {
		return 0, fmt.Errorf("sentiment feed is not valid json")
	}
	score := gjson.Get(raw, "score")
	if !score.Exists() {
		return 0, fmt.Errorf("sentiment feed missing score field")
	}
	val := score.Float()
	if val > 1 {
		val = 1
	} else if val < -1 {
		val = -1
	}
	return val, nil
}
