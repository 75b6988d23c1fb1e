package agent

import (
	"context"
	"math"

	"empire/internal/market"
	"empire/internal/types"
)

// sentimentThreshold is the minimum absolute feed score before the agent
// voices a direction; weaker readings abstain.
const sentimentThreshold = 0.2

// Sentiment turns the external feed score into a timeframe-independent vote.
type Sentiment struct {
	svc *market.SentimentService
}

func NewSentiment(svc *market.SentimentService) *Sentiment {
	return &Sentiment{svc: svc}
}

func (s *Sentiment) Name() string { return "sentiment" }

func (s *Sentiment) Global() bool { return true }

func (s *Sentiment) Evaluate(ctx context.Context, symbol, timeframe string, window *market.Window) (*types.AgentSignal, error) {
	score, ok := s.svc.Score(ctx, symbol)
	if !ok || math.Abs(score) < sentimentThreshold {
		return nil, nil
	}
	dir := types.DirectionLong
	if score < 0 {
		dir = types.DirectionShort
	}
	return &types.AgentSignal{
		Direction: dir,
		Strength:  clamp01(math.Abs(score)),
		Tags:      []string{"sentiment_feed"},
	}, nil
}
