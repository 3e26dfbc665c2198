package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"intel-agent/models"
)

// Strategy names for scorer selection at the handler layer.
const (
	StrategyOrdinal = "ordinal"
	StrategyPercent = "percent"
)

// heavyweights is the fixed allow-list of competitors that always carry
// extra weight on the 100-point scale.
var heavyweights = map[string]struct{}{
	"salesforce": {},
	"shopify":    {},
	"stripe":     {},
	"figma":      {},
	"vercel":     {},
	"hubspot":    {},
	"square":     {},
	"adyen":      {},
}

// OrdinalScorer implements the 5-point threat scale: base 1, bumped by
// source richness, press presence, and recent activity, clamped to [1,5].
type OrdinalScorer struct{}

// NewOrdinalScorer creates the 5-point scoring strategy.
func NewOrdinalScorer() *OrdinalScorer {
	return &OrdinalScorer{}
}

func (s *OrdinalScorer) Name() string {
	return StrategyOrdinal
}

func (s *OrdinalScorer) Score(_ context.Context, competitor *models.Competitor, recentEvents int) (int, string) {
	score := 1

	if competitor.SourceRichness() >= 3 {
		score++
	}

	if len(competitor.Press) > 0 {
		score++
	}

	if recentEvents >= 3 {
		score++
	}

	if recentEvents >= 6 {
		score++
	}

	if score < 1 {
		score = 1
	}

	if score > 5 {
		score = 5
	}

	return score, ordinalLevel(score)
}

func ordinalLevel(score int) string {
	switch score {
	case 1:
		return "Low"
	case 2:
		return "Moderate"
	case 3:
		return "Elevated"
	case 4:
		return "High"
	default:
		return "Critical"
	}
}

// PercentScorer implements the 100-point threat scale: base 20, bumped by
// configured sources, feed recency, and name weight, clamped to [0,100].
// The feed probe goes through the injected parser; probe failures contribute
// a zero recency bonus and never raise.
type PercentScorer struct {
	parser FeedParser
	clock  func() time.Time
	logger *slog.Logger
}

// NewPercentScorer creates the 100-point scoring strategy. parser may be nil
// when feed support is unavailable.
func NewPercentScorer(parser FeedParser, logger *slog.Logger) *PercentScorer {
	return &PercentScorer{
		parser: parser,
		clock:  time.Now,
		logger: logger,
	}
}

func (s *PercentScorer) Name() string {
	return StrategyPercent
}

func (s *PercentScorer) Score(ctx context.Context, competitor *models.Competitor, _ int) (int, string) {
	score := 20

	if len(competitor.RSS) > 0 {
		score += 25
	}

	if len(competitor.GitHub) > 0 {
		score += 15
	}

	score += s.recencyBonus(ctx, competitor)

	if _, ok := heavyweights[lowerName(competitor.Name)]; ok {
		score += 15
	} else if len(competitor.Name) <= 6 {
		score += 5
	}

	if score < 0 {
		score = 0
	}

	if score > 100 {
		score = 100
	}

	return score, percentLevel(score)
}

// recencyBonus probes the competitor's primary feed and rewards a fresh
// newest entry: 10 within a week, 6 within a month, 3 within a quarter.
func (s *PercentScorer) recencyBonus(ctx context.Context, competitor *models.Competitor) int {
	feedURL := competitor.PrimaryFeed()
	if feedURL == "" || s.parser == nil {
		return 0
	}

	feed, err := s.parser.ParseURL(ctx, feedURL)
	if err != nil {
		s.logger.DebugContext(ctx, "recency probe failed", "competitor", competitor.Name, "url", feedURL, "error", err)

		return 0
	}

	if len(feed.Items) == 0 || feed.Items[0].PublishedParsed == nil {
		return 0
	}

	days := int(s.clock().UTC().Sub(feed.Items[0].PublishedParsed.UTC()).Hours() / 24)

	switch {
	case days <= 7:
		return 10
	case days <= 30:
		return 6
	case days <= 90:
		return 3
	default:
		return 0
	}
}

func percentLevel(score int) string {
	switch {
	case score >= 80:
		return "Critical"
	case score >= 65:
		return "High"
	case score >= 40:
		return "Medium"
	default:
		return "Low"
	}
}

func lowerName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
