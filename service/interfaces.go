package service

import (
	"context"

	"intel-agent/models"
)

// ConnectorService produces normalized events from competitor sources. It is
// a pure production step: it never reads or writes the event store.
type ConnectorService interface {
	// FetchUpdates pulls recent items for each competitor. Per-competitor
	// failures are skipped, never fatal to the batch. With demoMode=true the
	// result contains exactly one synthetic event per competitor.
	FetchUpdates(ctx context.Context, company, industry string, competitors []models.Competitor, demoMode bool) []models.Event
}

// ThreatScorer maps a competitor's source richness and recent activity onto
// a bounded score and a discrete level. Implementations are deterministic:
// the same inputs always yield the same score.
type ThreatScorer interface {
	// Name identifies the scoring strategy.
	Name() string

	// Score returns the threat score and level for a competitor.
	// recentEvents is the number of stored events referencing the
	// competitor; strategies that do not use activity ignore it.
	Score(ctx context.Context, competitor *models.Competitor, recentEvents int) (int, string)
}

// DigestService generates executive digests and chat answers from a batch of
// events, remote-first with a deterministic local fallback. Remote-tier
// failures are contained; only contract violations surface as errors.
type DigestService interface {
	GenerateDigest(ctx context.Context, company, industry string, events []models.Event) (*models.Digest, error)
	ChatQuery(ctx context.Context, prompt, company, industry string, events []models.Event) (string, error)
}

// ScoreAll applies a scorer to each competitor in place. eventCounts is
// keyed by lower-cased competitor name, as produced by
// models.CountByCompetitor.
func ScoreAll(ctx context.Context, scorer ThreatScorer, competitors []models.Competitor, eventCounts map[string]int) {
	for i := range competitors {
		recent := eventCounts[lowerName(competitors[i].Name)]
		score, level := scorer.Score(ctx, &competitors[i], recent)
		competitors[i].ThreatScore = score
		competitors[i].ThreatLevel = level
	}
}
