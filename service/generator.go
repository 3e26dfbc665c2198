package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"intel-agent/config"
	"intel-agent/driver"
	"intel-agent/metrics"
	"intel-agent/models"
	apperrors "intel-agent/utils/errors"
)

const (
	maxPromptEvents = 80
	maxActions      = 5

	tierRemote = "remote"
	tierLocal  = "local"
)

const digestPromptTemplate = "You are a competitive intelligence analyst for %s in %s.\n" +
	"Write a tight 120-160 word executive summary, 3 key threats, 3 opportunities, " +
	"and 5 recommended actions based strictly on these signals:\n%s\n" +
	"Format as plain text without markdown tables."

type digestService struct {
	llm    driver.LLMClient
	cfg    *config.Config
	logger *slog.Logger
}

// NewDigestService creates the two-tier generator. llm may be nil when no
// credential is configured; every call then takes the local tier.
func NewDigestService(llm driver.LLMClient, cfg *config.Config, logger *slog.Logger) DigestService {
	return &digestService{
		llm:    llm,
		cfg:    cfg,
		logger: logger,
	}
}

// GenerateDigest produces an executive digest from the supplied events.
// Remote-tier failures of any kind degrade to the deterministic local tier;
// only malformed event records surface as errors.
func (s *digestService) GenerateDigest(ctx context.Context, company, industry string, events []models.Event) (*models.Digest, error) {
	if err := validateEvents(events); err != nil {
		return nil, err
	}

	if s.remoteEnabled() {
		prompt := fmt.Sprintf(digestPromptTemplate, company, industry, strings.Join(bulletFacts(events), "\n"))

		text, err := s.llm.CompleteWithFallback(ctx, s.cfg.Groq.ModelCandidates(), []driver.ChatMessage{
			{Role: "user", Content: prompt},
		}, s.cfg.Groq.Temperature)
		if err == nil {
			metrics.Generations.WithLabelValues("digest", tierRemote).Inc()

			return remoteDigest(text), nil
		}

		s.logger.WarnContext(ctx, "remote digest failed, using local tier", "error", err)
		metrics.RemoteFallbacks.Inc()
	}

	metrics.Generations.WithLabelValues("digest", tierLocal).Inc()

	return localDigest(company, industry, events), nil
}

// ChatQuery answers an analyst question against the supplied events. The
// local tier does not attempt to answer the literal prompt; it reports the
// strongest signals instead.
func (s *digestService) ChatQuery(ctx context.Context, prompt, company, industry string, events []models.Event) (string, error) {
	if err := validateEvents(events); err != nil {
		return "", err
	}

	if s.remoteEnabled() {
		contextBlock := strings.Join(bulletFacts(events), "\n")

		text, err := s.llm.CompleteWithFallback(ctx, s.cfg.Groq.ModelCandidates(), []driver.ChatMessage{
			{Role: "system", Content: fmt.Sprintf("You help %s in %s with competitive intelligence.", company, industry)},
			{Role: "user", Content: fmt.Sprintf("%s\n\nContext:\n%s", prompt, contextBlock)},
		}, s.cfg.Groq.Temperature)
		if err == nil {
			metrics.Generations.WithLabelValues("chat", tierRemote).Inc()

			return text, nil
		}

		s.logger.WarnContext(ctx, "remote chat failed, using local tier", "error", err)
		metrics.RemoteFallbacks.Inc()
	}

	metrics.Generations.WithLabelValues("chat", tierLocal).Inc()

	return localChat(events), nil
}

func (s *digestService) remoteEnabled() bool {
	return s.llm != nil && s.cfg.RemoteEnabled()
}

// validateEvents rejects malformed event records before they reach either
// tier. These are programming-contract violations from upstream, not
// expected runtime conditions.
func validateEvents(events []models.Event) error {
	for i := range events {
		if err := events[i].Validate(); err != nil {
			return apperrors.ValidationError("malformed event record", map[string]interface{}{
				"index": i,
				"cause": err.Error(),
			})
		}
	}

	return nil
}

// bulletFacts renders up to maxPromptEvents events as prompt bullets.
func bulletFacts(events []models.Event) []string {
	if len(events) > maxPromptEvents {
		events = events[:maxPromptEvents]
	}

	facts := make([]string, 0, len(events))
	for _, e := range events {
		facts = append(facts, fmt.Sprintf("- %s: %s (impact %d)", competitorName(&e), titleOrPlaceholder(&e), e.Impact))
	}

	return facts
}

// remoteDigest wraps remote text into a digest. Numbered lines double as the
// actions list; fewer than five parsed actions is acceptable.
func remoteDigest(text string) *models.Digest {
	return &models.Digest{
		Summary: text,
		Threats: []models.DigestThreat{
			{Title: "See summary", Severity: "High", Description: "See executive summary"},
		},
		Opportunities: []models.DigestOpportunity{
			{Title: "See summary", Description: "See executive summary"},
		},
		Actions: parseActions(text),
	}
}

func parseActions(text string) []string {
	actions := []string{}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		switch trimmed[0] {
		case '1', '2', '3', '4', '5':
			actions = append(actions, trimmed)
		}

		if len(actions) == maxActions {
			break
		}
	}

	return actions
}

// localDigest is the deterministic fallback: fixed illustrative templates
// parameterized only by the top competitor and event count. Same events in,
// same bytes out.
func localDigest(company, industry string, events []models.Event) *models.Digest {
	top := topCompetitors(events, 3)

	summary := fmt.Sprintf("%s in %s: %d signals captured.", company, industry, len(events))
	if len(top) > 0 {
		summary += fmt.Sprintf(" Most active: %s.", strings.Join(top, ", "))
	}

	topName := "Unknown"
	if len(top) > 0 {
		topName = top[0]
	}

	return &models.Digest{
		Summary: summary,
		Threats: []models.DigestThreat{
			{
				Title:       "Feature parity closing",
				Severity:    "High",
				Category:    "Product",
				Competitor:  topName,
				Description: "Rapid ship cadence suggests parity risk.",
				Impact:      "Loss of differentiation.",
			},
		},
		Opportunities: []models.DigestOpportunity{
			{
				Title:       "Own the AI narrative",
				Timeframe:   "Q1-Q2",
				Effort:      "Medium",
				Description: "Bundle ML/automation into a named initiative.",
				Rationale:   "Competitors announce AI often; consistent messaging can win attention.",
			},
		},
		Actions: []string{
			"Ship a monthly 'What's new' post + RSS.",
			"Diff competitors' release notes for alerts.",
			"Brief sales on top 3 talking points.",
			"Publish two teardown posts this quarter.",
			"Test pricing/packaging on top plan.",
		},
	}
}

// localChat renders the highest-impact signals plus fixed guidance. When no
// event reaches impact 4, the first three events stand in.
func localChat(events []models.Event) string {
	highs := make([]models.Event, 0, len(events))

	for _, e := range events {
		if e.Impact >= 4 {
			highs = append(highs, e)
		}
	}

	if len(highs) == 0 {
		if len(events) > 3 {
			highs = events[:3]
		} else {
			highs = events
		}
	}

	if len(highs) > 5 {
		highs = highs[:5]
	}

	lines := make([]string, 0, len(highs))
	for _, e := range highs {
		lines = append(lines, fmt.Sprintf("• %s — %s (impact %d)", titleOrPlaceholder(&e), competitorName(&e), e.Impact))
	}

	guidance := []string{
		"Track release notes/RSS weekly for these competitors.",
		"Compare feature gaps and pricing.",
		"Prepare counter-messaging if any threatens your core ICP.",
	}

	numbered := make([]string, 0, len(guidance))
	for i, g := range guidance {
		numbered = append(numbered, fmt.Sprintf("%d. %s", i+1, g))
	}

	return "Here are the top signals I'm considering:\n" + strings.Join(lines, "\n") +
		"\n\nSuggested next steps:\n" + strings.Join(numbered, "\n")
}

// topCompetitors returns up to n competitor names ordered by event count,
// ties broken by first appearance for deterministic output.
func topCompetitors(events []models.Event, n int) []string {
	counts := make(map[string]int)
	display := make(map[string]string)
	order := []string{}

	for i := range events {
		name := competitorName(&events[i])
		key := lowerName(name)

		if _, ok := counts[key]; !ok {
			order = append(order, key)
			display[key] = name
		}

		counts[key]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > n {
		order = order[:n]
	}

	top := make([]string, 0, len(order))
	for _, key := range order {
		top = append(top, display[key])
	}

	return top
}

func competitorName(e *models.Event) string {
	if strings.TrimSpace(e.Competitor) == "" {
		return "Unknown"
	}

	return e.Competitor
}

func titleOrPlaceholder(e *models.Event) string {
	if strings.TrimSpace(e.Title) == "" {
		return "(no title)"
	}

	return e.Title
}
