package models

import (
	"fmt"
	"strings"
)

// SourceType identifies where an intelligence event was observed.
type SourceType string

const (
	SourceRSS    SourceType = "rss"
	SourceGitHub SourceType = "github"
	SourceDemo   SourceType = "demo"
	SourcePress  SourceType = "press"
	SourceSite   SourceType = "site"
)

// Event is one observed signal about a competitor. Events are immutable once
// merged into the store; only derived fields (summary, impact, confidence)
// may be back-filled before the merge.
type Event struct {
	ID          string     `json:"id,omitempty"`
	Company     string     `json:"company"`
	Competitor  string     `json:"competitor"`
	Industry    string     `json:"industry"`
	SourceType  SourceType `json:"source_type"`
	SourceURL   string     `json:"source_url"`
	Title       string     `json:"title"`
	Raw         string     `json:"raw"`
	Summary     string     `json:"summary"`
	Category    string     `json:"category"`
	Impact      int        `json:"impact"`
	Confidence  int        `json:"confidence"`
	PublishedAt string     `json:"published_at"`
}

// MergeKey is the fetch-commit dedupe identity: competitor plus title, both
// lower-cased. The same logical update arriving with a different URL still
// collapses to one event.
func (e *Event) MergeKey() string {
	return strings.ToLower(strings.TrimSpace(e.Competitor)) + "|" + strings.ToLower(strings.TrimSpace(e.Title))
}

// StoreKey is the store-layer dedupe identity: title plus source URL. It is
// intentionally distinct from MergeKey and acts as a second defensive layer
// inside ReplaceAll.
func (e *Event) StoreKey() string {
	return e.Title + "|" + e.SourceURL
}

// Validate reports a contract violation for event records that must not
// reach scoring or generation. These indicate an upstream bug, not an
// expected runtime condition.
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Competitor) == "" {
		return fmt.Errorf("event missing competitor: %q", e.Title)
	}

	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("event missing title (competitor %q)", e.Competitor)
	}

	if e.Impact < 0 || e.Impact > 5 {
		return fmt.Errorf("event impact out of range: %d (competitor %q)", e.Impact, e.Competitor)
	}

	if e.Confidence < 0 || e.Confidence > 100 {
		return fmt.Errorf("event confidence out of range: %d (competitor %q)", e.Confidence, e.Competitor)
	}

	return nil
}

// MergeEvents appends fetched events onto existing ones, dropping any fetched
// event whose MergeKey collides with an already-kept event. Existing events
// always win; order is preserved. Returns the merged slice and the number of
// newly admitted events. Merging the same batch twice yields the same result
// as merging it once.
func MergeEvents(existing, fetched []Event) ([]Event, int) {
	seen := make(map[string]struct{}, len(existing)+len(fetched))
	merged := make([]Event, 0, len(existing)+len(fetched))

	for _, e := range existing {
		key := e.MergeKey()
		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}
		merged = append(merged, e)
	}

	admitted := 0

	for _, e := range fetched {
		key := e.MergeKey()
		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}
		merged = append(merged, e)
		admitted++
	}

	return merged, admitted
}

// DedupeByTitleURL drops events whose StoreKey collides with an earlier
// event, preserving order. This is the store-layer policy applied by
// ReplaceAll.
func DedupeByTitleURL(events []Event) []Event {
	seen := make(map[string]struct{}, len(events))
	deduped := make([]Event, 0, len(events))

	for _, e := range events {
		key := e.StoreKey()
		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}
		deduped = append(deduped, e)
	}

	return deduped
}

// CountBySourceType returns per-source-type counters for the activity view.
func CountBySourceType(events []Event) map[SourceType]int {
	byType := make(map[SourceType]int)
	for _, e := range events {
		byType[e.SourceType]++
	}

	return byType
}

// CountByCompetitor returns per-competitor event counts, keyed by the
// lower-cased competitor name.
func CountByCompetitor(events []Event) map[string]int {
	byCompetitor := make(map[string]int)
	for _, e := range events {
		byCompetitor[strings.ToLower(strings.TrimSpace(e.Competitor))]++
	}

	return byCompetitor
}
