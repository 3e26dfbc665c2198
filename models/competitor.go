package models

// Competitor is a discovery-time record produced by the catalog and scored
// in place by a ThreatScorer. Competitors live only in transient state; only
// events are persisted.
type Competitor struct {
	Name        string   `json:"name"`
	Site        string   `json:"site"`
	RSS         []string `json:"rss"`
	GitHub      []string `json:"github"`
	Press       []string `json:"press"`
	Social      []string `json:"social"`
	Notes       string   `json:"notes,omitempty"`
	ThreatScore int      `json:"threat_score"`
	ThreatLevel string   `json:"threat_level"`
}

// PrimaryFeed returns the first configured RSS URL, or empty when the
// competitor has no feed.
func (c *Competitor) PrimaryFeed() string {
	if len(c.RSS) == 0 {
		return ""
	}

	return c.RSS[0]
}

// SourceRichness counts configured feed, repository, and social sources.
func (c *Competitor) SourceRichness() int {
	return len(c.RSS) + len(c.GitHub) + len(c.Social)
}
