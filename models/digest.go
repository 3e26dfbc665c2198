package models

// Digest is the derived, non-persisted summary object. It is regenerated on
// demand from the current event set and superseded wholesale by the next
// generation call.
type Digest struct {
	Summary       string              `json:"summary"`
	Threats       []DigestThreat      `json:"threats"`
	Opportunities []DigestOpportunity `json:"opportunities"`
	Actions       []string            `json:"actions"`
}

// DigestThreat is one threat entry in a digest.
type DigestThreat struct {
	Title       string `json:"title"`
	Severity    string `json:"severity"`
	Competitor  string `json:"competitor,omitempty"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description"`
	Impact      string `json:"impact,omitempty"`
}

// DigestOpportunity is one opportunity entry in a digest.
type DigestOpportunity struct {
	Title       string `json:"title"`
	Timeframe   string `json:"timeframe,omitempty"`
	Effort      string `json:"effort,omitempty"`
	Description string `json:"description"`
	Rationale   string `json:"rationale,omitempty"`
}
