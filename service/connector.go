package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"intel-agent/config"
	"intel-agent/driver"
	"intel-agent/metrics"
	"intel-agent/models"
)

const summaryLimit = 200

// FeedParser abstracts syndication feed retrieval. A nil FeedParser on the
// connector means feed support is unavailable and every competitor gets a
// demo event instead.
type FeedParser interface {
	ParseURL(ctx context.Context, feedURL string) (*gofeed.Feed, error)
}

type gofeedParser struct {
	client *http.Client
}

// NewFeedParser creates a gofeed-backed parser with a bounded per-request
// timeout.
func NewFeedParser(timeout time.Duration) FeedParser {
	return &gofeedParser{
		client: &http.Client{Timeout: timeout},
	}
}

func (p *gofeedParser) ParseURL(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	fp := gofeed.NewParser()
	fp.Client = p.client

	return fp.ParseURLWithContext(feedURL, ctx)
}

// ReleasesFetcher abstracts the GitHub releases connector. A nil fetcher
// disables release ingestion.
type ReleasesFetcher interface {
	FetchReleases(ctx context.Context, repoURL string, limit int) ([]driver.GitHubRelease, error)
}

type connectorService struct {
	parser   FeedParser
	releases ReleasesFetcher
	cfg      config.ConnectorConfig
	clock    func() time.Time
	logger   *slog.Logger
}

// NewConnectorService creates the source connector. parser and releases may
// be nil to disable the corresponding source kind.
func NewConnectorService(parser FeedParser, releases ReleasesFetcher, cfg config.ConnectorConfig, logger *slog.Logger) ConnectorService {
	return &connectorService{
		parser:   parser,
		releases: releases,
		cfg:      cfg,
		clock:    time.Now,
		logger:   logger,
	}
}

// FetchUpdates gathers events for each competitor in parallel. Collection is
// side-effect free, so competitor order in the result stays stable
// regardless of scheduling.
func (s *connectorService) FetchUpdates(ctx context.Context, company, industry string, competitors []models.Competitor, demoMode bool) []models.Event {
	results := make([][]models.Event, len(competitors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.FetchParallelism)

	for i := range competitors {
		i := i
		g.Go(func() error {
			results[i] = s.collect(gctx, company, industry, &competitors[i], demoMode)
			return nil
		})
	}

	// collect never returns an error; failures are skipped per source.
	_ = g.Wait()

	var events []models.Event
	for _, batch := range results {
		events = append(events, batch...)
	}

	for i := range events {
		if events[i].ID == "" {
			events[i].ID = uuid.New().String()
		}

		if events[i].Summary == "" {
			events[i].Summary = summarize(events[i].Raw)
		}
	}

	s.logger.InfoContext(ctx, "fetch completed",
		"competitors", len(competitors),
		"events", len(events),
		"demo_mode", demoMode)

	return events
}

func (s *connectorService) collect(ctx context.Context, company, industry string, c *models.Competitor, demoMode bool) []models.Event {
	now := s.clock().UTC().Format(time.RFC3339)

	var events []models.Event

	if !demoMode && s.parser != nil {
		for _, feedURL := range c.RSS {
			events = append(events, s.collectFeed(ctx, company, industry, c, feedURL, now)...)
		}
	}

	if !demoMode && s.releases != nil {
		for _, repoURL := range c.GitHub {
			events = append(events, s.collectReleases(ctx, company, industry, c, repoURL, now)...)
		}
	}

	// Guaranteed demo record: demo mode, no feed configured, or feed support
	// unavailable.
	if demoMode || s.parser == nil || len(c.RSS) == 0 {
		events = append(events, models.Event{
			Company:     company,
			Competitor:  c.Name,
			Industry:    industry,
			SourceType:  models.SourceDemo,
			SourceURL:   c.Site,
			Title:       fmt.Sprintf("%s announces new %s capabilities", c.Name, industry),
			Raw:         fmt.Sprintf("Demo intel: %s shipped automation & AI enhancements for %s.", c.Name, industry),
			Category:    "Launch",
			Impact:      3,
			Confidence:  80,
			PublishedAt: now,
		})
	}

	return events
}

func (s *connectorService) collectFeed(ctx context.Context, company, industry string, c *models.Competitor, feedURL, now string) []models.Event {
	feed, err := s.parser.ParseURL(ctx, feedURL)
	if err != nil {
		// Unreachable or malformed feeds are skipped, never fatal to the batch.
		s.logger.WarnContext(ctx, "feed fetch failed, skipping", "competitor", c.Name, "url", feedURL, "error", err)
		metrics.FetchFailures.WithLabelValues(string(models.SourceRSS)).Inc()

		return nil
	}

	items := feed.Items
	if len(items) > s.cfg.MaxItemsPerFeed {
		items = items[:s.cfg.MaxItemsPerFeed]
	}

	events := make([]models.Event, 0, len(items))

	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = "Update"
		}

		link := item.Link
		if link == "" {
			link = c.Site
		}

		raw := strings.TrimSpace(item.Description)
		if raw == "" {
			raw = strings.TrimSpace(item.Content)
		}

		if raw == "" {
			raw = title
		}

		publishedAt := now
		if item.PublishedParsed != nil {
			publishedAt = item.PublishedParsed.UTC().Format(time.RFC3339)
		}

		events = append(events, models.Event{
			Company:     company,
			Competitor:  c.Name,
			Industry:    industry,
			SourceType:  models.SourceRSS,
			SourceURL:   link,
			Title:       fmt.Sprintf("%s: %s", c.Name, title),
			Raw:         truncate(raw, s.cfg.MaxRawLength),
			Category:    "Features",
			Impact:      3,
			Confidence:  70,
			PublishedAt: publishedAt,
		})
	}

	return events
}

func (s *connectorService) collectReleases(ctx context.Context, company, industry string, c *models.Competitor, repoURL, now string) []models.Event {
	releases, err := s.releases.FetchReleases(ctx, repoURL, s.cfg.MaxReleases)
	if err != nil {
		s.logger.WarnContext(ctx, "releases fetch failed, skipping", "competitor", c.Name, "repo", repoURL, "error", err)
		metrics.FetchFailures.WithLabelValues(string(models.SourceGitHub)).Inc()

		return nil
	}

	events := make([]models.Event, 0, len(releases))

	for _, release := range releases {
		publishedAt := release.PublishedAt
		if publishedAt == "" {
			publishedAt = now
		}

		events = append(events, models.Event{
			Company:     company,
			Competitor:  c.Name,
			Industry:    industry,
			SourceType:  models.SourceGitHub,
			SourceURL:   release.HTMLURL,
			Title:       release.Title(),
			Raw:         truncate(strings.TrimSpace(release.Body), s.cfg.MaxRawLength),
			Category:    "Release",
			Impact:      3,
			Confidence:  70,
			PublishedAt: publishedAt,
		})
	}

	return events
}

// truncate cuts s to at most limit bytes without splitting a rune; the cut
// backs up to the nearest rune boundary.
func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}

	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}

	return s[:cut]
}

// summarize derives the short form of an event body.
func summarize(raw string) string {
	if len(raw) <= summaryLimit {
		return raw
	}

	return truncate(raw, summaryLimit) + "..."
}
