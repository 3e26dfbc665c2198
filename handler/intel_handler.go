package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"intel-agent/catalog"
	"intel-agent/metrics"
	"intel-agent/models"
	"intel-agent/repository"
	"intel-agent/service"
	apperrors "intel-agent/utils/errors"
)

// IntelHandler exposes the intelligence pipeline over HTTP. It is glue: all
// invariants live in the services and repository underneath.
type IntelHandler struct {
	catalog         *catalog.Catalog
	connector       service.ConnectorService
	digest          service.DigestService
	events          repository.EventRepository
	scorers         map[string]service.ThreatScorer
	defaultStrategy string
	cooldown        *rate.Limiter
	demoMode        bool
	logger          *slog.Logger
}

// NewIntelHandler creates the HTTP handler set. cooldown throttles
// fetch-commit actions; it is advisory, not a correctness guarantee.
func NewIntelHandler(
	cat *catalog.Catalog,
	connector service.ConnectorService,
	digest service.DigestService,
	events repository.EventRepository,
	percent service.ThreatScorer,
	ordinal service.ThreatScorer,
	cooldown *rate.Limiter,
	demoMode bool,
	logger *slog.Logger,
) *IntelHandler {
	return &IntelHandler{
		catalog:   cat,
		connector: connector,
		digest:    digest,
		events:    events,
		scorers: map[string]service.ThreatScorer{
			percent.Name(): percent,
			ordinal.Name(): ordinal,
		},
		defaultStrategy: percent.Name(),
		cooldown:        cooldown,
		demoMode:        demoMode,
		logger:          logger,
	}
}

// RegisterRoutes mounts all intel routes on e.
func (h *IntelHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/v1/health", h.Health)
	e.GET("/v1/industries", h.Industries)
	e.POST("/v1/discover", h.Discover)
	e.POST("/v1/fetch", h.Fetch)
	e.GET("/v1/events", h.Events)
	e.GET("/v1/events/stats", h.EventStats)
	e.DELETE("/v1/events", h.ClearEvents)
	e.POST("/v1/digest", h.Digest)
	e.POST("/v1/chat", h.Chat)
}

type discoverRequest struct {
	Company  string `json:"company"`
	Industry string `json:"industry"`
}

type discoverResponse struct {
	Company     string              `json:"company"`
	Industry    string              `json:"industry"`
	Strategy    string              `json:"strategy"`
	Competitors []models.Competitor `json:"competitors"`
}

type fetchRequest struct {
	Company     string   `json:"company"`
	Industry    string   `json:"industry"`
	Competitors []string `json:"competitors"`
	Demo        bool     `json:"demo"`
}

type fetchResponse struct {
	Saved int `json:"saved"`
	Total int `json:"total"`
}

type digestRequest struct {
	Company  string `json:"company"`
	Industry string `json:"industry"`
}

type chatRequest struct {
	Prompt   string `json:"prompt"`
	Company  string `json:"company"`
	Industry string `json:"industry"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type statsResponse struct {
	Total  int                       `json:"total"`
	ByType map[models.SourceType]int `json:"by_type"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *IntelHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "intel-agent"})
}

func (h *IntelHandler) Industries(c echo.Context) error {
	return c.JSON(http.StatusOK, h.catalog.Industries())
}

// Discover returns the scored competitor list for an industry. The scoring
// strategy defaults to the 100-point scale; ?strategy=ordinal selects the
// 5-point scale.
func (h *IntelHandler) Discover(c echo.Context) error {
	var req discoverRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	if strings.TrimSpace(req.Industry) == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "industry is required"})
	}

	strategy := c.QueryParam("strategy")
	if strategy == "" {
		strategy = h.defaultStrategy
	}

	scorer, ok := h.scorers[strategy]
	if !ok {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "unknown scoring strategy: " + strategy})
	}

	competitors := h.catalog.Discover(req.Industry)

	stored, err := h.events.GetAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	service.ScoreAll(c.Request().Context(), scorer, competitors, models.CountByCompetitor(stored))

	return c.JSON(http.StatusOK, discoverResponse{
		Company:     req.Company,
		Industry:    req.Industry,
		Strategy:    strategy,
		Competitors: competitors,
	})
}

// Fetch runs the connector for the selected competitors and merges the
// result into the store. This is the only write path; the merge is a single
// read-merge-replace under the repository's lock.
func (h *IntelHandler) Fetch(c echo.Context) error {
	var req fetchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	if strings.TrimSpace(req.Industry) == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "industry is required"})
	}

	if !h.cooldown.Allow() {
		return c.JSON(http.StatusTooManyRequests, errorResponse{Error: "hold on - just fetched a moment ago"})
	}

	competitors := h.selectCompetitors(req.Industry, req.Competitors)
	if len(competitors) == 0 {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "no competitors found for industry: " + req.Industry})
	}

	ctx := c.Request().Context()

	fetched := h.connector.FetchUpdates(ctx, req.Company, req.Industry, competitors, req.Demo || h.demoMode)

	existing, err := h.events.GetAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	merged, admitted := models.MergeEvents(existing, fetched)

	// A failed save must surface; silent data loss is unacceptable.
	if err := h.events.ReplaceAll(ctx, merged); err != nil {
		h.logger.ErrorContext(ctx, "failed to persist fetched events", "error", err)

		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	metrics.EventsIngested.Add(float64(admitted))

	return c.JSON(http.StatusOK, fetchResponse{Saved: admitted, Total: len(merged)})
}

func (h *IntelHandler) Events(c echo.Context) error {
	events, err := h.events.GetAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, events)
}

func (h *IntelHandler) EventStats(c echo.Context) error {
	events, err := h.events.GetAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, statsResponse{
		Total:  len(events),
		ByType: models.CountBySourceType(events),
	})
}

func (h *IntelHandler) ClearEvents(c echo.Context) error {
	if err := h.events.Clear(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *IntelHandler) Digest(c echo.Context) error {
	var req digestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	ctx := c.Request().Context()

	events, err := h.events.GetAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	if len(events) == 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "no intelligence data available; fetch updates first"})
	}

	digest, err := h.digest.GenerateDigest(ctx, req.Company, req.Industry, events)
	if err != nil {
		return h.generationError(c, err)
	}

	return c.JSON(http.StatusOK, digest)
}

func (h *IntelHandler) Chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	if strings.TrimSpace(req.Prompt) == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "prompt is required"})
	}

	ctx := c.Request().Context()

	events, err := h.events.GetAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	response, err := h.digest.ChatQuery(ctx, req.Prompt, req.Company, req.Industry, events)
	if err != nil {
		return h.generationError(c, err)
	}

	return c.JSON(http.StatusOK, chatResponse{Response: response})
}

// selectCompetitors resolves requested names against the catalog. An empty
// name list selects the whole industry.
func (h *IntelHandler) selectCompetitors(industry string, names []string) []models.Competitor {
	competitors := h.catalog.Discover(industry)
	if len(names) == 0 {
		return competitors
	}

	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}

	selected := make([]models.Competitor, 0, len(competitors))

	for _, competitor := range competitors {
		if _, ok := wanted[strings.ToLower(competitor.Name)]; ok {
			selected = append(selected, competitor)
		}
	}

	return selected
}

// generationError maps generator errors onto HTTP statuses. Validation
// failures indicate an upstream bug feeding malformed events.
func (h *IntelHandler) generationError(c echo.Context, err error) error {
	h.logger.ErrorContext(c.Request().Context(), "generation failed", "error", err)

	if apperrors.CodeOf(err) == apperrors.ErrCodeValidation {
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
}
