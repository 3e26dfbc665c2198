package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"intel-agent/catalog"
	"intel-agent/models"
	"intel-agent/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

type stubConnector struct {
	events []models.Event
	calls  int
	demo   bool
}

func (s *stubConnector) FetchUpdates(_ context.Context, _, _ string, competitors []models.Competitor, demoMode bool) []models.Event {
	s.calls++
	s.demo = demoMode

	if s.events != nil {
		return s.events
	}

	events := make([]models.Event, 0, len(competitors))
	for _, c := range competitors {
		events = append(events, models.Event{
			Competitor: c.Name,
			Title:      c.Name + ": update",
			SourceType: models.SourceDemo,
			Impact:     3,
			Confidence: 80,
		})
	}

	return events
}

type stubDigestService struct {
	digest *models.Digest
	answer string
	err    error
}

func (s *stubDigestService) GenerateDigest(_ context.Context, _, _ string, _ []models.Event) (*models.Digest, error) {
	if s.err != nil {
		return nil, s.err
	}

	return s.digest, nil
}

func (s *stubDigestService) ChatQuery(_ context.Context, _, _, _ string, _ []models.Event) (string, error) {
	if s.err != nil {
		return "", s.err
	}

	return s.answer, nil
}

type stubEventRepository struct {
	events     []models.Event
	getErr     error
	replaceErr error
}

func (r *stubEventRepository) GetAll(_ context.Context) ([]models.Event, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}

	return r.events, nil
}

func (r *stubEventRepository) ReplaceAll(_ context.Context, events []models.Event) error {
	if r.replaceErr != nil {
		return r.replaceErr
	}

	r.events = events

	return nil
}

func (r *stubEventRepository) Clear(_ context.Context) error {
	r.events = nil

	return nil
}

type handlerFixture struct {
	handler   *IntelHandler
	echo      *echo.Echo
	connector *stubConnector
	digest    *stubDigestService
	repo      *stubEventRepository
}

func newFixture(t *testing.T) *handlerFixture {
	t.Helper()

	cat, err := catalog.Load()
	require.NoError(t, err)

	connector := &stubConnector{}
	digest := &stubDigestService{
		digest: &models.Digest{Summary: "stub digest"},
		answer: "stub answer",
	}
	repo := &stubEventRepository{}

	h := NewIntelHandler(
		cat,
		connector,
		digest,
		repo,
		service.NewPercentScorer(nil, testLogger()),
		service.NewOrdinalScorer(),
		rate.NewLimiter(rate.Every(time.Hour), 1),
		false,
		testLogger(),
	)

	e := echo.New()
	h.RegisterRoutes(e)

	return &handlerFixture{handler: h, echo: e, connector: connector, digest: digest, repo: repo}
}

func (f *handlerFixture) request(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)

	return rec
}

func TestIntelHandler_Health(t *testing.T) {
	f := newFixture(t)

	rec := f.request(http.MethodGet, "/v1/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestIntelHandler_Industries(t *testing.T) {
	f := newFixture(t)

	rec := f.request(http.MethodGet, "/v1/industries", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var industries []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &industries))
	assert.Contains(t, industries, "CRM")
	assert.Contains(t, industries, "DevTools")
}

func TestIntelHandler_Discover(t *testing.T) {
	t.Run("should score competitors with the default percent strategy", func(t *testing.T) {
		f := newFixture(t)

		rec := f.request(http.MethodPost, "/v1/discover", `{"company":"Acme","industry":"CRM"}`)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Strategy    string              `json:"strategy"`
			Competitors []models.Competitor `json:"competitors"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

		assert.Equal(t, "percent", resp.Strategy)
		require.NotEmpty(t, resp.Competitors)
		for _, c := range resp.Competitors {
			assert.Greater(t, c.ThreatScore, 0)
			assert.NotEmpty(t, c.ThreatLevel)
		}
	})

	t.Run("should select the ordinal strategy via query param", func(t *testing.T) {
		f := newFixture(t)

		rec := f.request(http.MethodPost, "/v1/discover?strategy=ordinal", `{"company":"Acme","industry":"CRM"}`)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Strategy    string              `json:"strategy"`
			Competitors []models.Competitor `json:"competitors"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

		assert.Equal(t, "ordinal", resp.Strategy)
		for _, c := range resp.Competitors {
			assert.GreaterOrEqual(t, c.ThreatScore, 1)
			assert.LessOrEqual(t, c.ThreatScore, 5)
		}
	})

	t.Run("should reject unknown strategies", func(t *testing.T) {
		f := newFixture(t)

		rec := f.request(http.MethodPost, "/v1/discover?strategy=vibes", `{"industry":"CRM"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("should require an industry", func(t *testing.T) {
		f := newFixture(t)

		rec := f.request(http.MethodPost, "/v1/discover", `{"company":"Acme"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("should return empty competitors for unknown industry", func(t *testing.T) {
		f := newFixture(t)

		rec := f.request(http.MethodPost, "/v1/discover", `{"industry":"Underwater Basket Weaving"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"competitors":[]`)
	})
}

func TestIntelHandler_Fetch(t *testing.T) {
	t.Run("should fetch, merge, and persist events", func(t *testing.T) {
		f := newFixture(t)

		rec := f.request(http.MethodPost, "/v1/fetch", `{"company":"Acme","industry":"CRM"}`)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Saved int `json:"saved"`
			Total int `json:"total"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

		assert.Greater(t, resp.Saved, 0)
		assert.Equal(t, resp.Saved, resp.Total)
		assert.Len(t, f.repo.events, resp.Total)
	})

	t.Run("should not re-admit duplicates on refetch", func(t *testing.T) {
		f := newFixture(t)
		// The limiter only allows one fetch per hour; widen it for this test.
		f.handler.cooldown = rate.NewLimiter(rate.Inf, 1)

		first := f.request(http.MethodPost, "/v1/fetch", `{"company":"Acme","industry":"CRM"}`)
		require.Equal(t, http.StatusOK, first.Code)

		second := f.request(http.MethodPost, "/v1/fetch", `{"company":"Acme","industry":"CRM"}`)
		require.Equal(t, http.StatusOK, second.Code)

		var resp struct {
			Saved int `json:"saved"`
			Total int `json:"total"`
		}
		require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))

		assert.Equal(t, 0, resp.Saved)
		assert.Equal(t, len(f.repo.events), resp.Total)
	})

	t.Run("should throttle rapid fetches", func(t *testing.T) {
		f := newFixture(t)

		first := f.request(http.MethodPost, "/v1/fetch", `{"industry":"CRM"}`)
		require.Equal(t, http.StatusOK, first.Code)

		second := f.request(http.MethodPost, "/v1/fetch", `{"industry":"CRM"}`)

		assert.Equal(t, http.StatusTooManyRequests, second.Code)
		assert.Contains(t, second.Body.String(), "hold on")
	})

	t.Run("should filter competitors by name", func(t *testing.T) {
		f := newFixture(t)

		rec := f.request(http.MethodPost, "/v1/fetch", `{"industry":"CRM","competitors":["salesforce"]}`)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, f.repo.events, 1)
		assert.Equal(t, "Salesforce", f.repo.events[0].Competitor)
	})

	t.Run("should return 404 when no competitors match", func(t *testing.T) {
		f := newFixture(t)

		rec := f.request(http.MethodPost, "/v1/fetch", `{"industry":"Nope"}`)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("should pass demo mode through from the request", func(t *testing.T) {
		f := newFixture(t)

		rec := f.request(http.MethodPost, "/v1/fetch", `{"industry":"CRM","demo":true}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, f.connector.demo)
	})

	t.Run("should surface persistence failures", func(t *testing.T) {
		f := newFixture(t)
		f.repo.replaceErr = stubError{}

		rec := f.request(http.MethodPost, "/v1/fetch", `{"industry":"CRM"}`)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestIntelHandler_Events(t *testing.T) {
	t.Run("should list stored events", func(t *testing.T) {
		f := newFixture(t)
		f.repo.events = []models.Event{{Competitor: "Stripe", Title: "x"}}

		rec := f.request(http.MethodGet, "/v1/events", "")

		require.Equal(t, http.StatusOK, rec.Code)

		var events []models.Event
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
		require.Len(t, events, 1)
		assert.Equal(t, "Stripe", events[0].Competitor)
	})

	t.Run("should report stats grouped by source type", func(t *testing.T) {
		f := newFixture(t)
		f.repo.events = []models.Event{
			{Competitor: "A", Title: "1", SourceType: models.SourceRSS},
			{Competitor: "A", Title: "2", SourceType: models.SourceRSS},
			{Competitor: "B", Title: "3", SourceType: models.SourceGitHub},
		}

		rec := f.request(http.MethodGet, "/v1/events/stats", "")

		require.Equal(t, http.StatusOK, rec.Code)

		var stats struct {
			Total  int            `json:"total"`
			ByType map[string]int `json:"by_type"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))

		assert.Equal(t, 3, stats.Total)
		assert.Equal(t, 2, stats.ByType["rss"])
		assert.Equal(t, 1, stats.ByType["github"])
	})

	t.Run("should clear the store", func(t *testing.T) {
		f := newFixture(t)
		f.repo.events = []models.Event{{Competitor: "A", Title: "x"}}

		rec := f.request(http.MethodDelete, "/v1/events", "")

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, f.repo.events)
	})
}

func TestIntelHandler_Digest(t *testing.T) {
	t.Run("should generate a digest from stored events", func(t *testing.T) {
		f := newFixture(t)
		f.repo.events = []models.Event{{Competitor: "Stripe", Title: "x", Impact: 3}}

		rec := f.request(http.MethodPost, "/v1/digest", `{"company":"Acme","industry":"Fintech"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "stub digest")
	})

	t.Run("should reject digest requests against an empty store", func(t *testing.T) {
		f := newFixture(t)

		rec := f.request(http.MethodPost, "/v1/digest", `{"company":"Acme","industry":"Fintech"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "no intelligence data available")
	})
}

func TestIntelHandler_Chat(t *testing.T) {
	t.Run("should answer a prompt", func(t *testing.T) {
		f := newFixture(t)
		f.repo.events = []models.Event{{Competitor: "Stripe", Title: "x", Impact: 3}}

		rec := f.request(http.MethodPost, "/v1/chat", `{"prompt":"who ships fastest?","company":"Acme","industry":"Fintech"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "stub answer")
	})

	t.Run("should require a prompt", func(t *testing.T) {
		f := newFixture(t)

		rec := f.request(http.MethodPost, "/v1/chat", `{"company":"Acme"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

// stubError is a trivial error for stubbing failures.
type stubError struct{}

func (stubError) Error() string { return "stub failure" }
