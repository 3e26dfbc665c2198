package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"intel-agent/catalog"
	"intel-agent/config"
	"intel-agent/driver"
	"intel-agent/handler"
	"intel-agent/middleware"
	"intel-agent/repository"
	"intel-agent/service"
	"intel-agent/utils/logger"
)

func main() {
	log := logger.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	cat, err := catalog.Load()
	if err != nil {
		log.Error("failed to load competitor catalog", "error", err)
		os.Exit(1)
	}

	events := repository.NewFileEventRepository(cfg.Store.Path, log)

	// Feed support is a startup capability, not a per-call probe. A nil
	// parser routes every competitor through the demo connector.
	var parser service.FeedParser
	if cfg.Connector.EnableFeeds {
		parser = service.NewFeedParser(cfg.Connector.FetchTimeout)
	} else {
		log.Warn("feed support disabled; connectors will synthesize demo events")
	}

	var releases service.ReleasesFetcher
	if cfg.Connector.EnableGitHub {
		releases = driver.NewGitHubReleasesClient(cfg.Connector.GitHubAPIBase, cfg.Connector.FetchTimeout, log)
	}

	connector := service.NewConnectorService(parser, releases, cfg.Connector, log)

	// Absent credential forces the local tier everywhere remote generation
	// is attempted. This is an informational status, not an error.
	var llm driver.LLMClient
	if cfg.Groq.APIKey != "" {
		llm = driver.NewGroqClient(&cfg.Groq, log)
	} else {
		log.Info("no API credential configured; digest and chat use the local tier")
	}

	digest := service.NewDigestService(llm, cfg, log)

	percent := service.NewPercentScorer(parser, log)
	ordinal := service.NewOrdinalScorer()

	cooldown := rate.NewLimiter(rate.Every(cfg.Connector.Cooldown), 1)

	intelHandler := handler.NewIntelHandler(cat, connector, digest, events, percent, ordinal, cooldown, cfg.Connector.DemoMode, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.LoggingMiddleware(log))

	intelHandler.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.Info("starting intel-agent server", "addr", addr, "store", cfg.Store.Path, "demo_mode", cfg.Connector.DemoMode)

		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}
