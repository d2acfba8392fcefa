package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/askwx/askwx/internal/cli"
	"github.com/askwx/askwx/internal/config"
	"github.com/askwx/askwx/internal/geoip"
	"github.com/askwx/askwx/internal/intent"
	"github.com/askwx/askwx/internal/llm"
	"github.com/askwx/askwx/internal/query"
	"github.com/askwx/askwx/internal/resilience"
	"github.com/askwx/askwx/internal/summary"
	"github.com/askwx/askwx/internal/weather"
	"github.com/askwx/askwx/internal/weather/providers"
)

func main() {
	units := flag.String("units", "", "unit system override: metric or imperial")
	noSummary := flag.Bool("no-summary", false, "skip the AI summary")
	debug := flag.Bool("debug", false, "print full error detail")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, `usage: askwx [-units metric|imperial] [-debug] "your weather question"`)
		os.Exit(2)
	}
	queryText := strings.Join(flag.Args(), " ")

	// Pipeline log lines are noise for interactive use; keep them for -debug.
	if !*debug {
		log.SetOutput(io.Discard)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.RenderError(err, *debug))
		os.Exit(1)
	}

	svc := buildService(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	resp, err := svc.Process(ctx, query.Request{
		Query:          queryText,
		Units:          weather.Units(*units),
		IncludeSummary: !*noSummary,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.RenderError(err, *debug))
		os.Exit(1)
	}

	fmt.Println(cli.Render(resp))
}

// buildService wires the pipeline for the terminal surface: geolocation
// failures are user-facing errors here, never silently defaulted.
func buildService(cfg *config.AppConfig) *query.Service {
	backoff := resilience.Config{
		MaxRetries:      cfg.MaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	var completer llm.Completer
	if cfg.OpenAIAPIKey != "" {
		completer = llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.LLMTimeout, backoff)
	} else {
		log.Printf("INFO: OPENAI_API_KEY not set; running with deterministic parsing and summaries")
	}

	return query.NewService(
		intent.NewParser(completer, cfg.DefaultUnits),
		geoip.NewClient(httpClient, backoff),
		providers.NewOpenWeatherClient(httpClient, cfg.OpenWeatherAPIKey, backoff),
		summary.NewGenerator(completer),
		query.Options{},
	)
}
