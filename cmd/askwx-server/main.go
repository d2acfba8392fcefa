package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	httpapi "github.com/askwx/askwx/internal/api/http"
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
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	backoff := resilience.Config{
		MaxRetries:      cfg.MaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	var completer llm.Completer
	if cfg.OpenAIAPIKey != "" {
		completer = llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.LLMTimeout, backoff)
	} else {
		log.Printf("INFO: OPENAI_API_KEY not set; running with deterministic parsing and summaries")
	}

	geo := geoip.NewClient(httpClient, backoff)

	// The HTTP surface degrades to the configured default city when
	// geolocation fails, so requests keep succeeding.
	svc := query.NewService(
		intent.NewParser(completer, cfg.DefaultUnits),
		geo,
		providers.NewOpenWeatherClient(httpClient, cfg.OpenWeatherAPIKey, backoff),
		summary.NewGenerator(completer),
		query.Options{LocationFallback: cfg.DefaultCity},
	)

	app := fiber.New(fiber.Config{
		AppName:               "askwx",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success":   false,
				"error":     "internal_error",
				"message":   err.Error(),
				"timestamp": time.Now().UTC(),
			})
		},
	})

	// Global middleware
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Query:        svc,
		Geo:          geo,
		DefaultUnits: weather.Units(cfg.DefaultUnits),
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
