// Package summary produces a short natural-language briefing for a
// normalized weather record, via the language model when available and via
// a deterministic template otherwise.
package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/askwx/askwx/internal/common"
	"github.com/askwx/askwx/internal/llm"
	"github.com/askwx/askwx/internal/weather"
)

// WeatherSummary is the generated narrative attached to a query response.
type WeatherSummary struct {
	Briefing string   `json:"briefing" validate:"required"`
	Tips     []string `json:"tips"`
}

// Error reports a model-call or contract failure. Callers degrade to a
// response without a summary rather than failing the query.
type Error struct {
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("summary generation failed: %v", e.Err) }
func (e *Error) Unwrap() error { return e.Err }

const generatorPrompt = `You write terse weather briefings. Given weather
data as JSON and a list of topics the user cares about, respond with exactly
one JSON object and no other text:
{"briefing": "<1-2 sentences>", "tips": ["<short tip>", ...]}
Keep the briefing under 40 words. Address every listed topic in the tips.`

// Generator produces summaries. A nil Completer switches it to the
// deterministic fallback.
type Generator struct {
	llm      llm.Completer
	validate *validator.Validate
}

func NewGenerator(completer llm.Completer) *Generator {
	return &Generator{
		llm:      completer,
		validate: validator.New(),
	}
}

// Generate asks the model for a briefing about w, steering tips toward the
// intent's extras. Model failures and contract violations return *Error.
func (g *Generator) Generate(ctx context.Context, w weather.NormalizedWeather, extras []string) (WeatherSummary, error) {
	if g.llm == nil {
		return Fallback(w, extras), nil
	}

	input, err := json.Marshal(struct {
		Weather weather.NormalizedWeather `json:"weather"`
		Topics  []string                  `json:"topics"`
	}{w, extras})
	if err != nil {
		return WeatherSummary{}, &Error{Err: err}
	}

	raw, err := g.llm.Complete(ctx, generatorPrompt, string(input))
	if err != nil {
		return WeatherSummary{}, &Error{Err: fmt.Errorf("model call: %w", err)}
	}

	block, ok := llm.ExtractJSONObject(raw)
	if !ok {
		return WeatherSummary{}, &Error{Err: errors.New("no JSON object in model output")}
	}

	var s WeatherSummary
	if err := json.Unmarshal([]byte(block), &s); err != nil {
		return WeatherSummary{}, &Error{Err: fmt.Errorf("malformed JSON: %w", err)}
	}
	if err := g.validate.Struct(s); err != nil {
		return WeatherSummary{}, &Error{Err: err}
	}
	if s.Tips == nil {
		s.Tips = []string{}
	}
	return s, nil
}

// Fallback builds a one-line templated briefing. It never fails and only
// reads fields a minimal record is guaranteed to have.
func Fallback(w weather.NormalizedWeather, extras []string) WeatherSummary {
	briefing := fmt.Sprintf("Weather report for %s.", w.City)
	if w.Current != nil {
		desc := common.FirstNonEmpty(w.Current.Description, strings.ToLower(w.Current.Main))
		briefing = fmt.Sprintf("Currently %d%s with %s in %s.",
			int(math.Round(w.Current.Temperature)), w.Units.TempSymbol(), desc, w.City)
	}

	tips := []string{"Check back later for updated conditions."}
	for _, extra := range extras {
		switch extra {
		case "umbrella", "rain":
			tips = append(tips, "Carry an umbrella if precipitation is likely.")
		case "wind":
			tips = append(tips, "Secure loose items if winds pick up.")
		case "uv":
			tips = append(tips, "Use sun protection around midday.")
		}
	}

	return WeatherSummary{Briefing: briefing, Tips: tips}
}
