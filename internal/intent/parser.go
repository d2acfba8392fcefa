package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/askwx/askwx/internal/llm"
)

const systemPrompt = `You turn natural-language weather questions into JSON.
Respond with exactly one JSON object and no other text, matching:
{
  "cities": ["<city name>", ...],
  "date": {"kind": "today"|"tomorrow"|"range", "days": <int, only for range>, "weekend": <bool>},
  "units": "metric"|"imperial",
  "extras": ["umbrella"|"rain"|"wind"|"uv", ...],
  "useIpLocation": <bool>,
  "compare": <bool>
}
Rules: cities must be non-empty; if the user means their own location, set
useIpLocation to true and cities to ["Unknown"]; set compare to true only
for multi-city comparisons; omit days unless kind is "range"; default units
to "%s" when the query does not say.`

// Parser turns a free-text query into an Intent. The primary path asks the
// language model; Fallback is the deterministic secondary path.
type Parser struct {
	llm          llm.Completer // nil runs in fallback-only mode
	defaultUnits string
	validate     *validator.Validate
}

func NewParser(completer llm.Completer, defaultUnits string) *Parser {
	return &Parser{
		llm:          completer,
		defaultUnits: defaultUnits,
		validate:     validator.New(),
	}
}

// Parse resolves query through the model. Any model failure or contract
// violation returns a *ParseError; callers are expected to degrade to
// Fallback. Without a configured model the fallback runs directly.
func (p *Parser) Parse(ctx context.Context, query string) (Intent, error) {
	if p.llm == nil {
		return p.Fallback(query), nil
	}

	raw, err := p.llm.Complete(ctx, fmt.Sprintf(systemPrompt, p.defaultUnits), query)
	if err != nil {
		return Intent{}, &ParseError{Err: fmt.Errorf("model call: %w", err)}
	}

	block, ok := llm.ExtractJSONObject(raw)
	if !ok {
		return Intent{}, &ParseError{Err: errors.New("no JSON object in model output")}
	}

	var it Intent
	if err := json.Unmarshal([]byte(block), &it); err != nil {
		return Intent{}, &ParseError{Err: fmt.Errorf("malformed JSON: %w", err)}
	}

	if err := p.validate.Struct(it); err != nil {
		return Intent{}, &ParseError{Fields: validationFields(err), Err: err}
	}
	if it.Compare && len(it.Cities) < 2 {
		return Intent{}, &ParseError{Fields: []string{"compare", "cities"}, Err: errors.New("compare requires at least 2 cities")}
	}

	it.Normalize()
	return it, nil
}

func validationFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Namespace())
	}
	return fields
}
