package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/askwx/askwx/internal/llm"
)

type fakeCompleter struct {
	output string
	err    error
	calls  int
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	f.calls++
	return f.output, f.err
}

func TestParseExtractsJSONFromProse(t *testing.T) {
	fake := &fakeCompleter{output: `Sure! Here is the intent:
{"cities":["Tokyo"],"date":{"kind":"range","days":5},"units":"metric","extras":[],"useIpLocation":false,"compare":false}
Hope that helps.`}
	p := NewParser(fake, "metric")

	it, err := p.Parse(context.Background(), "5 day forecast for Tokyo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(it.Cities) != 1 || it.Cities[0] != "Tokyo" {
		t.Fatalf("cities = %v", it.Cities)
	}
	if it.Date.Kind != DateRange || it.Date.Days != 5 {
		t.Fatalf("date = %+v", it.Date)
	}
}

func TestParseFillsRangeDefaults(t *testing.T) {
	fake := &fakeCompleter{output: `{"cities":["Lyon"],"date":{"kind":"range"},"units":"metric"}`}
	p := NewParser(fake, "metric")

	it, err := p.Parse(context.Background(), "forecast for Lyon")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it.Date.Days != 3 {
		t.Fatalf("days = %d, want default 3", it.Date.Days)
	}
	if it.Extras == nil {
		t.Fatal("extras not normalized to empty slice")
	}
}

func TestParseWeekendDefaultsToTwoDays(t *testing.T) {
	fake := &fakeCompleter{output: `{"cities":["Lyon"],"date":{"kind":"range","weekend":true},"units":"metric"}`}
	p := NewParser(fake, "metric")

	it, err := p.Parse(context.Background(), "weekend in Lyon")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it.Date.Days != 2 {
		t.Fatalf("days = %d, want weekend default 2", it.Date.Days)
	}
}

func TestParseModelErrorIsParseError(t *testing.T) {
	fake := &fakeCompleter{err: errors.New("boom")}
	p := NewParser(fake, "metric")

	_, err := p.Parse(context.Background(), "weather in Paris")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	fake := &fakeCompleter{output: `{"cities": ["Paris"`}
	p := NewParser(fake, "metric")

	_, err := p.Parse(context.Background(), "weather in Paris")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
}

func TestParseReportsOffendingFields(t *testing.T) {
	// cities empty and units outside the enum.
	fake := &fakeCompleter{output: `{"cities":[],"date":{"kind":"today"},"units":"kelvin"}`}
	p := NewParser(fake, "metric")

	_, err := p.Parse(context.Background(), "weather")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	if len(perr.Fields) == 0 {
		t.Fatal("expected offending field names")
	}
}

func TestParseRejectsCompareWithOneCity(t *testing.T) {
	fake := &fakeCompleter{output: `{"cities":["Paris"],"date":{"kind":"today"},"units":"metric","compare":true}`}
	p := NewParser(fake, "metric")

	if _, err := p.Parse(context.Background(), "compare Paris"); err == nil {
		t.Fatal("expected schema failure for compare with one city")
	}
}

func TestParseWithoutModelUsesFallback(t *testing.T) {
	p := NewParser(nil, "imperial")

	it, err := p.Parse(context.Background(), "weather in Denver")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it.Cities[0] != "Denver" || it.Units != "imperial" {
		t.Fatalf("fallback intent = %+v", it)
	}
}

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{`{"a":1}`, `{"a":1}`, true},
		{`noise {"a":{"b":2}} trailing`, `{"a":{"b":2}}`, true},
		{`{"s":"br}ace"}`, `{"s":"br}ace"}`, true},
		{`{"s":"esc\"}aped"}`, `{"s":"esc\"}aped"}`, true},
		{`no json here`, ``, false},
		{`{"unbalanced":`, ``, false},
	}
	for _, tc := range cases {
		got, ok := llm.ExtractJSONObject(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ExtractJSONObject(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
