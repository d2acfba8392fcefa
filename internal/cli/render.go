// Package cli renders query responses for the terminal.
package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/askwx/askwx/internal/query"
	"github.com/askwx/askwx/internal/weather"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true).
			Padding(0, 2).
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("12"))

	cityStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("14")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Width(12)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)

	tipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)
)

// Render formats the full response: banner, one block per city, and the
// summary when present.
func Render(resp *query.Response) string {
	var b strings.Builder

	b.WriteString(bannerStyle.Render("askwx"))
	b.WriteString("\n\n")

	for _, w := range resp.Results {
		b.WriteString(renderCity(w))
		b.WriteString("\n")
	}

	if resp.Summary != nil {
		b.WriteString(boxStyle.Render(resp.Summary.Briefing))
		b.WriteString("\n")
		for _, tip := range resp.Summary.Tips {
			b.WriteString(tipStyle.Render("  • " + tip))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func renderCity(w weather.NormalizedWeather) string {
	var b strings.Builder

	title := w.City
	if w.Country != "" {
		title += ", " + w.Country
	}
	b.WriteString(cityStyle.Render(title))
	b.WriteString("\n")

	if w.Current != nil {
		cur := w.Current
		b.WriteString(fmt.Sprintf("%s %s %.0f%s (feels like %.0f%s)\n",
			labelStyle.Render("Now"),
			weather.ConditionGlyph(cur.Main),
			cur.Temperature, w.Units.TempSymbol(),
			cur.FeelsLike, w.Units.TempSymbol()))
		b.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Conditions"), cur.Description))
		b.WriteString(fmt.Sprintf("%s %.1f %s %s\n",
			labelStyle.Render("Wind"),
			cur.WindSpeed, w.Units.SpeedSymbol(),
			weather.CompassLabel(float64(cur.WindDeg))))
		b.WriteString(fmt.Sprintf("%s %d%%  %d hPa\n",
			labelStyle.Render("Humidity"), cur.Humidity, cur.Pressure))
		b.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Visibility"), visibility(cur.Visibility, w.Units)))
	}

	for _, day := range w.Forecast {
		b.WriteString(fmt.Sprintf("%s %s %.0f/%.0f%s  %s  rain %d%%\n",
			labelStyle.Render(day.Date.Format("Mon Jan 2")),
			weather.ConditionGlyph(day.Main),
			day.TempMin, day.TempMax, w.Units.TempSymbol(),
			day.Description, day.PrecipProb))
	}

	return b.String()
}

func visibility(meters int, units weather.Units) string {
	if units == weather.UnitsImperial {
		return fmt.Sprintf("%.1f mi", weather.MetersToMiles(meters))
	}
	return fmt.Sprintf("%.1f km", weather.MetersToKM(meters))
}

// RenderError formats a failure as a single red line; debug adds the full
// error chain.
func RenderError(err error, debug bool) string {
	line := errorStyle.Render("error: " + err.Error())
	if debug {
		line += fmt.Sprintf("\n%+v", err)
	}
	return line
}
