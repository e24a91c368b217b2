package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/spigell/jobfit/internal/ats"
	"github.com/spigell/jobfit/internal/matching"
)

const (
	outputText = "text"
	outputJSON = "json"

	descriptionPreview = 600
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))

	gapStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

func scoreStyle(score int) lipgloss.Style {
	color := "9"
	switch {
	case score >= 70:
		color = "10"
	case score >= 40:
		color = "11"
	}
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderResults(w io.Writer, results []matching.MatchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, titleStyle.Render("No matching postings found"))
		return
	}

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Top %d matches", len(results))))
	for i, result := range results {
		fmt.Fprintln(w, cardStyle.Render(renderCard(i+1, result)))
	}
}

func renderCard(rank int, result matching.MatchResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s %s\n",
		labelStyle.Render(fmt.Sprintf("#%d", rank)),
		scoreStyle(result.Score).Render(fmt.Sprintf("%3d", result.Score)),
		titleStyle.Render(result.Posting.Title),
	)
	if result.Posting.Location != "" {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Location:"), valueStyle.Render(result.Posting.Location))
	}
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Apply:"), valueStyle.Render(result.Posting.ApplyURL))

	for _, reason := range result.WhyMatches {
		fmt.Fprintf(&b, "  + %s\n", valueStyle.Render(reason))
	}
	for _, gap := range result.Gaps {
		fmt.Fprintf(&b, "  - %s\n", gapStyle.Render(gap))
	}

	return strings.TrimRight(b.String(), "\n")
}

func renderDetail(w io.Writer, result matching.MatchResult) {
	b := result.Breakdown
	fmt.Fprintln(w, titleStyle.Render(result.Posting.Title))
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Score:"), scoreStyle(result.Score).Render(fmt.Sprint(result.Score)))
	fmt.Fprintf(w, "%s must-have %.0f%%, nice-to-have %.0f%%, preference %.0f%%, role bonus %d\n",
		labelStyle.Render("Breakdown:"),
		b.MustHaveCoverage*100, b.NiceToHaveCoverage*100, b.PreferenceMatch*100, b.RoleFamilyBonus,
	)
	fmt.Fprintln(w)
	fmt.Fprintln(w, valueStyle.Render(preview(result.Posting.Description)))
}

func renderPostings(w io.Writer, postings []ats.Posting) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%d postings", len(postings))))
	for _, p := range postings {
		line := fmt.Sprintf("%s %s", labelStyle.Render(p.ID), valueStyle.Render(p.Title))
		if p.Location != "" {
			line += " " + gapStyle.Render("("+p.Location+")")
		}
		fmt.Fprintln(w, line)
	}
}

func preview(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= descriptionPreview {
		return string(runes)
	}
	return string(runes[:descriptionPreview]) + "..."
}

// resultLabel is the line shown for a result in the interactive picker.
func resultLabel(result matching.MatchResult) string {
	return fmt.Sprintf("%3d  %s", result.Score, result.Posting.Title)
}
