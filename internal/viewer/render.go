package viewer

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	orchestration "github.com/koscakluka/ema-debate/core"
	"github.com/koscakluka/ema-debate/core/debate"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

type theme struct {
	header    lipgloss.Style
	panel     lipgloss.Style
	muted     lipgloss.Style
	status    lipgloss.Style
	errStatus lipgloss.Style
	advisory  lipgloss.Style
	playing   lipgloss.Style
	heading   lipgloss.Style
	speakers  []lipgloss.Style
}

func newTheme() theme {
	palette := []lipgloss.Color{"#01cdfe", "#ff71ce", "#05ffa1", "#b967ff", "#fffb96", "#ff9f43"}
	speakers := make([]lipgloss.Style, len(palette))
	for i, color := range palette {
		speakers[i] = lipgloss.NewStyle().Bold(true).Foreground(color)
	}

	return theme{
		header: lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderBottom(true),
		panel:     lipgloss.NewStyle().Padding(0, 1),
		muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3d8")),
		status:    lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1")),
		errStatus: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff5f5f")),
		advisory:  lipgloss.NewStyle().Foreground(lipgloss.Color("#fffb96")),
		playing:   lipgloss.NewStyle().Foreground(lipgloss.Color("#ff71ce")),
		heading:   lipgloss.NewStyle().Bold(true).Underline(true),
		speakers:  speakers,
	}
}

// speaker picks a stable color per speaker.
func (t theme) speaker(id string) lipgloss.Style {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return t.speakers[int(h.Sum32())%len(t.speakers)]
}

func renderTurns(t theme, turns []orchestration.TurnView, width int) string {
	if len(turns) == 0 {
		return t.muted.Render("Waiting for the first turn...")
	}

	var b strings.Builder
	for i, view := range turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		turn := view.Turn

		header := t.speaker(turn.SpeakerID).Render(turn.DisplayName())
		meta := fmt.Sprintf("round %d", turn.Round)
		if turn.Type != "" {
			meta += " · " + string(turn.Type)
		}
		header += " " + t.muted.Render(meta)
		if view.Playing {
			header += " " + t.playing.Render("♪")
		}
		b.WriteString(header)
		b.WriteString("\n")
		b.WriteString(indent.String(wordwrap.String(turn.Text, max(20, width-2)), 2))

		if predictions := formatPredictions(turn.Predictions); predictions != "" {
			b.WriteString("\n")
			b.WriteString(indent.String(t.muted.Render(predictions), 2))
		}
	}
	return b.String()
}

// formatPredictions renders predictions highest first, ties by label.
func formatPredictions(predictions debate.Predictions) string {
	if len(predictions) == 0 {
		return ""
	}
	labels := make([]string, 0, len(predictions))
	for label := range predictions {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if predictions[labels[i]] != predictions[labels[j]] {
			return predictions[labels[i]] > predictions[labels[j]]
		}
		return labels[i] < labels[j]
	})

	parts := make([]string, len(labels))
	for i, label := range labels {
		parts[i] = fmt.Sprintf("%s %.0f%%", label, predictions[label])
	}
	return strings.Join(parts, " · ")
}

// RenderResults formats a results summary for a terminal of the given width.
func RenderResults(results debate.Results, width int) string {
	return renderResults(newTheme(), results, width)
}

func renderResults(t theme, results debate.Results, width int) string {
	wrap := func(text string) string {
		return wordwrap.String(text, max(20, width-2))
	}

	var b strings.Builder
	b.WriteString(t.heading.Render("Summary"))
	b.WriteString("\n")
	b.WriteString(wrap(results.Overall))

	if results.HasConsensus() {
		b.WriteString("\n\n")
		b.WriteString(t.heading.Render("Consensus"))
		b.WriteString("\n")
		b.WriteString(wrap(results.Consensus))
	}

	if len(results.Agreements) > 0 {
		b.WriteString("\n\n")
		b.WriteString(t.heading.Render("Agreements"))
		for _, agreement := range results.Agreements {
			b.WriteString("\n")
			b.WriteString(indent.String(wrap("- "+agreement), 2))
		}
	}

	if len(results.Disagreements) > 0 {
		b.WriteString("\n\n")
		b.WriteString(t.heading.Render("Disagreements"))
		for _, disagreement := range results.Disagreements {
			b.WriteString("\n  - ")
			b.WriteString(disagreement.Topic)
			names := make([]string, 0, len(disagreement.Positions))
			for name := range disagreement.Positions {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				b.WriteString("\n")
				b.WriteString(indent.String(wrap(name+": "+disagreement.Positions[name]), 4))
			}
		}
	}

	if len(results.FinalPredictions) > 0 {
		b.WriteString("\n\n")
		b.WriteString(t.heading.Render("Final predictions"))
		for _, prediction := range results.FinalPredictions {
			name := prediction.SpeakerName
			if name == "" {
				name = prediction.SpeakerID
			}
			line := t.speaker(prediction.SpeakerID).Render(name) + "  " + formatPredictions(prediction.Predictions)
			if prediction.Change != "" {
				line += " " + t.muted.Render("("+prediction.Change+")")
			}
			b.WriteString("\n  ")
			b.WriteString(line)
		}
	}

	for i, rationale := range results.Rationales {
		if i == 0 {
			b.WriteString("\n\n")
			b.WriteString(t.heading.Render("Rationales"))
		}
		name := rationale.SpeakerName
		if name == "" {
			name = rationale.SpeakerID
		}
		b.WriteString("\n  ")
		b.WriteString(t.speaker(rationale.SpeakerID).Render(name))
		b.WriteString("\n")
		b.WriteString(indent.String(wrap(rationale.Rationale), 4))
		for _, argument := range rationale.KeyArguments {
			b.WriteString("\n")
			b.WriteString(indent.String(wrap("• "+argument), 4))
		}
	}

	return b.String()
}
