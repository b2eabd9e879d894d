package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	runewidth "github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

const (
	defaultWidth = 80
	minBarWidth  = 10
	maxBarWidth  = 40
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

// truncate cuts s to at most limit display columns.
func truncate(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if runewidth.StringWidth(s) <= limit {
		return s
	}
	return runewidth.Truncate(s, limit, "…")
}

// progressLine renders one upload update on a single carriage-returned line.
type progressLine struct {
	out   io.Writer
	bar   progress.Model
	width int
}

func newProgressLine(out io.Writer) *progressLine {
	width := terminalWidth()
	barWidth := min(max(width/3, minBarWidth), maxBarWidth)
	return &progressLine{
		out:   out,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth)),
		width: width,
	}
}

func (p *progressLine) update(update uploadProgress) {
	bar := p.bar.ViewAs(update.Percent / 100)
	room := p.width - lipgloss.Width(bar) - 2
	status := update.Status
	if update.Caption != "" {
		status = update.Caption
	}
	line := bar
	if room > 0 && status != "" {
		line += " " + mutedStyle.Render(truncate(status, room))
	}
	fmt.Fprintf(p.out, "\r\033[K%s", line)
}

func (p *progressLine) done() {
	fmt.Fprintln(p.out)
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case "healthy", "complete":
		return successStyle
	case "degraded", "unknown", "in_progress":
		return warnStyle
	default:
		return errorStyle
	}
}

func printUpload(out io.Writer, u *upload) {
	fmt.Fprintf(out, "%s %s\n", titleStyle.Render(u.Filename), statusStyle(u.Status).Render(u.Status))
	if u.RemoteID != "" {
		fmt.Fprintf(out, "  %s %s\n", mutedStyle.Render("id"), u.RemoteID)
	}
	if u.Error != "" {
		fmt.Fprintf(out, "  %s %s\n", mutedStyle.Render("error"), errorStyle.Render(u.Error))
	}
}

func printSearch(out io.Writer, hits []searchHit) {
	if len(hits) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("No results"))
		return
	}
	width := terminalWidth()
	for i, hit := range hits {
		header := fmt.Sprintf("%2d. %s %s", i+1, hit.Kind, hit.ID)
		fmt.Fprintf(out, "%s %s\n", titleStyle.Render(header), mutedStyle.Render(hit.SimilarityText))

		var text string
		switch {
		case hit.Image != nil:
			text = hit.Image.Caption
		case hit.Document != nil:
			text = hit.Document.StructuredJSON
		}
		if text != "" {
			fmt.Fprintf(out, "    %s\n", truncate(text, width-4))
		}
		if len(hit.KeywordsMatched) > 0 {
			fmt.Fprintf(out, "    %s %s\n", mutedStyle.Render("keywords"), strings.Join(hit.KeywordsMatched, ", "))
		}
	}
}

func printHealth(out io.Writer, node *healthNode, depth int) {
	if node == nil {
		return
	}
	line := fmt.Sprintf("%s%s %s", strings.Repeat("  ", depth), node.Name, statusStyle(node.Status).Render(node.Status))
	if node.LatencyMs > 0 {
		line += mutedStyle.Render(fmt.Sprintf(" %dms", node.LatencyMs))
	}
	if node.Error != "" {
		room := terminalWidth() - lipgloss.Width(line) - 1
		if room > 0 {
			line += " " + errorStyle.Render(truncate(node.Error, room))
		}
	}
	fmt.Fprintln(out, line)
	for _, child := range node.Children {
		printHealth(out, child, depth+1)
	}
}
