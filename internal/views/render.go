package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// struct palette is a simple stylesheet built with named [lipgloss.Style] fields
type palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	warn  lipgloss.Style
	bad   lipgloss.Style
	dim   lipgloss.Style
}

var styles = palette{
	title: lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true),
	ok:    lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true),
	warn:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")),
	bad:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true),
	dim:   lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")).Italic(true),
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// RenderStatus formats a [Status] for terminal output.
func RenderStatus(s *Status) string {
	var b strings.Builder

	b.WriteString(styles.title.Render(fmt.Sprintf("%s · level %d", s.Username, s.Level)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Lessons available: %s\n", styles.ok.Render(fmt.Sprint(s.LessonsAvailable))))
	b.WriteString(fmt.Sprintf("Reviews available: %s\n", styles.ok.Render(fmt.Sprint(s.ReviewsAvailable))))

	next := "none scheduled"
	if s.NextReviewAt != nil {
		next = formatTime(s.NextReviewAt)
	}
	b.WriteString(fmt.Sprintf("Next review:       %s\n", next))
	b.WriteString(styles.dim.Render(fmt.Sprintf("last sync %s (%s)", formatTime(s.LastSync), s.LastSyncStatus)))
	b.WriteString("\n")

	return b.String()
}

// RenderLeeches formats a leech list for terminal output.
func RenderLeeches(leeches []Leech) string {
	if len(leeches) == 0 {
		return styles.ok.Render("No leeches. Keep it up.") + "\n"
	}

	var b strings.Builder
	b.WriteString(styles.title.Render(fmt.Sprintf("%d leeches", len(leeches))))
	b.WriteString("\n")

	for _, l := range leeches {
		name := fmt.Sprintf("subject %d", l.SubjectID)
		if l.Characters != nil {
			name = *l.Characters
		} else if l.Slug != nil {
			name = *l.Slug
		}
		b.WriteString(fmt.Sprintf("%s  %s  %s\n",
			styles.bad.Render(fmt.Sprintf("%3d%%", l.PercentageCorrect)),
			styles.warn.Render(fmt.Sprintf("%2d wrong", l.IncorrectTotal)),
			name,
		))
	}

	return b.String()
}

// RenderForecast formats a review forecast for terminal output.
func RenderForecast(f *Forecast) string {
	if f.Total == 0 {
		return styles.dim.Render("No upcoming reviews inside the horizon.") + "\n"
	}

	var b strings.Builder
	b.WriteString(styles.title.Render(fmt.Sprintf("%d reviews upcoming", f.Total)))
	b.WriteString("\n")

	for _, bucket := range f.Buckets {
		b.WriteString(fmt.Sprintf("%s  %s\n",
			bucket.Time.Local().Format("Mon 15:04"),
			styles.ok.Render(fmt.Sprintf("+%d", bucket.Count)),
		))
	}

	return b.String()
}
