package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/yasincandan35/remotedesk/internal/capture"
)

// SourcesTable renders capture sources, one per row.
func SourcesTable(sources []capture.Source) string {
	if len(sources) == 0 {
		return MutedStyle.Render("No shareable sources found")
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatUpper
	t.AppendHeader(table.Row{"#", "ID", "Name", "Kind", "Size"})

	for i, src := range sources {
		size := "-"
		if src.Width > 0 && src.Height > 0 {
			size = fmt.Sprintf("%dx%d", src.Width, src.Height)
		}
		t.AppendRow(table.Row{i + 1, src.ID, truncate(src.Name, 40), sourceIcon(src.Kind) + " " + string(src.Kind), size})
	}
	return t.Render()
}

func sourceIcon(k capture.Kind) string {
	if k == capture.KindFile {
		return IconFile
	}
	return IconScreen
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// RoomInfo is the box a host prints once its room is ready.
type RoomInfo struct {
	RoomID string
	Relay  string
	Source capture.Source
}

func (r RoomInfo) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Sharing %s\n\n", IconSuccess, BoldStyle.Render(r.Source.Name))
	fmt.Fprintf(&b, "%s Room ID:  %s\n", IconCopy, BoldStyle.Foreground(Primary).Render(r.RoomID))
	fmt.Fprintf(&b, "%s Relay:    %s\n\n", IconConnect, MutedStyle.Render(r.Relay))
	b.WriteString(MutedStyle.Render("Viewers join with: remotedesk view " + r.RoomID))
	return RoomBoxStyle.Render(b.String())
}

type SessionSummary struct {
	RoomID   string
	Role     string
	Duration time.Duration
	Inputs   int
	Recorded string
}

// SummaryView renders the table printed when a session ends.
func SummaryView(s SessionSummary) string {
	rows := [][]string{
		{"Room", s.RoomID},
		{"Role", s.Role},
		{"Duration", s.Duration.Round(time.Second).String()},
		{"Input events", fmt.Sprintf("%d", s.Inputs)},
	}
	if s.Recorded != "" {
		rows = append(rows, []string{"Recording", s.Recorded})
	}

	return ltable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("Session", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return TitleStyle.Padding(0, 1)
			}
			if row%2 == 0 {
				return lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("255"))
			}
			return lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))
		}).
		Render()
}
