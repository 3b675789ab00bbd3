package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/mcoot/portfolio-leaderboard/internal/services/leaderboard"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
	errW   io.Writer
	styles styles
}

type styles struct {
	header lipgloss.Style
	up     lipgloss.Style
	down   lipgloss.Style
	muted  lipgloss.Style
}

// NewOutput creates a new Output formatter writing to the command's streams
func NewOutput(cmd *cobra.Command, format string) *Output {
	w := cmd.OutOrStdout()
	// Colours are only emitted when w is a terminal
	r := lipgloss.NewRenderer(w)
	return &Output{
		format: format,
		w:      w,
		errW:   cmd.ErrOrStderr(),
		styles: styles{
			header: r.NewStyle().Bold(true).Padding(0, 1),
			up:     r.NewStyle().Foreground(lipgloss.Color("2")),
			down:   r.NewStyle().Foreground(lipgloss.Color("1")),
			muted:  r.NewStyle().Faint(true),
		},
	}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		_, _ = fmt.Fprintln(o.errW, string(data))
	} else {
		_, _ = fmt.Fprintf(o.errW, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case PlayersResult:
		o.printPlayers(v)
	case Entry:
		o.printEntry(v)
	case SubmitResult:
		o.printSubmitResult(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Change response type
type Change struct {
	Percent   string `json:"percent"`
	Direction string `json:"direction"`
	Label     string `json:"label"`
}

// Entry response type (matches API)
type Entry struct {
	Rank          int       `json:"rank,omitempty"`
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	CurrentValue  float64   `json:"current_value"`
	PreviousValue *float64  `json:"previous_value"`
	LastUpdated   time.Time `json:"last_updated"`
	Change        *Change   `json:"change"`
}

// PlayersResult is the leaderboard listing
type PlayersResult struct {
	Players []Entry `json:"players"`
}

// SubmitResult is the result of a submission
type SubmitResult struct {
	Outcome string `json:"outcome"`
	Player  Entry  `json:"player"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) change(c *Change) string {
	if c == nil {
		return o.styles.muted.Render("-")
	}
	if c.Direction == string(leaderboard.DirectionDown) {
		return o.styles.down.Render("▼ " + c.Label)
	}
	return o.styles.up.Render("▲ " + c.Label)
}

func (o *Output) printPlayers(p PlayersResult) {
	if len(p.Players) == 0 {
		_, _ = fmt.Fprintln(o.w, leaderboard.EmptyMessage)
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return o.styles.header
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("RANK", "NAME", "VALUE", "CHANGE", "UPDATED", "ID")

	for _, e := range p.Players {
		t.Row(
			fmt.Sprintf("#%d", e.Rank),
			e.Name,
			leaderboard.FormatCurrency(e.CurrentValue),
			o.change(e.Change),
			leaderboard.FormatDate(e.LastUpdated),
			e.ID,
		)
	}
	_, _ = fmt.Fprintln(o.w, t.String())
}

func (o *Output) printEntry(e Entry) {
	if e.Rank > 0 {
		_, _ = fmt.Fprintf(o.w, "Rank: #%d\n", e.Rank)
	}
	_, _ = fmt.Fprintf(o.w, "Player: %s (%s)\n", e.Name, e.ID)
	_, _ = fmt.Fprintf(o.w, "Value: %s\n", leaderboard.FormatCurrency(e.CurrentValue))
	if e.PreviousValue != nil {
		_, _ = fmt.Fprintf(o.w, "Previous: %s\n", leaderboard.FormatCurrency(*e.PreviousValue))
	}
	if e.Change != nil {
		_, _ = fmt.Fprintf(o.w, "Change: %s\n", o.change(e.Change))
	}
	_, _ = fmt.Fprintf(o.w, "Updated: %s\n", leaderboard.FormatDate(e.LastUpdated))
}

func (o *Output) printSubmitResult(r SubmitResult) {
	switch r.Outcome {
	case "added":
		_, _ = fmt.Fprintln(o.w, "Player added!")
	case "updated":
		_, _ = fmt.Fprintln(o.w, "Portfolio updated!")
	}
	o.printEntry(r.Player)
}

func (o *Output) printHealthResult(h HealthResult) {
	_, _ = fmt.Fprintf(o.w, "Status: %s\n", h.Status)
}
