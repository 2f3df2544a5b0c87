package cmd

import (
	"encoding/json"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	apiclient "github.com/donaldgifford/item-notifier/internal/api/client"
)

const timeLayout = "2006-01-02 15:04:05"

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	if isTerminal(w) {
		t.SetStyle(table.StyleRounded)
	} else {
		t.SetStyle(table.StyleLight)
		t.Style().Options.SeparateRows = false
	}
	return t
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func printStatus(w io.Writer, st *apiclient.Status) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRows([]table.Row{
		{"Last seen item", orDash(st.Engine.LastSeenItemID)},
		{"Checkpoint", strconv.FormatBool(st.Engine.HasCheckpoint)},
		{"Policy", st.Engine.Policy},
		{"Last poll", formatTime(st.Engine.LastPollAt)},
		{"Last error", orDash(st.Engine.LastError)},
		{"Polls", st.Engine.Polls},
		{"Notified", st.Engine.Notified},
		{"Cycle running", strconv.FormatBool(st.Engine.Running)},
	})
	if st.Schedule != nil {
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"Interval", st.Schedule.Interval},
			{"Next run", formatTime(st.Schedule.NextRun)},
		})
	}
	if rl := st.RateLimit; rl != nil {
		limit := "unlimited"
		if rl.DailyLimit > 0 {
			limit = strconv.FormatInt(rl.DailyLimit, 10)
		}
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"Catalog requests", rl.Requests},
			{"Daily limit", limit},
			{"Window resets", formatTime(rl.ResetAt)},
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft},
	})
	t.Render()
}

func printState(w io.Writer, st *apiclient.State) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Last seen item", "Checkpoint"})
	t.AppendRow(table.Row{orDash(st.LastSeenItemID), strconv.FormatBool(st.HasCheckpoint)})
	t.Render()
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
