package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"mediajob/internal/jobcache"
)

const (
	maxArgsWidth  = 60
	cacheKeyWidth = 12
	stampLayout   = "2006-01-02 15:04"
)

// stepColors tints the step column by kind when writing to a terminal.
var stepColors = map[string]text.Colors{
	"fetch":      {text.FgCyan},
	"fetch_file": {text.FgCyan},
	"fetch_url":  {text.FgCyan},
	"generate":   {text.FgGreen},
	"process":    {text.FgYellow},
	"encode":     {text.FgMagenta},
}

func newTableWriter() table.Writer {
	style := table.StyleRounded
	style.Format.Footer = text.FormatDefault
	tw := table.NewWriter()
	tw.SetStyle(style)
	return tw
}

// stepTable renders the steps of a decoded job, one row per step.
func stepTable(views []stepView, color bool) string {
	tw := newTableWriter()
	tw.AppendHeader(table.Row{"#", "Step", "Abbr", "Args"})
	for _, v := range views {
		step := v.Step
		if c, ok := stepColors[step]; ok && color {
			step = c.Sprint(step)
		}
		tw.AppendRow(table.Row{v.Index, step, v.Abbreviation, formatArgs(v.Args)})
	}
	tw.AppendFooter(table.Row{"", strconv.Itoa(len(views)) + " steps", "", ""})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Name: "#", Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Name: "Args", WidthMax: maxArgsWidth, WidthMaxEnforcer: text.Trim},
	})
	return tw.Render()
}

// cacheTable renders cached job outputs with a total size footer.
func cacheTable(entries []jobcache.EntrySummary) string {
	tw := newTableWriter()
	tw.AppendHeader(table.Row{"#", "Name", "Format", "Size", "Updated", "Key"})
	var total int64
	for i, entry := range entries {
		name := entry.Name
		if name == "" {
			name = "(unnamed)"
		}
		format := entry.Format
		if format == "" {
			format = "-"
		}
		updated := "unknown"
		if !entry.ModifiedAt.IsZero() {
			updated = entry.ModifiedAt.Local().Format(stampLayout)
		}
		key := entry.Key
		if len(key) > cacheKeyWidth {
			key = key[:cacheKeyWidth]
		}
		total += entry.SizeBytes
		tw.AppendRow(table.Row{i + 1, name, format, humanBytes(entry.SizeBytes), updated, key})
	}
	tw.AppendFooter(table.Row{"", "", "Total", humanBytes(total), "", ""})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Name: "#", Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Name: "Size", Align: text.AlignRight, AlignHeader: text.AlignLeft, AlignFooter: text.AlignRight},
	})
	return tw.Render()
}
