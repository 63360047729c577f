package main

import (
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"av1clip/internal/pipeline"
	"av1clip/internal/stage"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// stageTable lists every collected exit status of a run in start order.
func stageTable(result pipeline.Result) string {
	rows := make([][]string, 0, len(result.Stages))
	for _, status := range result.Stages {
		rows = append(rows, []string{
			status.Stage,
			stageOutcome(status),
			strconv.Itoa(status.Code),
			formatElapsed(status.Duration),
		})
	}
	return renderTable(
		[]string{"Stage", "Result", "Exit", "Duration"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
	)
}

func stageOutcome(status stage.ExitStatus) string {
	switch {
	case status.Hung && status.Killed:
		return "hung (killed)"
	case status.Hung:
		return "hung"
	case status.Killed:
		return "killed"
	case status.Success():
		return "ok"
	case status.Code != 0:
		return "failed"
	default:
		return "error"
	}
}

func formatElapsed(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
