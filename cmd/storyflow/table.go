package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"storyflow/internal/journal"
	"storyflow/internal/storyboard"
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
	for i := range columns {
		header[i] = headers[i]
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

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			WidthMax:    48,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func renderStoryboard(board storyboard.Storyboard) string {
	rows := make([][]string, 0, len(board.Shots))
	for _, shot := range board.Shots {
		rows = append(rows, []string{
			strconv.Itoa(shot.ShotOrder),
			shot.ShotID,
			shot.ShotTitle,
			formatSeconds(shot.Duration),
			shot.ImageURL,
		})
	}
	return renderTable(
		[]string{"#", "Shot", "Title", "Duration", "Image"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func renderHistory(entries []journal.Entry, now time.Time) string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		detail := entry.ResourceURL
		if entry.State == journal.StateFailed {
			detail = entry.ErrorMessage
			if entry.ErrorKind != "" {
				detail = entry.ErrorKind + ": " + detail
			}
		} else if entry.State == journal.StateTracking {
			detail = entry.Message
		}
		rows = append(rows, []string{
			entry.TaskID,
			entry.Kind.String(),
			entry.SubjectID,
			string(entry.State),
			fmt.Sprintf("%d%%", entry.Progress),
			entry.Duration(now).Round(time.Second).String(),
			detail,
		})
	}
	return renderTable(
		[]string{"Task", "Kind", "Subject", "State", "Progress", "Elapsed", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}

func formatSeconds(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	return strconv.FormatFloat(seconds, 'f', -1, 64) + "s"
}
