package sheets

import (
	"strings"

	"ledgerlens/internal/report"
)

// Rows lays an evaluation out as a block of spreadsheet rows. The block
// opens with the report title and range and closes with a blank row so
// consecutive exports stay readable when appended to one sheet.
//
//	Report | <title> | <start> | <end>
//	<element> | <value>                       math and string
//	<element> | <time 1> | <time 2> ...       timeline header
//	<group>   | <value 1> | <value 2> ...     one row per series
//	<element> | <group 1..4> | <value>        grouped, one row per tuple
func Rows(ev report.Evaluation) [][]any {
	rows := [][]any{{"Report", ev.Title, ev.Range.Start, ev.Range.End}}
	for _, el := range ev.Elements {
		if failed, msg := el.Failed(); failed {
			rows = append(rows, []any{el.Title, "Error: " + msg})
			continue
		}
		switch {
		case el.Number != nil:
			rows = append(rows, []any{el.Title, el.Number.Value})
		case el.Text != nil:
			rows = append(rows, []any{el.Title, el.Text.Value})
		case el.Timeline != nil:
			rows = append(rows, timelineRows(el.Title, el.Timeline.Series)...)
		case el.Grouped != nil:
			for _, g := range el.Grouped.Rows {
				row := []any{el.Title}
				for _, name := range []string{g.Group1, g.Group2, g.Group3, g.Group4} {
					if name != "" {
						row = append(row, name)
					}
				}
				rows = append(rows, append(row, g.Value))
			}
		}
	}
	return append(rows, []any{})
}

func timelineRows(title string, series []report.Series) [][]any {
	header := []any{title}
	if len(series) > 0 {
		for _, p := range series[0].Points {
			header = append(header, p.Time)
		}
	}
	out := [][]any{header}
	for _, s := range series {
		row := []any{strings.TrimSpace(s.Group)}
		for _, p := range s.Points {
			row = append(row, p.Value)
		}
		out = append(out, row)
	}
	return out
}
