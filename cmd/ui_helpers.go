// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"

	"uidb/gateway/internal/gateway"
	"uidb/gateway/internal/sqlexec"
)

var spinnerFrames = []string{"-", "\\", "|", "/"}

// startInlineSpinner draws frames followed by text on a single line until the
// returned function is called. Stopping clears the line.
func startInlineSpinner(w io.Writer, text string, frames []string, interval time.Duration) func() {
	cursor.Hide()
	stop := make(chan struct{})
	var (
		wg   sync.WaitGroup
		once sync.Once
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		i := 0
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				line := fmt.Sprintf("%s %s", frames[i%len(frames)], text)
				fmt.Fprintf(w, "\r%*s\r", len(line), "")
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%s %s", frames[i%len(frames)], text)
				i++
			}
		}
	}()
	return func() {
		once.Do(func() {
			close(stop)
			wg.Wait()
			cursor.Show()
		})
	}
}

// renderResult prints res as JSON or as pterm tables depending on --output.
func renderResult(w io.Writer, res *gateway.Result) error {
	if outputMode == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if res.NoMatch() {
		fmt.Fprint(w, pterm.Warning.Sprintln(res.Message))
	} else {
		fmt.Fprint(w, pterm.Success.Sprintln(res.Message))
	}
	if showSQL && res.SQL != "" {
		fmt.Fprintln(w, pterm.FgGray.Sprint(res.SQL))
		if len(res.Params) > 0 {
			fmt.Fprintln(w, pterm.FgGray.Sprintf("params: %v", res.Params))
		}
	}

	switch res.Kind {
	case gateway.KindListTables:
		items := make([]pterm.BulletListItem, len(res.Tables))
		for i, t := range res.Tables {
			items[i] = pterm.BulletListItem{Level: 0, Text: t}
		}
		return printRendered(w, pterm.DefaultBulletList.WithItems(items).Srender)
	case gateway.KindDescribeAndPage:
		if err := renderSchema(w, res.Schema); err != nil {
			return err
		}
		if err := renderRows(w, res.Columns, res.Rows); err != nil {
			return err
		}
		fmt.Fprintf(w, "Page %d of %d (%d rows, %d per page)\n", res.Page, res.TotalPages, res.TotalItems, res.PageSize)
		return nil
	case gateway.KindAggregate, gateway.KindEstimateAffectedRows:
		fmt.Fprintf(w, "Result: %v\n", res.Scalar)
		return nil
	case gateway.KindChartSeries:
		return renderChart(w, res.Labels, res.Series)
	case gateway.KindShell:
		if res.Summary != "" {
			fmt.Fprintln(w, res.Summary)
		}
		if res.Raw == nil {
			return nil
		}
		if len(res.Raw.Sets) == 0 {
			return renderRows(w, res.Raw.Columns, res.Raw.Rows)
		}
		for i, set := range res.Raw.Sets {
			fmt.Fprint(w, pterm.DefaultSection.WithLevel(2).Sprintfln("Result set %d", i+1))
			if err := renderRows(w, set.Columns, set.Rows); err != nil {
				return err
			}
		}
		return nil
	}
	if len(res.Columns) > 0 {
		return renderRows(w, res.Columns, res.Rows)
	}
	return nil
}

func renderSchema(w io.Writer, schema []sqlexec.FieldDescriptor) error {
	if len(schema) == 0 {
		return nil
	}
	data := pterm.TableData{{"Field", "Type", "Null", "Key", "Default", "Extra"}}
	for _, f := range schema {
		def := "NULL"
		if f.Default != nil {
			def = *f.Default
		}
		data = append(data, []string{f.Field, f.Type, f.Null, f.Key, def, f.Extra})
	}
	return printRendered(w, pterm.DefaultTable.WithHasHeader().WithData(data).Srender)
}

func renderRows(w io.Writer, cols []sqlexec.ColumnMeta, rows []sqlexec.Row) error {
	if len(cols) == 0 {
		return nil
	}
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Name
	}
	data := pterm.TableData{header}
	for _, r := range rows {
		line := make([]string, len(r.Values))
		for i, v := range r.Values {
			line[i] = cell(v)
		}
		data = append(data, line)
	}
	return printRendered(w, pterm.DefaultTable.WithHasHeader().WithData(data).Srender)
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return t.Format(time.DateTime)
	case []byte:
		return string(t)
	default:
		s := fmt.Sprint(t)
		// keep one table row per record
		return strings.ReplaceAll(s, "\n", "\\n")
	}
}

func renderChart(w io.Writer, labels []string, series []int64) error {
	if len(labels) == 0 {
		return nil
	}
	bars := make(pterm.Bars, len(labels))
	for i, l := range labels {
		bars[i] = pterm.Bar{Label: l, Value: int(series[i])}
	}
	return printRendered(w, pterm.DefaultBarChart.WithBars(bars).WithHorizontal().WithShowValue().Srender)
}

func printRendered(w io.Writer, render func() (string, error)) error {
	out, err := render()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}
