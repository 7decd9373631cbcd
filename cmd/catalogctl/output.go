package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"anicatalog/internal/catalog"
	"anicatalog/internal/runs"
)

func writeJSON(w io.Writer, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printItems(w io.Writer, items []catalog.Item, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(w, catalog.Response{Items: items})
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tNAME")
	for i, it := range items {
		pos := fmt.Sprint(i + 1)
		if it.Rank != nil {
			pos = fmt.Sprint(*it.Rank)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", pos, it.ID, it.Name)
	}
	return tw.Flush()
}

func printStatuses(w io.Writer, statuses []catalog.Status, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(w, statuses)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATALOG\tITEMS\tNEXT REFRESH\tREFRESHING\tLAST ERROR")
	for _, s := range statuses {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%t\t%s\n", s.CatalogID, s.Items, formatTime(s.NextRefreshAt), s.Refreshing, s.LastError)
	}
	return tw.Flush()
}

func printRuns(w io.Writer, list []runs.Run, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(w, list)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSTATUS\tITEMS\tDURATION\tERROR")
	for _, r := range list {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", formatTime(&r.StartedAt), r.Status, r.ItemsFetched, r.Duration().Round(time.Millisecond), r.Error)
	}
	return tw.Flush()
}

func printWarmResults(w io.Writer, results []warmResult, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(w, results)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATALOG\tITEMS\tDURATION\tERROR")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", r.CatalogID, r.Items, r.Duration.Round(time.Millisecond), r.Error)
	}
	return tw.Flush()
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}
