package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a run report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Query Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	sb.WriteString("## Query\n\n")
	sb.WriteString("| Dimension | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	writeDim := func(name, value string) {
		if value != "" {
			sb.WriteString(fmt.Sprintf("| %s | %s |\n", name, value))
		}
	}
	writeDim("Item", r.Item)
	writeDim("Metric", r.Metric)
	writeDim("Region", r.Region)
	writeDim("Partner Region", r.PartnerRegion)
	if !r.StartDate.IsZero() {
		writeDim("Start Date", r.StartDate.Format("2006-01-02"))
	}
	if !r.EndDate.IsZero() {
		writeDim("End Date", r.EndDate.Format("2006-01-02"))
	}
	sb.WriteString("\n")

	sb.WriteString("## Resolution\n\n")
	if r.Combinations > 0 {
		sb.WriteString(fmt.Sprintf("Combinations tried: %d | Failed: %d | Series found: %d\n\n",
			r.Combinations, r.FailedCombinations, len(r.Series)))
	} else {
		sb.WriteString(fmt.Sprintf("Series found: %d\n\n", len(r.Series)))
	}

	if len(r.Series) > 0 {
		sb.WriteString("| Rank | Item | Metric | Region | Source | Frequency | Start | End |\n")
		sb.WriteString("|------|------|--------|--------|--------|-----------|-------|-----|\n")
		for i, s := range r.Series {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %d | %s | %s |\n",
				i+1,
				nameOrID(s.ItemName, s.ItemID),
				nameOrID(s.MetricName, s.MetricID),
				nameOrID(s.RegionName, s.RegionID),
				nameOrID(s.SourceName, s.SourceID),
				s.FrequencyID,
				dateOrDash(s.StartDate),
				dateOrDash(s.EndDate),
			))
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("No series found.\n\n")
	}

	sb.WriteString("## Accumulated Table\n\n")
	sb.WriteString(fmt.Sprintf("Rows: %d | Columns: %s\n", r.FrameRows, strings.Join(r.FrameColumns, ", ")))

	return sb.String()
}

func nameOrID(name string, id int) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("#%d", id)
}

func dateOrDash(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}
