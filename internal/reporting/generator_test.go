package reporting

import (
	"strings"
	"testing"
	"time"

	"agridata/internal/domain"
	"agridata/internal/frame"
	"agridata/internal/resolve"
)

func fixedClock() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func sampleFrame() *frame.Frame {
	f := frame.New()
	f.AppendRow(map[string]interface{}{
		"item_id":    274,
		"start_date": time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		"value":      1000.5,
	})
	f.AppendRow(map[string]interface{}{
		"item_id":    274,
		"start_date": time.Date(2020, 1, 8, 0, 0, 0, 0, time.UTC),
	})
	return f
}

func TestGenerate(t *testing.T) {
	g := NewGenerator().WithClock(fixedClock)

	q := resolve.Query{Item: "corn", Metric: "production", Region: "united states"}
	series := []domain.Series{
		{ItemID: 274, MetricID: 860032, RegionID: 1215, FrequencyID: 9, SourceID: 2, ItemName: "Corn"},
	}

	r := g.Generate(q, 4, 1, series, sampleFrame())

	if !r.GeneratedAt.Equal(fixedClock()) {
		t.Errorf("GeneratedAt: got %v", r.GeneratedAt)
	}
	if r.Combinations != 4 || r.FailedCombinations != 1 {
		t.Errorf("resolution counts: got %d/%d", r.Combinations, r.FailedCombinations)
	}
	if r.FrameRows != 2 {
		t.Errorf("FrameRows: got %d, want 2", r.FrameRows)
	}
}

func TestRenderMarkdown(t *testing.T) {
	g := NewGenerator().WithClock(fixedClock)
	q := resolve.Query{Item: "corn", Metric: "production"}
	series := []domain.Series{
		{ItemID: 274, MetricID: 860032, RegionID: 1215, SourceID: 2,
			ItemName: "Corn", SourceName: "FAO",
			StartDate: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	out := RenderMarkdown(g.Generate(q, 2, 0, series, sampleFrame()))

	for _, want := range []string{
		"# Query Report",
		"| Item | corn |",
		"Series found: 1",
		"| 1 | Corn |",
		"FAO",
		"2000-01-01",
		"Rows: 2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Markdown missing %q:\n%s", want, out)
		}
	}
}

func TestRenderMarkdown_NoSeries(t *testing.T) {
	g := NewGenerator().WithClock(fixedClock)

	out := RenderMarkdown(g.Generate(resolve.Query{Item: "unobtainium"}, 1, 1, nil, nil))

	if !strings.Contains(out, "No series found.") {
		t.Errorf("Markdown missing empty-result note:\n%s", out)
	}
}

func TestRenderFrameCSV(t *testing.T) {
	out := RenderFrameCSV(sampleFrame())

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "item_id,start_date,value" {
		t.Errorf("Header: got %q", lines[0])
	}
	if lines[1] != "274,2020-01-01,1000.5" {
		t.Errorf("First row: got %q", lines[1])
	}
	// Missing value renders empty
	if lines[2] != "274,2020-01-08," {
		t.Errorf("Second row: got %q", lines[2])
	}
}
