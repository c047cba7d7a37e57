package frame

import (
	"reflect"
	"testing"
	"time"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func obsRow(itemID int, start time.Time, value interface{}) map[string]interface{} {
	row := map[string]interface{}{
		"item_id":    itemID,
		"source_id":  2,
		"start_date": start,
		"end_date":   start.AddDate(0, 0, 7),
	}
	if value != nil {
		row["value"] = value
	}
	return row
}

func TestAppendRowExtendsColumns(t *testing.T) {
	f := New()
	f.AppendRow(map[string]interface{}{"item_id": 1, "value": 10.0})
	f.AppendRow(map[string]interface{}{"item_id": 2, "value": 20.0, "unit_id": 14})

	if f.NumRows() != 2 {
		t.Fatalf("NumRows: got %d, want 2", f.NumRows())
	}
	if !reflect.DeepEqual(f.Columns(), []string{"item_id", "value", "unit_id"}) {
		t.Errorf("Columns: got %v", f.Columns())
	}
	// The earlier row gets nil in the new column.
	if f.Cell(0, "unit_id") != nil {
		t.Errorf("Expected nil unit_id in first row, got %v", f.Cell(0, "unit_id"))
	}
	if f.Cell(1, "unit_id") != 14 {
		t.Errorf("unit_id: got %v, want 14", f.Cell(1, "unit_id"))
	}
}

func TestRowOmitsNils(t *testing.T) {
	f := NewWithColumns([]string{"item_id", "value"})
	f.AppendRow(map[string]interface{}{"item_id": 1})

	row := f.Row(0)
	if _, ok := row["value"]; ok {
		t.Errorf("Row must omit nil cells, got %v", row)
	}
}

func TestMerge_IntoEmptyAdopts(t *testing.T) {
	other := New()
	other.AppendRow(obsRow(274, day(2020, 1, 1), 100.0))

	f := New()
	f.Merge(other)

	if f.NumRows() != 1 {
		t.Fatalf("NumRows: got %d, want 1", f.NumRows())
	}
	if !reflect.DeepEqual(f.Columns(), other.Columns()) {
		t.Errorf("Columns: got %v, want %v", f.Columns(), other.Columns())
	}

	// Adopted rows are copies, not shared backing arrays.
	f.rows[0][f.colIndex["item_id"]] = 999
	if other.Cell(0, "item_id") != 274 {
		t.Error("Merge into empty frame shares row memory with the source")
	}
}

func TestMerge_OuterJoinNilFills(t *testing.T) {
	f := New()
	f.AppendRow(obsRow(274, day(2020, 1, 1), 100.0))

	other := New()
	row := obsRow(500, day(2020, 1, 1), nil)
	row["reporting_date"] = day(2020, 2, 1)
	other.AppendRow(row)

	f.Merge(other)

	if f.NumRows() != 2 {
		t.Fatalf("NumRows: got %d, want 2", f.NumRows())
	}
	// Column unique to the incoming side is nil on the original row.
	if f.Cell(0, "reporting_date") != nil {
		t.Errorf("Expected nil reporting_date on original row, got %v", f.Cell(0, "reporting_date"))
	}
	// And vice versa.
	if f.Cell(1, "value") != nil {
		t.Errorf("Expected nil value on incoming row, got %v", f.Cell(1, "value"))
	}
}

func TestMerge_IdenticalBatchIsIdempotent(t *testing.T) {
	batch := New()
	batch.AppendRow(obsRow(274, day(2020, 1, 1), 100.0))
	batch.AppendRow(obsRow(274, day(2020, 1, 8), 200.0))

	f := New()
	f.Merge(batch)
	f.Merge(batch)

	if f.NumRows() != 2 {
		t.Fatalf("Re-folding an identical batch duplicated rows: got %d, want 2", f.NumRows())
	}
}

func TestMerge_MatchedRowOverwrites(t *testing.T) {
	f := New()
	f.AppendRow(obsRow(274, day(2020, 1, 1), 100.0))

	revised := New()
	revised.AppendRow(obsRow(274, day(2020, 1, 1), 150.0))

	f.Merge(revised)

	if f.NumRows() != 1 {
		t.Fatalf("NumRows: got %d, want 1", f.NumRows())
	}
	if f.Cell(0, "value") != 150.0 {
		t.Errorf("Matched row must take the incoming value, got %v", f.Cell(0, "value"))
	}
}

func TestMerge_DistinctReportingDatesCoexist(t *testing.T) {
	first := New()
	row := obsRow(274, day(2020, 1, 1), 100.0)
	row["reporting_date"] = day(2020, 2, 1)
	first.AppendRow(row)

	second := New()
	row = obsRow(274, day(2020, 1, 1), 150.0)
	row["reporting_date"] = day(2020, 3, 1)
	second.AppendRow(row)

	f := New()
	f.Merge(first)
	f.Merge(second)

	if f.NumRows() != 2 {
		t.Fatalf("Revisions of the same period must coexist: got %d rows", f.NumRows())
	}
}

func TestMerge_NoSharedKeysAppends(t *testing.T) {
	f := New()
	f.AppendRow(map[string]interface{}{"label": "a"})

	other := New()
	other.AppendRow(map[string]interface{}{"note": "b"})

	f.Merge(other)

	if f.NumRows() != 2 {
		t.Fatalf("NumRows: got %d, want 2", f.NumRows())
	}
}

func TestCellKeyNormalizesTimezones(t *testing.T) {
	loc := time.FixedZone("plus2", 2*3600)
	utc := day(2020, 1, 1)
	shifted := utc.In(loc)

	if cellKey(utc) != cellKey(shifted) {
		t.Errorf("Equal instants must key equal: %q vs %q", cellKey(utc), cellKey(shifted))
	}
}
