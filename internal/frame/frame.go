// Package frame implements the wide accumulation table observation batches
// are folded into. It stands in for a full dataframe library: the only
// operations the client needs are append and outer merge keyed on the
// identifying column set.
package frame

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// IdentifyingColumns is the unique identifying column set of an observation
// row. Merging keys on the subset of these columns present in both frames.
var IdentifyingColumns = []string{
	"item_id", "metric_id",
	"region_id", "partner_region_id",
	"frequency_id", "source_id",
	"reporting_date", "start_date", "end_date",
}

// Frame is a column-ordered table of observation rows. Cells hold nil, int,
// float64, string or time.Time. A Frame is not safe for concurrent use.
type Frame struct {
	cols     []string
	colIndex map[string]int
	rows     [][]interface{}
}

// New creates an empty frame with no columns.
func New() *Frame {
	return &Frame{colIndex: make(map[string]int)}
}

// NewWithColumns creates an empty frame with a fixed initial column order.
func NewWithColumns(cols []string) *Frame {
	f := New()
	for _, col := range cols {
		f.ensureColumn(col)
	}
	return f
}

// Columns returns the column names in order. The caller must not modify the
// returned slice.
func (f *Frame) Columns() []string {
	return f.cols
}

// NumRows returns the row count.
func (f *Frame) NumRows() int {
	return len(f.rows)
}

// Empty reports whether the frame has no rows.
func (f *Frame) Empty() bool {
	return len(f.rows) == 0
}

// Cell returns the value at (row, column), nil when the column is absent.
func (f *Frame) Cell(row int, column string) interface{} {
	idx, ok := f.colIndex[column]
	if !ok {
		return nil
	}
	return f.rows[row][idx]
}

// Row returns a copy of the row as a column-to-value map, omitting nils.
func (f *Frame) Row(row int) map[string]interface{} {
	out := make(map[string]interface{}, len(f.cols))
	for i, col := range f.cols {
		if v := f.rows[row][i]; v != nil {
			out[col] = v
		}
	}
	return out
}

// AppendRow adds a row given as a column-to-value map, extending the column
// set with any new columns (existing rows get nil in them).
func (f *Frame) AppendRow(values map[string]interface{}) {
	for _, col := range sortedKeys(values) {
		f.ensureColumn(col)
	}
	row := make([]interface{}, len(f.cols))
	for col, v := range values {
		row[f.colIndex[col]] = v
	}
	f.rows = append(f.rows, row)
}

// Merge folds other into f as an outer merge. Rows are matched on the
// identifying columns present in both frames; on a match the incoming row's
// non-key columns overwrite the existing ones, otherwise the incoming row is
// appended with nils filling columns it lacks. Columns unique to either side
// coexist, nil-filled on the other. An empty f simply adopts other's content.
//
// Matching on the identifying-key intersection makes re-folding an identical
// batch update rows in place rather than duplicate them.
func (f *Frame) Merge(other *Frame) {
	if other.Empty() {
		return
	}
	if f.Empty() && len(f.cols) == 0 {
		f.cols = append([]string(nil), other.cols...)
		f.colIndex = make(map[string]int, len(other.cols))
		for i, col := range other.cols {
			f.colIndex[col] = i
		}
		f.rows = make([][]interface{}, len(other.rows))
		for i, row := range other.rows {
			f.rows[i] = append([]interface{}(nil), row...)
		}
		return
	}

	keyCols := f.sharedKeyColumns(other)
	for _, col := range other.cols {
		f.ensureColumn(col)
	}

	// Index existing rows by identifying key. With no shared key columns the
	// merge degrades to a plain append.
	var index map[string]int
	if len(keyCols) > 0 {
		index = make(map[string]int, len(f.rows))
		for i := range f.rows {
			index[f.rowKey(i, keyCols)] = i
		}
	}

	for i := range other.rows {
		incoming := other.Row(i)

		matched := -1
		if index != nil {
			key := rowKeyOf(incoming, keyCols)
			if j, ok := index[key]; ok {
				matched = j
			}
		}

		if matched >= 0 {
			for col, v := range incoming {
				f.rows[matched][f.colIndex[col]] = v
			}
			continue
		}

		row := make([]interface{}, len(f.cols))
		for col, v := range incoming {
			row[f.colIndex[col]] = v
		}
		f.rows = append(f.rows, row)
		if index != nil {
			index[rowKeyOf(incoming, keyCols)] = len(f.rows) - 1
		}
	}
}

// sharedKeyColumns returns the identifying columns present in both frames.
func (f *Frame) sharedKeyColumns(other *Frame) []string {
	var cols []string
	for _, col := range IdentifyingColumns {
		_, inF := f.colIndex[col]
		_, inOther := other.colIndex[col]
		if inF && inOther {
			cols = append(cols, col)
		}
	}
	return cols
}

// rowKey renders row i's identifying key over the given columns.
func (f *Frame) rowKey(i int, keyCols []string) string {
	var sb strings.Builder
	for _, col := range keyCols {
		sb.WriteString(cellKey(f.rows[i][f.colIndex[col]]))
		sb.WriteByte('|')
	}
	return sb.String()
}

func rowKeyOf(values map[string]interface{}, keyCols []string) string {
	var sb strings.Builder
	for _, col := range keyCols {
		sb.WriteString(cellKey(values[col]))
		sb.WriteByte('|')
	}
	return sb.String()
}

// cellKey renders a cell for key comparison. Times normalize to UTC RFC3339
// so equal instants compare equal regardless of location.
func cellKey(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}

func (f *Frame) ensureColumn(col string) {
	if _, ok := f.colIndex[col]; ok {
		return
	}
	f.colIndex[col] = len(f.cols)
	f.cols = append(f.cols, col)
	for i := range f.rows {
		f.rows[i] = append(f.rows[i], nil)
	}
}

func sortedKeys(values map[string]interface{}) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
