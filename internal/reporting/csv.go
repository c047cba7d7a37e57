package reporting

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"agridata/internal/frame"
)

// RenderFrameCSV renders the accumulated table as a CSV string, columns in
// frame order, one row per observation. Nil cells render empty.
func RenderFrameCSV(f *frame.Frame) string {
	var sb strings.Builder

	cols := f.Columns()
	sb.WriteString(strings.Join(cols, ","))
	sb.WriteByte('\n')

	for i := 0; i < f.NumRows(); i++ {
		for j, col := range cols {
			if j > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(renderCell(f.Cell(i, col)))
		}
		sb.WriteByte('\n')
	}

	return sb.String()
}

// renderCell formats one cell. Dates render as calendar days; the API's
// observation dates carry no meaningful time of day.
func renderCell(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.Format("2006-01-02")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case string:
		if strings.ContainsAny(t, ",\"\n") {
			return strconv.Quote(t)
		}
		return t
	default:
		return fmt.Sprint(t)
	}
}
