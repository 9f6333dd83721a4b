package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/malbeclabs/finagent/pkg/store"
)

const noResults = "No results found."

// FormatRows renders a result set as answer text:
//
//   - no rows: "No results found."
//   - one row: "col: value | col: value\n" in column order
//   - more rows: a JSON array of row objects with keys in column order
func FormatRows(rs store.RowSet) string {
	switch rs.Len() {
	case 0:
		return noResults
	case 1:
		row := rs.Rows[0]
		parts := make([]string, 0, len(rs.Columns))
		for _, col := range rs.Columns {
			parts = append(parts, col+": "+formatValue(row[col]))
		}
		return strings.Join(parts, " | ") + "\n"
	default:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, row := range rs.Rows {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('{')
			for j, col := range rs.Columns {
				if j > 0 {
					buf.WriteByte(',')
				}
				writeJSON(&buf, col)
				buf.WriteByte(':')
				writeJSON(&buf, row[col])
			}
			buf.WriteByte('}')
		}
		buf.WriteByte(']')
		return buf.String()
	}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case []byte:
		return string(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}

func writeJSON(buf *bytes.Buffer, v any) {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	data, err := json.Marshal(v)
	if err != nil {
		// Values json cannot represent (NaN, Inf) fall back to their text form.
		data, _ = json.Marshal(formatValue(v))
	}
	buf.Write(data)
}
