package pipeline_test

import (
	"math"
	"testing"
	"time"

	"github.com/malbeclabs/finagent/pkg/pipeline"
	"github.com/malbeclabs/finagent/pkg/store"
	"github.com/stretchr/testify/require"
)

func TestFinagent_Pipeline_FormatRows(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rs       store.RowSet
		expected string
	}{
		{
			name:     "no rows",
			rs:       store.RowSet{Columns: []string{"balance"}},
			expected: "No results found.",
		},
		{
			name:     "no rows and no columns",
			rs:       store.RowSet{},
			expected: "No results found.",
		},
		{
			name: "single row keeps column order",
			rs: store.RowSet{
				Columns: []string{"name", "balance", "user_id"},
				Rows:    []store.Row{{"user_id": int64(7), "balance": 1520.75, "name": "Lena Fischer"}},
			},
			expected: "name: Lena Fischer | balance: 1520.75 | user_id: 7\n",
		},
		{
			name: "single row single column",
			rs: store.RowSet{
				Columns: []string{"total_profit"},
				Rows:    []store.Row{{"total_profit": 2056.5}},
			},
			expected: "total_profit: 2056.5\n",
		},
		{
			name: "single row with null and whole float",
			rs: store.RowSet{
				Columns: []string{"symbol", "profit", "raw"},
				Rows:    []store.Row{{"symbol": nil, "profit": 2000.0, "raw": []byte("x")}},
			},
			expected: "symbol: NULL | profit: 2000 | raw: x\n",
		},
		{
			name: "single row with time",
			rs: store.RowSet{
				Columns: []string{"deal_time"},
				Rows:    []store.Row{{"deal_time": time.Date(2025, 10, 1, 6, 40, 0, 0, time.UTC)}},
			},
			expected: "deal_time: 2025-10-01T06:40:00Z\n",
		},
		{
			name: "multiple rows render as ordered json",
			rs: store.RowSet{
				Columns: []string{"id", "symbol", "profit"},
				Rows: []store.Row{
					{"profit": 53.0, "symbol": "EURUSD", "id": int64(3)},
					{"profit": -27.5, "symbol": nil, "id": int64(5)},
				},
			},
			expected: `[{"id":3,"symbol":"EURUSD","profit":53},{"id":5,"symbol":null,"profit":-27.5}]`,
		},
		{
			name: "multiple rows with unrepresentable float",
			rs: store.RowSet{
				Columns: []string{"ratio"},
				Rows:    []store.Row{{"ratio": math.Inf(1)}, {"ratio": 0.5}},
			},
			expected: `[{"ratio":"+Inf"},{"ratio":0.5}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, pipeline.FormatRows(tt.rs))
		})
	}
}

func TestFinagent_Pipeline_FormatRows_Deterministic(t *testing.T) {
	t.Parallel()

	rs := store.RowSet{
		Columns: []string{"c", "b", "a"},
		Rows: []store.Row{
			{"a": 1, "b": 2, "c": 3},
			{"a": 4, "b": 5, "c": 6},
		},
	}
	first := pipeline.FormatRows(rs)
	for range 20 {
		require.Equal(t, first, pipeline.FormatRows(rs))
	}
	require.Equal(t, `[{"c":3,"b":2,"a":1},{"c":6,"b":5,"a":4}]`, first)
}
