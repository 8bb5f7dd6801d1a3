package agent

import (
	"fmt"
	"strconv"

	"github.com/askdb/askdb/internal/query"
)

// ChartData is the chart-friendly projection of a result set: one label and
// one float per row.
type ChartData struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// BuildChartData projects a result set for charting. Labels come from the
// first non-numeric column; values from the first numeric column. When every
// column is numeric, a single aggregate row is labeled by its value column's
// name and multi-row results fall back to row indexes. Without a numeric
// column there is nothing to plot: the value sequence stays empty.
func BuildChartData(result query.Result) ChartData {
	if len(result.Rows) == 0 {
		return ChartData{Labels: []string{}, Values: []float64{}}
	}

	labelIndex := -1
	valueIndex := -1
	for i, value := range result.Rows[0] {
		if labelIndex == -1 && !isNumeric(value) {
			labelIndex = i
		}
		if valueIndex == -1 && isNumeric(value) {
			valueIndex = i
		}
	}

	values := make([]float64, 0, len(result.Rows))
	if valueIndex >= 0 {
		for _, row := range result.Rows {
			values = append(values, coerceFloat(cellAt(row, valueIndex)))
		}
	}

	labels := make([]string, 0, len(result.Rows))
	switch {
	case labelIndex >= 0:
		for _, row := range result.Rows {
			labels = append(labels, stringify(cellAt(row, labelIndex)))
		}
	case valueIndex >= 0 && len(result.Rows) == 1 && valueIndex < len(result.Columns):
		labels = append(labels, result.Columns[valueIndex])
	default:
		for i := range result.Rows {
			labels = append(labels, strconv.Itoa(i+1))
		}
	}

	return ChartData{Labels: labels, Values: values}
}

func cellAt(row []any, index int) any {
	if index < 0 || index >= len(row) {
		return nil
	}
	return row[index]
}

func isNumeric(value any) bool {
	switch value.(type) {
	case int, int32, int64, uint, uint32, uint64, float32, float64:
		return true
	default:
		return false
	}
}

func coerceFloat(value any) float64 {
	switch typed := value.(type) {
	case int:
		return float64(typed)
	case int32:
		return float64(typed)
	case int64:
		return float64(typed)
	case uint:
		return float64(typed)
	case uint32:
		return float64(typed)
	case uint64:
		return float64(typed)
	case float32:
		return float64(typed)
	case float64:
		return typed
	case string:
		parsed, err := strconv.ParseFloat(typed, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func stringify(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	default:
		return fmt.Sprintf("%v", typed)
	}
}
