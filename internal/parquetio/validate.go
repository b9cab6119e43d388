package parquetio

import (
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"
)

var requiredColumns = []string{"context_id", "start_time_us", "elapsed_ns", "return_code", "raw_command"}

// ValidateSchema checks that a Parquet schema carries the statistic columns.
func ValidateSchema(schema *parquet.Schema) error {
	columns := make(map[string]bool)
	for _, field := range schema.Fields() {
		columns[strings.ToLower(field.Name())] = true
	}

	var missing []string
	for _, col := range requiredColumns {
		if !columns[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("not a statistics file: missing columns %s", strings.Join(missing, ", "))
	}
	return nil
}
